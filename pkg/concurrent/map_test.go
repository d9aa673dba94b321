package concurrent

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap_StoreAndLen(t *testing.T) {
	var m Map[string, int]

	m.Store("a", 1)
	m.Store("b", 2)
	m.Store("a", 3)

	assert.Equal(t, int64(2), m.Len())
	v, ok := m.Load("a")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = m.Load("missing")
	assert.False(t, ok)
}

func TestMap_LoadOrStore(t *testing.T) {
	var m Map[string, int]

	v, loaded := m.LoadOrStore("k", 1)
	assert.False(t, loaded)
	assert.Equal(t, 1, v)

	v, loaded = m.LoadOrStore("k", 2)
	assert.True(t, loaded)
	assert.Equal(t, 1, v)
	assert.Equal(t, int64(1), m.Len())
}

func TestMap_DeleteIf(t *testing.T) {
	var m Map[int, int]
	for i := 0; i < 10; i++ {
		m.Store(i, i)
	}

	removed := m.DeleteIf(func(_ int, v int) bool { return v%2 == 0 })

	assert.Equal(t, 5, removed)
	assert.Equal(t, int64(5), m.Len())

	m.Delete(1)
	m.Delete(1)
	assert.Equal(t, int64(4), m.Len())

	m.Clear()
	assert.Equal(t, int64(0), m.Len())
}

func TestMap_Concurrent(t *testing.T) {
	var m Map[int, int]
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.LoadOrStore(i, i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), m.Len())
}
