package concurrent

import (
	"sync"
	"sync/atomic"
)

// Map 泛型并发 map，在 sync.Map 之上维护元素个数
type Map[K comparable, V any] struct {
	size atomic.Int64
	m    sync.Map
}

// Len 当前元素个数
func (m *Map[K, V]) Len() int64 {
	return m.size.Load()
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	v, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

// Store 写入或覆盖
func (m *Map[K, V]) Store(key K, value V) {
	if _, loaded := m.m.Swap(key, value); !loaded {
		m.size.Add(1)
	}
}

// LoadOrStore 已存在时返回旧值，loaded=true
func (m *Map[K, V]) LoadOrStore(key K, value V) (V, bool) {
	actual, loaded := m.m.LoadOrStore(key, value)
	if !loaded {
		m.size.Add(1)
	}
	return actual.(V), loaded
}

func (m *Map[K, V]) Delete(key K) {
	if _, loaded := m.m.LoadAndDelete(key); loaded {
		m.size.Add(-1)
	}
}

// DeleteIf 删除满足条件的元素，返回删除个数
func (m *Map[K, V]) DeleteIf(pred func(K, V) bool) int {
	removed := 0
	m.m.Range(func(key, value any) bool {
		if pred(key.(K), value.(V)) && m.m.CompareAndDelete(key, value) {
			m.size.Add(-1)
			removed++
		}
		return true
	})
	return removed
}

// Range 遍历，f 返回 false 时停止；不保证一致性快照
func (m *Map[K, V]) Range(f func(K, V) bool) {
	m.m.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

func (m *Map[K, V]) Clear() {
	m.m.Clear()
	m.size.Store(0)
}
