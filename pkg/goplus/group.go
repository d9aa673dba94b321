package goplus

import (
	"sync"
	"sync/atomic"
)

var (
	defaultGroup     *WaitGroup
	defaultGroupOnce sync.Once
)

// DefaultGroup 进程级协程组，退出时统一等待
func DefaultGroup() *WaitGroup {
	defaultGroupOnce.Do(func() {
		defaultGroup = NewWaitGroup()
	})
	return defaultGroup
}

// Go 在默认协程组中启动带 recover 的协程
func Go(fn func()) {
	DefaultGroup().Go(fn)
}

func Wait() {
	DefaultGroup().Wait()
}

// WaitGroup 带计数与 panic 保护的 sync.WaitGroup
type WaitGroup struct {
	wg      sync.WaitGroup
	running atomic.Int64
}

func NewWaitGroup() *WaitGroup {
	return &WaitGroup{}
}

func (g *WaitGroup) Go(fn func()) {
	g.running.Add(1)
	g.wg.Add(1)

	go func() {
		defer func() {
			g.running.Add(-1)
			g.wg.Done()
		}()
		defer Recover()

		fn()
	}()
}

// Running 正在运行的协程数
func (g *WaitGroup) Running() int64 {
	return g.running.Load()
}

func (g *WaitGroup) Wait() {
	g.wg.Wait()
}
