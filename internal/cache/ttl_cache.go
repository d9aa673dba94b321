package cache

import (
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// Entry 缓存条目，Timestamp 为抓取时间
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
}

// Clock 时间源，测试时可注入
type Clock func() time.Time

// TTLCache 读时判断过期的 TTL 缓存
//
// 条目只在读取时按 now - Timestamp < ttl 判断是否有效，不启动清理协程；
// 过期条目留在原位，直到同一个 key 下一次 Set 整体覆盖。
// 底层 go-cache 自带锁，并发读写安全，但 Get 与 Set 之间不加锁。
type TTLCache[T any] struct {
	name  string
	ttl   time.Duration
	items *cache.Cache
	now   Clock

	hits   atomic.Int64
	misses atomic.Int64
	sets   atomic.Int64
}

type Option[T any] func(*TTLCache[T])

// WithClock 替换时间源
func WithClock[T any](clock Clock) Option[T] {
	return func(c *TTLCache[T]) {
		c.now = clock
	}
}

// NewTTLCache 创建缓存；go-cache 的过期与清理都关闭，由本层自己判断
func NewTTLCache[T any](name string, ttl time.Duration, opts ...Option[T]) *TTLCache[T] {
	c := &TTLCache[T]{
		name:  name,
		ttl:   ttl,
		items: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache[T]) Name() string {
	return c.name
}

func (c *TTLCache[T]) TTL() time.Duration {
	return c.ttl
}

// Get 返回仍在有效期内的数据；不存在或已过期都视为未命中
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T

	v, ok := c.items.Get(key)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	entry := v.(Entry[T])
	if !c.valid(entry) {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return entry.Data, true
}

// Peek 读取原始条目，不判断过期，不计入命中统计
func (c *TTLCache[T]) Peek(key string) (Entry[T], bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return Entry[T]{}, false
	}
	return v.(Entry[T]), true
}

// Set 用当前时间整体替换 key 的条目
func (c *TTLCache[T]) Set(key string, data T) Entry[T] {
	entry := Entry[T]{Data: data, Timestamp: c.now()}
	c.items.Set(key, entry, cache.NoExpiration)
	c.sets.Add(1)
	return entry
}

func (c *TTLCache[T]) valid(entry Entry[T]) bool {
	return c.now().Sub(entry.Timestamp) < c.ttl
}

func (c *TTLCache[T]) Len() int {
	return c.items.ItemCount()
}

// Stats 缓存统计
func (c *TTLCache[T]) Stats() map[string]any {
	return map[string]any{
		"name":    c.name,
		"ttl":     c.ttl.String(),
		"entries": c.items.ItemCount(),
		"hits":    c.hits.Load(),
		"misses":  c.misses.Load(),
		"sets":    c.sets.Load(),
	}
}
