package cache

// StatsProvider 可上报统计的缓存，供 /status 汇总
type StatsProvider interface {
	Name() string
	Stats() map[string]any
}
