package monitor

import "time"

// 各组件的指标接口适配，组件本身不依赖 prometheus

// UpstreamCollector 实现 upstream.MetricsCollector
type UpstreamCollector struct{}

func (UpstreamCollector) RecordRequest(source, status string, d time.Duration) {
	GetMetrics().ObserveUpstream(source, status, d)
}

// ExchangeCollector 实现 exchange.Metrics
type ExchangeCollector struct{}

func (ExchangeCollector) SourceFailed(name string) {
	GetMetrics().IncSourceFailure(name)
}

func (ExchangeCollector) AggregationFailed() {
	GetMetrics().IncAggregationFailure()
}

// CacheCollector 实现 pricing.CacheMetrics
type CacheCollector struct{}

func (CacheCollector) CacheHit(cache string) {
	GetMetrics().IncCacheHit(cache)
}

func (CacheCollector) CacheMiss(cache string) {
	GetMetrics().IncCacheMiss(cache)
}

// IncHTTPRequest 记录 API 请求
func IncHTTPRequest(route, status string) {
	GetMetrics().IncHTTPRequest(route, status)
}

// AddStreamClients 调整行情推送客户端数
func AddStreamClients(delta int) {
	GetMetrics().AddStreamClients(delta)
}

// IncConsulting 记录咨询请求结果
func IncConsulting(result string) {
	GetMetrics().IncConsulting(result)
}

// ConsultingCollector 实现 consulting.Metrics
type ConsultingCollector struct{}

func (ConsultingCollector) Consulting(result string) {
	GetMetrics().IncConsulting(result)
}
