package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "adaptbtc"

// Metrics 指标收集器
type Metrics struct {
	cacheHitTotal  *prometheus.CounterVec
	cacheMissTotal *prometheus.CounterVec
	// 上游请求
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	// 交易所聚合
	sourceFailures      *prometheus.CounterVec
	aggregationFailures prometheus.Counter
	// 对外接口
	httpRequests    *prometheus.CounterVec
	streamClients   prometheus.Gauge
	consultingTotal *prometheus.CounterVec
	natsConnected   prometheus.Gauge
	dbConnected     prometheus.Gauge
}

// NewMetrics 创建并注册指标
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWith 注册到指定 registerer，测试用独立 registry
func NewMetricsWith(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheHitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hit_total",
				Help:      "缓存命中总数（按缓存）",
			},
			[]string{"cache"}, // history, snapshot, exchange
		),
		cacheMissTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_miss_total",
				Help:      "缓存未命中或过期总数（按缓存）",
			},
			[]string{"cache"},
		),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream price API requests",
			},
			[]string{"source", "status"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "上游请求耗时分布（秒）",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
			},
			[]string{"source"},
		),
		sourceFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exchange_source_failures_total",
				Help:      "Total number of failed exchange quotes",
			},
			[]string{"exchange"},
		),
		aggregationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exchange_aggregation_failures_total",
				Help:      "所有交易所都失败的次数",
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"route", "status"},
		),
		streamClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_clients",
				Help:      "当前 WebSocket 行情订阅客户端数",
			},
		),
		consultingTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consulting_requests_total",
				Help:      "Total number of consulting requests",
			},
			[]string{"result"}, // sent, invalid, failed
		),
		natsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "nats_connected",
				Help:      "NATS connection status (1=connected, 0=disconnected)",
			},
		),
		dbConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connected",
				Help:      "Database ping status (1=ok, 0=failed)",
			},
		),
	}

	reg.MustRegister(
		m.cacheHitTotal,
		m.cacheMissTotal,
		m.upstreamRequests,
		m.upstreamLatency,
		m.sourceFailures,
		m.aggregationFailures,
		m.httpRequests,
		m.streamClients,
		m.consultingTotal,
		m.natsConnected,
		m.dbConnected,
	)

	return m
}

func (m *Metrics) IncCacheHit(cache string) {
	m.cacheHitTotal.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncCacheMiss(cache string) {
	m.cacheMissTotal.WithLabelValues(cache).Inc()
}

// ObserveUpstream 记录一次上游请求
func (m *Metrics) ObserveUpstream(source, status string, d time.Duration) {
	m.upstreamRequests.WithLabelValues(source, status).Inc()
	m.upstreamLatency.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) IncSourceFailure(exchange string) {
	m.sourceFailures.WithLabelValues(exchange).Inc()
}

func (m *Metrics) IncAggregationFailure() {
	m.aggregationFailures.Inc()
}

func (m *Metrics) IncHTTPRequest(route, status string) {
	m.httpRequests.WithLabelValues(route, status).Inc()
}

func (m *Metrics) AddStreamClients(delta int) {
	m.streamClients.Add(float64(delta))
}

func (m *Metrics) IncConsulting(result string) {
	m.consultingTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetNATSConnected(connected bool) {
	m.natsConnected.Set(boolGauge(connected))
}

func (m *Metrics) SetDBConnected(connected bool) {
	m.dbConnected.Set(boolGauge(connected))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics 获取全局指标收集器
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewMetrics(Namespace)
	})
	return globalMetrics
}

// InitMetrics 初始化指标收集器（供main使用）
func InitMetrics() {
	GetMetrics()
}
