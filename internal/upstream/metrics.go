package upstream

import (
	"time"

	"github.com/spf13/cast"
)

// MetricsCollector 上游请求指标
type MetricsCollector interface {
	RecordRequest(source string, status string, duration time.Duration)
}

// NoopMetricsCollector 不记录任何指标
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRequest(string, string, time.Duration) {}

// statusLabel 指标中的状态标签：ok / network / malformed / http_<code>
func statusLabel(err *Error) string {
	if err == nil {
		return "ok"
	}
	if err.Kind == KindStatus {
		return "http_" + cast.ToString(err.StatusCode)
	}
	return string(err.Kind)
}
