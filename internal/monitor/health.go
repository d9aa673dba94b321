package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adaptbtc/adaptbtc-server/internal/cache"
	"github.com/adaptbtc/adaptbtc-server/pkg/goplus"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

// DatabaseRef 数据库连通性
type DatabaseRef interface {
	Ping(ctx context.Context) error
}

// PublisherRef NATS发布器引用接口
type PublisherRef interface {
	IsConnected() bool
}

// HealthServer HTTP 健康检查和指标服务器
type HealthServer struct {
	addr         string
	db           DatabaseRef
	publisher    PublisherRef
	caches       []cache.StatsProvider
	server       *http.Server
	mu           sync.RWMutex
	healthy      bool
	healthySince time.Time
	startTime    time.Time
	metrics      *Metrics
}

// NewHealthServer 创建健康检查服务器，db/publisher 可为 nil
func NewHealthServer(addr string, db DatabaseRef, publisher PublisherRef, caches ...cache.StatsProvider) *HealthServer {
	now := time.Now()
	return &HealthServer{
		addr:         addr,
		db:           db,
		publisher:    publisher,
		caches:       caches,
		healthy:      true,
		healthySince: now,
		startTime:    now,
		metrics:      GetMetrics(),
	}
}

// Handler 路由，Start 与测试共用
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/health/ready", h.readyHandler)
	mux.HandleFunc("/health/live", h.liveHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/status", h.statusHandler)
	return mux
}

// Start 启动HTTP服务器
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	goplus.Go(func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", h.addr).Msg("health server error")
		}
	})

	logger.Info().Str("addr", h.addr).Msg("health server started")
	return nil
}

// Stop 停止服务器
func (h *HealthServer) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.healthy = false
	h.mu.Unlock()

	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := h.getHealthStatus(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// readyHandler 数据库可用才算就绪；NATS 断开只影响咨询投递，不影响就绪
func (h *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if !h.isReady(r.Context()) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthServer) liveHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.getHealthStatus(r.Context()))
}

func (h *HealthServer) isReady(ctx context.Context) bool {
	h.mu.RLock()
	healthy := h.healthy
	h.mu.RUnlock()

	if !healthy {
		return false
	}
	return h.pingDB(ctx) == nil
}

func (h *HealthServer) pingDB(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := h.db.Ping(ctx)
	h.metrics.SetDBConnected(err == nil)
	return err
}

func (h *HealthServer) getHealthStatus(ctx context.Context) HealthStatus {
	h.mu.RLock()
	healthy := h.healthy
	healthySince := h.healthySince
	h.mu.RUnlock()

	dbStatus := DatabaseStatus{Configured: h.db != nil}
	if h.db != nil {
		if err := h.pingDB(ctx); err != nil {
			dbStatus.Error = err.Error()
		} else {
			dbStatus.Connected = true
		}
	}

	natsStatus := NATSStatus{Configured: h.publisher != nil}
	if h.publisher != nil {
		natsStatus.Connected = h.publisher.IsConnected()
		h.metrics.SetNATSConnected(natsStatus.Connected)
	}

	caches := make(map[string]map[string]any, len(h.caches))
	for _, c := range h.caches {
		caches[c.Name()] = c.Stats()
	}

	return HealthStatus{
		Healthy:      healthy,
		HealthySince: healthySince.Format(time.RFC3339),
		Uptime:       time.Since(h.startTime).String(),
		Database:     dbStatus,
		NATS:         natsStatus,
		Caches:       caches,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// HealthStatus 健康状态结构
type HealthStatus struct {
	Healthy      bool                      `json:"healthy"`
	HealthySince string                    `json:"healthy_since"`
	Uptime       string                    `json:"uptime"`
	Database     DatabaseStatus            `json:"database"`
	NATS         NATSStatus                `json:"nats"`
	Caches       map[string]map[string]any `json:"caches"`
}

type DatabaseStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Error      string `json:"error,omitempty"`
}

// NATSStatus NATS连接状态
type NATSStatus struct {
	Configured bool `json:"configured"`
	Connected  bool `json:"connected"`
}
