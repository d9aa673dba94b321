package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/coingecko"
	"github.com/adaptbtc/adaptbtc-server/internal/consulting"
	"github.com/adaptbtc/adaptbtc-server/internal/exchange"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
	"github.com/adaptbtc/adaptbtc-server/internal/monitor"
	"github.com/adaptbtc/adaptbtc-server/internal/portal"
	"github.com/adaptbtc/adaptbtc-server/internal/ws"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

// PriceService 带缓存的行情数据
type PriceService interface {
	History(ctx context.Context, rangeID string) ([]coingecko.PricePoint, error)
	Snapshot(ctx context.Context) (json.RawMessage, error)
	ExchangePrices(ctx context.Context) (*exchange.AggregatedQuote, error)
}

// ConsultingService 咨询请求受理
type ConsultingService interface {
	Submit(ctx context.Context, req consulting.Request) (*models.ConsultingRequest, error)
}

// Deps 为 nil 的模块不注册对应路由
type Deps struct {
	Prices     PriceService
	Portal     *portal.Portal
	Consulting ConsultingService
}

type Server struct {
	engine  *gin.Engine
	srv     *http.Server
	deps    Deps
	feed    *ws.Feed
	limiter *RateLimiter
	log     zerolog.Logger
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: gin.New(),
		deps:   deps,
		log:    logger.Component("api"),
	}

	s.engine.Use(recovery(s.log), requestLogger(s.log), cors.New(corsConfig(cfg.Server.AllowOrigins)))
	if cfg.RateLimit.Enabled {
		s.limiter = NewRateLimiter(cfg.RateLimit, s.log)
		s.engine.Use(s.limiter.Middleware())
	}

	if deps.Prices != nil {
		s.feed = ws.NewFeed(deps.Prices, cfg.Exchange.StreamInterval,
			ws.WithCheckOrigin(originChecker(cfg.Server.AllowOrigins)),
			ws.WithGauge(streamGauge{}),
		)
	}

	s.routes()

	s.srv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowHeaders = append(c.AllowHeaders, learnerHeader)
	c.ExposeHeaders = []string{learnerHeader}
	c.MaxAge = 12 * time.Hour
	return c
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

type streamGauge struct{}

func (streamGauge) AddStreamClients(delta int) {
	monitor.AddStreamClients(delta)
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	if s.deps.Prices != nil {
		api.GET("/btc/history", s.btcHistory)
		api.GET("/btc/snapshot", s.btcSnapshot)
		api.GET("/exchange-prices", s.exchangePrices)
		api.GET("/exchange-prices/stream", gin.WrapH(s.feed))
	}
	if s.deps.Consulting != nil {
		api.POST("/consulting/request", s.consultingRequest)
	}

	if s.deps.Portal != nil {
		p := s.engine.Group("/portal", learnerIdentity())
		p.GET("/dashboard", s.dashboard)
		p.GET("/progress", s.progress)
		p.GET("/courses", s.listCourses)
		p.GET("/courses/:course_id", s.courseDetail)
		p.GET("/courses/:course_id/lessons/:order", s.lesson)
		p.POST("/courses/:course_id/lessons/:order/complete", s.completeLesson)
		p.GET("/courses/:course_id/quiz", s.quiz)
		p.POST("/courses/:course_id/quiz", s.submitQuiz)
		p.POST("/courses/:course_id/certificate", s.issueCertificate)
		p.GET("/certificates/:id", s.verifyCertificate)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// Handler 用于测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start 阻塞直到服务关闭
func (s *Server) Start() error {
	if s.limiter != nil {
		s.limiter.Start()
	}
	s.log.Info().Str("addr", s.srv.Addr).Msg("api server started")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	// Shutdown 不会关闭已升级的 websocket 连接
	if s.feed != nil {
		s.feed.Close()
	}
	err := s.srv.Shutdown(ctx)
	s.log.Info().Msg("api server stopped")
	return err
}
