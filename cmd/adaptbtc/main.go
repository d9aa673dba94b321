package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/api"
	"github.com/adaptbtc/adaptbtc-server/internal/cleaner"
	"github.com/adaptbtc/adaptbtc-server/internal/coingecko"
	"github.com/adaptbtc/adaptbtc-server/internal/consulting"
	"github.com/adaptbtc/adaptbtc-server/internal/dal"
	"github.com/adaptbtc/adaptbtc-server/internal/dao"
	"github.com/adaptbtc/adaptbtc-server/internal/exchange"
	"github.com/adaptbtc/adaptbtc-server/internal/monitor"
	"github.com/adaptbtc/adaptbtc-server/internal/nats"
	"github.com/adaptbtc/adaptbtc-server/internal/portal"
	"github.com/adaptbtc/adaptbtc-server/internal/pricing"
	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
	"github.com/adaptbtc/adaptbtc-server/pkg/goplus"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
	"github.com/adaptbtc/adaptbtc-server/pkg/sigproc"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "cfg.toml", "config file path, empty for defaults and env only")
	flag.Parse()

	// 加载配置
	if err := config.Init(configFile); err != nil {
		panic(err)
	}
	cfg := config.Get()

	// 初始化日志
	if err := initLogger(cfg); err != nil {
		panic("init logger failed: " + err.Error())
	}
	defer logger.Close()
	config.OnReload(func(c *config.Config) {
		logger.SetLevel(c.Logger.Level)
		logger.Info().Str("level", c.Logger.Level).Msg("log level applied")
	})

	logger.Info().Msg("adaptbtc service starting...")

	// 初始化指标
	monitor.InitMetrics()

	// 初始化数据库
	if err := dal.InitDB(cfg.Database); err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("init database failed")
	}
	monitor.GetMetrics().SetDBConnected(true)

	// 自动迁移表结构
	if err := dal.AutoMigrate(dal.DB()); err != nil {
		logger.Fatal().Err(err).Msg("auto migrate failed")
	}

	// 初始化 DAO
	dao.InitDAO(dal.DB())

	// 课程库
	library, err := portal.LoadLibrary()
	if err != nil {
		logger.Fatal().Err(err).Msg("load course library failed")
	}
	learning := portal.New(dal.DB(), library, portal.WithVerificationURL(cfg.Portal.VerificationURL))
	if cfg.Portal.Seed {
		if err = learning.Seed(); err != nil {
			logger.Fatal().Err(err).Msg("seed courses failed")
		}
	}

	// 咨询邮件，未配置 api_key 时请求直接返回投递失败
	mailer, err := consulting.NewMailer(cfg.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("init consulting mailer failed")
	}
	if !mailer.Configured() {
		logger.Warn().Msg("email api key not set, consulting requests will be rejected")
	}
	consultingOpts := []consulting.Option{consulting.WithMetrics(monitor.ConsultingCollector{})}

	// NATS 通知可选
	var (
		publisher    *nats.Publisher
		publisherRef monitor.PublisherRef
	)
	if cfg.NATS.Enabled {
		publisher, err = nats.NewPublisher(cfg.NATS.Endpoint, cfg.NATS.Subject)
		if err != nil {
			logger.Error().Err(err).Str("endpoint", cfg.NATS.Endpoint).Msg("init nats publisher failed")
		} else {
			publisherRef = publisher
			consultingOpts = append(consultingOpts, consulting.WithPublisher(publisher))
			defer publisher.Close()
		}
	}
	consultingSvc := consulting.NewService(dao.Consulting(), mailer, consultingOpts...)

	// 行情
	upstreamMetrics := upstream.WithMetrics(monitor.UpstreamCollector{})
	market := coingecko.NewClient(cfg.Exchange.CoinGeckoURL, upstreamMetrics)
	aggregator, err := exchange.NewAggregator(
		exchange.DefaultSources(cfg.Exchange.EnableHyperliquid, cfg.Exchange.HyperliquidURL, upstreamMetrics),
		exchange.WithPoolSize(cfg.Exchange.PoolSize),
		exchange.WithAggregatorMetrics(monitor.ExchangeCollector{}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("init exchange aggregator failed")
	}
	defer aggregator.Release()

	prices := pricing.NewService(market, aggregator, pricing.WithCacheMetrics(monitor.CacheCollector{}))

	// 创建数据清理器
	dataCleaner := cleaner.NewDefaultCleaner(cfg.Cleaner.Interval, cfg.Cleaner.ConsultingRetention, portal.MaxAttempts)
	dataCleaner.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化健康检查服务器
	healthServer := monitor.NewHealthServer(cfg.Server.HealthAddr, dal.Pinger{DB: dal.DB()}, publisherRef, prices.Caches()...)
	if err = healthServer.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("start health server failed")
	}

	// API
	apiServer := api.NewServer(cfg, api.Deps{
		Prices:     prices,
		Portal:     learning,
		Consulting: consultingSvc,
	})
	goplus.Go(func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("api server error")
			cancel()
		}
	})

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("health_addr", cfg.Server.HealthAddr).
		Bool("nats", publisher != nil).
		Bool("email", mailer.Configured()).
		Bool("hyperliquid", cfg.Exchange.EnableHyperliquid).
		Msg("adaptbtc service started successfully")

	// 优雅关闭
	sigproc.GracefulShutdown(func(sig os.Signal) {
		logger.Info().Str("signal", sig.String()).Msg("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		// 停止接收新请求
		if err := apiServer.Stop(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("api server shutdown")
		}

		// 停止数据清理器
		dataCleaner.Stop()

		// 关闭健康检查服务器
		_ = healthServer.Stop(shutdownCtx)

		// 关闭配置重载
		config.Stop()

		aggregator.Release()

		if publisher != nil {
			_ = publisher.Close()
		}

		// 关闭数据库
		dal.Close()

		logger.Info().Msg("adaptbtc service stopped")
		cancel()
	})

	<-ctx.Done()
}

func initLogger(cfg *config.Config) error {
	return logger.NewBuilder().
		SetDir(cfg.Logger.Dir).
		SetMaxSize(cfg.Logger.MaxSize).
		SetMaxBackups(cfg.Logger.MaxBackups).
		SetMaxAge(cfg.Logger.MaxAge).
		SetLevel(cfg.Logger.Level).
		EnableCompression(cfg.Logger.Compress).
		EnableConsoleOutput(cfg.Logger.Console).
		Build()
}
