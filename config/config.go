package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

type Server struct {
	Addr       string `toml:"addr"`
	HealthAddr string `toml:"health_addr"`
	// 为空时允许所有来源
	AllowOrigins []string `toml:"allow_origins"`
}

type Database struct {
	Driver             string   `toml:"driver"` // sqlite | mysql
	DSN                string   `toml:"dsn"`
	SlaveAddr          []string `toml:"slave_addr"`
	MaxIdleConnections int      `toml:"max_idle_connections"`
	MaxOpenConnections int      `toml:"max_open_connections"`
	ConnMaxLifetime    int      `toml:"conn_max_lifetime"`
	ConnMaxIdleTime    int      `toml:"conn_max_idle_time"`
	ProxyEnabled       bool     `toml:"proxy_enabled"`
	ProxyAddr          string   `toml:"proxy_addr"`
}

type NATS struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"`
	Subject  string `toml:"subject"`
}

// Email 咨询请求邮件，api_key 为空时不投递
type Email struct {
	APIKey  string `toml:"api_key"`
	From    string `toml:"from"`
	To      string `toml:"to"`
	BaseURL string `toml:"base_url"`
}

type Logger struct {
	Level      string `toml:"level"`
	Dir        string `toml:"dir"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
	MaxAge     int    `toml:"max_age"`
	Compress   bool   `toml:"compress"`
	Console    bool   `toml:"console"`
}

type Portal struct {
	Seed            bool   `toml:"seed"`
	VerificationURL string `toml:"verification_url"`
}

type Exchange struct {
	CoinGeckoURL      string        `toml:"coingecko_url"`
	EnableHyperliquid bool          `toml:"enable_hyperliquid"`
	HyperliquidURL    string        `toml:"hyperliquid_url"`
	PoolSize          int           `toml:"pool_size"`
	StreamInterval    time.Duration `toml:"stream_interval"`
}

type RateLimit struct {
	Enabled         bool          `toml:"enabled"`
	RequestsPerSec  float64       `toml:"requests_per_sec"`
	Burst           int           `toml:"burst"`
	IdleTimeout     time.Duration `toml:"idle_timeout"`
	CleanupInterval time.Duration `toml:"cleanup_interval"`
}

type Cleaner struct {
	Interval            time.Duration `toml:"interval"`
	ConsultingRetention time.Duration `toml:"consulting_retention"`
}

type Config struct {
	Server    Server    `toml:"server"`
	Database  Database  `toml:"database"`
	NATS      NATS      `toml:"nats"`
	Email     Email     `toml:"email"`
	Logger    Logger    `toml:"log"`
	Portal    Portal    `toml:"portal"`
	Exchange  Exchange  `toml:"exchange"`
	RateLimit RateLimit `toml:"rate_limit"`
	Cleaner   Cleaner   `toml:"cleaner"`
}

// 环境变量覆盖项
const (
	EnvHTTPAddr = "ADAPTBTC_HTTP_ADDR"
	EnvDBDSN    = "ADAPTBTC_DB_DSN"
	EnvNATSURL  = "ADAPTBTC_NATS_URL"
	EnvLogLevel = "ADAPTBTC_LOG_LEVEL"
	EnvResend   = "RESEND_API_KEY"
	EnvMailFrom = "CONSULTING_FROM_EMAIL"
)

var (
	cfg         *Config
	cfgPath     string
	cfgLock     sync.RWMutex
	lastModTime time.Time
	stopChan    chan struct{}

	hookLock    sync.Mutex
	reloadHooks []func(*Config)
)

func Default() *Config {
	return &Config{
		Server: Server{
			Addr:       "0.0.0.0:5000",
			HealthAddr: "0.0.0.0:16800",
		},
		Database: Database{
			Driver:             "sqlite",
			DSN:                "portal.db",
			SlaveAddr:          []string{},
			MaxIdleConnections: 4,
			MaxOpenConnections: 16,
			ConnMaxLifetime:    7200,
			ConnMaxIdleTime:    3600,
			ProxyAddr:          "127.0.0.1:7890",
		},
		NATS: NATS{
			Enabled:  false,
			Endpoint: "nats://localhost:4222",
			Subject:  "adaptbtc.consulting_request",
		},
		Email: Email{
			From: "support@adaptbtc.com",
			To:   "support@adaptbtc.com",
		},
		Logger: Logger{
			Level:      "info",
			Dir:        "logs",
			MaxSize:    10,
			MaxBackups: 30,
			MaxAge:     7,
		},
		Portal: Portal{
			Seed:            true,
			VerificationURL: "https://adaptbtc.com/portal/certificates",
		},
		Exchange: Exchange{
			CoinGeckoURL:   "https://api.coingecko.com/api/v3",
			HyperliquidURL: "https://api.hyperliquid.xyz",
			PoolSize:       16,
			StreamInterval: 15 * time.Second,
		},
		RateLimit: RateLimit{
			Enabled:         true,
			RequestsPerSec:  5,
			Burst:           20,
			IdleTimeout:     10 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Cleaner: Cleaner{
			Interval:            time.Hour,
			ConsultingRetention: 90 * 24 * time.Hour,
		},
	}
}

// Load 读取 .env 与 toml 文件；path 为空时只用默认值和环境变量
func Load(path string) error {
	// .env 不存在不算错误
	_ = godotenv.Load()

	c := Default()
	var modTime time.Time
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return err
		}
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		modTime = info.ModTime()
	}
	applyEnv(c)

	cfgLock.Lock()
	defer cfgLock.Unlock()
	cfg = c
	cfgPath = path
	lastModTime = modTime

	return nil
}

func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDBDSN)); v != "" {
		c.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvNATSURL)); v != "" {
		c.NATS.Endpoint = v
		c.NATS.Enabled = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Logger.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvResend)); v != "" {
		c.Email.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMailFrom)); v != "" {
		c.Email.From = v
	}
}

// Get 当前配置，未加载时返回默认值
func Get() *Config {
	cfgLock.RLock()
	defer cfgLock.RUnlock()
	if cfg == nil {
		return Default()
	}
	return cfg
}

// Init 初始化配置并启动定期重载（默认10秒）
func Init(path string) error {
	return InitWithInterval(path, 10*time.Second)
}

// InitWithInterval 初始化配置并指定重载间隔
func InitWithInterval(path string, interval time.Duration) error {
	if err := Load(path); err != nil {
		return err
	}
	if path == "" {
		return nil
	}

	stopChan = make(chan struct{})
	go func(stop <-chan struct{}) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				reloadIfNeeded()
			case <-stop:
				return
			}
		}
	}(stopChan)

	return nil
}

// OnReload 注册重载回调，只在文件变更并成功重载后调用；
// 大部分组件启动时已读取配置，回调里只应处理可热更新的项
func OnReload(fn func(*Config)) {
	hookLock.Lock()
	defer hookLock.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

func notifyReload(c *Config) {
	hookLock.Lock()
	hooks := append(([]func(*Config))(nil), reloadHooks...)
	hookLock.Unlock()

	for _, fn := range hooks {
		fn(c)
	}
}

// Stop 停止配置重载
func Stop() {
	if stopChan != nil {
		close(stopChan)
		stopChan = nil
	}
}

// reloadIfNeeded 仅在文件修改时重载
func reloadIfNeeded() {
	cfgLock.RLock()
	path := cfgPath
	lastMod := lastModTime
	cfgLock.RUnlock()

	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("config stat failed")
		return
	}

	if info.ModTime().After(lastMod) {
		if err = Load(path); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("config reload failed")
		} else {
			logger.Info().Str("path", path).Msg("config reloaded")
			notifyReload(Get())
		}
	}
}
