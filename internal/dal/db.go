package dal

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	proxymysql "github.com/go-sql-driver/mysql"
	"golang.org/x/net/proxy"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

var (
	db     *gorm.DB
	dbOnce sync.Once
	dbErr  error
)

// InitDB 初始化全局数据库连接，只执行一次
func InitDB(cfg config.Database) error {
	dbOnce.Do(func() {
		db, dbErr = Open(cfg)
	})
	return dbErr
}

// DB 全局连接，InitDB 之前为 nil
func DB() *gorm.DB {
	return db
}

// Open 按配置打开数据库：sqlite 用于单机部署和测试，mysql 支持代理和从库
func Open(cfg config.Database) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(logger.Writer{}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}

	switch cfg.Driver {
	case DriverSQLite, "":
		return openSQLite(cfg, gormCfg)
	case DriverMySQL:
		return openMySQL(cfg, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openSQLite(cfg config.Database, gormCfg *gorm.Config) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.DSN, err)
	}

	// sqlite 单写者
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	logger.Info().Str("dsn", cfg.DSN).Msg("sqlite opened")
	return conn, nil
}

// registerProxyDialer 注册 SOCKS5 代理拨号器
func registerProxyDialer(proxyAddr string) error {
	dialer, err := proxy.SOCKS5("tcp", proxyAddr, nil, &net.Dialer{})
	if err != nil {
		return fmt.Errorf("create proxy dialer failed: %w", err)
	}

	proxymysql.RegisterDialContext("tcp", func(ctx context.Context, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, "tcp", addr)
		}
		return dialer.Dial("tcp", addr)
	})
	return nil
}

func openMySQL(cfg config.Database, gormCfg *gorm.Config) (*gorm.DB, error) {
	if cfg.ProxyEnabled {
		if err := registerProxyDialer(cfg.ProxyAddr); err != nil {
			return nil, err
		}
		logger.Info().Str("proxy", cfg.ProxyAddr).Msg("mysql proxy enabled")
	}

	gormCfg.PrepareStmt = true
	conn, err := gorm.Open(mysql.Open(cfg.DSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect mysql master failed: %w", err)
	}

	maxIdleTime := time.Hour
	if cfg.ConnMaxIdleTime > 0 {
		maxIdleTime = time.Duration(cfg.ConnMaxIdleTime) * time.Second
	}
	maxLifetime := 2 * time.Hour
	if cfg.ConnMaxLifetime > 0 {
		maxLifetime = time.Duration(cfg.ConnMaxLifetime) * time.Second
	}

	// 读写分离
	if len(cfg.SlaveAddr) > 0 {
		replicas := make([]gorm.Dialector, 0, len(cfg.SlaveAddr))
		for _, addr := range cfg.SlaveAddr {
			replicas = append(replicas, mysql.Open(addr))
		}
		plugin := dbresolver.Register(dbresolver.Config{Replicas: replicas}).
			SetConnMaxIdleTime(maxIdleTime).
			SetConnMaxLifetime(maxLifetime).
			SetMaxIdleConns(cfg.MaxIdleConnections).
			SetMaxOpenConns(cfg.MaxOpenConnections)
		if err = conn.Use(plugin); err != nil {
			return nil, fmt.Errorf("register dbresolver failed: %w", err)
		}
		logger.Info().Int("replicas", len(replicas)).Msg("mysql replicas configured")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetConnMaxIdleTime(maxIdleTime)
	sqlDB.SetConnMaxLifetime(maxLifetime)

	logger.Info().
		Int("max_idle", cfg.MaxIdleConnections).
		Int("max_open", cfg.MaxOpenConnections).
		Dur("max_idle_time", maxIdleTime).
		Dur("max_lifetime", maxLifetime).
		Msg("mysql connected")
	return conn, nil
}

// Close 关闭全局连接
func Close() {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error().Err(err).Msg("get sql.DB failed")
		return
	}
	if err = sqlDB.Close(); err != nil {
		logger.Error().Err(err).Msg("close database failed")
		return
	}
	logger.Info().Msg("database closed")
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(conn *gorm.DB) error {
	modelList := []any{
		&models.Course{},
		&models.Lesson{},
		&models.CourseProgress{},
		&models.QuizAttempt{},
		&models.Certificate{},
		&models.ConsultingRequest{},
	}

	for _, model := range modelList {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migrate %s: %w", tableName(model), err)
		}
		logger.Debug().Str("table", tableName(model)).Msg("auto migrate success")
	}
	return nil
}

func tableName(model any) string {
	if t, ok := model.(interface{ TableName() string }); ok {
		return t.TableName()
	}
	return "unknown"
}

// Pinger 健康检查用的连通性探测
type Pinger struct {
	DB *gorm.DB
}

func (p Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
