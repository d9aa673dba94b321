package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

const (
	DEBUG = "debug"
	INFO  = "info"
	WARN  = "warn"
	ERROR = "error"
	FATAL = "fatal"
)

// parseLevel 解析等级名称，未知等级按 info 处理
func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case DEBUG:
		return zerolog.DebugLevel
	case WARN, "warning":
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	case FATAL:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// LevelFile 单个级别的日志文件
type LevelFile struct {
	Level string // debug, info, warn, error, fatal
	Path  string
}

// LevelFiles 分级日志文件集合
type LevelFiles []LevelFile

// Path 获取指定级别的文件路径
func (lf LevelFiles) Path(level string) (string, bool) {
	for _, entry := range lf {
		if entry.Level == level {
			return entry.Path, true
		}
	}
	return "", false
}

// Has 判断是否配置了指定级别
func (lf LevelFiles) Has(level string) bool {
	_, ok := lf.Path(level)
	return ok
}

// mask 已配置级别的位掩码
func (lf LevelFiles) mask() uint8 {
	var m uint8
	for _, entry := range lf {
		m |= 1 << parseLevel(entry.Level)
	}
	return m
}

type Config struct {
	LevelFiles LevelFiles // 为空时只写 logs/adaptbtc.log
	MaxSize    int        // 单文件最大 MB
	MaxBackups int        // 旧文件保留数量
	MaxAge     int        // 旧文件保留天数
	Level      string
	Compress   bool
	Console    bool // 同时输出到 stdout
}

// DefaultConfig 默认配置：info 与 error 分文件
func DefaultConfig() Config {
	return Config{
		LevelFiles: LevelFiles{
			{Level: ERROR, Path: "logs/adaptbtc.err.log"},
			{Level: INFO, Path: "logs/adaptbtc.log"},
		},
		MaxSize:    10,
		MaxBackups: 30,
		MaxAge:     7,
		Level:      INFO,
	}
}

type Builder struct {
	config Config
}

func NewBuilder() *Builder {
	return &Builder{config: DefaultConfig()}
}

func (b *Builder) SetMaxSize(size int) *Builder {
	b.config.MaxSize = size
	return b
}

func (b *Builder) SetMaxBackups(backups int) *Builder {
	b.config.MaxBackups = backups
	return b
}

func (b *Builder) SetMaxAge(days int) *Builder {
	b.config.MaxAge = days
	return b
}

func (b *Builder) SetLevel(level string) *Builder {
	b.config.Level = level
	return b
}

func (b *Builder) EnableCompression(enable bool) *Builder {
	b.config.Compress = enable
	return b
}

func (b *Builder) EnableConsoleOutput(enable bool) *Builder {
	b.config.Console = enable
	return b
}

// SetDir 把默认文件放到指定目录
func (b *Builder) SetDir(dir string) *Builder {
	dir = strings.TrimRight(dir, "/")
	if dir == "" {
		return b
	}
	b.config.LevelFiles = LevelFiles{
		{Level: ERROR, Path: dir + "/adaptbtc.err.log"},
		{Level: INFO, Path: dir + "/adaptbtc.log"},
	}
	return b
}

// SetLevelFiles 覆盖分级文件配置
func (b *Builder) SetLevelFiles(files LevelFiles) *Builder {
	b.config.LevelFiles = files
	return b
}

func (b *Builder) Build() error {
	return initLogger(b.config)
}
