package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"gopkg.in/natefinch/lumberjack.v2"
)

const TimeFormat = "2006-01-02 15:04:05"

var (
	mu      sync.Mutex
	writers []*lumberjack.Logger
	stop    chan struct{}
)

// initLogger 初始化全局 logger，可重复调用（会关闭上一次的文件句柄）
func initLogger(config Config) error {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.SetGlobalLevel(parseLevel(config.Level))

	if len(config.LevelFiles) == 0 {
		config.LevelFiles = LevelFiles{{Level: INFO, Path: "logs/adaptbtc.log"}}
	}

	for _, entry := range config.LevelFiles {
		if err := os.MkdirAll(filepath.Dir(entry.Path), 0o755); err != nil {
			return err
		}
	}

	mu.Lock()
	defer mu.Unlock()

	closeWriters()

	configured := config.LevelFiles.mask()
	outputs := make([]io.Writer, 0, len(config.LevelFiles)+1)
	for _, entry := range config.LevelFiles {
		lj := &lumberjack.Logger{
			Filename:   entry.Path,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, lj)
		outputs = append(outputs, &levelWriter{
			level:      parseLevel(entry.Level),
			configured: configured,
			out: zerolog.ConsoleWriter{
				Out:        lj,
				TimeFormat: TimeFormat,
				NoColor:    true,
			},
		})
	}
	if config.Console {
		outputs = append(outputs, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: TimeFormat})
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(outputs...)).With().Timestamp().Caller().Logger()

	if stop != nil {
		close(stop)
	}
	stop = make(chan struct{})
	go rotateDaily(stop)

	return nil
}

// levelWriter 只写入本级别的日志；info 文件兜底所有未单独配置的级别，
// error 文件兜底未配置的 fatal
type levelWriter struct {
	level      zerolog.Level
	configured uint8
	out        io.Writer
}

func (w *levelWriter) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

func (w *levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level == w.level {
		return w.out.Write(p)
	}
	unconfigured := w.configured&(1<<level) == 0
	switch {
	case w.level == zerolog.InfoLevel && unconfigured:
		return w.out.Write(p)
	case w.level == zerolog.ErrorLevel && level == zerolog.FatalLevel && unconfigured:
		return w.out.Write(p)
	}
	return len(p), nil
}

// rotateDaily 每天零点切割一次日志
func rotateDaily(done <-chan struct{}) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-done:
			timer.Stop()
			return
		case <-timer.C:
			mu.Lock()
			for _, lj := range writers {
				if err := lj.Rotate(); err != nil {
					log.Logger.Err(err).Str("file", lj.Filename).Msg("rotate log file failed")
				}
			}
			mu.Unlock()
		}
	}
}

func closeWriters() {
	for _, lj := range writers {
		_ = lj.Close()
	}
	writers = nil
}

// SetLevel 调整全局日志级别，可在运行中调用
func SetLevel(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))
}

// L 返回全局 logger
func L() *zerolog.Logger {
	return &log.Logger
}

// Component 带 component 字段的子 logger
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}

func Info() *zerolog.Event {
	return log.Logger.Info()
}

func Debug() *zerolog.Event {
	return log.Logger.Debug()
}

func Warn() *zerolog.Event {
	return log.Logger.Warn()
}

func Error() *zerolog.Event {
	return log.Logger.Error()
}

func Fatal() *zerolog.Event {
	return log.Logger.Fatal()
}

// Err 有错误时记 error，否则记 info
func Err(err error) *zerolog.Event {
	return log.Logger.Err(err)
}

// Close 停止切割协程并关闭文件
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if stop != nil {
		close(stop)
		stop = nil
	}
	closeWriters()
}
