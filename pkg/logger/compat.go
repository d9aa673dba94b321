package logger

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ========== printf 风格接口 ==========
// gorm 等第三方库只认 Printf，这里统一转到 zerolog

func logf(event *zerolog.Event, format string, args ...any) {
	if event == nil {
		return
	}
	// 跳过 logf 和导出函数两层，显示真实调用者
	event = event.CallerSkipFrame(2)
	if len(args) == 0 {
		event.Msg(format)
		return
	}
	event.Msgf(format, args...)
}

// Printf 等同 Infof，实现 gorm logger.Writer
func Printf(format string, v ...any) {
	logf(log.Logger.Info(), format, v...)
}

func Infof(format string, v ...any) {
	logf(log.Logger.Info(), format, v...)
}

func Debugf(format string, v ...any) {
	logf(log.Logger.Debug(), format, v...)
}

func Warnf(format string, v ...any) {
	logf(log.Logger.Warn(), format, v...)
}

func Errorf(format string, v ...any) {
	logf(log.Logger.Error(), format, v...)
}

// Writer 适配 gorm logger.Writer 接口
type Writer struct{}

func (Writer) Printf(format string, args ...any) {
	logf(log.Logger.Warn(), format, args...)
}
