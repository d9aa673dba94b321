package sigproc

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adaptbtc/adaptbtc-server/pkg/goplus"
	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

// ForceExitAfter 收到信号后最长等待时间，超时强制退出
const ForceExitAfter = 30 * time.Second

type HandlerFunc func(os.Signal)

// GracefulShutdown 监听退出信号，执行 shutdown；shutdown 返回或超时后退出进程
func GracefulShutdown(shutdown HandlerFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	goplus.Go(func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")

		done := make(chan struct{})
		goplus.Go(func() {
			defer close(done)
			shutdown(sig)
		})

		select {
		case <-done:
		case <-time.After(ForceExitAfter):
			logger.Warn().Dur("timeout", ForceExitAfter).Msg("shutdown timed out, forcing exit")
		}

		os.Exit(0)
	})
}
