package goplus

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/adaptbtc/adaptbtc-server/pkg/logger"
)

const maxCallerDepth = 32

// Recover 捕获 panic 并记录调用栈，必须直接 defer
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	logger.Error().
		Str("panic", fmt.Sprint(r)).
		Str("callers", callers(3)).
		Msg("goroutine panic recovered")
}

func callers(skip int) string {
	pcs := make([]uintptr, maxCallerDepth)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var sb strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&sb, "%s:%d\n", frame.File, frame.Line)
		if !more {
			break
		}
	}
	return sb.String()
}
