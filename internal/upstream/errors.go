package upstream

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind 上游失败类别
type Kind string

const (
	KindNetwork   Kind = "network"   // 连接失败、超时、取消
	KindStatus    Kind = "status"    // 非 2xx
	KindMalformed Kind = "malformed" // 响应体不是预期结构
)

// Error 单个上游调用失败
type Error struct {
	Source     string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	return e.Source + ": " + e.Detail()
}

// Detail 不带来源前缀的错误描述
func (e *Error) Detail() string {
	switch e.Kind {
	case KindStatus:
		if e.Err != nil {
			return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Err.Error())
		}
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	case KindMalformed:
		return "malformed response: " + causeText(e.Err)
	default:
		return causeText(e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// NetworkError 网络层失败
func NetworkError(source string, err error) *Error {
	return &Error{Source: source, Kind: KindNetwork, Err: errors.WithStack(err)}
}

// StatusError 非 2xx 响应，body 截断后作为描述
func StatusError(source string, statusCode int, body string) *Error {
	var cause error
	if body != "" {
		cause = errors.New(body)
	}
	return &Error{Source: source, Kind: KindStatus, StatusCode: statusCode, Err: cause}
}

// Malformed 响应结构不符合预期
func Malformed(source string, format string, args ...any) *Error {
	return &Error{Source: source, Kind: KindMalformed, Err: errors.Errorf(format, args...)}
}

// IsKind 判断 err 链中是否有指定类别的 *Error
func IsKind(err error, kind Kind) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind == kind
	}
	return false
}
