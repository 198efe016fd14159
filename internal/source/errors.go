package source

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrKind 采集错误类别
type ErrKind string

const (
	ErrNetwork ErrKind = "network" // 连接 / DNS 失败
	ErrTimeout ErrKind = "timeout" // 超过超时时间
	ErrParse   ErrKind = "parse"   // 响应结构与预期不符（页面改版等）
	ErrAuth    ErrKind = "auth"    // 凭证缺失或被拒绝
)

// Error 带类别的采集错误，客户端返回的错误统一为该类型
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewNetworkError(cause error) *Error {
	return &Error{Kind: ErrNetwork, Message: "network request failed", Cause: cause}
}

func NewTimeoutError(cause error) *Error {
	return &Error{Kind: ErrTimeout, Message: "request timed out", Cause: cause}
}

func NewParseError(message string) *Error {
	return &Error{Kind: ErrParse, Message: message}
}

func NewAuthError(message string) *Error {
	return &Error{Kind: ErrAuth, Message: message}
}

// Classify 将任意错误归入四类。已经是 *Error 的保持不变；
// 超时（context 或 net.Error）归为 timeout，其余网络层错误归为 network
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return se
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewTimeoutError(err)
	}

	return NewNetworkError(err)
}

// Retryable 网络与超时错误允许聚合层做一次有限重试，解析/鉴权错误重试没有意义
func Retryable(err *Error) bool {
	if err == nil {
		return false
	}
	return err.Kind == ErrNetwork || err.Kind == ErrTimeout
}
