package xbreaker

import (
	"errors"
	"fmt"
)

// ErrNilFunc 传入的操作函数为 nil
var ErrNilFunc = errors.New("xbreaker: function cannot be nil")

// BreakerError 熔断器错误包装类型
//
// 包装 ErrOpenState、ErrTooManyRequests，Retryable() 返回 false。
type BreakerError struct {
	Err   error
	Name  string
	State State
}

func (e *BreakerError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("breaker %s: %v", e.Name, e.Err)
	}
	return e.Err.Error()
}

func (e *BreakerError) Unwrap() error { return e.Err }

// Retryable 实现 xretry.RetryableError 接口
func (e *BreakerError) Retryable() bool { return false }

// wrapBreakerError 只包装当前熔断器直接返回的 sentinel error。
// 状态由错误类型推导，不再查询 State()。
func wrapBreakerError(err error, name string) error {
	if err == nil {
		return nil
	}
	var be *BreakerError
	if errors.As(err, &be) {
		return err
	}
	//nolint:errorlint // 仅匹配 gobreaker 直接返回的 sentinel
	switch err {
	case ErrOpenState:
		return &BreakerError{Err: err, Name: name, State: StateOpen}
	case ErrTooManyRequests:
		return &BreakerError{Err: err, Name: name, State: StateHalfOpen}
	}
	return err
}

// IsOpen 检查错误是否是熔断器打开错误
func IsOpen(err error) bool {
	return errors.Is(err, ErrOpenState)
}

// IsBreakerError 检查错误是否是熔断器拒绝（打开或半开请求过多）
func IsBreakerError(err error) bool {
	return IsOpen(err) || errors.Is(err, ErrTooManyRequests)
}
