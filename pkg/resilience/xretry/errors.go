package xretry

import "errors"

var (
	// ErrNilRetryer Retryer 为 nil
	ErrNilRetryer = errors.New("xretry: nil retryer")
	// ErrNilContext context 为 nil
	ErrNilContext = errors.New("xretry: nil context")
	// ErrNilFunc 待执行函数为 nil
	ErrNilFunc = errors.New("xretry: nil func")
	// ErrUnknownBackoff 退避策略名称无法识别
	ErrUnknownBackoff = errors.New("xretry: unknown backoff")
)

// RetryableError 可重试错误接口
type RetryableError interface {
	error
	Retryable() bool
}

// PermanentError 永久性错误（不应重试）
type PermanentError struct {
	Err error
}

// NewPermanentError 创建永久性错误
func NewPermanentError(err error) *PermanentError {
	return &PermanentError{Err: err}
}

func (e *PermanentError) Error() string {
	if e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) Retryable() bool { return false }

// TemporaryError 临时性错误（应该重试）
type TemporaryError struct {
	Err error
}

// NewTemporaryError 创建临时性错误
func NewTemporaryError(err error) *TemporaryError {
	return &TemporaryError{Err: err}
}

func (e *TemporaryError) Error() string {
	if e.Err == nil {
		return "temporary error"
	}
	return e.Err.Error()
}

func (e *TemporaryError) Unwrap() error { return e.Err }

func (e *TemporaryError) Retryable() bool { return true }

// IsRetryable 检查错误是否可重试
//   - nil：不需要重试
//   - 实现 RetryableError：以 Retryable() 为准
//   - 其他错误：视为可重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re RetryableError
	if errors.As(err, &re) {
		return re.Retryable()
	}
	return true
}

// IsPermanent 检查错误是否为永久性错误
func IsPermanent(err error) bool {
	return err != nil && !IsRetryable(err)
}
