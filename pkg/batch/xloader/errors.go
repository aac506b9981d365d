package xloader

import "errors"

var (
	// ErrNilFetch 批量查询函数为 nil
	ErrNilFetch = errors.New("xloader: nil batch func")

	// ErrFetchPanic 批量查询函数 panic
	ErrFetchPanic = errors.New("xloader: batch func panicked")
)
