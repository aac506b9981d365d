package xbatch

import (
	"errors"
	"fmt"
)

// ErrNilFunc 处理函数为 nil
var ErrNilFunc = errors.New("xbatch: nil func")

// ChunkError 块在重试耗尽后仍失败。
//
// Start 与 End 为该块在输入切片中的半开区间 [Start, End)。
type ChunkError struct {
	Index    int
	Start    int
	End      int
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("xbatch: chunk %d [%d:%d] failed after %d attempt(s): %v",
		e.Index, e.Start, e.End, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// AsChunkError 提取错误链中的 *ChunkError
func AsChunkError(err error) (*ChunkError, bool) {
	var ce *ChunkError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
