package xretry

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// 退避策略名称，用于配置文件
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
	BackoffNone        = "none"
)

var (
	_ BackoffPolicy = FixedBackoff(0)
	_ BackoffPolicy = ExponentialBackoff{}
)

// FixedBackoff 每次失败后等待相同时长，0 表示立即重试
type FixedBackoff time.Duration

// NewFixedBackoff 创建固定延迟退避策略，负数视为 0
func NewFixedBackoff(delay time.Duration) FixedBackoff {
	return FixedBackoff(max(delay, 0))
}

// NextDelay 实现 BackoffPolicy
func (b FixedBackoff) NextDelay(int) time.Duration { return time.Duration(b) }

// ExponentialBackoff 指数退避：第 n 次失败后等待 Initial * 2^(n-1)，
// 乘以 [1-Jitter, 1+Jitter] 内的随机因子后截断到 Max。
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
	// Jitter 抖动比例，截断到 [0, 1]
	Jitter float64
}

// 指数退避默认值
const (
	DefaultInitialDelay = 100 * time.Millisecond
	DefaultMaxDelay     = 30 * time.Second
	DefaultJitter       = 0.1
)

// NewExponentialBackoff 创建指数退避策略。
// initial 或 maxDelay <= 0 时取默认值，maxDelay 小于 initial 时提升为 initial。
func NewExponentialBackoff(initial, maxDelay time.Duration) ExponentialBackoff {
	if initial <= 0 {
		initial = DefaultInitialDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	return ExponentialBackoff{Initial: initial, Max: max(maxDelay, initial), Jitter: DefaultJitter}
}

// NextDelay 实现 BackoffPolicy，attempt 小于 1 时按 1 计算
func (b ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delay := float64(b.Initial) * math.Exp2(float64(max(attempt, 1)-1))
	if j := min(max(b.Jitter, 0), 1); j > 0 {
		delay *= 1 + (randomFloat64()*2-1)*j
	}
	// 溢出后为 +Inf，仍大于 Max
	if math.IsNaN(delay) || delay < 0 || delay >= float64(b.Max) {
		return b.Max
	}
	return time.Duration(delay)
}

// ParseBackoff 按名称构建退避策略。
//
//	fixed        每次等待 delay
//	exponential  从 delay 开始翻倍，上限 maxDelay
//	none         立即重试
//
// 空名称等同 fixed。
func ParseBackoff(kind string, delay, maxDelay time.Duration) (BackoffPolicy, error) {
	switch kind {
	case "", BackoffFixed:
		return NewFixedBackoff(delay), nil
	case BackoffExponential:
		return NewExponentialBackoff(delay, maxDelay), nil
	case BackoffNone:
		return FixedBackoff(0), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackoff, kind)
	}
}

func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) / (1 << 53)
}
