package xbreaker

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omeyang/xfeed/pkg/config/xconf"
)

// TripPolicy 熔断判定策略接口
type TripPolicy interface {
	// ReadyToTrip 返回 true 时熔断器从 Closed 转为 Open
	ReadyToTrip(counts Counts) bool
}

// SuccessPolicy 成功判定策略接口，默认 err == nil 为成功
type SuccessPolicy interface {
	IsSuccessful(err error) bool
}

// 默认参数
const (
	DefaultThreshold = 5
	DefaultTimeout   = 60 * time.Second
)

// Breaker 熔断器，Do 可并发调用
type Breaker struct {
	name string
	trip TripPolicy
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// Snapshot 熔断器状态快照
type Snapshot struct {
	Name   string
	State  State
	Policy string
	Counts Counts
}

// BreakerOption 熔断器配置选项，直接作用于 gobreaker.Settings
type BreakerOption func(*config)

type config struct {
	st   gobreaker.Settings
	trip TripPolicy
}

// WithTripPolicy 设置熔断判定策略，默认连续失败 DefaultThreshold 次，nil 忽略
func WithTripPolicy(p TripPolicy) BreakerOption {
	return func(c *config) {
		if p != nil {
			c.trip = p
		}
	}
}

// WithSuccessPolicy 设置成功判定策略，例如缓存未命中不计为失败
func WithSuccessPolicy(p SuccessPolicy) BreakerOption {
	return func(c *config) {
		if p != nil {
			c.st.IsSuccessful = p.IsSuccessful
		}
	}
}

// WithTimeout Open 持续多久后进入 HalfOpen，默认 DefaultTimeout，d <= 0 忽略
func WithTimeout(d time.Duration) BreakerOption {
	return func(c *config) {
		if d > 0 {
			c.st.Timeout = d
		}
	}
}

// WithInterval Closed 状态下统计清零的周期，0 表示不清零，负数忽略
func WithInterval(d time.Duration) BreakerOption {
	return func(c *config) {
		if d >= 0 {
			c.st.Interval = d
		}
	}
}

// WithMaxRequests HalfOpen 状态下放行的请求数，默认 1
func WithMaxRequests(n uint32) BreakerOption {
	return func(c *config) {
		if n > 0 {
			c.st.MaxRequests = n
		}
	}
}

// WithOnStateChange 设置状态变化回调
func WithOnStateChange(f func(name string, from, to State)) BreakerOption {
	return func(c *config) {
		c.st.OnStateChange = f
	}
}

// WithSettings 按 breaker 配置节设置判定策略、超时与统计周期。
// Enabled 字段由调用方判断，此处不读取。
func WithSettings(s xconf.BreakerSettings) BreakerOption {
	return func(c *config) {
		WithTripPolicy(PolicyFromSettings(s))(c)
		WithTimeout(s.Timeout)(c)
		WithInterval(s.Interval)(c)
	}
}

// NewBreaker 创建熔断器
func NewBreaker(name string, opts ...BreakerOption) *Breaker {
	c := config{
		st: gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     DefaultTimeout,
		},
		trip: NewConsecutiveFailures(DefaultThreshold),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.st.ReadyToTrip = c.trip.ReadyToTrip
	return &Breaker{
		name: name,
		trip: c.trip,
		cb:   gobreaker.NewCircuitBreaker[struct{}](c.st),
	}
}

// Do 执行受熔断器保护的操作。
//
// ctx 已结束时不调用 fn，直接返回 ctx 错误；熔断拒绝返回 *BreakerError。
func (b *Breaker) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return wrapBreakerError(err, b.name)
}

// Name 返回熔断器名称
func (b *Breaker) Name() string { return b.name }

// State 返回当前状态
func (b *Breaker) State() State { return b.cb.State() }

// Counts 返回当前统计周期内的计数
func (b *Breaker) Counts() Counts { return b.cb.Counts() }

// Snapshot 返回状态、判定策略与计数
func (b *Breaker) Snapshot() Snapshot {
	return Snapshot{
		Name:   b.name,
		State:  b.cb.State(),
		Policy: describe(b.trip),
		Counts: b.cb.Counts(),
	}
}
