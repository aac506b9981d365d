package xbreaker

import (
	"fmt"

	"github.com/omeyang/xfeed/pkg/config/xconf"
)

var (
	_ TripPolicy = (*ConsecutiveFailuresPolicy)(nil)
	_ TripPolicy = (*FailureRatioPolicy)(nil)
)

// ConsecutiveFailuresPolicy 连续失败达到阈值即熔断
type ConsecutiveFailuresPolicy struct {
	threshold uint32
}

// NewConsecutiveFailures 创建连续失败策略，threshold 最小为 1
func NewConsecutiveFailures(threshold uint32) *ConsecutiveFailuresPolicy {
	return &ConsecutiveFailuresPolicy{threshold: max(threshold, 1)}
}

// ReadyToTrip 实现 TripPolicy
func (p *ConsecutiveFailuresPolicy) ReadyToTrip(counts Counts) bool {
	return counts.ConsecutiveFailures >= p.threshold
}

// Threshold 返回阈值
func (p *ConsecutiveFailuresPolicy) Threshold() uint32 { return p.threshold }

func (p *ConsecutiveFailuresPolicy) String() string {
	return fmt.Sprintf("%s(%d)", xconf.BreakerConsecutive, p.threshold)
}

// FailureRatioPolicy 请求数达到 minRequests 后，失败率不低于 ratio 即熔断
type FailureRatioPolicy struct {
	ratio       float64
	minRequests uint32
}

// NewFailureRatio 创建失败率策略，ratio 截断到 [0, 1]，minRequests 最小为 1
func NewFailureRatio(ratio float64, minRequests uint32) *FailureRatioPolicy {
	return &FailureRatioPolicy{
		ratio:       min(max(ratio, 0), 1),
		minRequests: max(minRequests, 1),
	}
}

// ReadyToTrip 实现 TripPolicy
func (p *FailureRatioPolicy) ReadyToTrip(counts Counts) bool {
	if counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures) >= p.ratio*float64(counts.Requests)
}

func (p *FailureRatioPolicy) String() string {
	return fmt.Sprintf("%s(%.2f,min=%d)", xconf.BreakerRatio, p.ratio, p.minRequests)
}

// PolicyFromSettings 按配置构建判定策略，无法识别的 Policy 按 consecutive 处理
func PolicyFromSettings(s xconf.BreakerSettings) TripPolicy {
	if s.Policy == xconf.BreakerRatio {
		return NewFailureRatio(s.FailureRatio, s.MinRequests)
	}
	return NewConsecutiveFailures(s.Threshold)
}

// SuccessFunc 函数形式的 SuccessPolicy
type SuccessFunc func(err error) bool

// IsSuccessful 实现 SuccessPolicy
func (f SuccessFunc) IsSuccessful(err error) bool { return f(err) }

func describe(p TripPolicy) string {
	if s, ok := p.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", p)
}
