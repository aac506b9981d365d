package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xfeed/pkg/context/xctx"
)

// 指标名称
const (
	MetricOperationTotal    = "xfeed.operation.total"
	MetricOperationDuration = "xfeed.operation.duration"
	// MetricCacheLookups 缓存读取次数，按 namespace 与 hit 区分
	MetricCacheLookups = "xfeed.cache.lookups"
)

// 由组件约定的属性键，OTel Observer 据此派生缓存指标
const (
	AttrNamespace = "cache.namespace"
	AttrTier      = "cache.tier"
	AttrHit       = "hit"
)

const defaultInstrumentationName = "github.com/omeyang/xfeed/xmetrics"

var (
	// ErrNilOption 传入了 nil Option
	ErrNilOption = errors.New("xmetrics: nil option")
	// ErrInstrument 创建 OTel 指标失败
	ErrInstrument = errors.New("xmetrics: create instrument")
)

// =============================================================================
// 配置
// =============================================================================

// Option OTel Observer 配置选项
type Option func(*otelConfig)

type otelConfig struct {
	name   string
	tracer trace.TracerProvider
	meter  metric.MeterProvider
}

// WithInstrumentationName 设置 instrumentation 名称，空字符串忽略
func WithInstrumentationName(name string) Option {
	return func(c *otelConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithTracerProvider 设置 TracerProvider，默认 otel 全局 provider
func WithTracerProvider(p trace.TracerProvider) Option {
	return func(c *otelConfig) {
		if p != nil {
			c.tracer = p
		}
	}
}

// WithMeterProvider 设置 MeterProvider，默认 otel 全局 provider
func WithMeterProvider(p metric.MeterProvider) Option {
	return func(c *otelConfig) {
		if p != nil {
			c.meter = p
		}
	}
}

// =============================================================================
// Observer
// =============================================================================

type instruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	lookups  metric.Int64Counter
}

func newInstruments(m metric.Meter) (instruments, error) {
	var (
		in   instruments
		errs []error
		err  error
	)
	in.total, err = m.Int64Counter(MetricOperationTotal, metric.WithDescription("operations by component and status"), metric.WithUnit("1"))
	errs = append(errs, err)
	in.duration, err = m.Float64Histogram(MetricOperationDuration, metric.WithDescription("operation latency"), metric.WithUnit("s"))
	errs = append(errs, err)
	in.lookups, err = m.Int64Counter(MetricCacheLookups, metric.WithDescription("cache reads by namespace and hit"), metric.WithUnit("1"))
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return instruments{}, fmt.Errorf("%w: %w", ErrInstrument, err)
	}
	return in, nil
}

type otelObserver struct {
	tracer trace.Tracer
	in     instruments
}

// NewOTelObserver 创建基于 OpenTelemetry 的 Observer。
//
// 每个跨度记录 xfeed.operation.total 与 xfeed.operation.duration；
// 结束结果带 hit 属性时额外记录 xfeed.cache.lookups，维度取自跨度的 cache.namespace 与 cache.tier。
func NewOTelObserver(opts ...Option) (Observer, error) {
	c := otelConfig{
		name:   defaultInstrumentationName,
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, ErrNilOption
		}
		opt(&c)
	}
	in, err := newInstruments(c.meter.Meter(c.name))
	if err != nil {
		return nil, err
	}
	return &otelObserver{tracer: c.tracer.Tracer(c.name), in: in}, nil
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &otelSpan{
		in:        &o.in,
		component: orUnknown(opts.Component),
		operation: orUnknown(opts.Operation),
		start:     time.Now(),
	}
	for _, a := range opts.Attrs {
		if v, ok := a.Value.(string); ok && (a.Key == AttrNamespace || a.Key == AttrTier) {
			s.cacheDims = append(s.cacheDims, attribute.String(a.Key, v))
		}
	}

	attrs := []attribute.KeyValue{
		attribute.String("component", s.component),
		attribute.String("operation", s.operation),
	}
	if rid := xctx.RequestID(ctx); rid != "" {
		attrs = append(attrs, attribute.String(xctx.KeyRequestID, rid))
	}
	attrs = append(attrs, attrsToOTel(opts.Attrs)...)

	ctx, s.span = o.tracer.Start(ctx, s.component+"."+s.operation,
		trace.WithSpanKind(mapSpanKind(opts.Kind)),
		trace.WithAttributes(attrs...),
	)
	s.ctx = context.WithoutCancel(ctx)
	return ctx, s
}

type otelSpan struct {
	span      trace.Span
	in        *instruments
	ctx       context.Context
	component string
	operation string
	cacheDims []attribute.KeyValue
	start     time.Time
	once      sync.Once
}

// End 结束跨度并记录指标，重复调用只生效一次
func (s *otelSpan) End(r Result) {
	s.once.Do(func() { s.end(r) })
}

func (s *otelSpan) end(r Result) {
	status := r.Status
	if status == "" {
		status = StatusOK
		if r.Err != nil {
			status = StatusError
		}
	}

	if r.Err != nil {
		s.span.RecordError(r.Err)
	}
	switch {
	case status != StatusError:
		s.span.SetStatus(codes.Ok, "")
	case r.Err != nil:
		s.span.SetStatus(codes.Error, r.Err.Error())
	default:
		s.span.SetStatus(codes.Error, "operation failed")
	}
	s.span.SetAttributes(attrsToOTel(r.Attrs)...)
	s.span.End()

	// s.ctx 已脱离取消，请求结束后仍能记录
	dims := metric.WithAttributes(
		attribute.String("component", s.component),
		attribute.String("operation", s.operation),
		attribute.String("status", string(status)),
	)
	s.in.total.Add(s.ctx, 1, dims)
	s.in.duration.Record(s.ctx, time.Since(s.start).Seconds(), dims)

	for _, a := range r.Attrs {
		if hit, ok := a.Value.(bool); ok && a.Key == AttrHit {
			kv := append([]attribute.KeyValue{attribute.Bool(AttrHit, hit)}, s.cacheDims...)
			s.in.lookups.Add(s.ctx, 1, metric.WithAttributes(kv...))
		}
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func mapSpanKind(k Kind) trace.SpanKind {
	if k == KindClient {
		return trace.SpanKindClient
	}
	return trace.SpanKindInternal
}

func attrsToOTel(attrs []Attr) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		out = append(out, toKeyValue(a))
	}
	return out
}

func toKeyValue(a Attr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	default:
		return attribute.String(a.Key, fmt.Sprint(v))
	}
}
