// Package xmetrics 提供统一的可观测性接口（metrics + tracing）。
//
// 组件只依赖 Observer/Span/Attr 接口，默认实现基于 OpenTelemetry。
// 未配置 Observer 时使用 NoopObserver，无任何开销。
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xcache",
//		Operation: "get",
//		Kind:      xmetrics.KindClient,
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xfeed.operation.total
//   - xfeed.operation.duration
//   - xfeed.cache.lookups：结果带 hit 属性时记录，维度为 cache.namespace / cache.tier / hit
//
// 统一属性：component / operation / status。请求上下文中的 request_id
// 作为 span 属性记录，不进入指标维度。
package xmetrics
