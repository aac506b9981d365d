// Package xretry 提供重试策略和退避策略接口及实现。
//
// 底层使用 [avast/retry-go/v5] 实现重试循环：
//   - RetryPolicy：决定是否继续重试（MaxAttempts 包含首次尝试）
//   - BackoffPolicy：决定下一次重试前的等待时间
//
//	retryer := xretry.NewRetryer(
//	    xretry.WithRetryPolicy(xretry.NewFixedRetry(4)),
//	    xretry.WithBackoffPolicy(xretry.NewFixedBackoff(time.Second)),
//	)
//	err := retryer.Do(ctx, func(ctx context.Context) error {
//	    return doSomething(ctx)
//	})
//
// # 错误分类
//
//   - NewPermanentError(err)：永久性错误，立即停止重试
//   - NewTemporaryError(err)：临时性错误，按策略重试
//   - 其他错误默认视为可重试
//
// [avast/retry-go/v5]: https://github.com/avast/retry-go
package xretry
