// Package xbatch 提供分块、重试与并发执行的通用批处理器。
//
// 输入切片按 BatchSize 切分为块，块是重试的最小单位，整个任务是进度上报的单位。
//
//	p := xbatch.New[int, int](
//	    xbatch.WithBatchSize(100),
//	    xbatch.WithMaxRetries(2),
//	    xbatch.WithOnProgress(func(done, total int) { ... }),
//	)
//	sums, err := p.Process(ctx, ids, func(ctx context.Context, chunk []int) (int, error) {
//	    return insert(ctx, chunk)
//	})
//
// # 执行模式
//
//   - [Processor.Process]：按顺序逐块执行，副作用有序；任一块重试耗尽后立即停止
//   - [Processor.ProcessParallel]：最多 Concurrency 个块并发执行，只保证结果按块序排列；
//     首个失败块取消其余块
//
// # 重试
//
// 每块最多执行 MaxRetries+1 次，两次之间默认等待 RetryDelay（固定间隔），
// [WithBackoff] 或配置中的 backoff: exponential 可改为指数退避。
// 重试循环由 xretry（retry-go）驱动。[xretry.NewPermanentError] 包装的错误不会重试。
// 重试耗尽返回 [*ChunkError]，其中保留最后一次的错误。
package xbatch
