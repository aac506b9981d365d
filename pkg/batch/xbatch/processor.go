package xbatch

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
	"github.com/omeyang/xfeed/pkg/resilience/xretry"
)

const componentName = "xbatch"

// Func 处理单个块，返回该块的结果
type Func[T, R any] func(ctx context.Context, chunk []T) (R, error)

// Processor 批处理器，可并发使用
type Processor[T, R any] struct {
	opts Options
}

// New 创建批处理器
func New[T, R any](opts ...Option) *Processor[T, R] {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Processor[T, R]{opts: o}
}

// Options 返回当前配置的副本
func (p *Processor[T, R]) Options() Options {
	return p.opts
}

// Chunk 按 size 切分 items，保持顺序，子切片共享底层数组。
// size <= 0 时整体作为一个块；items 为空时返回 nil。
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || size >= len(items) {
		return [][]T{items}
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Process 按顺序逐块执行 fn，每块一个结果。
//
// 某块重试耗尽后返回 nil 与 *ChunkError，不再执行后续块，已完成的部分通过
// ChunkError 的区间体现。每块完成后以累计数量调用 OnProgress。
func (p *Processor[T, R]) Process(ctx context.Context, items []T, fn Func[T, R]) ([]R, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(items) == 0 {
		return []R{}, nil
	}

	chunks := Chunk(items, p.opts.BatchSize)
	ctx, span := p.start(ctx, "process", len(items), len(chunks))

	results := make([]R, 0, len(chunks))
	processed, start := 0, 0
	for i, c := range chunks {
		r, err := p.runChunk(ctx, i, start, c, fn)
		if err != nil {
			span.End(xmetrics.Result{Status: xmetrics.StatusError, Err: err})
			return nil, err
		}
		results = append(results, r)
		start += len(c)
		processed += len(c)
		p.progress(processed, len(items))
	}
	span.End(xmetrics.Result{Status: xmetrics.StatusOK})
	return results, nil
}

// ProcessParallel 以配置的并发度执行，见 ProcessParallelN
func (p *Processor[T, R]) ProcessParallel(ctx context.Context, items []T, fn Func[T, R]) ([]R, error) {
	return p.ProcessParallelN(ctx, items, fn, p.opts.Concurrency)
}

// ProcessParallelN 最多 concurrency 个块并发执行，结果按块序排列。
//
// 首个重试耗尽的块会取消其余块，返回该块的 *ChunkError 与 nil 结果。
// OnProgress 调用被串行化，done 严格递增并最终等于 len(items)。
func (p *Processor[T, R]) ProcessParallelN(ctx context.Context, items []T, fn Func[T, R], concurrency int) ([]R, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if len(items) == 0 {
		return []R{}, nil
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	chunks := Chunk(items, p.opts.BatchSize)
	ctx, span := p.start(ctx, "process_parallel", len(items), len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make([]R, len(chunks))
	var (
		mu        sync.Mutex
		processed int
	)
	start := 0
	for i, c := range chunks {
		if gctx.Err() != nil {
			break
		}
		chunkStart := start
		start += len(c)
		g.Go(func() error {
			r, err := p.runChunk(gctx, i, chunkStart, c, fn)
			if err != nil {
				return err
			}
			results[i] = r

			mu.Lock()
			processed += len(c)
			p.progress(processed, len(items))
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(xmetrics.Result{Status: xmetrics.StatusError, Err: err})
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		span.End(xmetrics.Result{Status: xmetrics.StatusError, Err: err})
		return nil, err
	}
	span.End(xmetrics.Result{Status: xmetrics.StatusOK})
	return results, nil
}

// =============================================================================
// 内部实现
// =============================================================================

// runChunk 带重试地执行单个块
func (p *Processor[T, R]) runChunk(ctx context.Context, index, start int, chunk []T, fn Func[T, R]) (R, error) {
	end := start + len(chunk)
	if err := ctx.Err(); err != nil {
		var zero R
		return zero, &ChunkError{Index: index, Start: start, End: end, Err: err}
	}

	attempts := 0
	retryer := xretry.NewRetryer(
		xretry.WithRetryPolicy(xretry.NewFixedRetry(p.opts.MaxRetries+1)),
		xretry.WithBackoffPolicy(p.backoff()),
		xretry.WithOnRetry(func(attempt int, err error) {
			attempts = attempt
			if p.opts.OnError != nil {
				p.opts.OnError(err, index, attempt)
			}
			p.log().Warn(ctx, "chunk attempt failed",
				xlog.Component(componentName), xlog.Chunk(index), xlog.Attempt(attempt), xlog.Err(err))
		}),
	)

	r, err := xretry.DoWithResult(ctx, retryer, func(ctx context.Context) (R, error) {
		return fn(ctx, chunk)
	})
	if err != nil {
		var zero R
		ce := &ChunkError{Index: index, Start: start, End: end, Attempts: max(attempts, 1), Err: err}
		p.log().Error(ctx, "chunk failed", xlog.Component(componentName), xlog.Chunk(index), xlog.Err(ce))
		return zero, ce
	}
	return r, nil
}

func (p *Processor[T, R]) backoff() xretry.BackoffPolicy {
	if p.opts.Backoff != nil {
		return p.opts.Backoff
	}
	return xretry.NewFixedBackoff(p.opts.RetryDelay)
}

func (p *Processor[T, R]) progress(done, total int) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(done, total)
	}
}

func (p *Processor[T, R]) log() xlog.Logger {
	if p.opts.Logger != nil {
		return p.opts.Logger
	}
	return xlog.Default()
}

func (p *Processor[T, R]) start(ctx context.Context, op string, items, chunks int) (context.Context, xmetrics.Span) {
	return xmetrics.Start(ctx, p.opts.Observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: op,
		Kind:      xmetrics.KindInternal,
		Attrs: []xmetrics.Attr{
			xmetrics.Int("batch.items", items),
			xmetrics.Int("batch.chunks", chunks),
		},
	})
}
