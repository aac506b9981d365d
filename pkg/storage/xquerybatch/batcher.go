package xquerybatch

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xfeed/internal/storageopt"
	"github.com/omeyang/xfeed/pkg/batch/xbatch"
	"github.com/omeyang/xfeed/pkg/observability/xlog"
)

// Query 在事务 tx 中执行的单个只读查询
type Query[TX, R any] func(ctx context.Context, tx TX) (R, error)

// Conditional 带执行条件的查询
type Conditional[TX, R any] struct {
	Condition bool
	Query     Query[TX, R]
}

// Stats 执行统计
type Stats struct {
	// Queries 成功执行的查询数
	Queries int64
	// Chunks 事务块尝试次数（包括重试）
	Chunks int64
	// Errors 失败的事务块尝试次数
	Errors int64
	// SlowChunks 慢事务块次数
	SlowChunks int64
}

// Batcher 分组执行查询，可并发使用
type Batcher[TX, R any] struct {
	tx      Transactor[TX]
	opts    options
	slow    *storageopt.SlowQueryDetector[SlowChunkInfo]
	counter storageopt.QueryCounter
}

// New 创建 Batcher
func New[TX, R any](tx Transactor[TX], opts ...Option) (*Batcher[TX, R], error) {
	if tx == nil {
		return nil, ErrNilTransactor
	}
	o := options{chunkSize: DefaultChunkSize, concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}
	b := &Batcher[TX, R]{tx: tx, opts: o}
	b.slow = storageopt.NewSlowQueryDetector(storageopt.SlowQueryOptions[SlowChunkInfo]{
		Threshold: o.slowThreshold,
		Hook:      b.onSlow,
	})
	return b, nil
}

// ExecuteQueries 将 queries 按 chunkSize 分块，每块在一个事务中顺序执行。
//
// chunkSize <= 0 时使用默认块大小。结果顺序与 queries 一致。
// 任一块重试耗尽后返回 nil 与 *xbatch.ChunkError，其中 Start/End 为查询下标区间。
func (b *Batcher[TX, R]) ExecuteQueries(ctx context.Context, queries []Query[TX, R], chunkSize int) ([]R, error) {
	for i, q := range queries {
		if q == nil {
			return nil, fmt.Errorf("%w at index %d", ErrNilQuery, i)
		}
	}
	if len(queries) == 0 {
		return []R{}, nil
	}
	if chunkSize <= 0 {
		chunkSize = b.opts.chunkSize
	}

	batchOpts := append([]xbatch.Option{}, b.opts.batchOpts...)
	batchOpts = append(batchOpts, xbatch.WithBatchSize(chunkSize))
	if b.opts.logger != nil {
		batchOpts = append(batchOpts, xbatch.WithLogger(b.opts.logger))
	}
	if b.opts.observer != nil {
		batchOpts = append(batchOpts, xbatch.WithObserver(b.opts.observer))
	}
	p := xbatch.New[Query[TX, R], []R](batchOpts...)

	var (
		chunks [][]R
		err    error
	)
	if b.opts.concurrency > 1 {
		chunks, err = p.ProcessParallelN(ctx, queries, b.runChunk, b.opts.concurrency)
	} else {
		chunks, err = p.Process(ctx, queries, b.runChunk)
	}
	if err != nil {
		return nil, err
	}

	out := make([]R, 0, len(queries))
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out, nil
}

// ExecuteConditionalQueries 丢弃 Condition 为 false 的项后按默认块大小执行，
// 结果与保留项按顺序一一对应。
func (b *Batcher[TX, R]) ExecuteConditionalQueries(ctx context.Context, items []Conditional[TX, R]) ([]R, error) {
	kept := make([]Query[TX, R], 0, len(items))
	for _, it := range items {
		if it.Condition {
			kept = append(kept, it.Query)
		}
	}
	return b.ExecuteQueries(ctx, kept, 0)
}

// Stats 返回统计快照
func (b *Batcher[TX, R]) Stats() Stats {
	return Stats{
		Queries:    b.counter.QueryCount(),
		Chunks:     b.counter.ChunkCount(),
		Errors:     b.counter.QueryErrors(),
		SlowChunks: b.slow.Count(),
	}
}

// runChunk 在一个事务中依次执行块内查询，每次重试都是一个新事务
func (b *Batcher[TX, R]) runChunk(ctx context.Context, chunk []Query[TX, R]) ([]R, error) {
	b.counter.IncChunk()
	start := time.Now()

	var out []R
	err := b.tx.WithTx(ctx, func(ctx context.Context, tx TX) error {
		out = make([]R, 0, len(chunk))
		for _, q := range chunk {
			r, err := q(ctx, tx)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})

	d := storageopt.MeasureOperation(start)
	b.slow.MaybeSlowQuery(ctx, SlowChunkInfo{Queries: len(chunk), Duration: d}, d)
	if err != nil {
		b.counter.IncQueryError()
		return nil, err
	}
	b.counter.AddQueries(len(chunk))
	return out, nil
}

func (b *Batcher[TX, R]) onSlow(ctx context.Context, info SlowChunkInfo) {
	b.log().Warn(ctx, "slow query chunk",
		xlog.Component("xquerybatch"), xlog.Count(int64(info.Queries)), xlog.Duration(info.Duration))
	if b.opts.slowHook != nil {
		b.opts.slowHook(ctx, info)
	}
}

func (b *Batcher[TX, R]) log() xlog.Logger {
	if b.opts.logger != nil {
		return b.opts.logger
	}
	return xlog.Default()
}
