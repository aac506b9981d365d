package xquerybatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readconcern"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Transactor 在一个事务中执行 fn。
//
// fn 返回错误时事务回滚，错误原样返回；否则提交。
type Transactor[TX any] interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TX) error) error
}

// =============================================================================
// database/sql
// =============================================================================

// SQLOption 定义 SQLTransactor 的配置函数
type SQLOption func(*sql.TxOptions)

// WithIsolation 设置隔离级别，默认使用驱动的默认级别
func WithIsolation(level sql.IsolationLevel) SQLOption {
	return func(o *sql.TxOptions) {
		o.Isolation = level
	}
}

// WithReadWrite 关闭 ReadOnly 标记，用于不支持只读事务的驱动
func WithReadWrite() SQLOption {
	return func(o *sql.TxOptions) {
		o.ReadOnly = false
	}
}

// SQLTransactor 基于 database/sql 的事务执行器
type SQLTransactor struct {
	db   *sql.DB
	opts sql.TxOptions
}

var _ Transactor[*sql.Tx] = (*SQLTransactor)(nil)

// NewSQLTransactor 创建 SQL 事务执行器，默认开启只读事务
func NewSQLTransactor(db *sql.DB, opts ...SQLOption) (*SQLTransactor, error) {
	if db == nil {
		return nil, ErrNilDB
	}
	t := &SQLTransactor{db: db, opts: sql.TxOptions{ReadOnly: true}}
	for _, opt := range opts {
		opt(&t.opts)
	}
	return t, nil
}

// WithTx 实现 Transactor
func (t *SQLTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	opts := t.opts
	tx, err := t.db.BeginTx(ctx, &opts)
	if err != nil {
		return fmt.Errorf("xquerybatch: begin tx: %w", err)
	}
	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("xquerybatch: rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("xquerybatch: commit: %w", err)
	}
	return nil
}

// =============================================================================
// MongoDB
// =============================================================================

// sessionRunner 在会话事务中执行回调。
// *mongo.Client 经 clientSessions 适配后实现此接口，测试中可替换。
type sessionRunner interface {
	runTransaction(ctx context.Context, fn func(sc context.Context) error) error
}

type clientSessions struct {
	client  *mongo.Client
	txnOpts *mongooptions.TransactionOptionsBuilder
}

func (c *clientSessions) runTransaction(ctx context.Context, fn func(sc context.Context) error) error {
	sess, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("xquerybatch: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc context.Context) (any, error) {
		return nil, fn(sc)
	}, c.txnOpts)
	return err
}

// MongoTransactor 基于 MongoDB 会话事务的执行器。
//
// 事务句柄是会话 context，查询应在该 context 上调用集合方法：
//
//	func(ctx context.Context, sc context.Context) (int64, error) {
//	    return coll.CountDocuments(sc, filter)
//	}
//
// 默认使用 snapshot 读关注与主节点读偏好。事务需要副本集或分片集群。
type MongoTransactor struct {
	runner sessionRunner
}

var _ Transactor[context.Context] = (*MongoTransactor)(nil)

// NewMongoTransactor 创建 MongoDB 事务执行器，txnOpts 为空时使用默认的只读快照配置
func NewMongoTransactor(client *mongo.Client, txnOpts ...*mongooptions.TransactionOptionsBuilder) (*MongoTransactor, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	opts := mongooptions.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetReadPreference(readpref.Primary())
	if len(txnOpts) > 0 && txnOpts[0] != nil {
		opts = txnOpts[0]
	}
	return &MongoTransactor{runner: &clientSessions{client: client, txnOpts: opts}}, nil
}

// WithTx 实现 Transactor。
// 驱动可能在瞬时错误时重新执行 fn，fn 应可重入。
func (t *MongoTransactor) WithTx(ctx context.Context, fn func(ctx context.Context, tx context.Context) error) error {
	return t.runner.runTransaction(ctx, func(sc context.Context) error {
		return fn(sc, sc)
	})
}
