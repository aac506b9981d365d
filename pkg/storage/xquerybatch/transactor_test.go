package xquerybatch

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLTransactor_NilDB(t *testing.T) {
	_, err := NewSQLTransactor(nil)
	assert.ErrorIs(t, err, ErrNilDB)
}

func TestNewMongoTransactor_NilClient(t *testing.T) {
	_, err := NewMongoTransactor(nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestSQLTransactor_CommitAndRollback(t *testing.T) {
	db, f := openFakeDB(t)
	tr, err := NewSQLTransactor(db)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, tr.WithTx(ctx, func(_ context.Context, tx *sql.Tx) error {
		assert.NotNil(t, tx)
		return nil
	}))

	boom := errors.New("boom")
	err = tr.WithTx(ctx, func(context.Context, *sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)

	begins, commits, rollbacks := f.snapshot()
	assert.Equal(t, 2, begins)
	assert.Equal(t, 1, commits)
	assert.Equal(t, 1, rollbacks)
	assert.Equal(t, []bool{true, true}, f.readOnly)
}

func TestSQLTransactor_ReadWrite(t *testing.T) {
	db, f := openFakeDB(t)
	tr, err := NewSQLTransactor(db, WithReadWrite(), WithIsolation(sql.LevelDefault))
	require.NoError(t, err)

	require.NoError(t, tr.WithTx(context.Background(), func(context.Context, *sql.Tx) error { return nil }))
	assert.Equal(t, []bool{false}, f.readOnly)
}

func TestSQLTransactor_BeginError(t *testing.T) {
	db, f := openFakeDB(t)
	f.beginErr = errors.New("conn refused")
	tr, err := NewSQLTransactor(db)
	require.NoError(t, err)

	called := false
	err = tr.WithTx(context.Background(), func(context.Context, *sql.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.False(t, called)
}

type sessionKey struct{}

// fakeSessions 以带标记的 context 模拟会话 context
type fakeSessions struct {
	runs int
	err  error
}

func (f *fakeSessions) runTransaction(ctx context.Context, fn func(sc context.Context) error) error {
	f.runs++
	if f.err != nil {
		return f.err
	}
	return fn(context.WithValue(ctx, sessionKey{}, f.runs))
}

func TestMongoTransactor_PassesSessionContext(t *testing.T) {
	fs := &fakeSessions{}
	tr := &MongoTransactor{runner: fs}

	err := tr.WithTx(context.Background(), func(ctx, sc context.Context) error {
		assert.Equal(t, 1, sc.Value(sessionKey{}))
		assert.Equal(t, sc, ctx)
		return nil
	})
	require.NoError(t, err)

	fs.err = errors.New("no replica set")
	err = tr.WithTx(context.Background(), func(context.Context, context.Context) error { return nil })
	assert.ErrorIs(t, err, fs.err)
}
