package xcache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/omeyang/xfeed/pkg/observability/xlog"
)

type article struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newRedisStore(t *testing.T, namespace string, opts ...StoreOption) (*Store, *miniredis.Miniredis) {
	t.Helper()
	b, mr := newTestRedis(t)
	opts = append([]StoreOption{WithLogger(xlog.Discard())}, opts...)
	s, err := NewStore(b, namespace, opts...)
	require.NoError(t, err)
	return s, mr
}

func TestNewStore_Errors(t *testing.T) {
	_, err := NewStore(nil, "ns")
	assert.ErrorIs(t, err, ErrNilBackend)

	ctrl := gomock.NewController(t)
	_, err = NewStore(NewMockBackend(ctrl), "  ")
	assert.ErrorIs(t, err, ErrEmptyNamespace)
}

func TestStore_SetGet(t *testing.T) {
	s, mr := newRedisStore(t, "articles:public")
	ctx := context.Background()

	s.Set(ctx, "list", []article{{ID: 1, Title: "a"}}, time.Minute)
	assert.True(t, mr.Exists("articles:public:list"))
	assert.Equal(t, time.Minute, mr.TTL("articles:public:list"))

	var got []article
	require.True(t, s.Get(ctx, "list", &got))
	assert.Equal(t, []article{{ID: 1, Title: "a"}}, got)

	assert.False(t, s.Get(ctx, "absent", &got))
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, s.Stats())
	assert.InDelta(t, 0.5, s.Stats().HitRatio(), 1e-9)

	s.ResetStats()
	assert.Equal(t, Stats{}, s.Stats())
	assert.Zero(t, s.Stats().HitRatio())
}

func TestStore_DefaultTTL(t *testing.T) {
	s, mr := newRedisStore(t, "ns", WithDefaultTTL(90*time.Second))
	s.Set(context.Background(), "k", 1, 0)
	assert.Equal(t, 90*time.Second, mr.TTL("ns:k"))
	assert.Equal(t, 90*time.Second, s.DefaultTTL())
}

func TestStore_EnvelopeExpiry(t *testing.T) {
	clock := newFakeClock()
	s, mr := newRedisStore(t, "ns", WithClock(clock.Now))
	ctx := context.Background()

	s.Set(ctx, "k", "v", time.Minute)
	raw, err := mr.Get("ns:k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":"v","exp":`+strconv.FormatInt(clock.Now().Add(time.Minute).UnixMilli(), 10)+`}`, raw)

	clock.Advance(time.Minute)
	var v string
	assert.False(t, s.Get(ctx, "k", &v), "expired envelope must be a miss even if the backend still holds it")
	assert.True(t, mr.Exists("ns:k"))
}

func TestStore_CorruptPayload(t *testing.T) {
	s, mr := newRedisStore(t, "ns")
	require.NoError(t, mr.Set("ns:bad", "not-json"))
	require.NoError(t, mr.Set("ns:typed", `{"v":"str","exp":99999999999999}`))

	var n int
	assert.False(t, s.Get(context.Background(), "bad", &n))
	assert.False(t, s.Get(context.Background(), "typed", &n))
	assert.Equal(t, Stats{Misses: 2}, s.Stats())
}

func TestStore_BackendUnavailable(t *testing.T) {
	s, mr := newRedisStore(t, "ns")
	mr.Close()
	ctx := context.Background()

	var v string
	assert.False(t, s.Get(ctx, "k", &v))
	s.Set(ctx, "k", "v", time.Minute)

	assert.Equal(t, Stats{Misses: 1, Errors: 2}, s.Stats())
}

func TestStore_SetMarshalError(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	s, err := NewStore(backend, "ns", WithLogger(xlog.Discard()))
	require.NoError(t, err)

	s.Set(context.Background(), "k", make(chan int), time.Minute)
	assert.Equal(t, uint64(1), s.Stats().Errors)
}

func TestStore_NamespaceIsolation(t *testing.T) {
	b, _ := newTestRedis(t)
	a, err := NewStore(b, "a")
	require.NoError(t, err)
	c, err := NewStore(b, "c")
	require.NoError(t, err)
	ctx := context.Background()

	a.Set(ctx, "k", "from-a", time.Minute)
	c.Set(ctx, "k", "from-c", time.Minute)

	var v string
	require.True(t, a.Get(ctx, "k", &v))
	assert.Equal(t, "from-a", v)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, a.Get(ctx, "k", &v))
	assert.Equal(t, uint64(0), c.Stats().Hits)
}

func TestStore_ClearPatternAndDelete(t *testing.T) {
	s, mr := newRedisStore(t, "articles:user")
	ctx := context.Background()

	s.Set(ctx, "u/1:list:page=1", 1, time.Minute)
	s.Set(ctx, "u/1:list:page=2", 2, time.Minute)
	s.Set(ctx, "u/2:list:page=1", 3, time.Minute)

	n, err := s.ClearPattern(ctx, "u/1:*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("articles:user:u/2:list:page=1"))

	n, err = s.Delete(ctx, "u/2:list:page=1", "absent")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Delete(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ClearPatternBackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	s, err := NewStore(backend, "ns", WithLogger(xlog.Discard()))
	require.NoError(t, err)

	boom := errors.New("boom")
	backend.EXPECT().Keys(gomock.Any(), "ns:*").Return(nil, boom)

	_, err = s.Clear(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), s.Stats().Errors)
}

func TestStore_LongKeyShortened(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockBackend(ctrl)
	s, err := NewStore(backend, "ns", WithMaxKeyLength(32))
	require.NoError(t, err)

	full := s.FullKey("a-very-long-key-that-does-not-fit")
	assert.Len(t, full, 32)
	backend.EXPECT().Set(gomock.Any(), full, gomock.Any(), time.Minute).Return(nil)
	s.Set(context.Background(), "a-very-long-key-that-does-not-fit", 1, time.Minute)
}

func TestStore_MemoryBackend(t *testing.T) {
	m := newTestMemory(t)
	s, err := NewStore(m, "mem")
	require.NoError(t, err)
	ctx := context.Background()

	s.Set(ctx, "k", article{ID: 7}, time.Minute)
	var got article
	require.True(t, s.Get(ctx, "k", &got))
	assert.Equal(t, 7, got.ID)

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, s.Get(ctx, "k", &got))
}

// =============================================================================
// GetOrSet
// =============================================================================

func TestGetOrSet_CachesSuccess(t *testing.T) {
	s, _ := newRedisStore(t, "ns")
	ctx := context.Background()

	var calls atomic.Int32
	fetch := func(context.Context) ([]article, error) {
		calls.Add(1)
		return []article{{ID: 1}}, nil
	}

	for range 3 {
		got, err := GetOrSet(ctx, s, "list", fetch, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, []article{{ID: 1}}, got)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Stats{Hits: 2, Misses: 1}, s.Stats())
}

func TestGetOrSet_ErrorNotCached(t *testing.T) {
	s, mr := newRedisStore(t, "ns")
	ctx := context.Background()

	boom := errors.New("db down")
	_, err := GetOrSet(ctx, s, "list", func(context.Context) (int, error) { return 0, boom }, time.Minute)
	require.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("ns:list"))

	var v int
	assert.False(t, s.Get(ctx, "list", &v))

	got, err := GetOrSet(ctx, s, "list", func(context.Context) (int, error) { return 42, nil }, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestGetOrSet_ContextCanceledInFetcher(t *testing.T) {
	s, mr := newRedisStore(t, "ns")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := GetOrSet(ctx, s, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, mr.Exists("ns:slow"))
}

func TestGetOrSet_InvalidArgs(t *testing.T) {
	s, _ := newRedisStore(t, "ns")
	_, err := GetOrSet[int](context.Background(), nil, "k", func(context.Context) (int, error) { return 1, nil }, 0)
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = GetOrSet[int](context.Background(), s, "k", nil, 0)
	assert.ErrorIs(t, err, ErrNilFetcher)
}

func TestGetOrSet_ConcurrentMissesWithoutSingleflight(t *testing.T) {
	s, _ := newRedisStore(t, "ns")
	calls, release := concurrentGetOrSet(t, s, 4)
	close(release)
	assert.Eventually(t, func() bool { return calls.Load() == 4 }, time.Second, 5*time.Millisecond)
}

func TestGetOrSet_Singleflight(t *testing.T) {
	s, _ := newRedisStore(t, "ns", WithSingleflight(true))
	calls, release := concurrentGetOrSet(t, s, 8)
	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

// concurrentGetOrSet 启动 n 个并发 GetOrSet，fetcher 阻塞到 release 关闭。
// 返回前所有 goroutine 均已完成首次 Get。
func concurrentGetOrSet(t *testing.T, s *Store, n int) (*atomic.Int32, chan struct{}) {
	t.Helper()
	var calls atomic.Int32
	release := make(chan struct{})

	var started, done sync.WaitGroup
	started.Add(n)
	done.Add(n)
	for range n {
		go func() {
			defer done.Done()
			started.Done()
			v, err := GetOrSet(context.Background(), s, "hot", func(context.Context) (int, error) {
				calls.Add(1)
				<-release
				return 1, nil
			}, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, 1, v)
		}()
	}
	started.Wait()
	assert.Eventually(t, func() bool { return s.Stats().Misses == uint64(n) }, time.Second, time.Millisecond)
	t.Cleanup(done.Wait)
	return &calls, release
}

func TestGetOrSet_SingleflightWaiterCancel(t *testing.T) {
	s, _ := newRedisStore(t, "ns", WithSingleflight(true))
	release := make(chan struct{})
	defer close(release)

	go func() {
		_, _ = GetOrSet(context.Background(), s, "k", func(context.Context) (int, error) {
			<-release
			return 1, nil
		}, time.Minute)
	}()
	assert.Eventually(t, func() bool { return s.Stats().Misses == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := GetOrSet(ctx, s, "k", func(context.Context) (int, error) { return 2, nil }, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

