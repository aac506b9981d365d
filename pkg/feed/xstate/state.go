package xstate

import (
	"context"
	"errors"
	"time"

	"github.com/omeyang/xfeed/pkg/batch/xloader"
	"github.com/omeyang/xfeed/pkg/context/xctx"
	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
)

var (
	// ErrNilSource Source 为 nil
	ErrNilSource = errors.New("xstate: nil source")

	// ErrNoLoaders context 中没有 Loaders
	ErrNoLoaders = errors.New("xstate: no loaders in context")
)

// State 用户对单篇文章的状态
type State struct {
	Favorited bool `json:"favorited"`
	Read      bool `json:"read"`
}

// Source 批量查询用户状态。返回结果中缺失的文章视为 false。
type Source interface {
	FavoriteStates(ctx context.Context, userID string, articleIDs []int64) (map[int64]bool, error)
	ReadStates(ctx context.Context, userID string, articleIDs []int64) (map[int64]bool, error)
}

// =============================================================================
// 配置
// =============================================================================

type options struct {
	wait     time.Duration
	maxBatch int
	logger   xlog.Logger
	observer xmetrics.Observer
}

// Option 配置函数
type Option func(*options)

// WithWait 设置收集窗口，默认 xloader.DefaultWait
func WithWait(d time.Duration) Option {
	return func(o *options) { o.wait = d }
}

// WithMaxBatch 设置单批最大文章数
func WithMaxBatch(n int) Option {
	return func(o *options) { o.maxBatch = n }
}

// WithLogger 设置日志记录器
func WithLogger(l xlog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver 设置可观测性观察者
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) { o.observer = obs }
}

func (o options) loaderOptions() []xloader.Option[int64, bool] {
	return []xloader.Option[int64, bool]{
		xloader.WithWait[int64, bool](o.wait),
		xloader.WithMaxBatch[int64, bool](o.maxBatch),
		xloader.WithLogger[int64, bool](o.logger),
		xloader.WithObserver[int64, bool](o.observer),
	}
}

// =============================================================================
// Loaders
// =============================================================================

// Loaders 单个请求内的状态加载器
type Loaders struct {
	userID    string
	favorites *xloader.Loader[int64, bool]
	reads     *xloader.Loader[int64, bool]
}

// NewLoaders 为 userID 创建加载器，ctx 为请求 context
func NewLoaders(ctx context.Context, userID string, src Source, opts ...Option) (*Loaders, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	o := options{wait: xloader.DefaultWait}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Loaders{userID: userID}
	if userID == "" {
		return l, nil
	}
	l.favorites = xloader.New(ctx, func(ctx context.Context, ids []int64) (map[int64]bool, error) {
		return src.FavoriteStates(ctx, userID, ids)
	}, o.loaderOptions()...)
	l.reads = xloader.New(ctx, func(ctx context.Context, ids []int64) (map[int64]bool, error) {
		return src.ReadStates(ctx, userID, ids)
	}, o.loaderOptions()...)
	return l, nil
}

// FromRequest 以 xctx 中的用户 ID 创建加载器，没有用户 ID 时为匿名
func FromRequest(ctx context.Context, src Source, opts ...Option) (*Loaders, error) {
	return NewLoaders(ctx, xctx.UserID(ctx), src, opts...)
}

// UserID 返回所属用户，匿名时为空
func (l *Loaders) UserID() string { return l.userID }

// Anonymous 是否为匿名用户
func (l *Loaders) Anonymous() bool { return l.userID == "" }

// State 加载单篇文章的状态
func (l *Loaders) State(ctx context.Context, articleID int64) (State, error) {
	if l.Anonymous() {
		return State{}, nil
	}
	fav, read := l.favorites.LoadThunk(articleID), l.reads.LoadThunk(articleID)
	return join(ctx, fav, read)
}

// States 加载多篇文章的状态，结果与 articleIDs 一一对应
func (l *Loaders) States(ctx context.Context, articleIDs []int64) ([]State, error) {
	states := make([]State, len(articleIDs))
	if l.Anonymous() || len(articleIDs) == 0 {
		return states, nil
	}

	favs := make([]xloader.Thunk[bool], len(articleIDs))
	reads := make([]xloader.Thunk[bool], len(articleIDs))
	for i, id := range articleIDs {
		favs[i] = l.favorites.LoadThunk(id)
		reads[i] = l.reads.LoadThunk(id)
	}
	for i := range articleIDs {
		s, err := join(ctx, favs[i], reads[i])
		if err != nil {
			return nil, err
		}
		states[i] = s
	}
	return states, nil
}

// Prime 写入已知状态，例如刚切换收藏后
func (l *Loaders) Prime(articleID int64, s State) {
	if l.Anonymous() {
		return
	}
	l.favorites.Clear(articleID)
	l.favorites.Prime(articleID, s.Favorited)
	l.reads.Clear(articleID)
	l.reads.Prime(articleID, s.Read)
}

// Stats 返回两个加载器的统计
func (l *Loaders) Stats() (favorites, reads xloader.LoaderStats) {
	if l.Anonymous() {
		return xloader.LoaderStats{}, xloader.LoaderStats{}
	}
	return l.favorites.Stats(), l.reads.Stats()
}

func join(ctx context.Context, fav, read xloader.Thunk[bool]) (State, error) {
	f, err := fav(ctx)
	if err != nil {
		return State{}, err
	}
	r, err := read(ctx)
	if err != nil {
		return State{}, err
	}
	return State{Favorited: f, Read: r}, nil
}

// =============================================================================
// context 传递
// =============================================================================

type loadersKey struct{}

// WithLoaders 将 Loaders 放入 context
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey{}, l)
}

// FromContext 取出 Loaders
func FromContext(ctx context.Context) (*Loaders, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loadersKey{}).(*Loaders)
	return l, ok && l != nil
}

// ArticleState 使用 context 中的 Loaders 加载单篇文章状态
func ArticleState(ctx context.Context, articleID int64) (State, error) {
	l, ok := FromContext(ctx)
	if !ok {
		return State{}, ErrNoLoaders
	}
	return l.State(ctx, articleID)
}

// ArticleStates 使用 context 中的 Loaders 加载多篇文章状态
func ArticleStates(ctx context.Context, articleIDs []int64) ([]State, error) {
	l, ok := FromContext(ctx)
	if !ok {
		return nil, ErrNoLoaders
	}
	return l.States(ctx, articleIDs)
}
