package xtiered

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/omeyang/xfeed/pkg/config/xconf"
	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/observability/xmetrics"
	"github.com/omeyang/xfeed/pkg/storage/xcache"
)

// =============================================================================
// 默认配置
// =============================================================================

const (
	// DefaultLimit 未指定 Limit 时使用的每页条数
	DefaultLimit = 20

	// BaseKey 列表缓存键的基础名
	BaseKey = "list"

	componentName = "xtiered"
)

// TierConfig 单个缓存层的命名空间和 TTL
type TierConfig struct {
	Namespace string
	TTL       time.Duration
}

// DefaultTierConfigs 返回各层的默认配置
func DefaultTierConfigs() map[Tier]TierConfig {
	return map[Tier]TierConfig{
		TierPublic: {Namespace: "articles:public", TTL: 10 * time.Minute},
		TierUser:   {Namespace: "articles:user", TTL: time.Minute},
		TierSearch: {Namespace: "articles:search", TTL: 5 * time.Minute},
	}
}

// =============================================================================
// 配置选项
// =============================================================================

type options struct {
	tiers        map[Tier]TierConfig
	defaultLimit int
	logger       xlog.Logger
	observer     xmetrics.Observer
	storeOpts    []xcache.StoreOption
}

// Option 定义 Router 的配置函数
type Option func(*options)

// WithTierConfig 覆盖某一层的命名空间和 TTL，空值保留默认。
// 对 TierBypass 或未知层无效。
func WithTierConfig(tier Tier, namespace string, ttl time.Duration) Option {
	return func(o *options) {
		if !tier.Cached() {
			return
		}
		cfg := o.tiers[tier]
		if namespace != "" {
			cfg.Namespace = namespace
		}
		if ttl > 0 {
			cfg.TTL = ttl
		}
		o.tiers[tier] = cfg
	}
}

// WithSettings 按配置文件中的 tiers 段设置各层与默认条数
func WithSettings(s xconf.TierSettings) Option {
	return func(o *options) {
		WithTierConfig(TierPublic, s.Public.Namespace, s.Public.TTL)(o)
		WithTierConfig(TierUser, s.User.Namespace, s.User.TTL)(o)
		WithTierConfig(TierSearch, s.Search.Namespace, s.Search.TTL)(o)
		WithDefaultLimit(s.DefaultLimit)(o)
	}
}

// WithDefaultLimit 设置未指定 Limit 时的每页条数，默认 20
func WithDefaultLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultLimit = n
		}
	}
}

// WithLogger 设置日志记录器，同时传递给各层的 Store
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver 设置观测器，同时传递给各层的 Store
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithStoreOptions 追加创建各层 Store 时使用的选项，例如 xcache.WithSingleflight
func WithStoreOptions(opts ...xcache.StoreOption) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, opts...)
	}
}

// =============================================================================
// Router
// =============================================================================

// Router 将查询路由到对应缓存层，可并发使用
type Router struct {
	stores       [TierSearch + 1]*xcache.Store
	defaultLimit int
	logger       xlog.Logger
	observer     xmetrics.Observer
	bypassed     atomic.Uint64
}

// NewRouter 在 backend 上创建三个缓存层
func NewRouter(backend xcache.Backend, opts ...Option) (*Router, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	o := &options{
		tiers:        DefaultTierConfigs(),
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(o)
	}

	r := &Router{
		defaultLimit: o.defaultLimit,
		logger:       o.logger,
		observer:     o.observer,
	}
	for _, tier := range cachedTiers {
		cfg := o.tiers[tier]
		storeOpts := []xcache.StoreOption{xcache.WithDefaultTTL(cfg.TTL)}
		if o.logger != nil {
			storeOpts = append(storeOpts, xcache.WithLogger(o.logger))
		}
		if o.observer != nil {
			storeOpts = append(storeOpts, xcache.WithObserver(o.observer))
		}
		storeOpts = append(storeOpts, o.storeOpts...)

		s, err := xcache.NewStore(backend, cfg.Namespace, storeOpts...)
		if err != nil {
			return nil, fmt.Errorf("xtiered: tier %s: %w", tier, err)
		}
		r.stores[tier] = s
	}
	return r, nil
}

// Store 返回某一层的 Store，TierBypass 返回 nil
func (r *Router) Store(tier Tier) *xcache.Store {
	if !tier.Cached() {
		return nil
	}
	return r.stores[tier]
}

// Route 返回参数所属的层以及层内缓存键，TierBypass 的键为空
func (r *Router) Route(p QueryParams) (Tier, string) {
	tier := Classify(p)
	if !tier.Cached() {
		return tier, ""
	}
	return tier, r.key(tier, p)
}

// key 派生层内缓存键，不修改 p
func (r *Router) key(tier Tier, p QueryParams) string {
	params := xcache.Params{
		"page":  max(p.Page, 1),
		"limit": r.limit(p.Limit),
	}
	if p.Sources != nil {
		params["sources"] = p.Sources
	}
	if len(p.Tags) > 0 {
		params["tags"] = p.Tags
		mode := p.TagMode
		if mode == "" {
			mode = TagModeOR
		}
		params["tagMode"] = string(mode)
	}
	if !p.DateRange.From.IsZero() {
		params["from"] = p.DateRange.From
	}
	if !p.DateRange.To.IsZero() {
		params["to"] = p.DateRange.To
	}
	if p.Category != "" {
		params["category"] = p.Category
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		params["search"] = s
	}
	if p.ReadFilter != "" && p.ReadFilter != ReadFilterAll {
		params["readFilter"] = string(p.ReadFilter)
	}
	for name, v := range p.Extra {
		params["x."+name] = v
	}

	opts := []xcache.KeyOption{xcache.WithParams(params), xcache.WithKeyMaxLength(0)}
	if tier == TierUser {
		opts = append(opts, xcache.WithPrefix(userPrefix(p.UserID)))
	}
	return xcache.GenerateKey(BaseKey, opts...)
}

func (r *Router) limit(n int) int {
	if n <= 0 {
		return r.defaultLimit
	}
	return n
}

// userPrefix 返回 L2 键的用户前缀，userID 经过转义，不会出现 ':' 或通配符
func userPrefix(userID string) string {
	return "u/" + url.QueryEscape(userID)
}

// =============================================================================
// 读取
// =============================================================================

// GetArticles 按层读取文章列表，未命中时调用 fetcher 并回填。
//
// TierBypass 的查询每次都调用 fetcher，不读写任何缓存层。
// fetcher 的错误原样返回且不会被缓存。
func GetArticles[T any](ctx context.Context, r *Router, p QueryParams, fetcher func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilRouter
	}
	if fetcher == nil {
		return zero, ErrNilFetcher
	}

	tier, key := r.Route(p)
	ctx, span := xmetrics.Start(ctx, r.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: "get_articles",
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.String(xmetrics.AttrTier, tier.String())},
	})

	var (
		v   T
		err error
	)
	if tier == TierBypass {
		r.bypassed.Add(1)
		r.log().Debug(ctx, "cache bypassed", xlog.Tier(tier.String()))
		v, err = fetcher(ctx)
	} else {
		v, err = xcache.GetOrSet(ctx, r.stores[tier], key, fetcher, 0)
	}
	span.End(result(err))
	if err != nil {
		return zero, err
	}
	return v, nil
}

// =============================================================================
// 失效
// =============================================================================

// Invalidator 数据变更时触发缓存失效的钩子
type Invalidator interface {
	// OnArticleChanged 文章新增、修改或删除
	OnArticleChanged(ctx context.Context) error
	// OnUserStateChanged 用户的收藏或已读状态变更
	OnUserStateChanged(ctx context.Context, userID string) error
}

var _ Invalidator = (*Router)(nil)

// InvalidateUser 删除某个用户在 L2 的全部条目，返回删除的键数
func (r *Router) InvalidateUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrEmptyUserID
	}
	n, err := r.stores[TierUser].ClearPattern(ctx, xcache.EscapePattern(userPrefix(userID))+":*")
	if err != nil {
		return n, fmt.Errorf("xtiered: invalidate user %q: %w", userID, err)
	}
	return n, nil
}

// InvalidateTier 清空某一层
func (r *Router) InvalidateTier(ctx context.Context, tier Tier) (int, error) {
	if !tier.Cached() {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	n, err := r.stores[tier].Clear(ctx)
	if err != nil {
		return n, fmt.Errorf("xtiered: invalidate %s: %w", tier, err)
	}
	return n, nil
}

// InvalidateAll 清空全部层。某一层失败不影响其余层，错误合并返回。
func (r *Router) InvalidateAll(ctx context.Context) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, tier := range cachedTiers {
		n, err := r.InvalidateTier(ctx, tier)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// OnArticleChanged 实现 Invalidator，清除 L1、L3 与全部 L2
func (r *Router) OnArticleChanged(ctx context.Context) error {
	n, err := r.InvalidateAll(ctx)
	r.log().Info(ctx, "article change invalidated cache", xlog.Count(int64(n)))
	return err
}

// OnUserStateChanged 实现 Invalidator，只清除该用户的 L2
func (r *Router) OnUserStateChanged(ctx context.Context, userID string) error {
	_, err := r.InvalidateUser(ctx, userID)
	return err
}

// =============================================================================
// 统计
// =============================================================================

// Stats 返回各层的统计快照
func (r *Router) Stats() map[Tier]xcache.Stats {
	out := make(map[Tier]xcache.Stats, len(cachedTiers))
	for _, tier := range cachedTiers {
		out[tier] = r.stores[tier].Stats()
	}
	return out
}

// Bypassed 返回绕过缓存的查询次数
func (r *Router) Bypassed() uint64 {
	return r.bypassed.Load()
}

// ResetStats 清零各层统计与绕过计数
func (r *Router) ResetStats() {
	for _, tier := range cachedTiers {
		r.stores[tier].ResetStats()
	}
	r.bypassed.Store(0)
}

func (r *Router) log() xlog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return xlog.Default()
}

func result(err error) xmetrics.Result {
	if err != nil {
		return xmetrics.Result{Status: xmetrics.StatusError, Err: err}
	}
	return xmetrics.Result{Status: xmetrics.StatusOK}
}
