package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xfeed/pkg/config/xconf"
	"github.com/omeyang/xfeed/pkg/observability/xlog"
	"github.com/omeyang/xfeed/pkg/resilience/xbreaker"
	"github.com/omeyang/xfeed/pkg/storage/xcache"
	"github.com/omeyang/xfeed/pkg/storage/xtiered"
)

// env 命令执行所需的 Redis 客户端与分层路由
type env struct {
	settings xconf.Settings
	client   redis.UniversalClient
	backend  *xcache.RedisBackend
	breaker  *xbreaker.Breaker
	router   *xtiered.Router
	metrics  *metricsReport
	logger   xlog.Logger
	closers  []func() error
}

// loadSettings 读取 --config 指定的配置并应用 --addr 覆盖
func loadSettings(cmd *cli.Command) (xconf.Settings, error) {
	s := xconf.DefaultSettings()
	if path := cmd.String("config"); path != "" {
		cfg, err := xconf.New(path)
		if err != nil {
			return xconf.Settings{}, fmt.Errorf("load config %s: %w", path, err)
		}
		if s, err = xconf.LoadSettings(cfg); err != nil {
			return xconf.Settings{}, err
		}
	}
	if addrs := cmd.StringSlice("addr"); len(addrs) > 0 {
		s.Redis.Addrs = addrs
		s.Cache.Backend = xconf.BackendRedis
	}
	return s, nil
}

// openEnv 按配置连接 Redis 并创建路由器，调用方负责 close
func openEnv(cmd *cli.Command, stderr io.Writer) (*env, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	if s.Cache.Backend != xconf.BackendRedis {
		return nil, newUsageError("cache.backend %q 是进程内缓存，无法在进程外查看", s.Cache.Backend)
	}

	logger, cleanup, err := xlog.New().
		SetOutput(stderr).
		SetLevelString(s.Log.Level).
		SetFormat(s.Log.Format).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	e := &env{settings: s, logger: logger, closers: []func() error{cleanup}}
	e.client = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        s.Redis.Addrs,
		Password:     s.Redis.Password,
		DB:           s.Redis.DB,
		PoolSize:     s.Redis.PoolSize,
		DialTimeout:  s.Redis.DialTimeout,
		ReadTimeout:  s.Redis.ReadTimeout,
		WriteTimeout: s.Redis.WriteTimeout,
	})
	e.closers = append(e.closers, e.client.Close)

	var backendOpts []xcache.RedisOption
	if s.Breaker.Enabled {
		e.breaker = xbreaker.NewBreaker("redis",
			xbreaker.WithSettings(s.Breaker),
			xbreaker.WithSuccessPolicy(xcache.BreakerSuccessPolicy()),
		)
		backendOpts = append(backendOpts, xcache.WithBreaker(e.breaker))
	}
	if e.backend, err = xcache.NewRedisBackend(e.client, backendOpts...); err != nil {
		return nil, errors.Join(err, e.close())
	}

	routerOpts := []xtiered.Option{
		xtiered.WithSettings(s.Tiers),
		xtiered.WithLogger(logger),
		xtiered.WithStoreOptions(xcache.WithMaxKeyLength(s.Cache.MaxKeyLength)),
	}
	if cmd.Bool("metrics") {
		if e.metrics, err = newMetricsReport(); err != nil {
			return nil, errors.Join(err, e.close())
		}
		e.closers = append(e.closers, e.metrics.close)
		routerOpts = append(routerOpts, xtiered.WithObserver(e.metrics.observer))
	}

	e.router, err = xtiered.NewRouter(e.backend, routerOpts...)
	if err != nil {
		return nil, errors.Join(err, e.close())
	}
	return e, nil
}

func (e *env) close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// withEnv 在带超时的 ctx 中执行 fn
func withEnv(ctx context.Context, cmd *cli.Command, fn func(ctx context.Context, e *env) error) error {
	e, err := openEnv(cmd, cmd.Root().ErrWriter)
	if err != nil {
		return err
	}
	defer e.close() //nolint:errcheck // 命令结果优先

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()
	if err := fn(ctx, e); err != nil {
		return err
	}
	if e.metrics != nil {
		return e.metrics.write(context.WithoutCancel(ctx), cmd.Root().Writer)
	}
	return nil
}
