package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xfeed/pkg/config/xconf"
	"github.com/omeyang/xfeed/pkg/resilience/xbreaker"
	"github.com/omeyang/xfeed/pkg/storage/xtiered"
)

// exitError 命令已完成输出，只需设置非零退出码
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 参数错误，退出码 2
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func newUsageError(format string, args ...any) *usageError {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return &usageError{msg: err.Error()}
}

// allTiers 命令行中 all 展开后的层
var allTiers = []xtiered.Tier{xtiered.TierPublic, xtiered.TierUser, xtiered.TierSearch}

// parseTiers 解析 --tier 取值
func parseTiers(name string) ([]xtiered.Tier, error) {
	switch strings.ToLower(name) {
	case "", "all":
		return allTiers, nil
	case "public", "l1":
		return []xtiered.Tier{xtiered.TierPublic}, nil
	case "user", "l2":
		return []xtiered.Tier{xtiered.TierUser}, nil
	case "search", "l3":
		return []xtiered.Tier{xtiered.TierSearch}, nil
	default:
		return nil, newUsageError("未知的层 %q，可选 public|user|search|all", name)
	}
}

func out(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}

// 创建所有子命令
func createCommands() []*cli.Command {
	return []*cli.Command{
		createKeysCommand(),
		createClearCommand(),
		createStatsCommand(),
		createConfigCommand(),
	}
}

func tierFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:  "tier",
		Usage: "缓存层 (public|user|search|all)",
		Value: value,
	}
}

// =============================================================================
// keys
// =============================================================================

func createKeysCommand() *cli.Command {
	return &cli.Command{
		Name:         "keys",
		Usage:        "列出缓存键，pattern 相对于层的命名空间",
		ArgsUsage:    "[pattern]",
		Flags:        []cli.Flag{tierFlag("all")},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tiers, err := parseTiers(cmd.String("tier"))
			if err != nil {
				return err
			}
			pattern := "*"
			if cmd.NArg() > 0 {
				pattern = cmd.Args().First()
			}
			return withEnv(ctx, cmd, func(ctx context.Context, e *env) error {
				return cmdKeys(ctx, out(cmd), e.router, tiers, pattern)
			})
		},
	}
}

func cmdKeys(ctx context.Context, w io.Writer, r *xtiered.Router, tiers []xtiered.Tier, pattern string) error {
	for _, tier := range tiers {
		keys, err := r.Store(tier).Keys(ctx, pattern)
		if err != nil {
			return fmt.Errorf("scan %s: %w", tier, err)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
	}
	return nil
}

// =============================================================================
// clear
// =============================================================================

func createClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "清除缓存，需指定 --tier 或 --user",
		Flags: []cli.Flag{
			tierFlag(""),
			&cli.StringFlag{
				Name:  "user",
				Usage: "只清除该用户在 L2 的条目",
			},
		},
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tierName, userID := cmd.String("tier"), cmd.String("user")
			switch {
			case tierName == "" && userID == "":
				return newUsageError("clear 需要 --tier 或 --user")
			case tierName != "" && userID != "":
				return newUsageError("--tier 与 --user 不能同时使用")
			}
			var tiers []xtiered.Tier
			if tierName != "" {
				var err error
				if tiers, err = parseTiers(tierName); err != nil {
					return err
				}
			}
			return withEnv(ctx, cmd, func(ctx context.Context, e *env) error {
				return cmdClear(ctx, out(cmd), e.router, tiers, userID)
			})
		},
	}
}

func cmdClear(ctx context.Context, w io.Writer, r *xtiered.Router, tiers []xtiered.Tier, userID string) error {
	if userID != "" {
		n, err := r.InvalidateUser(ctx, userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %d keys for user %s\n", n, userID)
		return nil
	}

	var errs []error
	for _, tier := range tiers {
		n, err := r.InvalidateTier(ctx, tier)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "%s %s: deleted %d keys\n", tier, r.Store(tier).Namespace(), n)
	}
	return errors.Join(errs...)
}

// =============================================================================
// stats
// =============================================================================

func createStatsCommand() *cli.Command {
	return &cli.Command{
		Name:         "stats",
		Usage:        "查看 Redis 连通性与各层键数量",
		OnUsageError: onUsageError,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEnv(ctx, cmd, func(ctx context.Context, e *env) error {
				return cmdStats(ctx, out(cmd), e)
			})
		},
	}
}

func cmdStats(ctx context.Context, w io.Writer, e *env) error {
	if err := e.backend.Ping(ctx); err != nil {
		return fmt.Errorf("redis %s unreachable: %w", strings.Join(e.settings.Redis.Addrs, ","), err)
	}
	fmt.Fprintf(w, "redis: %s ok\n", strings.Join(e.settings.Redis.Addrs, ","))
	if e.breaker != nil {
		snap := e.breaker.Snapshot()
		fmt.Fprintf(w, "breaker: %s policy=%s failures=%d/%d\n",
			snap.State, snap.Policy, snap.Counts.TotalFailures, snap.Counts.Requests)
	}
	for _, tier := range allTiers {
		s := e.router.Store(tier)
		keys, err := s.Keys(ctx, "*")
		if err != nil {
			return fmt.Errorf("scan %s: %w", tier, err)
		}
		fmt.Fprintf(w, "%s %s ttl=%s keys=%d\n", tier, s.Namespace(), s.DefaultTTL(), len(keys))
	}
	return nil
}

// =============================================================================
// config
// =============================================================================

func createConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "配置相关命令",
		Commands: []*cli.Command{
			{
				Name:         "check",
				Usage:        "校验配置文件并输出生效的关键配置",
				OnUsageError: onUsageError,
				Action: func(_ context.Context, cmd *cli.Command) error {
					return cmdConfigCheck(cmd, out(cmd), cmd.Root().ErrWriter)
				},
			},
		},
	}
}

func cmdConfigCheck(cmd *cli.Command, w, errW io.Writer) error {
	s, err := loadSettings(cmd)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		if !errors.Is(err, xconf.ErrInvalidSettings) {
			return err
		}
		fmt.Fprintln(errW, "config invalid:")
		fmt.Fprintln(errW, err)
		return &exitError{code: 1}
	}

	fmt.Fprintln(w, "config ok")
	fmt.Fprintf(w, "cache.backend: %s\n", s.Cache.Backend)
	if s.Cache.Backend == xconf.BackendRedis {
		fmt.Fprintf(w, "redis.addrs: %s\n", strings.Join(s.Redis.Addrs, ","))
	}
	for _, t := range []struct {
		name string
		ns   xconf.NamespaceSettings
	}{
		{"public", s.Tiers.Public},
		{"user", s.Tiers.User},
		{"search", s.Tiers.Search},
	} {
		fmt.Fprintf(w, "tiers.%s: %s ttl=%s\n", t.name, t.ns.Namespace, t.ns.TTL)
	}
	fmt.Fprintf(w, "batch.backoff: %s retries=%d delay=%s\n", s.Batch.Backoff, s.Batch.MaxRetries, s.Batch.RetryDelay)
	if s.Breaker.Enabled {
		fmt.Fprintf(w, "breaker: %s timeout=%s\n", xbreaker.PolicyFromSettings(s.Breaker), s.Breaker.Timeout)
	} else {
		fmt.Fprintln(w, "breaker: disabled")
	}
	return nil
}
