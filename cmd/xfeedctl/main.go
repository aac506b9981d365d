// xfeedctl 是文章列表分层缓存的运维命令行工具。
//
// 用法:
//
//	xfeedctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   配置文件路径（yaml/json），为空时使用默认配置
//	-a, --addr     覆盖 redis.addrs，可重复指定
//	-t, --timeout  命令超时时间 (默认: 10s)
//	    --metrics  命令结束后输出本次的缓存操作计数
//
// 命令:
//
//	keys [pattern]        列出缓存键，--tier 选择层 (public|user|search|all)
//	clear                 清除缓存，--tier 清除整层，--user 清除某用户的 L2
//	stats                 查看 Redis 连通性与各层键数量
//	config check          校验配置文件
//
// 退出码:
//
//	0: 命令执行成功
//	1: 命令执行失败（Redis 不可达、配置无效等）
//	2: 参数错误（未知层、缺少必需参数、未知命令等）
//
// 示例:
//
//	xfeedctl -a 127.0.0.1:6379 keys --tier user 'u/42:*'
//	xfeedctl clear --user 42
//	xfeedctl -c /etc/xfeed.yaml config check
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// defaultTimeout 默认命令超时时间
const defaultTimeout = 10 * time.Second

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	setupSignalHandler(cancel)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

// createApp 创建 CLI 应用
func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xfeedctl",
		Usage:     "文章列表分层缓存运维工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径（yaml/json）",
			},
			&cli.StringSliceFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Redis 地址，覆盖配置中的 redis.addrs",
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "命令超时时间",
				Value:   defaultTimeout,
			},
			&cli.BoolFlag{
				Name:  "metrics",
				Usage: "命令结束后输出本次的缓存操作计数",
			},
		},
		Commands:     createCommands(),
		OnUsageError: onUsageError,
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				return newUsageError("未知命令 %q", cmd.Args().First())
			}
			return cli.ShowAppHelp(cmd)
		},
		// 由 run 统一映射退出码，不让 urfave/cli 直接调用 os.Exit
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := createApp(stdout, stderr)
	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}

// setupSignalHandler 第一次信号取消命令，第二次信号强制退出（130 = 128 + SIGINT）
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()

		<-sigCh
		signal.Stop(sigCh)
		os.Exit(130)
	}()
}
