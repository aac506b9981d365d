package xlog

import (
	"errors"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// ErrEmptyFilename 轮转文件名为空
var ErrEmptyFilename = errors.New("xlog: rotation filename is empty")

// 轮转默认值
const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 7
	defaultMaxAgeDays = 30
)

// rotationConfig 文件轮转配置
type rotationConfig struct {
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
	localTime  bool
}

// RotationOption 文件轮转选项
type RotationOption func(*rotationConfig)

// WithMaxSize 单个日志文件的最大尺寸（MB）
func WithMaxSize(mb int) RotationOption {
	return func(c *rotationConfig) {
		if mb > 0 {
			c.maxSizeMB = mb
		}
	}
}

// WithMaxBackups 保留的历史文件数量
func WithMaxBackups(n int) RotationOption {
	return func(c *rotationConfig) {
		if n >= 0 {
			c.maxBackups = n
		}
	}
}

// WithMaxAge 历史文件的最长保留天数
func WithMaxAge(days int) RotationOption {
	return func(c *rotationConfig) {
		if days >= 0 {
			c.maxAgeDays = days
		}
	}
}

// WithCompress 是否 gzip 压缩历史文件
func WithCompress(compress bool) RotationOption {
	return func(c *rotationConfig) {
		c.compress = compress
	}
}

// WithLocalTime 备份文件名使用本地时间（默认 UTC）
func WithLocalTime(local bool) RotationOption {
	return func(c *rotationConfig) {
		c.localTime = local
	}
}

// newRotator 创建 lumberjack 轮转写入器
func newRotator(filename string, opts ...RotationOption) (*lumberjack.Logger, error) {
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	cfg := rotationConfig{
		maxSizeMB:  defaultMaxSizeMB,
		maxBackups: defaultMaxBackups,
		maxAgeDays: defaultMaxAgeDays,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &lumberjack.Logger{
		Filename:   filepath.Clean(filename),
		MaxSize:    cfg.maxSizeMB,
		MaxBackups: cfg.maxBackups,
		MaxAge:     cfg.maxAgeDays,
		Compress:   cfg.compress,
		LocalTime:  cfg.localTime,
	}, nil
}
