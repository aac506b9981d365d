package xconf

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// 缓存后端类型
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// 熔断判定策略
const (
	BreakerConsecutive = "consecutive"
	BreakerRatio       = "ratio"
)

// backoffKinds 与 xretry.ParseBackoff 接受的名称一致
var backoffKinds = []string{"fixed", "exponential", "none"}

// Settings xfeed 组件的完整配置树。
//
// 对应的 YAML 结构：
//
//	cache:
//	  backend: redis
//	  max_key_length: 250
//	  singleflight: false
//	redis:
//	  addrs: ["127.0.0.1:6379"]
//	tiers:
//	  public: {namespace: "articles:public", ttl: 10m}
//	  user:   {namespace: "articles:user", ttl: 1m}
//	  search: {namespace: "articles:search", ttl: 5m}
//	  default_limit: 20
//	batch:
//	  size: 100
//	  max_retries: 3
//	  retry_delay: 1s
//	  backoff: fixed        # fixed | exponential | none
//	  max_retry_delay: 30s  # 仅 exponential
//	  concurrency: 5
//	loader:
//	  wait: 2ms
//	breaker:
//	  enabled: true
//	  policy: consecutive   # consecutive | ratio
//	log:
//	  level: info
type Settings struct {
	Cache   CacheSettings   `koanf:"cache"`
	Redis   RedisSettings   `koanf:"redis"`
	Tiers   TierSettings    `koanf:"tiers"`
	Batch   BatchSettings   `koanf:"batch"`
	Loader  LoaderSettings  `koanf:"loader"`
	Breaker BreakerSettings `koanf:"breaker"`
	Log     LogSettings     `koanf:"log"`
}

// CacheSettings 缓存存储配置
type CacheSettings struct {
	Backend      string         `koanf:"backend"`
	MaxKeyLength int            `koanf:"max_key_length"`
	Singleflight bool           `koanf:"singleflight"`
	Memory       MemorySettings `koanf:"memory"`
}

// MemorySettings 内存后端（ristretto）配置
type MemorySettings struct {
	NumCounters int64 `koanf:"num_counters"`
	MaxCost     int64 `koanf:"max_cost"`
}

// RedisSettings Redis 连接配置
//
// Addrs 多于一个时使用集群客户端。
type RedisSettings struct {
	Addrs        []string      `koanf:"addrs"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	PoolSize     int           `koanf:"pool_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// TierSettings 分层缓存配置
type TierSettings struct {
	Public       NamespaceSettings `koanf:"public"`
	User         NamespaceSettings `koanf:"user"`
	Search       NamespaceSettings `koanf:"search"`
	DefaultLimit int               `koanf:"default_limit"`
}

// NamespaceSettings 单个缓存层的命名空间和 TTL
type NamespaceSettings struct {
	Namespace string        `koanf:"namespace"`
	TTL       time.Duration `koanf:"ttl"`
}

// BatchSettings 批处理配置
type BatchSettings struct {
	Size       int           `koanf:"size"`
	MaxRetries int           `koanf:"max_retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	// Backoff 为 exponential 时 RetryDelay 是首次等待，MaxRetryDelay 是上限
	Backoff       string        `koanf:"backoff"`
	MaxRetryDelay time.Duration `koanf:"max_retry_delay"`
	Concurrency   int           `koanf:"concurrency"`
	// QueryChunkSize 每个只读事务包含的查询数
	QueryChunkSize int           `koanf:"query_chunk_size"`
	SlowThreshold  time.Duration `koanf:"slow_threshold"`
}

// LoaderSettings 请求级加载器配置
type LoaderSettings struct {
	Wait     time.Duration `koanf:"wait"`
	MaxBatch int           `koanf:"max_batch"`
}

// BreakerSettings Redis 熔断配置
//
// Policy 为 consecutive 时连续失败 Threshold 次熔断；
// 为 ratio 时请求数达到 MinRequests 后失败率不低于 FailureRatio 即熔断。
// Interval 为 Closed 状态下统计清零的周期，0 表示不清零。
type BreakerSettings struct {
	Enabled      bool          `koanf:"enabled"`
	Policy       string        `koanf:"policy"`
	Threshold    uint32        `koanf:"threshold"`
	FailureRatio float64       `koanf:"failure_ratio"`
	MinRequests  uint32        `koanf:"min_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
}

// LogSettings 日志配置
type LogSettings struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File 非空时输出到按大小轮转的文件
	File string `koanf:"file"`
}

// DefaultSettings 返回默认配置
func DefaultSettings() Settings {
	return Settings{
		Cache: CacheSettings{
			Backend:      BackendRedis,
			MaxKeyLength: 250,
			Memory: MemorySettings{
				NumCounters: 1e5,
				MaxCost:     64 << 20,
			},
		},
		Redis: RedisSettings{
			Addrs:        []string{"127.0.0.1:6379"},
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Tiers: TierSettings{
			Public:       NamespaceSettings{Namespace: "articles:public", TTL: 10 * time.Minute},
			User:         NamespaceSettings{Namespace: "articles:user", TTL: time.Minute},
			Search:       NamespaceSettings{Namespace: "articles:search", TTL: 5 * time.Minute},
			DefaultLimit: 20,
		},
		Batch: BatchSettings{
			Size:           100,
			MaxRetries:     3,
			RetryDelay:     time.Second,
			Backoff:        "fixed",
			MaxRetryDelay:  30 * time.Second,
			Concurrency:    5,
			QueryChunkSize: 10,
			SlowThreshold:  500 * time.Millisecond,
		},
		Loader: LoaderSettings{
			Wait: 2 * time.Millisecond,
		},
		Breaker: BreakerSettings{
			Enabled:      true,
			Policy:       BreakerConsecutive,
			Threshold:    5,
			FailureRatio: 0.5,
			MinRequests:  20,
			Timeout:      30 * time.Second,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadSettings 在默认值之上反序列化整个配置并校验
func LoadSettings(cfg Config) (Settings, error) {
	s := DefaultSettings()
	if err := cfg.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate 校验配置，返回包含全部问题的错误（errors.Is ErrInvalidSettings）
func (s Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
	}

	switch s.Cache.Backend {
	case BackendRedis:
		if len(s.Redis.Addrs) == 0 {
			add("redis.addrs is empty")
		}
		for _, addr := range s.Redis.Addrs {
			if strings.TrimSpace(addr) == "" {
				add("redis.addrs contains an empty address")
				break
			}
		}
	case BackendMemory:
		if s.Cache.Memory.MaxCost <= 0 {
			add("cache.memory.max_cost must be positive")
		}
	default:
		add("cache.backend %q is not one of redis|memory", s.Cache.Backend)
	}
	if s.Cache.MaxKeyLength < 32 {
		add("cache.max_key_length must be at least 32, got %d", s.Cache.MaxKeyLength)
	}

	tiers := map[string]NamespaceSettings{
		"public": s.Tiers.Public,
		"user":   s.Tiers.User,
		"search": s.Tiers.Search,
	}
	seen := make(map[string]string, len(tiers))
	for _, name := range []string{"public", "user", "search"} {
		ns := tiers[name]
		if ns.Namespace == "" {
			add("tiers.%s.namespace is empty", name)
		} else if other, dup := seen[ns.Namespace]; dup {
			add("tiers.%s.namespace duplicates tiers.%s", name, other)
		} else {
			seen[ns.Namespace] = name
		}
		if ns.TTL <= 0 {
			add("tiers.%s.ttl must be positive", name)
		}
	}
	if s.Tiers.DefaultLimit <= 0 {
		add("tiers.default_limit must be positive")
	}

	if s.Batch.Size <= 0 {
		add("batch.size must be positive")
	}
	if s.Batch.MaxRetries < 0 {
		add("batch.max_retries must not be negative")
	}
	if s.Batch.RetryDelay < 0 {
		add("batch.retry_delay must not be negative")
	}
	if !slices.Contains(backoffKinds, s.Batch.Backoff) {
		add("batch.backoff %q is not one of %s", s.Batch.Backoff, strings.Join(backoffKinds, "|"))
	}
	if s.Batch.MaxRetryDelay < 0 {
		add("batch.max_retry_delay must not be negative")
	}
	if s.Batch.Concurrency <= 0 {
		add("batch.concurrency must be positive")
	}
	if s.Loader.Wait < 0 {
		add("loader.wait must not be negative")
	}
	if s.Loader.MaxBatch < 0 {
		add("loader.max_batch must not be negative")
	}
	if s.Breaker.Enabled {
		switch s.Breaker.Policy {
		case BreakerConsecutive:
			if s.Breaker.Threshold == 0 {
				add("breaker.threshold must be positive when enabled")
			}
		case BreakerRatio:
			if s.Breaker.FailureRatio <= 0 || s.Breaker.FailureRatio > 1 {
				add("breaker.failure_ratio must be in (0, 1], got %v", s.Breaker.FailureRatio)
			}
			if s.Breaker.MinRequests == 0 {
				add("breaker.min_requests must be positive for the ratio policy")
			}
		default:
			add("breaker.policy %q is not one of consecutive|ratio", s.Breaker.Policy)
		}
		if s.Breaker.Interval < 0 {
			add("breaker.interval must not be negative")
		}
	}

	return errors.Join(errs...)
}
