package xconf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings_Valid(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
}

func TestLoadSettings_OverridesDefaults(t *testing.T) {
	yaml := `
cache:
  backend: memory
  singleflight: true
tiers:
  user:
    ttl: 30s
batch:
  retry_delay: 250ms
  concurrency: 8
log:
  level: debug
`
	cfg, err := NewFromBytes([]byte(yaml), FormatYAML)
	require.NoError(t, err)

	s, err := LoadSettings(cfg)
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, s.Cache.Backend)
	assert.True(t, s.Cache.Singleflight)
	assert.Equal(t, 30*time.Second, s.Tiers.User.TTL)
	assert.Equal(t, "articles:user", s.Tiers.User.Namespace, "unset fields keep defaults")
	assert.Equal(t, 10*time.Minute, s.Tiers.Public.TTL)
	assert.Equal(t, 250*time.Millisecond, s.Batch.RetryDelay)
	assert.Equal(t, 8, s.Batch.Concurrency)
	assert.Equal(t, 100, s.Batch.Size)
	assert.Equal(t, "debug", s.Log.Level)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"unknown backend", func(s *Settings) { s.Cache.Backend = "etcd" }, "cache.backend"},
		{"no redis addrs", func(s *Settings) { s.Redis.Addrs = nil }, "redis.addrs is empty"},
		{"blank redis addr", func(s *Settings) { s.Redis.Addrs = []string{" "} }, "empty address"},
		{"memory cost", func(s *Settings) { s.Cache.Backend = BackendMemory; s.Cache.Memory.MaxCost = 0 }, "max_cost"},
		{"short key", func(s *Settings) { s.Cache.MaxKeyLength = 8 }, "max_key_length"},
		{"dup namespace", func(s *Settings) { s.Tiers.Search.Namespace = s.Tiers.Public.Namespace }, "duplicates"},
		{"empty namespace", func(s *Settings) { s.Tiers.User.Namespace = "" }, "tiers.user.namespace"},
		{"zero ttl", func(s *Settings) { s.Tiers.Search.TTL = 0 }, "tiers.search.ttl"},
		{"limit", func(s *Settings) { s.Tiers.DefaultLimit = 0 }, "default_limit"},
		{"batch size", func(s *Settings) { s.Batch.Size = 0 }, "batch.size"},
		{"retries", func(s *Settings) { s.Batch.MaxRetries = -1 }, "max_retries"},
		{"delay", func(s *Settings) { s.Batch.RetryDelay = -time.Second }, "retry_delay"},
		{"concurrency", func(s *Settings) { s.Batch.Concurrency = 0 }, "concurrency"},
		{"loader wait", func(s *Settings) { s.Loader.Wait = -1 }, "loader.wait"},
		{"loader max", func(s *Settings) { s.Loader.MaxBatch = -1 }, "max_batch"},
		{"breaker", func(s *Settings) { s.Breaker.Threshold = 0 }, "breaker.threshold"},
		{"backoff kind", func(s *Settings) { s.Batch.Backoff = "linear" }, "batch.backoff"},
		{"max retry delay", func(s *Settings) { s.Batch.MaxRetryDelay = -1 }, "max_retry_delay"},
		{"breaker policy", func(s *Settings) { s.Breaker.Policy = "adaptive" }, "breaker.policy"},
		{"breaker ratio", func(s *Settings) { s.Breaker.Policy = BreakerRatio; s.Breaker.FailureRatio = 1.5 }, "failure_ratio"},
		{"breaker min requests", func(s *Settings) { s.Breaker.Policy = BreakerRatio; s.Breaker.MinRequests = 0 }, "min_requests"},
		{"breaker interval", func(s *Settings) { s.Breaker.Interval = -time.Second }, "breaker.interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.ErrorIs(t, err, ErrInvalidSettings)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSettings_DisabledBreakerSkipsPolicy(t *testing.T) {
	s := DefaultSettings()
	s.Breaker.Enabled = false
	s.Breaker.Policy = "adaptive"
	assert.NoError(t, s.Validate())
}

func TestSettings_ValidateCollectsAll(t *testing.T) {
	s := DefaultSettings()
	s.Batch.Size = 0
	s.Batch.Concurrency = 0

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.size")
	assert.Contains(t, err.Error(), "batch.concurrency")
}

func TestLoadSettings_Invalid(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"batch":{"size":-1}}`), FormatJSON)
	require.NoError(t, err)

	_, err = LoadSettings(cfg)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}
