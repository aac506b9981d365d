package xconf

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "watch.yaml", "v: 1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	var reloads atomic.Int32
	w, err := Watch(cfg, func(c Config, err error) {
		if err == nil && c.Client().Int("v") == 2 {
			reloads.Add(1)
		}
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	w.StartAsync()
	w.StartAsync()
	t.Cleanup(func() { assert.NoError(t, w.Stop()) })

	require.NoError(t, os.WriteFile(path, []byte("v: 2\n"), 0o600))

	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, cfg.Client().Int("v"))
}

func TestWatch_Errors(t *testing.T) {
	cfg, err := NewFromBytes([]byte("v: 1\n"), FormatYAML)
	require.NoError(t, err)

	_, err = Watch(cfg, nil)
	assert.ErrorIs(t, err, ErrReloadBytes)
}

func TestWatch_StopIsIdempotent(t *testing.T) {
	cfg, err := New(writeFile(t, "stop.yaml", "v: 1\n"))
	require.NoError(t, err)

	w, err := Watch(cfg, nil)
	require.NoError(t, err)
	w.StartAsync()

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	w.Start() // 已停止，立即返回
}
