package xconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNew(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		path := writeFile(t, "app.yaml", "app:\n  name: xfeed\n  port: 8080\n")
		cfg, err := New(path)
		require.NoError(t, err)

		assert.Equal(t, "xfeed", cfg.Client().String("app.name"))
		assert.Equal(t, 8080, cfg.Client().Int("app.port"))
		assert.Equal(t, FormatYAML, cfg.Format())
		assert.Equal(t, path, cfg.Path())
	})

	t.Run("JSON", func(t *testing.T) {
		path := writeFile(t, "app.json", `{"app":{"name":"xfeed"}}`)
		cfg, err := New(path)
		require.NoError(t, err)
		assert.Equal(t, FormatJSON, cfg.Format())
	})

	t.Run("Errors", func(t *testing.T) {
		_, err := New("")
		assert.ErrorIs(t, err, ErrEmptyPath)

		_, err = New("config.toml")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)

		_, err = New(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, ErrLoadFailed)

		_, err = New(writeFile(t, "bad.json", "{nope"))
		assert.ErrorIs(t, err, ErrParseFailed)
	})
}

func TestNewFromBytes(t *testing.T) {
	cfg, err := NewFromBytes([]byte("a:\n  b: 1\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Client().Int("a.b"))
	assert.Empty(t, cfg.Path())
	assert.ErrorIs(t, cfg.Reload(), ErrReloadBytes)

	empty, err := NewFromBytes(nil, FormatJSON)
	require.NoError(t, err)
	assert.Empty(t, empty.Client().Keys())

	_, err = NewFromBytes([]byte("x"), Format("ini"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestUnmarshal(t *testing.T) {
	type server struct {
		Host string `koanf:"host"`
		Port int    `koanf:"port"`
	}
	cfg, err := NewFromBytes([]byte(`{"server":{"host":"localhost","port":"9090"}}`), FormatJSON)
	require.NoError(t, err)

	var s server
	require.NoError(t, cfg.Unmarshal("server", &s))
	assert.Equal(t, server{Host: "localhost", Port: 9090}, s)

	var bad struct {
		Server int `koanf:"server"`
	}
	assert.ErrorIs(t, cfg.Unmarshal("", &bad), ErrUnmarshalFailed)
	assert.Panics(t, func() { MustUnmarshal(cfg, "", &bad) })
}

func TestCustomTagAndDelim(t *testing.T) {
	cfg, err := NewFromBytes([]byte(`{"a":{"b":"c"}}`), FormatJSON, WithDelim("/"), WithTag("json"))
	require.NoError(t, err)
	assert.Equal(t, "c", cfg.Client().String("a/b"))

	var out struct {
		A struct {
			B string `json:"b"`
		} `json:"a"`
	}
	require.NoError(t, cfg.Unmarshal("", &out))
	assert.Equal(t, "c", out.A.B)
}

func TestReload(t *testing.T) {
	path := writeFile(t, "app.yaml", "v: 1\n")
	cfg, err := New(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("v: 2\n"), 0o600))
	require.NoError(t, cfg.Reload())
	assert.Equal(t, 2, cfg.Client().Int("v"))

	require.NoError(t, os.WriteFile(path, []byte("v: [\n"), 0o600))
	assert.ErrorIs(t, cfg.Reload(), ErrParseFailed)
	assert.Equal(t, 2, cfg.Client().Int("v"), "failed reload keeps the old snapshot")
}
