package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "cursor-memory-mcp", cfg.Server.Name)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cursor-memory-mcp", cfg.Server.Name)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.File())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, "server:\n  name: memo\nlog:\n  level: debug\n  format: json\nwatch: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memo", cfg.Server.Name)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Watch)
	assert.Equal(t, path, cfg.File())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	t.Setenv("CURSOR_MEMORY_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_SearchPath(t *testing.T) {
	xdg := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "cursor-memory-mcp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "cursor-memory-mcp", "config.yaml"), []byte("log:\n  format: json\n"), 0o644))
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", xdg)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "log.level")

	_, err = Load(writeConfig(t, "log:\n  format: xml\n"))
	assert.ErrorContains(t, err, "log.format")

	_, err = Load(writeConfig(t, "server:\n  name: \"  \"\n"))
	assert.ErrorContains(t, err, "server.name")
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Log.Level = "warn"

	require.NoError(t, Save(cfg, path, false))
	assert.Error(t, Save(cfg, path, false), "existing file must not be replaced")
	require.NoError(t, Save(cfg, path, true))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", loaded.Log.Level)
	assert.Equal(t, cfg.Server.Instructions, loaded.Server.Instructions)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "cursor-memory-mcp", "config.yaml"), path)
}

func TestOnChange_ReloadsLevel(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	changed := make(chan *Config, 16)
	cfg.OnChange(func(c *Config, err error) {
		if err != nil {
			return
		}
		select {
		case changed <- c:
		default:
		}
	})

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	// A write may surface as several events, some seeing a truncated file.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Log.Level == "debug" {
				return
			}
		case <-deadline:
			t.Fatal("config change not observed")
		}
	}
}
