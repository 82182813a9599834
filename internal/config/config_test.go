// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"QURANCHAT_SERVER_URL", "QURANCHAT_TOKEN", "QURANCHAT_LOG_LEVEL",
		"QURANCHAT_REVEAL", "QURANCHAT_OFFLINE_ARCHIVE",
	} {
		t.Setenv(k, "")
	}
}

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8000", cfg.Server.URL)
	assert.Equal(t, 90*time.Second, cfg.Timeout())
	assert.Equal(t, 0.4, cfg.Render.ScriptRatioThreshold)
	assert.Equal(t, 15, cfg.Render.InlineScriptMax)
	assert.True(t, cfg.Reveal.Enabled)
	assert.Equal(t, 3, cfg.Reveal.ChunkSize)
	assert.Equal(t, 20*time.Millisecond, cfg.RevealInterval())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://host" }, "server.url"},
		{"no host", func(c *Config) { c.Server.URL = "http://" }, "server.url"},
		{"timeout", func(c *Config) { c.Server.TimeoutSecs = -1 }, "server.timeout_secs"},
		{"retries", func(c *Config) { c.Server.MaxRetries = 50 }, "server.max_retries"},
		{"rate", func(c *Config) { c.Server.RateLimit = -2 }, "server.rate_limit"},
		{"burst", func(c *Config) { c.Server.RateBurst = 0 }, "server.rate_burst"},
		{"threshold high", func(c *Config) { c.Render.ScriptRatioThreshold = 1 }, "render.script_ratio_threshold"},
		{"inline max", func(c *Config) { c.Render.InlineScriptMax = 0 }, "render.inline_script_max"},
		{"chunk", func(c *Config) { c.Reveal.ChunkSize = 0 }, "reveal.chunk_size"},
		{"interval", func(c *Config) { c.Reveal.IntervalMs = 5000 }, "reveal.interval_ms"},
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"list limit", func(c *Config) { c.UI.ChatListLimit = 0 }, "ui.chat_list_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("QURANCHAT_SERVER_URL", "https://chat.example.org")
	t.Setenv("QURANCHAT_TOKEN", "secret")
	t.Setenv("QURANCHAT_LOG_LEVEL", "debug")
	t.Setenv("QURANCHAT_REVEAL", "false")
	t.Setenv("QURANCHAT_OFFLINE_ARCHIVE", "0")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "https://chat.example.org", cfg.Server.URL)
	assert.Equal(t, "secret", cfg.Auth.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Reveal.Enabled)
	assert.False(t, cfg.Storage.ArchiveEnabled)
}

func TestConfig_LoadFromPathTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
url = "https://chat.example.org/"

[reveal]
enabled = false
chunk_size = 5
`), 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.org", cfg.Server.URL)
	assert.False(t, cfg.Reveal.Enabled)
	assert.Equal(t, 5, cfg.Reveal.ChunkSize)
	// Untouched keys keep their defaults.
	assert.Equal(t, 20, cfg.Reveal.IntervalMs)
	assert.True(t, cfg.Storage.ArchiveEnabled)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0600 {
		t.Logf("permissions not tightened on this platform: %o", info.Mode().Perm())
	}
}

func TestConfig_LoadFromPathJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ui": {"theme": "dark", "chat_list_limit": 20}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 20, cfg.UI.ChatListLimit)
}

func TestConfig_LoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nurll = \"x\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.urll")
}

func TestConfig_LoadInvalid(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[render]\nscript_ratio_threshold = 2.0\n"), 0600))

	_, err := LoadFromPath(path)
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
}

func TestConfig_LoadWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Server.URL, cfg.Server.URL)
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "dir", "config.toml")

	cfg := Default()
	cfg.UI.Theme = "light"
	cfg.Reveal.ChunkSize = 7
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_ResolvePaths(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cfg := Default()
	cfg.Storage.ArchivePath = "/custom/archive.db"
	require.NoError(t, cfg.ResolvePaths())

	assert.Equal(t, filepath.Join(home, ".quranchat", "token"), cfg.Auth.TokenFile)
	assert.Equal(t, "/custom/archive.db", cfg.Storage.ArchivePath)
	assert.Equal(t, filepath.Join(home, ".quranchat", "quranchat.log"), cfg.Log.File)
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("reveal.chunk_size", "9"))
	v, err := cfg.Get("reveal.chunk_size")
	require.NoError(t, err)
	assert.Equal(t, 9, v)

	require.NoError(t, cfg.Set("render.script_ratio_threshold", 0.5))
	assert.Equal(t, 0.5, cfg.Render.ScriptRatioThreshold)

	require.NoError(t, cfg.Set("ui.show_thinking", "yes"))
	assert.True(t, cfg.UI.ShowThinking)

	_, err = cfg.Get("reveal.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("reveal", "x"))
	assert.Error(t, cfg.Set("reveal.chunk_size", "many"))
	assert.Error(t, cfg.Set("reveal.chunk_size.x", "1"))
}

func TestConfig_Keys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "server.url")
	assert.Contains(t, keys, "render.inline_script_max")
	assert.NotContains(t, keys, "server")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestConfig_StringRedactsToken(t *testing.T) {
	cfg := Default()
	cfg.Auth.Token = "very-secret"
	s := cfg.String()
	assert.NotContains(t, s, "very-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "very-secret", cfg.Auth.Token)
}
