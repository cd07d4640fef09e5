package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Data: DataConfig{
			Segments: "data/segments.json",
			Audio:    "data/surah.json",
		},
		Audio: AudioConfig{
			ResolveTimeoutMs: 4000,
			TickIntervalMs:   250,
			RemoteTimeoutMs:  10000,
			Sources:          DefaultSources(),
		},
		Playback:     PlaybackConfig{DefaultCollection: 1},
		Notification: NotificationConfig{MaxPositionUpdatesPerSec: 4},
		Log:          LogConfig{Level: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing segments table",
			modify:  func(c *Config) { c.Data.Segments = "" },
			wantErr: true,
			errMsg:  "Segments",
		},
		{
			name:    "missing audio table",
			modify:  func(c *Config) { c.Data.Audio = "" },
			wantErr: true,
			errMsg:  "Audio",
		},
		{
			name:    "resolve timeout too small",
			modify:  func(c *Config) { c.Audio.ResolveTimeoutMs = 10 },
			wantErr: true,
			errMsg:  "ResolveTimeoutMs",
		},
		{
			name:    "unknown source type",
			modify:  func(c *Config) { c.Audio.Sources = []SourceConfig{{Type: "ftp"}} },
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name:    "zero update rate",
			modify:  func(c *Config) { c.Notification.MaxPositionUpdatesPerSec = 0 },
			wantErr: true,
			errMsg:  "MaxPositionUpdatesPerSec",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "chatty" },
			wantErr: true,
			errMsg:  "Level",
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
			errMsg:  "Format",
		},
		{
			name:    "collection below one",
			modify:  func(c *Config) { c.Playback.DefaultCollection = 0 },
			wantErr: true,
			errMsg:  "DefaultCollection",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
data:
  segments: data/segments.json
  audio: data/surah.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4000, cfg.Audio.ResolveTimeoutMs)
	assert.Equal(t, 4*time.Second, cfg.Audio.ResolveTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.Audio.TickInterval())
	assert.Equal(t, 10*time.Second, cfg.Audio.RemoteTimeout())
	assert.Equal(t, DefaultSources(), cfg.Audio.Sources)
	assert.Equal(t, 1, cfg.Playback.DefaultCollection)
	assert.Equal(t, 4.0, cfg.Notification.MaxPositionUpdatesPerSec)
	assert.Equal(t, LogConfig{Level: "info"}, cfg.Log)
}

func TestLoad_Sources(t *testing.T) {
	path := writeConfig(t, `
data:
  segments: data/segments.json.zst
  audio: data/surah.json
log:
  level: warn
  file: /var/log/versesync.log
audio:
  resolve_timeout_ms: 1500
  sources:
    - type: remote
    - type: local
      settings:
        path_template: /recitations/{collection}.wav
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Audio.Sources, 2)
	assert.Equal(t, "remote", cfg.Audio.Sources[0].Type)
	assert.Equal(t, "local", cfg.Audio.Sources[1].Type)
	assert.Equal(t, "/recitations/{collection}.wav", cfg.Audio.Sources[1].Settings["path_template"])
	assert.Equal(t, 1500*time.Millisecond, cfg.Audio.ResolveTimeout())
	assert.Equal(t, LogConfig{Level: "warn", File: "/var/log/versesync.log"}, cfg.Log)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VERSESYNC_ADDR", ":9090")
	t.Setenv("VERSESYNC_CONTROL_TOKEN", "secret")
	t.Setenv("VERSESYNC_AUDIO_ROOT", "/srv/public")
	t.Setenv("VERSESYNC_LOG_LEVEL", "debug")

	path := writeConfig(t, `
server:
  addr: ":8081"
  token: from-file
data:
  segments: data/segments.json
  audio: data/surah.json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "secret", cfg.Server.Token)
	assert.Equal(t, "/srv/public", cfg.Audio.LocalRoot)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   func(t *testing.T) string
		errMsg string
	}{
		{
			name:   "missing file",
			path:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") },
			errMsg: "failed to read config file",
		},
		{
			name:   "bad yaml",
			path:   func(t *testing.T) string { return writeConfig(t, "data: [") },
			errMsg: "failed to parse config file",
		},
		{
			name:   "missing required tables",
			path:   func(t *testing.T) string { return writeConfig(t, "server:\n  addr: \":1\"\n") },
			errMsg: "config validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
