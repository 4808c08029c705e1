package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.LockTTL)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.Empty(t, cfg.PIIFields)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileStore(t *testing.T) {
	t.Setenv("BOTENGINE_STORE", "file")
	t.Setenv("BOTENGINE_FILE_DIR", "/tmp/bot")

	cfg := Load()
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "/tmp/bot", cfg.FileDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BOTENGINE_STORE", "redis")
	t.Setenv("BOTENGINE_REDIS_DB", "3")
	t.Setenv("BOTENGINE_REDIS_TTL_SECONDS", "60")
	t.Setenv("BOTENGINE_DISTRIBUTED_LOCK", "true")
	t.Setenv("BOTENGINE_PII_FIELDS", "user_name, user_phone ,")
	t.Setenv("BOTENGINE_MAX_INPUT_SIZE", "not-a-number")

	cfg := Load()
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, time.Minute, cfg.RedisTTL)
	assert.True(t, cfg.DistributedLock)
	assert.Equal(t, []string{"user_name", "user_phone"}, cfg.PIIFields)
	assert.Equal(t, 4096, cfg.MaxInputSize)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown store", func(c *Config) { c.Store = "mongo" }, "unknown store"},
		{"lock without redis", func(c *Config) { c.DistributedLock = true }, "requires the redis store"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "unknown log format"},
		{"short key", func(c *Config) { c.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }, "want 32 bytes"},
		{"bad pii pattern", func(c *Config) { c.PIIFields = []string{"user_(name"} }, "invalid PII pattern"},
		{"fallback only", func(c *Config) { c.FallbackKeys = []string{key} }, "without an active"},
		{"valid keys", func(c *Config) { c.EncryptionKey = key; c.FallbackKeys = []string{key} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				active, fallback, err := cfg.EncryptionKeys()
				require.NoError(t, err)
				assert.Len(t, active, 32)
				assert.Len(t, fallback, 1)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
