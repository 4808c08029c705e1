// Package config provides configuration for the botengine binary.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Config holds the botengine configuration.
type Config struct {
	// Server settings
	Addr        string
	VerifyToken string // Webhook subscription handshake token
	AppSecret   string // Enables X-Hub-Signature-256 checks when set

	// Flow settings
	FlowPath     string
	TextsPath    string // Optional content key -> text overrides
	MaxInputSize int

	// Storage settings
	Store           string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	RedisTTL        time.Duration // idle sessions only
	SQLiteDSN       string
	FileDir         string
	DistributedLock bool
	LockTTL         time.Duration

	// Data protection
	EncryptionKey  string   // base64, 32 bytes
	FallbackKeys   []string // base64, for rotation
	EncryptRecords bool
	PIIFields      []string // regexps over collection_attribute keys

	// Delivery
	RelayURL   string
	RelayToken string

	// Logging and tracing
	LogLevel    string
	LogFormat   string // text or json
	TraceOutput string // empty disables tracing; "stdout" or a file path
}

// Load loads configuration from BOTENGINE_* environment variables.
func Load() *Config {
	return &Config{
		Addr:            getEnv("BOTENGINE_ADDR", ":8080"),
		VerifyToken:     getEnv("BOTENGINE_VERIFY_TOKEN", ""),
		AppSecret:       getEnv("BOTENGINE_APP_SECRET", ""),
		FlowPath:        getEnv("BOTENGINE_FLOW", "flow.yaml"),
		TextsPath:       getEnv("BOTENGINE_TEXTS", ""),
		MaxInputSize:    getEnvInt("BOTENGINE_MAX_INPUT_SIZE", 4096),
		Store:           getEnv("BOTENGINE_STORE", StoreMemory),
		RedisAddr:       getEnv("BOTENGINE_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("BOTENGINE_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("BOTENGINE_REDIS_DB", 0),
		RedisPrefix:     getEnv("BOTENGINE_REDIS_PREFIX", "botengine:"),
		RedisTTL:        time.Duration(getEnvInt("BOTENGINE_REDIS_TTL_SECONDS", 0)) * time.Second,
		SQLiteDSN:       getEnv("BOTENGINE_SQLITE_DSN", "botengine.db"),
		FileDir:         getEnv("BOTENGINE_FILE_DIR", ".botengine"),
		DistributedLock: getEnvBool("BOTENGINE_DISTRIBUTED_LOCK", false),
		LockTTL:         time.Duration(getEnvInt("BOTENGINE_LOCK_TTL_MS", 30000)) * time.Millisecond,
		EncryptionKey:   getEnv("BOTENGINE_ENCRYPTION_KEY", ""),
		FallbackKeys:    getEnvList("BOTENGINE_ENCRYPTION_FALLBACK_KEYS"),
		EncryptRecords:  getEnvBool("BOTENGINE_ENCRYPT_RECORDS", false),
		PIIFields:       getEnvList("BOTENGINE_PII_FIELDS"),
		RelayURL:        getEnv("BOTENGINE_RELAY_URL", ""),
		RelayToken:      getEnv("BOTENGINE_RELAY_TOKEN", ""),
		LogLevel:        getEnv("BOTENGINE_LOG_LEVEL", "info"),
		LogFormat:       getEnv("BOTENGINE_LOG_FORMAT", "json"),
		TraceOutput:     getEnv("BOTENGINE_TRACE", ""),
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis, StoreSQLite, StoreFile:
	default:
		return fmt.Errorf("unknown store %q (want memory, redis, sqlite or file)", c.Store)
	}
	if c.DistributedLock && c.Store != StoreRedis {
		return fmt.Errorf("distributed lock requires the redis store")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	for _, p := range c.PIIFields {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid PII pattern %q: %w", p, err)
		}
	}
	return nil
}

// EncryptionKeys decodes the active and fallback keys. A nil active key
// means encryption is disabled.
func (c *Config) EncryptionKeys() ([]byte, [][]byte, error) {
	if c.EncryptionKey == "" {
		if len(c.FallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("fallback keys set without an active encryption key")
		}
		return nil, nil, nil
	}
	active, err := decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	fallback := make([][]byte, 0, len(c.FallbackKeys))
	for i, k := range c.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid fallback key %d: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("want 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
