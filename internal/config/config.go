// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Board        string
	APIBaseURL   string
	ImageBaseURL string

	StorageBackend string
	StorageRoot    string
	DatabasePath   string
	CursorPath     string

	ShardCount   int
	SyncInterval time.Duration
	HTTPTimeout  time.Duration
	ClaimPolicy  string

	LogLevel string
	LogFile  string

	TelegramBotToken string
	AllowedUsers     []int64
	AlertChatID      int64
}

// Load reads configuration from environment variables. Values from a .env
// file in the working directory are used for variables not already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Board:            envOrDefault("BOARD", "biz"),
		APIBaseURL:       envOrDefault("API_BASE_URL", "https://a.4cdn.org"),
		ImageBaseURL:     envOrDefault("IMAGE_BASE_URL", "https://i.4cdn.org"),
		StorageBackend:   envOrDefault("STORAGE_BACKEND", BackendDir),
		StorageRoot:      os.Getenv("STORAGE_ROOT"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/mirror.db"),
		CursorPath:       envOrDefault("CURSOR_PATH", "./data/cursor.json"),
		ClaimPolicy:      envOrDefault("CLAIM_POLICY", "claim-before-work"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFile:          envOrDefault("LOG_FILE", "./logs/mirror.log"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	switch cfg.StorageBackend {
	case BackendDir, BackendSQLite:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q, use %s or %s", cfg.StorageBackend, BackendDir, BackendSQLite)
	}

	switch cfg.ClaimPolicy {
	case "claim-before-work", "confirm-after-work":
	default:
		return nil, fmt.Errorf("invalid CLAIM_POLICY %q", cfg.ClaimPolicy)
	}

	var err error
	if cfg.ShardCount, err = envInt("SHARD_COUNT", 4); err != nil {
		return nil, err
	}
	if cfg.ShardCount < 1 || cfg.ShardCount > 64 {
		return nil, fmt.Errorf("SHARD_COUNT must be between 1 and 64, got %d", cfg.ShardCount)
	}
	if cfg.SyncInterval, err = envDuration("SYNC_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	if raw := os.Getenv("ALERT_CHAT_ID"); raw != "" {
		if cfg.AlertChatID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid ALERT_CHAT_ID %q: %w", raw, err)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
