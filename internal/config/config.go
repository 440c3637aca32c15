// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// App
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Token。TOKEN_TTLは運用者向けの上書きで、通常は未設定のまま7日を使う
	JWTSecret  string        `envconfig:"JWT_SECRET"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"168h"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`

	// OAuth
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `envconfig:"GOOGLE_REDIRECT_URL"`

	// Password reset
	ResetTokenTTL   time.Duration `envconfig:"RESET_TOKEN_TTL" default:"1h"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`

	// Rate Limit (req/min)
	RateLimitGeneral    int `envconfig:"RATE_LIMIT_GENERAL" default:"120"`
	RateLimitCredential int `envconfig:"RATE_LIMIT_CREDENTIAL" default:"20"`

	// Server
	ServerPort  string `envconfig:"SERVER_PORT" default:"5000"`
	BackendURL  string `envconfig:"BACKEND_URL"`
	FrontendURL string `envconfig:"FRONTEND_URL"`

	// Cookie
	CookieSecure bool `ignored:"true"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は不足している全ての変数名を含むエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"JWT_SECRET", cfg.JWTSecret},
		{"GOOGLE_CLIENT_ID", cfg.GoogleClientID},
		{"GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret},
		{"BACKEND_URL", cfg.BackendURL},
		{"FRONTEND_URL", cfg.FrontendURL},
	}
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	if cfg.GoogleRedirectURL == "" {
		cfg.GoogleRedirectURL = cfg.BackendURL + "/api/auth/google/callback"
	}
	cfg.CookieSecure = strings.HasPrefix(cfg.BackendURL, "https://")

	return cfg, nil
}

// IsProduction は本番環境で動作しているかどうかを返す。
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
