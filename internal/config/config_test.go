package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development", BaseURL: "http://localhost:8080"},
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Host: "localhost", Name: "cinema_db", User: "cinema_user"},
		Redis:    RedisConfig{Host: "localhost"},
		JWT: JWTConfig{
			Secret:        "access-secret-access-secret-access-secret",
			RefreshSecret: "refresh-secret-refresh-secret-refresh-secret",
		},
		Tokens:     TokenConfig{Length: 64, Expiry: 24 * time.Hour, CleanupInterval: 10 * time.Minute},
		External:   ExternalConfig{Email: EmailConfig{Transport: "inline"}},
		Pagination: PaginationConfig{DefaultPerPage: 10, MaxPerPage: 20},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short jwt secret", func(c *Config) { c.JWT.Secret = "short" }, "JWT_SECRET"},
		{"relative base url", func(c *Config) { c.App.BaseURL = "/api" }, "BASE_URL"},
		{"zero cleanup interval", func(c *Config) { c.Tokens.CleanupInterval = 0 }, "TOKEN_CLEANUP_INTERVAL"},
		{"negative cleanup interval", func(c *Config) { c.Tokens.CleanupInterval = -time.Minute }, "TOKEN_CLEANUP_INTERVAL"},
		{"unknown email transport", func(c *Config) { c.External.Email.Transport = "pigeon" }, "EMAIL_TRANSPORT"},
		{"stripe keys in production", func(c *Config) { c.App.Environment = "production" }, "STRIPE_SECRET_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
