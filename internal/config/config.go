package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	ReadwiseToken   string        `envconfig:"READWISE_TOKEN" required:"true"`
	ReadwiseBaseURL string        `envconfig:"READWISE_BASE_URL" default:"https://readwise.io/api/v3"`
	ReadwiseAuthURL string        `envconfig:"READWISE_AUTH_URL" default:"https://readwise.io/api/v2/auth/"`
	HTTPTimeout     time.Duration `envconfig:"SHELF_HTTP_TIMEOUT" default:"30s"`

	// Reader delete endpoint allows 20 requests/minute; the default delay
	// keeps sequential deletes just under that.
	RequestDelay    time.Duration `envconfig:"SHELF_REQUEST_DELAY" default:"3.5s"`
	DeleteBatchSize int           `envconfig:"SHELF_BATCH_SIZE" default:"5"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"SHELF_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"SHELF_DB_MAX_CONNS" default:"4"`

	ListenAddr         string `envconfig:"LISTEN_ADDR" default:":8080"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ReadwiseToken) == "" {
		return fmt.Errorf("READWISE_TOKEN is required")
	}
	if strings.TrimSpace(c.ReadwiseBaseURL) == "" {
		return fmt.Errorf("READWISE_BASE_URL is required")
	}
	if strings.TrimSpace(c.ReadwiseAuthURL) == "" {
		return fmt.Errorf("READWISE_AUTH_URL is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("SHELF_HTTP_TIMEOUT must be > 0")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("SHELF_REQUEST_DELAY must be >= 0")
	}
	if c.DeleteBatchSize < 1 {
		return fmt.Errorf("SHELF_BATCH_SIZE must be >= 1")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("SHELF_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("SHELF_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("SHELF_DB_MIN_CONNS (%d) cannot exceed SHELF_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	return nil
}

// RequirePostgres reports whether the optional snapshot store is configured.
// Commands that never touch the local cache skip this check entirely.
func (c *Config) RequirePostgres() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required for this command (local snapshot store is not configured)")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
