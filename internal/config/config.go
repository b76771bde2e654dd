package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// ErrWeakSessionSecret is returned when SESSION_SECRET is shorter than 32 bytes.
var ErrWeakSessionSecret = errors.New("SESSION_SECRET must be at least 32 characters")

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port                   int           `envconfig:"PORT" default:"8080"`
	LogLevel               string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL            string        `envconfig:"DATABASE_URL" required:"true"`
	Version                string        `envconfig:"VERSION" default:"dev"`
	Environment            string        `envconfig:"ENVIRONMENT" default:"development"`
	BcryptCost             int           `envconfig:"BCRYPT_COST" default:"12"`
	SessionSecret          string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL             time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SessionIssuer          string        `envconfig:"SESSION_ISSUER" default:"coldtrace"`
	SessionCookieName      string        `envconfig:"SESSION_COOKIE_NAME" default:"session-token"`
	CookieSecure           bool          `envconfig:"COOKIE_SECURE" default:"false"`
	SignInURL              string        `envconfig:"SIGNIN_URL" default:"/login"`
	CORSAllowedOrigins     []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	RedisURL               string        `envconfig:"REDIS_URL" default:""`
	AdminSeedFile          string        `envconfig:"ADMIN_SEED_FILE" default:""`
	// AdminReconcileInterval re-applies the admin seed periodically; zero disables it.
	AdminReconcileInterval time.Duration `envconfig:"ADMIN_RECONCILE_INTERVAL" default:"0s"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks constraints envconfig tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < 32 {
		return ErrWeakSessionSecret
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.AdminReconcileInterval < 0 {
		return errors.New("ADMIN_RECONCILE_INTERVAL must not be negative")
	}
	return nil
}

// IsProduction reports whether the service runs with ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// SecureCookies reports whether session cookies carry the Secure attribute.
// Production always does.
func (c *Config) SecureCookies() bool {
	return c.CookieSecure || c.IsProduction()
}
