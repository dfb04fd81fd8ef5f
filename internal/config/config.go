package config

import (
	"fmt"
	"time"

	"memoriza-service/internal/pkg/jwt"

	"github.com/caarlos0/env/v9"
)

type AppConfig struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Logger  LoggerConfig
	Backend BackendConfig
	Redis   RedisConfig
	Session SessionConfig
	Cookie  CookieConfig
}

// LoggerConfig selects the zap preset and level.
type LoggerConfig struct {
	Level string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode  string `env:"LOGGER_MODE" envDefault:"production"`
}

// BackendConfig points at the Memoriza REST API. TokenPublicKeyPath is the
// API's RS256 verification key; without it, tokens handed in by the browser
// are only confirmed by a successful authenticated API call.
type BackendConfig struct {
	BaseURL                string        `env:"API_BASE_URL" envDefault:"http://localhost:5000"`
	Timeout                time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	RequestsPerSecond      float64       `env:"API_REQUESTS_PER_SECOND" envDefault:"20"`
	Burst                  int           `env:"API_BURST" envDefault:"40"`
	PermissionFetchTimeout time.Duration `env:"PERMISSION_FETCH_TIMEOUT" envDefault:"10s"`
	TokenPublicKeyPath     string        `env:"API_JWT_PUBLIC_KEY_PATH"`
	TokenIssuer            string        `env:"API_JWT_ISSUER"`
	TokenAudience          string        `env:"API_JWT_AUDIENCE"`
}

// RedisConfig is optional; without an address, persistence and login rate
// limiting are off.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
}

type SessionConfig struct {
	PersistenceEnabled bool          `env:"SESSION_PERSISTENCE" envDefault:"false"`
	TTL                time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	IdleTimeout        time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	SweepInterval      time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	LoginMaxAttempts   int64         `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindow        time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
}

// CookieConfig is the configuration for the HttpOnly session cookie
type CookieConfig struct {
	Name   string `env:"COOKIE_NAME" envDefault:"memoriza_session"`
	Domain string `env:"COOKIE_DOMAIN"`
	Secure bool   `env:"COOKIE_SECURE" envDefault:"false"`
	MaxAge int    `env:"COOKIE_MAX_AGE" envDefault:"86400"`
}

// DevAPIConfig configures the local fake of the Memoriza REST API.
type DevAPIConfig struct {
	HTTPAddr    string `env:"DEVAPI_ADDR" envDefault:":5000"`
	DatabaseURL string `env:"DEVAPI_DATABASE_URL"`

	Logger LoggerConfig

	PrivPath string        `env:"JWT_PRIVATE_KEY_PATH"`
	PubPath  string        `env:"JWT_PUBLIC_KEY_PATH"`
	Issuer   string        `env:"JWT_ISSUER" envDefault:"memoriza-api"`
	Audience string        `env:"JWT_AUDIENCE" envDefault:"memoriza-web"`
	TTL      time.Duration `env:"JWT_TTL" envDefault:"8h"`
	KID      string        `env:"JWT_KID" envDefault:"memoriza-dev"`
}

// JWT returns the token settings of the dev API.
func (c DevAPIConfig) JWT() jwt.Config {
	return jwt.Config{
		PrivPath: c.PrivPath,
		PubPath:  c.PubPath,
		Issuer:   c.Issuer,
		Audience: c.Audience,
		TTL:      c.TTL,
		KID:      c.KID,
	}
}

// Load loads environment variables into AppConfig.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDevAPI loads environment variables into DevAPIConfig.
func LoadDevAPI() (*DevAPIConfig, error) {
	cfg := &DevAPIConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse devapi config: %w", err)
	}
	return cfg, nil
}
