package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/tickethub/tickethub-web/internal/platform/cache"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppLocation       string        `envconfig:"APP_LOCATION" default:"America/Bogota"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	APIBaseURL string        `envconfig:"API_BASE_URL" default:"http://127.0.0.1:3000/api"`
	APITimeout time.Duration `envconfig:"API_TIMEOUT" default:"10s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	RateLimit int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	EventsCacheTTL   time.Duration `envconfig:"EVENTS_CACHE_TTL" default:"2m"`
	EventsPageSize   int           `envconfig:"EVENTS_PAGE_SIZE" default:"12"`
	EventsWarmPages  int           `envconfig:"EVENTS_WARM_PAGES" default:"3"`
	EventsWarmCron   string        `envconfig:"EVENTS_WARM_CRON" default:"*/10 * * * *"`
	StoreIdleTTL     time.Duration `envconfig:"STORE_IDLE_TTL" default:"30m"`
	StoreSweepPeriod time.Duration `envconfig:"STORE_SWEEP_PERIOD" default:"5m"`

	WorkerStatusAddr string `envconfig:"WORKER_STATUS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("api base url must be provided")
	}
	if cfg.EventsPageSize <= 0 {
		return nil, errors.New("events page size must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves AppLocation, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c == nil || c.AppLocation == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.AppLocation)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Redis returns the connection options shared by every Redis consumer.
func (c *Config) Redis() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}
