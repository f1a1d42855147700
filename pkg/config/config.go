package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Session SessionConfig
	Stripe  StripeConfig
	Billing BillingConfig
	CORS    CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LAUNCHFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"LAUNCHFORGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LAUNCHFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LAUNCHFORGE_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"LAUNCHFORGE_FRONTEND_URL" required:"true"`
	AutoMigrate  bool   `envconfig:"LAUNCHFORGE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LAUNCHFORGE_DB_DSN"`
	Driver string `envconfig:"LAUNCHFORGE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LAUNCHFORGE_DB_HOST"`
	Port     int    `envconfig:"LAUNCHFORGE_DB_PORT" default:"5432"`
	User     string `envconfig:"LAUNCHFORGE_DB_USER"`
	Password string `envconfig:"LAUNCHFORGE_DB_PASSWORD"`
	Name     string `envconfig:"LAUNCHFORGE_DB_NAME"`
	SSLMode  string `envconfig:"LAUNCHFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LAUNCHFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LAUNCHFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LAUNCHFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LAUNCHFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LAUNCHFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LAUNCHFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"LAUNCHFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LAUNCHFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LAUNCHFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LAUNCHFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LAUNCHFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LAUNCHFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LAUNCHFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig verifies identity-provider session tokens. The identity
// provider mints the tokens; this service only validates them.
type SessionConfig struct {
	Secret string `envconfig:"LAUNCHFORGE_SESSION_SECRET" required:"true"`
	Issuer string `envconfig:"LAUNCHFORGE_SESSION_ISSUER" required:"true"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"LAUNCHFORGE_STRIPE_API_KEY" required:"true"`
	WebhookSecret string `envconfig:"LAUNCHFORGE_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"LAUNCHFORGE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// BillingConfig carries the subscription policy knobs.
type BillingConfig struct {
	// TrialPriceID is the price new tenants are auto-trialed on. Empty
	// disables auto-trials entirely.
	TrialPriceID string `envconfig:"LAUNCHFORGE_BILLING_TRIAL_PRICE_ID"`
	// TrialDays of 0 also disables auto-trials.
	TrialDays       int           `envconfig:"LAUNCHFORGE_BILLING_TRIAL_DAYS" default:"30"`
	DefaultCurrency string        `envconfig:"LAUNCHFORGE_BILLING_DEFAULT_CURRENCY" default:"usd"`
	WebhookEventTTL time.Duration `envconfig:"LAUNCHFORGE_BILLING_WEBHOOK_EVENT_TTL" default:"72h"`
}

// TrialEnabled reports whether new tenants receive an automatic trial.
func (b BillingConfig) TrialEnabled() bool {
	return b.TrialDays > 0 && strings.TrimSpace(b.TrialPriceID) != ""
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LAUNCHFORGE_CORS_ALLOWED_ORIGINS"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"LAUNCHFORGE_DB_HOST": db.Host,
		"LAUNCHFORGE_DB_USER": db.User,
		"LAUNCHFORGE_DB_NAME": db.Name,
	}
	for _, key := range []string{"LAUNCHFORGE_DB_HOST", "LAUNCHFORGE_DB_USER", "LAUNCHFORGE_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either LAUNCHFORGE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
