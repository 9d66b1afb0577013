package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	RateLimit    RateLimitConfig
	Cart         CartConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	Sendgrid     SendgridConfig
	Contact      ContactConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"BBHD_APP_ENV" required:"true"`
	Port         string `envconfig:"BBHD_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"BBHD_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"BBHD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BBHD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BBHD_DB_DSN"`
	Driver string `envconfig:"BBHD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BBHD_DB_HOST"`
	LegacyPort     int    `envconfig:"BBHD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BBHD_DB_USER"`
	LegacyPassword string `envconfig:"BBHD_DB_PASSWORD"`
	LegacyName     string `envconfig:"BBHD_DB_NAME"`
	LegacySSLMode  string `envconfig:"BBHD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BBHD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BBHD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BBHD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BBHD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BBHD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BBHD_REDIS_ADDR"`
	Password     string        `envconfig:"BBHD_REDIS_PASSWORD"`
	DB           int           `envconfig:"BBHD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BBHD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BBHD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BBHD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BBHD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BBHD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"BBHD_RATE_LIMIT_WINDOW" default:"10s"`
	Limit  int           `envconfig:"BBHD_RATE_LIMIT_LIMIT" default:"10"`
}

type CartConfig struct {
	TTL        time.Duration `envconfig:"BBHD_CART_TTL" default:"720h"`
	CookieName string        `envconfig:"BBHD_CART_COOKIE" default:"bbhd_cart"`
}

type CheckoutConfig struct {
	Currency         string        `envconfig:"BBHD_CHECKOUT_CURRENCY" default:"usd"`
	ShippingCountry  string        `envconfig:"BBHD_CHECKOUT_SHIPPING_COUNTRY" default:"US"`
	SuccessPath      string        `envconfig:"BBHD_CHECKOUT_SUCCESS_PATH" default:"/cart/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelPath       string        `envconfig:"BBHD_CHECKOUT_CANCEL_PATH" default:"/cart"`
	WebhookDedupeTTL time.Duration `envconfig:"BBHD_WEBHOOK_DEDUPE_TTL" default:"168h"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BBHD_STRIPE_API_KEY"`
	Secret string `envconfig:"BBHD_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"BBHD_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SendgridConfig struct {
	APIKey      string `envconfig:"BBHD_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"BBHD_SENDGRID_FROM_EMAIL" default:"noreply@bluebeachhousedesigns.com"`
	FromName    string `envconfig:"BBHD_SENDGRID_FROM_NAME" default:"Blue Beach House Designs"`
}

type ContactConfig struct {
	Recipient string `envconfig:"BBHD_CONTACT_EMAIL" default:"bluebeachhousedesigns@gmail.com"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BBHD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
