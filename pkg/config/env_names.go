package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "BBHD"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "BBHD_APP_ENV"
	EnvPort     = "BBHD_APP_PORT"
	EnvBaseURL  = "BBHD_BASE_URL"
	EnvDBDSN    = "BBHD_DB_DSN"
	EnvDBHost   = "BBHD_DB_HOST"
	EnvDBUser   = "BBHD_DB_USER"
	EnvDBName   = "BBHD_DB_NAME"
	EnvRedisURL = "BBHD_REDIS_URL"

	EnvStripeAPIKey        = "BBHD_STRIPE_API_KEY"
	EnvStripeWebhookSecret = "BBHD_STRIPE_WEBHOOK_SECRET"
	EnvSendgridAPIKey      = "BBHD_SENDGRID_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
