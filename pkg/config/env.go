package config

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = "TEAHAVEN"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Canonical environment variable names, kept in one place so tests and
// deployment manifests stay in sync with the struct tags below.
const (
	EnvAppEnv                 = "TEAHAVEN_APP_ENV"
	EnvPort                   = "TEAHAVEN_APP_PORT"
	EnvDBDSN                  = "TEAHAVEN_DB_DSN"
	EnvDBHost                 = "TEAHAVEN_DB_HOST"
	EnvDBUser                 = "TEAHAVEN_DB_USER"
	EnvDBName                 = "TEAHAVEN_DB_NAME"
	EnvRedisURL               = "TEAHAVEN_REDIS_URL"
	EnvJWTSecret              = "TEAHAVEN_JWT_SECRET"
	EnvJWTIssuer              = "TEAHAVEN_JWT_ISSUER"
	EnvJWTExpMins             = "TEAHAVEN_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TEAHAVEN_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
