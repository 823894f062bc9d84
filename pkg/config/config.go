package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Notifications NotificationsConfig
	FeatureFlags  FeatureFlagsConfig
	Mail          MailConfig
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
	Env          string `envconfig:"TEAHAVEN_APP_ENV" required:"true"`
	Port         string `envconfig:"TEAHAVEN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TEAHAVEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TEAHAVEN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TEAHAVEN_DB_DSN"`
	Driver string `envconfig:"TEAHAVEN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TEAHAVEN_DB_HOST"`
	LegacyPort     int    `envconfig:"TEAHAVEN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TEAHAVEN_DB_USER"`
	LegacyPassword string `envconfig:"TEAHAVEN_DB_PASSWORD"`
	LegacyName     string `envconfig:"TEAHAVEN_DB_NAME"`
	LegacySSLMode  string `envconfig:"TEAHAVEN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TEAHAVEN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TEAHAVEN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TEAHAVEN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TEAHAVEN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TEAHAVEN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TEAHAVEN_REDIS_ADDR"`
	Password     string        `envconfig:"TEAHAVEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"TEAHAVEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TEAHAVEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TEAHAVEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TEAHAVEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TEAHAVEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TEAHAVEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"TEAHAVEN_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"TEAHAVEN_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"TEAHAVEN_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"TEAHAVEN_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"TEAHAVEN_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"TEAHAVEN_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"TEAHAVEN_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"TEAHAVEN_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"TEAHAVEN_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"TEAHAVEN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"TEAHAVEN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"TEAHAVEN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"TEAHAVEN_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"TEAHAVEN_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"TEAHAVEN_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type NotificationsConfig struct {
	QueueSize int `envconfig:"TEAHAVEN_NOTIFICATIONS_QUEUE_SIZE" default:"256"`
	Workers   int `envconfig:"TEAHAVEN_NOTIFICATIONS_WORKERS" default:"2"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TEAHAVEN_AUTO_MIGRATE" default:"false"`
}

type MailConfig struct {
	FromAddress string `envconfig:"TEAHAVEN_MAIL_FROM" default:"orders@teahaven.example"`
	FromName    string `envconfig:"TEAHAVEN_MAIL_FROM_NAME" default:"Tea Haven"`
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
