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
	JWT          JWTConfig
	SMTP         SMTPConfig
	Store        StoreConfig
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
	Env          string `envconfig:"EXR_APP_ENV" required:"true"`
	Port         string `envconfig:"EXR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EXR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EXR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EXR_DB_DSN"`
	Driver string `envconfig:"EXR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EXR_DB_HOST"`
	LegacyPort     int    `envconfig:"EXR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EXR_DB_USER"`
	LegacyPassword string `envconfig:"EXR_DB_PASSWORD"`
	LegacyName     string `envconfig:"EXR_DB_NAME"`
	LegacySSLMode  string `envconfig:"EXR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EXR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EXR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EXR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EXR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EXR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EXR_REDIS_ADDR"`
	Password     string        `envconfig:"EXR_REDIS_PASSWORD"`
	DB           int           `envconfig:"EXR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EXR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EXR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EXR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EXR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EXR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EXR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EXR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EXR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type SMTPConfig struct {
	Host     string `envconfig:"EXR_SMTP_HOST"`
	Port     int    `envconfig:"EXR_SMTP_PORT" default:"587"`
	Username string `envconfig:"EXR_SMTP_USER"`
	Password string `envconfig:"EXR_SMTP_PASSWORD"`
	From     string `envconfig:"EXR_SMTP_FROM"`
}

// Enabled reports whether outbound email is configured at all.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type StoreConfig struct {
	Name         string `envconfig:"EXR_STORE_NAME" default:"EXR"`
	SupportEmail string `envconfig:"EXR_STORE_SUPPORT_EMAIL" default:"support@exr.store"`
	Currency     string `envconfig:"EXR_STORE_CURRENCY" default:"NPR"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"EXR_AUTO_MIGRATE" default:"false"`
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
