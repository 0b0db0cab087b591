package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Pricing       PricingConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"MARKETSTEAD_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETSTEAD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETSTEAD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETSTEAD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETSTEAD_DB_DSN"`
	Driver string `envconfig:"MARKETSTEAD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETSTEAD_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETSTEAD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETSTEAD_DB_USER"`
	LegacyPassword string `envconfig:"MARKETSTEAD_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETSTEAD_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETSTEAD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETSTEAD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETSTEAD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETSTEAD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETSTEAD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETSTEAD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETSTEAD_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETSTEAD_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETSTEAD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETSTEAD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETSTEAD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETSTEAD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETSTEAD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETSTEAD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MARKETSTEAD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKETSTEAD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARKETSTEAD_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MARKETSTEAD_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MARKETSTEAD_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MARKETSTEAD_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MARKETSTEAD_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MARKETSTEAD_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MARKETSTEAD_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MARKETSTEAD_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MARKETSTEAD_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MARKETSTEAD_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MARKETSTEAD_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MARKETSTEAD_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// PricingConfig carries the business constants used to derive cart and order
// totals. Tax applies to the whole subtotal; shipping is waived only when the
// subtotal is strictly above the threshold.
type PricingConfig struct {
	TaxRate               decimal.Decimal `envconfig:"MARKETSTEAD_TAX_RATE" default:"0.20"`
	FreeShippingThreshold decimal.Decimal `envconfig:"MARKETSTEAD_FREE_SHIPPING_THRESHOLD" default:"50"`
	FlatShippingFee       decimal.Decimal `envconfig:"MARKETSTEAD_FLAT_SHIPPING_FEE" default:"5.99"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARKETSTEAD_AUTO_MIGRATE" default:"false"`
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
