package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvPort            = "STOREFRONT_APP_PORT"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvJWTSecret       = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer       = "STOREFRONT_JWT_ISSUER"
	EnvBackendURL      = "STOREFRONT_BACKEND_BASE_URL"
	EnvBackendTimeout  = "STOREFRONT_BACKEND_TIMEOUT"
	EnvCartFlatCoupons = "STOREFRONT_CART_FLAT_COUPONS"
	EnvCartLockMode    = "STOREFRONT_CART_LOCK_MODE"
)

const (
	LockModeRedis  = "redis"
	LockModeMemory = "memory"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Backend  BackendConfig
	Cart     CartConfig
	Vouchers VoucherConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Backend.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig holds the shared secret used to verify access tokens minted by the
// marketplace backend.
type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
}

type BackendConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_BACKEND_BASE_URL" required:"true"`
	Timeout time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"10s"`
}

type CartConfig struct {
	// MaxQuantity caps lines whose product and variant carry no stock figure.
	MaxQuantity       int              `envconfig:"STOREFRONT_CART_MAX_QUANTITY" default:"999"`
	ToggleConcurrency int              `envconfig:"STOREFRONT_CART_TOGGLE_CONCURRENCY" default:"4"`
	LineLockTTL       time.Duration    `envconfig:"STOREFRONT_CART_LINE_LOCK_TTL" default:"30s"`
	CountTTL          time.Duration    `envconfig:"STOREFRONT_CART_COUNT_TTL" default:"24h"`
	LockMode          string           `envconfig:"STOREFRONT_CART_LOCK_MODE" default:"redis"`
	FlatCoupons       map[string]int64 `envconfig:"STOREFRONT_CART_FLAT_COUPONS" default:"discount10:100000"`
}

type VoucherConfig struct {
	SlotTTL time.Duration `envconfig:"STOREFRONT_VOUCHER_SLOT_TTL" default:"24h"`
}

// FlatCoupon resolves a cart-page coupon code to its flat deduction.
func (c CartConfig) FlatCoupon(code string) (int64, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if trimmed == "" {
		return 0, false
	}
	for key, amount := range c.FlatCoupons {
		if strings.ToLower(strings.TrimSpace(key)) == trimmed {
			return amount, true
		}
	}
	return 0, false
}

func (b BackendConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(b.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvBackendURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvBackendURL)
	}
	if b.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvBackendTimeout)
	}
	return nil
}

func (c CartConfig) validate() error {
	if c.MaxQuantity < 1 {
		return fmt.Errorf("cart max quantity must be at least 1")
	}
	if c.ToggleConcurrency < 1 {
		return fmt.Errorf("cart toggle concurrency must be at least 1")
	}
	if c.LineLockTTL <= 0 {
		return fmt.Errorf("cart line lock ttl must be positive")
	}
	if c.CountTTL <= 0 {
		return fmt.Errorf("cart count ttl must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.LockMode)) {
	case LockModeRedis, LockModeMemory:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartLockMode, LockModeRedis, LockModeMemory)
	}
	for code, amount := range c.FlatCoupons {
		if amount < 0 {
			return fmt.Errorf("%s: coupon %q has negative amount", EnvCartFlatCoupons, code)
		}
	}
	return nil
}
