package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "topseven"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Redis    RedisConfig
	Content  ContentConfig
	Culqi    CulqiConfig
	Checkout CheckoutConfig
	CORS     CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Checkout.ParseFee(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOPSEVEN_APP_ENV" required:"true"`
	Port         string `envconfig:"TOPSEVEN_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TOPSEVEN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOPSEVEN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type RedisConfig struct {
	URL          string        `envconfig:"TOPSEVEN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOPSEVEN_REDIS_ADDR"`
	Password     string        `envconfig:"TOPSEVEN_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOPSEVEN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOPSEVEN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOPSEVEN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOPSEVEN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOPSEVEN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOPSEVEN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ContentConfig points at the headless commerce backend that owns
// products, pickup agencies and payment processing.
type ContentConfig struct {
	BaseURL        string        `envconfig:"TOPSEVEN_CONTENT_BASE_URL" required:"true"`
	Timeout        time.Duration `envconfig:"TOPSEVEN_CONTENT_TIMEOUT" default:"10s"`
	AgencyPageSize int           `envconfig:"TOPSEVEN_AGENCY_PAGE_SIZE" default:"100"`
	AgencyCacheTTL time.Duration `envconfig:"TOPSEVEN_AGENCY_CACHE_TTL" default:"168h"`
}

// CulqiConfig carries the hosted checkout widget credentials and branding.
type CulqiConfig struct {
	PublicKey    string        `envconfig:"TOPSEVEN_CULQI_PUBLIC_KEY" required:"true"`
	Title        string        `envconfig:"TOPSEVEN_CULQI_TITLE" default:"TopSeven Tienda Online"`
	Currency     string        `envconfig:"TOPSEVEN_CULQI_CURRENCY" default:"PEN"`
	OrderID      string        `envconfig:"TOPSEVEN_CULQI_ORDER_ID" required:"true"`
	RSAID        string        `envconfig:"TOPSEVEN_CULQI_RSA_ID"`
	RSAPublicKey string        `envconfig:"TOPSEVEN_CULQI_RSA_PUBLIC_KEY"`
	LogoURL      string        `envconfig:"TOPSEVEN_CULQI_LOGO_URL"`
	ScriptWait   time.Duration `envconfig:"TOPSEVEN_CULQI_SCRIPT_WAIT" default:"15s"`
}

type CheckoutConfig struct {
	HomeDeliveryFee string        `envconfig:"TOPSEVEN_HOME_DELIVERY_FEE" default:"20.00"`
	CountryCode     string        `envconfig:"TOPSEVEN_COUNTRY_CODE" default:"PE"`
	PendingOrderTTL time.Duration `envconfig:"TOPSEVEN_PENDING_ORDER_TTL" default:"1h"`

	homeDeliveryFee decimal.Decimal
}

type CORSConfig struct {
	Origins []string `envconfig:"TOPSEVEN_CORS_ORIGINS" default:"http://localhost:3000"`
}

// ParseFee validates and caches the configured delivery fee. Load calls
// it; hand-built configs must call it themselves.
func (c *CheckoutConfig) ParseFee() error {
	fee, err := decimal.NewFromString(strings.TrimSpace(c.HomeDeliveryFee))
	if err != nil {
		return fmt.Errorf("parsing home delivery fee: %w", err)
	}
	if fee.IsNegative() {
		return fmt.Errorf("home delivery fee cannot be negative")
	}
	c.homeDeliveryFee = fee
	return nil
}

// HomeDeliveryFeeAmount returns the parsed flat home-delivery fee.
func (c CheckoutConfig) HomeDeliveryFeeAmount() decimal.Decimal {
	return c.homeDeliveryFee
}
