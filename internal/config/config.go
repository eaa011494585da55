package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the checkout service.
type Config struct {
	AppPort  string
	LogLevel string

	DatabaseDriver string
	DatabaseDSN    string
	// SeedCatalog loads a demo product catalog at startup.
	SeedCatalog bool

	RabbitMQURL      string
	FulfillmentQueue string

	JWTSecret string

	Carrier CarrierConfig
	Gateway GatewayConfig
	Pricing PricingConfig

	ReconcileInterval    time.Duration
	ReconcileStaleAfter  time.Duration
	ReconcileMaxAttempts int
}

// CarrierConfig holds the shipment provider account.
type CarrierConfig struct {
	BaseURL        string
	Email          string
	Password       string
	Timeout        time.Duration
	TokenTTL       time.Duration
	WebhookToken   string
	PickupLocation string
	PickupPincode  string
}

// GatewayConfig holds the payment gateway credentials.
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// PricingConfig holds the flat-rate charges applied at checkout.
type PricingConfig struct {
	ShippingFlatFee decimal.Decimal
	TaxRate         decimal.Decimal
	CODFee          decimal.Decimal
	Currency        string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:storefront.db?cache=shared")
	v.SetDefault("SEED_CATALOG", false)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("FULFILLMENT_QUEUE", "fulfillment_queue")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("CARRIER_BASE_URL", "https://apiv2.shiprocket.in/v1/external/")
	v.SetDefault("CARRIER_TIMEOUT", "5s")
	v.SetDefault("CARRIER_TOKEN_TTL", "24h")
	v.SetDefault("CARRIER_PICKUP_LOCATION", "Primary")
	v.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com/v1/")
	v.SetDefault("GATEWAY_TIMEOUT", "5s")
	v.SetDefault("SHIPPING_FLAT_FEE", "50")
	v.SetDefault("TAX_RATE", "0.18")
	v.SetDefault("COD_FEE", "30")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("RECONCILE_INTERVAL", "1m")
	v.SetDefault("RECONCILE_STALE_AFTER", "2m")
	v.SetDefault("RECONCILE_MAX_ATTEMPTS", 10)
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{
		AppPort:          v.GetString("APP_PORT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		DatabaseDriver:   v.GetString("DATABASE_DRIVER"),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		SeedCatalog:      v.GetBool("SEED_CATALOG"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		FulfillmentQueue: v.GetString("FULFILLMENT_QUEUE"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		Carrier: CarrierConfig{
			BaseURL:        v.GetString("CARRIER_BASE_URL"),
			Email:          v.GetString("CARRIER_EMAIL"),
			Password:       v.GetString("CARRIER_PASSWORD"),
			Timeout:        v.GetDuration("CARRIER_TIMEOUT"),
			TokenTTL:       v.GetDuration("CARRIER_TOKEN_TTL"),
			WebhookToken:   v.GetString("CARRIER_WEBHOOK_TOKEN"),
			PickupLocation: v.GetString("CARRIER_PICKUP_LOCATION"),
			PickupPincode:  v.GetString("CARRIER_PICKUP_PINCODE"),
		},
		Gateway: GatewayConfig{
			BaseURL:   v.GetString("GATEWAY_BASE_URL"),
			KeyID:     v.GetString("GATEWAY_KEY_ID"),
			KeySecret: v.GetString("GATEWAY_KEY_SECRET"),
			Timeout:   v.GetDuration("GATEWAY_TIMEOUT"),
		},
		ReconcileInterval:    v.GetDuration("RECONCILE_INTERVAL"),
		ReconcileStaleAfter:  v.GetDuration("RECONCILE_STALE_AFTER"),
		ReconcileMaxAttempts: v.GetInt("RECONCILE_MAX_ATTEMPTS"),
	}

	var err error
	if cfg.Pricing.ShippingFlatFee, err = decimalSetting(v, "SHIPPING_FLAT_FEE"); err != nil {
		return nil, err
	}
	if cfg.Pricing.TaxRate, err = decimalSetting(v, "TAX_RATE"); err != nil {
		return nil, err
	}
	if cfg.Pricing.CODFee, err = decimalSetting(v, "COD_FEE"); err != nil {
		return nil, err
	}
	cfg.Pricing.Currency = strings.ToUpper(v.GetString("CURRENCY"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decimalSetting(v *viper.Viper, key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: %s must be a decimal: %w", key, err)
	}
	return d, nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Gateway.KeySecret == "" {
		errs = append(errs, errors.New("GATEWAY_KEY_SECRET is required"))
	}
	if c.Carrier.Email == "" || c.Carrier.Password == "" {
		errs = append(errs, errors.New("CARRIER_EMAIL and CARRIER_PASSWORD are required"))
	}
	if c.Carrier.Timeout <= 0 || c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("CARRIER_TIMEOUT and GATEWAY_TIMEOUT must be positive"))
	}
	if c.Carrier.TokenTTL <= 0 {
		errs = append(errs, errors.New("CARRIER_TOKEN_TTL must be positive"))
	}
	if c.Pricing.TaxRate.IsNegative() || c.Pricing.ShippingFlatFee.IsNegative() || c.Pricing.CODFee.IsNegative() {
		errs = append(errs, errors.New("pricing settings must not be negative"))
	}
	if c.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
