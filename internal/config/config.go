package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer

	Database  Database  `envPrefix:"DATABASE_"`
	Braintree Braintree `envPrefix:"BRAINTREE_"`
	Auth      Auth      `envPrefix:"AUTH_"`
	Redis     Redis     `envPrefix:"REDIS_"`
	Kafka     Kafka     `envPrefix:"KAFKA_"`
	Checkout  Checkout  `envPrefix:"CHECKOUT_"`
	Telemetry Telemetry `envPrefix:"OTEL_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"mysql"` // mysql, sqlite
	URL             string        `env:"URL"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"false"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`

	// unit of work retry, connection errors only
	TxMaxAttempts int           `env:"TX_MAX_ATTEMPTS" envDefault:"3"`
	TxBackoff     time.Duration `env:"TX_BACKOFF" envDefault:"100ms"`
}

type Braintree struct {
	Environment string        `env:"ENVIRONMENT" envDefault:"sandbox"`
	MerchantID  string        `env:"MERCHANT_ID"`
	PublicKey   string        `env:"PUBLIC_KEY"`
	PrivateKey  string        `env:"PRIVATE_KEY"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// Configured reports whether all gateway credentials are present.
func (b Braintree) Configured() bool {
	return b.MerchantID != "" && b.PublicKey != "" && b.PrivateKey != ""
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
	Issuer    string `env:"JWT_ISSUER" envDefault:"storefront"`
}

type Redis struct {
	Addr           string        `env:"ADDR"` // empty disables checkout idempotency
	Password       string        `env:"PASSWORD"`
	DB             int           `env:"DB" envDefault:"0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
}

type Kafka struct {
	Brokers             []string `env:"BROKERS" envSeparator:","`
	OrderTopic          string   `env:"ORDER_TOPIC" envDefault:"order.confirmed"`
	ReconciliationTopic string   `env:"RECONCILIATION_TOPIC" envDefault:"payment.reconciliation"`
}

type Checkout struct {
	Currency       string        `env:"CURRENCY" envDefault:"USD"`
	RateLimit      float64       `env:"RATE_LIMIT" envDefault:"5"`
	PersistTimeout time.Duration `env:"PERSIST_TIMEOUT" envDefault:"30s"`
}

type Telemetry struct {
	Endpoint    string `env:"EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"storefront-checkout"`
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	if c.Database.TxMaxAttempts < 1 {
		return errors.New("DATABASE_TX_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
