package config

import (
	"errors"
	"fmt"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"log"
	"strings"
	"time"
)

type Config struct {
	Port    string `envconfig:"PORT" default:"8083"`
	GinMode string `envconfig:"GIN_MODE" default:"debug"`

	// Database
	DatabaseDriver   string `envconfig:"DATABASE_DRIVER" default:"sqlite"`
	DatabaseDSN      string `envconfig:"DATABASE_DSN" default:"cafes.db"`
	DatabaseLogLevel string `envconfig:"DATABASE_LOG_LEVEL" default:"warn"`

	// Forms
	SecretKey      string        `envconfig:"SECRET_KEY"`
	CSRFEnabled    bool          `envconfig:"CSRF_ENABLED" default:"true"`
	CSRFTTL        time.Duration `envconfig:"CSRF_TTL" default:"1h"`
	CurrencySymbol string        `envconfig:"CURRENCY_SYMBOL" default:"€"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE" default:"false"`

	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

var drivers = map[string]bool{
	"postgres": true,
	"mysql":    true,
	"sqlite":   true,
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not found, using process environment")
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("read environment: %w", err)
	}
	c.DatabaseDriver = strings.ToLower(strings.TrimSpace(c.DatabaseDriver))
	return c, c.Validate()
}

func (c Config) Validate() error {
	if !drivers[c.DatabaseDriver] {
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN is empty")
	}
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if c.CSRFTTL <= 0 {
		return errors.New("CSRF_TTL must be positive")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}
