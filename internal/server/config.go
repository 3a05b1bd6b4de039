// Package server provides the relay configuration, loaded from the
// environment and validated before any component starts.
package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/Tyrowin/roomrelay/internal/store"
	"github.com/go-playground/validator/v10"
)

// Config holds the relay settings including transport and security controls.
type Config struct {
	Host                    string        `env:"HOST"`
	Port                    int           `env:"PORT,default=8080" validate:"min=1,max=65535"`
	JWTSecret               string        `env:"JWT_SECRET,required=true" validate:"required,min=16"`
	LogLevel                string        `env:"LOG_LEVEL,default=INFO" validate:"required"`
	StoreDriver             string        `env:"STORE_DRIVER,default=badger" validate:"oneof=badger bolt"`
	BadgerFilepath          string        `env:"BADGER_FILEPATH,default=./data/badger"`
	BoltFilepath            string        `env:"BOLT_FILEPATH,default=./data/relay.db"`
	PersistTimeout          time.Duration `env:"PERSIST_TIMEOUT,default=5s" validate:"gt=0"`
	AllowedOrigins          string        `env:"ALLOWED_ORIGINS,default=*"`
	MaxMessageSize          int64         `env:"MAX_MESSAGE_SIZE,default=65536" validate:"gt=0"`
	SendBufferSize          int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0"`
	RateLimitBurst          int           `env:"RATE_LIMIT_BURST,default=20" validate:"gt=0"`
	RateLimitRefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL,default=1s" validate:"gt=0"`
	ShutdownTimeout         time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
}

var validate = validator.New()

// DefaultConfig returns the same defaults the environment loader applies.
// JWTSecret has no default and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Port:                    8080,
		LogLevel:                "INFO",
		StoreDriver:             "badger",
		BadgerFilepath:          store.DefaultBadgerPath,
		BoltFilepath:            store.DefaultBoltPath,
		PersistTimeout:          5 * time.Second,
		AllowedOrigins:          "*",
		MaxMessageSize:          65536,
		SendBufferSize:          256,
		RateLimitBurst:          20,
		RateLimitRefillInterval: time.Second,
		ShutdownTimeout:         10 * time.Second,
	}
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Address is the listen address for the HTTP server.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins splits AllowedOrigins on commas.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// StorePath returns the on-disk location for the configured driver.
func (c Config) StorePath() string {
	if c.StoreDriver == store.DriverBolt {
		return c.BoltFilepath
	}
	return c.BadgerFilepath
}
