package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix of every environment variable read by Load.
const Prefix = "CONVERTER"

type HTTP struct {
	Addr              string        `envconfig:"ADDR" default:":8080" validate:"required"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
	ReadHeaderTimeout time.Duration `envconfig:"READ_HEADER_TIMEOUT" default:"5s" validate:"gt=0"`
	// TrustedProxies may set the client IP through X-Forwarded-For, none by default.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" validate:"dive,cidr|ip"`
}

type Rates struct {
	BaseURL string `envconfig:"BASE_URL" default:"https://api.exchangerate-api.com/v4/latest" validate:"required,url"`
	// TimeoutMs bounds a provider call, in milliseconds.
	TimeoutMs int `envconfig:"TIMEOUT_MS" default:"5000" validate:"gt=0"`
}

// Timeout of a provider call.
func (r Rates) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

type Log struct {
	Level string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
}

type RateLimit struct {
	RPS   float64 `envconfig:"RPS" default:"10" validate:"gt=0"`
	Burst int     `envconfig:"BURST" default:"20" validate:"gt=0"`
}

type CORS struct {
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*" validate:"min=1"`
}

type Metrics struct {
	// OTLPEndpoint is an OTLP/HTTP host:port, metrics are discarded when empty.
	OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"currency-converter"`
}

// App is the complete service configuration
type App struct {
	HTTP      HTTP      `envconfig:"HTTP"`
	Rates     Rates     `envconfig:"RATES"`
	Log       Log       `envconfig:"LOG"`
	RateLimit RateLimit `envconfig:"RATE_LIMIT"`
	CORS      CORS      `envconfig:"CORS"`
	Metrics   Metrics   `envconfig:"METRICS"`
}

// Load reads the first of envFiles that exists (".env" when none given) into
// the process environment without overriding it, then processes the
// environment into an App.
func Load(envFiles ...string) (*App, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		err := godotenv.Load(path)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading env file [%v]: %w", path, err)
		}
	}

	var cfg App
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
