// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Provider names accepted by MARKET_PROVIDER.
const (
	ProviderYahoo      = "yahoo"
	ProviderTwelveData = "twelvedata"
)

// Config is the full runtime configuration. Each field names its environment variable in the env tag.
type Config struct {
	Port      int    `env:"PORT" envDefault:"5000" validate:"min=1,max=65535"`
	GinMode   string `env:"GIN_MODE" envDefault:"release" validate:"oneof=debug release test"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	MarketProvider    string        `env:"MARKET_PROVIDER" envDefault:"yahoo" validate:"oneof=yahoo twelvedata"`
	MarketTimeout     time.Duration `env:"MARKET_TIMEOUT" envDefault:"10s" validate:"min=1s,max=2m"`
	YahooBaseURL      string        `env:"YAHOO_BASE_URL" envDefault:"https://query1.finance.yahoo.com" validate:"url"`
	TwelveDataAPIKey  string        `env:"TWELVE_DATA_API_KEY" validate:"required_if=MarketProvider twelvedata"`
	TwelveDataBaseURL string        `env:"TWELVE_DATA_BASE_URL" envDefault:"https://api.twelvedata.com" validate:"url"`
	// calls per minute, 0 disables
	TwelveDataRateLimit int `env:"TWELVE_DATA_RATE_LIMIT" envDefault:"8" validate:"min=0"`

	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379" validate:"numeric"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	MetricsEnabled  bool          `env:"METRICS_ENABLED" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s" validate:"min=1s,max=5m"`
}

// Addr is the listen address on all interfaces.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// CacheEnabled reports whether a Redis host was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisHost != ""
}

var validate = validator.New()

// Load parses a Config from getenv with the declared defaults, then validates it.
// Pass os.Getenv in production.
func Load(getenv func(string) string) (*Config, error) {
	environ, err := environment(getenv)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := env.ParseWithOptions(&c, env.Options{Environment: environ}); err != nil {
		return nil, describeParse(err, environ)
	}
	if err := validate.Struct(&c); err != nil {
		return nil, fmt.Errorf("config: %w", describe(err))
	}
	return &c, nil
}

// environment collects the trimmed, non-empty value of every variable Config reads.
func environment(getenv func(string) string) (map[string]string, error) {
	params, err := env.GetFieldParams(&Config{})
	if err != nil {
		return nil, fmt.Errorf("config fields: %w", err)
	}
	out := make(map[string]string, len(params))
	for _, p := range params {
		if v := strings.TrimSpace(getenv(p.Key)); v != "" {
			out[p.Key] = v
		}
	}
	return out, nil
}

// describeParse names the env variable and raw value of the first unparsable field.
func describeParse(err error, environ map[string]string) error {
	var pe env.ParseError
	if !errors.As(err, &pe) {
		return fmt.Errorf("config: %w", err)
	}
	name := pe.Name
	if f, ok := reflect.TypeOf(Config{}).FieldByName(pe.Name); ok {
		name = f.Tag.Get("env")
	}
	return fmt.Errorf("config %s=%q: %w", name, environ[name], pe.Err)
}

// describe flattens validator errors into one readable message naming env variables.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	t := reflect.TypeOf(Config{})
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.StructField()
		if f, ok := t.FieldByName(fe.StructField()); ok {
			name = f.Tag.Get("env")
		}
		switch fe.Tag() {
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "required_if":
			msgs = append(msgs, fmt.Sprintf("%s is required", name))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", name, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", name, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed validation: %s", name, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
