package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/avstrong/roomdesk/internal/booking"
)

const (
	CacheLocal = "local"
	CacheRedis = "redis"
	CacheNone  = "none"
)

var ErrUnknownCacheDriver = errors.New("unknown cache driver")

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	Host              string        `mapstructure:"APP_HOST"`
	Port              string        `mapstructure:"APP_PORT"`
	ReadHeaderTimeout time.Duration `mapstructure:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	LivenessEndpoint  string        `mapstructure:"LIVENESS_ENDPOINT"`
	RateLimitPerMin   int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`

	// Empty APIBaseURL runs against the in-process backend.
	APIBaseURL string        `mapstructure:"API_BASE_URL"`
	APIToken   string        `mapstructure:"API_TOKEN"`
	APITimeout time.Duration `mapstructure:"API_TIMEOUT"`

	CacheDriver   string        `mapstructure:"CACHE_DRIVER"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`

	JaegerEndpoint string `mapstructure:"JAEGER_ENDPOINT"`

	// "Half Board=1000,Full Board=2000"; used for rooms without their own table.
	MealPlanSurcharges string `mapstructure:"MEAL_PLAN_SURCHARGES"`
}

var defaults = map[string]any{
	"ENV":                  "development",
	"LOG_LEVEL":            "info",
	"APP_HOST":             "localhost",
	"APP_PORT":             "8092",
	"READ_HEADER_TIMEOUT":  "20s",
	"SHUTDOWN_TIMEOUT":     "4s",
	"LIVENESS_ENDPOINT":    "/liveness",
	"RATE_LIMIT_PER_MIN":   600,
	"RATE_LIMIT_BURST":     50,
	"API_BASE_URL":         "",
	"API_TOKEN":            "",
	"API_TIMEOUT":          "10s",
	"CACHE_DRIVER":         CacheLocal,
	"CACHE_TTL":            "2m",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"JAEGER_ENDPOINT":      "",
	"MEAL_PLAN_SURCHARGES": "Half Board=1000,Full Board=2000",
}

// Load reads envFile (if present) into the process environment, then an
// optional config.yaml, then the environment itself.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := conf.validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

func (c *Config) validate() error {
	switch c.CacheDriver {
	case CacheLocal, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("cache driver %q: %w", c.CacheDriver, ErrUnknownCacheDriver)
	}

	if _, err := c.Surcharges(); err != nil {
		return err
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Surcharges parses MealPlanSurcharges into a per-day table.
func (c *Config) Surcharges() (map[booking.MealPlan]decimal.Decimal, error) {
	res := make(map[booking.MealPlan]decimal.Decimal)

	for _, pair := range strings.Split(c.MealPlanSurcharges, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		plan, amount, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("meal plan surcharge %q: expected plan=amount", pair) //nolint:goerr113
		}

		perDay, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("meal plan surcharge %q: %w", pair, err)
		}

		res[booking.NormalizeMealPlan(booking.MealPlan(plan))] = perDay
	}

	return res, nil
}
