package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

func (h HTTPConfig) Addr() string { return fmt.Sprintf("%s:%d", h.Host, h.Port) }

type DBConfig struct {
	URL      string
	MaxConns int32
	SeedPath string
}

type ORSConfig struct {
	APIKey  string
	BaseURL string
	Profile string
	Country string
	Timeout time.Duration
}

type RouteCacheConfig struct {
	KeyPrecision int
	RedisURL     string
	RedisTTL     time.Duration
}

type NotifyConfig struct {
	AMQPURL  string
	Exchange string
}

type SweepConfig struct {
	Interval   time.Duration
	WindowDays int
}

type LogConfig struct {
	Level string
	File  string
}

// Config is built once in cmd/ and handed to constructors.
type Config struct {
	Environment  string
	StoreBackend string
	JWTSecret    string
	HTTP         HTTPConfig
	DB           DBConfig
	ORS          ORSConfig
	Routes       RouteCacheConfig
	Notify       NotifyConfig
	Sweep        SweepConfig
	Log          LogConfig

	// DispatchMaxDistance is in metres.
	DispatchMaxDistance float64
}

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Load reads the process environment, overlaid on an optional app.env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("SEED_PATH", "data/seeds/demo.json")
	v.SetDefault("ORS_PROFILE", "driving-car")
	v.SetDefault("ORS_TIMEOUT", "8s")
	v.SetDefault("ROUTE_KEY_PRECISION", 5)
	v.SetDefault("ROUTE_REDIS_TTL", "24h")
	v.SetDefault("DISPATCH_MAX_DISTANCE_METERS", 10000)
	v.SetDefault("NOTIFY_EXCHANGE", "notifications")
	v.SetDefault("SWEEP_INTERVAL", "24h")
	v.SetDefault("SWEEP_WINDOW_DAYS", 7)
	v.SetDefault("LOG_LEVEL", "info")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	cfg := &Config{
		Environment:  v.GetString("APP_ENV"),
		StoreBackend: strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		JWTSecret:    v.GetString("JWT_SECRET"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		DB: DBConfig{
			URL:      v.GetString("DATABASE_URL"),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			SeedPath: v.GetString("SEED_PATH"),
		},
		ORS: ORSConfig{
			APIKey:  v.GetString("ORS_API_KEY"),
			BaseURL: v.GetString("ORS_BASE_URL"),
			Profile: v.GetString("ORS_PROFILE"),
			Country: v.GetString("ORS_COUNTRY"),
			Timeout: v.GetDuration("ORS_TIMEOUT"),
		},
		Routes: RouteCacheConfig{
			KeyPrecision: v.GetInt("ROUTE_KEY_PRECISION"),
			RedisURL:     v.GetString("REDIS_URL"),
			RedisTTL:     v.GetDuration("ROUTE_REDIS_TTL"),
		},
		Notify: NotifyConfig{
			AMQPURL:  v.GetString("AMQP_URL"),
			Exchange: v.GetString("NOTIFY_EXCHANGE"),
		},
		Sweep: SweepConfig{
			Interval:   v.GetDuration("SWEEP_INTERVAL"),
			WindowDays: v.GetInt("SWEEP_WINDOW_DAYS"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
			File:  v.GetString("LOG_FILE"),
		},
		DispatchMaxDistance: v.GetFloat64("DISPATCH_MAX_DISTANCE_METERS"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if strings.TrimSpace(cfg.ORS.APIKey) == "" {
		return fmt.Errorf("ORS_API_KEY is required")
	}
	switch cfg.StoreBackend {
	case BackendPostgres:
		if strings.TrimSpace(cfg.DB.URL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", cfg.StoreBackend)
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d out of range", cfg.HTTP.Port)
	}
	if cfg.Routes.KeyPrecision < 1 || cfg.Routes.KeyPrecision > 8 {
		return fmt.Errorf("ROUTE_KEY_PRECISION must be between 1 and 8")
	}
	if cfg.DispatchMaxDistance <= 0 {
		return fmt.Errorf("DISPATCH_MAX_DISTANCE_METERS must be positive")
	}
	if cfg.Sweep.WindowDays <= 0 {
		return fmt.Errorf("SWEEP_WINDOW_DAYS must be positive")
	}
	return nil
}
