// Package config содержит логику чтения конфигурации дашборда.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	defaultRunAddress     = "localhost:8080"
	defaultRequestTimeout = 30 * time.Second
	defaultAllowedOrigins = "http://localhost:3000"
)

// Config содержит параметры конфигурации дашборда.
type Config struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	APIBaseURL     string        `env:"API_BASE_URL"`
	DatabaseURI    string        `env:"DATABASE_URI"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	// .env необязателен, уже заданные переменные окружения он не перекрывает
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envAPIBaseURL := cfg.APIBaseURL
	envDatabaseURI := cfg.DatabaseURI
	envRequestTimeout := cfg.RequestTimeout
	envAllowedOrigins := cfg.AllowedOrigins

	var origins string

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.APIBaseURL, "b", "", "field-service REST API base URL")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "transition journal database URI")
	flag.DurationVar(&cfg.RequestTimeout, "t", defaultRequestTimeout, "REST API request timeout")
	flag.StringVar(&origins, "o", defaultAllowedOrigins, "comma-separated CORS origins")

	flag.Parse()

	cfg.AllowedOrigins = splitList(origins)

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envAPIBaseURL != "" {
		cfg.APIBaseURL = envAPIBaseURL
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envRequestTimeout != 0 {
		cfg.RequestTimeout = envRequestTimeout
	}
	if len(envAllowedOrigins) > 0 {
		cfg.AllowedOrigins = splitList(strings.Join(envAllowedOrigins, ","))
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("API base URL is required (API_BASE_URL or -b)")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
