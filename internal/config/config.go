// Package config содержит логику чтения конфигурации сервиса.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config содержит параметры конфигурации сервиса.
type Config struct {
	RunAddress           string `env:"RUN_ADDRESS"`
	DatabaseURI          string `env:"DATABASE_URI"`
	DatabaseName         string `env:"DATABASE_NAME"`
	AuthSecret           string `env:"AUTH_SECRET"`
	DefaultDestinationID string `env:"DEFAULT_DESTINATION_ID"`
	ScanCrossCheck       bool   `env:"PICKUP_SCAN_CROSS_CHECK"`
	CORSAllowedOrigins   string `env:"CORS_ALLOWED_ORIGINS"`
	LogLevel             string `env:"LOG_LEVEL"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения, в том числе из файла .env, имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI (postgres:// or mongodb://)")
	flag.StringVar(&cfg.DatabaseName, "n", "foodrescue", "MongoDB database name")
	flag.StringVar(&cfg.AuthSecret, "s", "", "HS256 secret for identity tokens")
	flag.StringVar(&cfg.DefaultDestinationID, "f", "default_food_bank_id", "destination used when completion omits one")
	flag.BoolVar(&cfg.ScanCrossCheck, "x", true, "cross-check scanned volunteer ids against scheduled pickups")
	flag.StringVar(&cfg.CORSAllowedOrigins, "o", "*", "comma-separated CORS origins")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Пустое значение отключает подстановку получателя, но env.Parse пустые переменные пропускает.
	if v, ok := os.LookupEnv("DEFAULT_DESTINATION_ID"); ok && strings.TrimSpace(v) == "" {
		cfg.DefaultDestinationID = ""
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURI == "" {
		errs = append(errs, errors.New("database URI is required (-d or DATABASE_URI)"))
	}
	if c.AuthSecret == "" {
		errs = append(errs, errors.New("auth secret is required (-s or AUTH_SECRET)"))
	}
	return errors.Join(errs...)
}

// AllowedOrigins возвращает список разрешённых источников CORS.
func (c *Config) AllowedOrigins() []string {
	var res []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			res = append(res, o)
		}
	}
	return res
}

// IsMongo сообщает, что хранилищем выбран MongoDB.
func (c *Config) IsMongo() bool {
	return strings.HasPrefix(c.DatabaseURI, "mongodb://") || strings.HasPrefix(c.DatabaseURI, "mongodb+srv://")
}
