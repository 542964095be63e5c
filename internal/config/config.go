package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	HTTPAddr       string
	AMQPURL        string
	TelegramToken  string
	MigrationsDir  string
	CommissionRate float64
	SweepInterval  time.Duration
}

func Load() (*Config, error) {
	// .env is optional; plain environment variables win in production.
	if err := godotenv.Load(".env"); err == nil {
		log.Println("loaded configuration from .env file")
	}

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		Environment:   os.Getenv("ENV"),
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		AMQPURL:       os.Getenv("AMQP_URL"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		MigrationsDir: os.Getenv("MIGRATIONS_DIR"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "migrations"
	}

	cfg.CommissionRate = 20.0
	if v := os.Getenv("COMMISSION_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil || rate < 0 || rate >= 100 {
			return nil, fmt.Errorf("invalid COMMISSION_RATE %q", v)
		}
		cfg.CommissionRate = rate
	}

	cfg.SweepInterval = 5 * time.Minute
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL %q", v)
		}
		cfg.SweepInterval = d
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}
