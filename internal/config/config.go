package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/bot"
)

type Config struct {
	Addr         string
	AIDepth      int
	AIStrategy   bot.Strategy
	AITimeout    time.Duration
	SessionTTL   time.Duration
	SweepEvery   time.Duration
	PostgresURL  string
	KafkaBrokers []string
	KafkaTopic   string
	LogLevel     zerolog.Level
	LogFormat    string
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads the environment. PORT wins over ADDR, as on most PaaS hosts.
func Load() (Config, error) {
	cfg := Config{
		Addr:        getEnv("ADDR", ":8080"),
		AIDepth:     intEnv("AI_DEPTH", 5),
		AITimeout:   durationEnv("AI_TIMEOUT", 0),
		SessionTTL:  durationEnv("SESSION_TTL", 30*time.Minute),
		SweepEvery:  durationEnv("SWEEP_INTERVAL", 30*time.Second),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		KafkaTopic:  getEnv("KAFKA_TOPIC", "game-events"),
		LogFormat:   getEnv("LOG_FORMAT", "console"),
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = ":" + port
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	strategy, err := bot.ParseStrategy(getEnv("AI_STRATEGY", string(bot.StrategyMinimax)))
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.AIStrategy = strategy

	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.LogLevel = level

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.AIDepth <= 0 {
		return fmt.Errorf("%w: AI_DEPTH must be positive, got %d", ErrInvalidConfig, c.AIDepth)
	}
	if _, err := bot.ParseStrategy(string(c.AIStrategy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.AITimeout < 0 || c.SessionTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("%w: LOG_FORMAT must be console or json", ErrInvalidConfig)
	}
	return nil
}

// Logger builds the process logger described by the config.
func (c Config) Logger() zerolog.Logger {
	var logger zerolog.Logger
	if c.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(c.LogLevel).With().Timestamp().Logger()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// durationEnv accepts whole seconds or a Go duration string.
func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return time.Duration(parsed) * time.Second
		}
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}
