package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/bot"
)

var envKeys = []string{
	"ADDR", "PORT", "AI_DEPTH", "AI_STRATEGY", "AI_TIMEOUT", "SESSION_TTL", "SWEEP_INTERVAL",
	"POSTGRES_URL", "KAFKA_BROKERS", "KAFKA_TOPIC", "LOG_LEVEL", "LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.AIDepth != 5 || cfg.AIStrategy != bot.StrategyMinimax {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.SessionTTL != 30*time.Minute || cfg.AITimeout != 0 || cfg.KafkaTopic != "game-events" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.KafkaBrokers != nil || cfg.LogLevel != zerolog.InfoLevel {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADDR", "127.0.0.1:9000")
	t.Setenv("PORT", "7000")
	t.Setenv("AI_DEPTH", "7")
	t.Setenv("AI_STRATEGY", "iterative")
	t.Setenv("AI_TIMEOUT", "2")
	t.Setenv("SESSION_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("PORT should win, got %q", cfg.Addr)
	}
	if cfg.AIDepth != 7 || cfg.AIStrategy != bot.StrategyIterative {
		t.Fatalf("ai settings %+v", cfg)
	}
	if cfg.AITimeout != 2*time.Second || cfg.SessionTTL != 90*time.Second {
		t.Fatalf("durations %v %v", cfg.AITimeout, cfg.SessionTTL)
	}
	if want := []string{"a:9092", "b:9092"}; !reflect.DeepEqual(cfg.KafkaBrokers, want) {
		t.Fatalf("brokers %v", cfg.KafkaBrokers)
	}
	if cfg.LogLevel != zerolog.DebugLevel || cfg.LogFormat != "json" {
		t.Fatalf("log settings %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"AI_DEPTH":    "0",
		"AI_STRATEGY": "mcts",
		"LOG_LEVEL":   "loud",
		"LOG_FORMAT":  "xml",
		"SESSION_TTL": "-5s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			if _, err := Load(); !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("%s=%s: expected ErrInvalidConfig, got %v", key, val, err)
			}
		})
	}
}
