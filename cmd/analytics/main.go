package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/ardaeerol/smart-connect4/internal/analytics"
)

type strategyStats struct {
	decisions int
	nodes     float64
	elapsedMs float64
	bookHits  int
	fallbacks int
}

type metrics struct {
	mu          sync.Mutex
	totalGames  int
	gamesByMode map[string]int
	winners     map[string]int
	durations   []float64
	gamesPerDay map[string]int
	moves       int
	strategies  map[string]*strategyStats
}

func newMetrics() *metrics {
	return &metrics{
		gamesByMode: make(map[string]int),
		winners:     make(map[string]int),
		gamesPerDay: make(map[string]int),
		strategies:  make(map[string]*strategyStats),
	}
}

func (m *metrics) record(e analytics.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Event {
	case analytics.EventGameFinished:
		m.totalGames++
		if mode, ok := e.Payload["mode"].(string); ok {
			m.gamesByMode[mode]++
		}
		if winner, ok := e.Payload["winner"].(string); ok && winner != "" {
			m.winners[winner]++
		}
		if d, ok := e.Payload["duration"].(float64); ok {
			m.durations = append(m.durations, d)
		}
		m.gamesPerDay[e.Timestamp.Format("2006-01-02")]++
	case analytics.EventMovePlayed:
		m.moves++
	case analytics.EventAIMove:
		name, _ := e.Payload["strategy"].(string)
		st, ok := m.strategies[name]
		if !ok {
			st = &strategyStats{}
			m.strategies[name] = st
		}
		st.decisions++
		if n, ok := e.Payload["nodes"].(float64); ok {
			st.nodes += n
		}
		if ms, ok := e.Payload["elapsedMs"].(float64); ok {
			st.elapsedMs += ms
		}
		if hit, _ := e.Payload["fromBook"].(bool); hit {
			st.bookHits++
		}
		if fb, _ := e.Payload["fallback"].(bool); fb {
			st.fallbacks++
		}
	}
}

func (m *metrics) averageDuration() float64 {
	if len(m.durations) == 0 {
		return 0
	}
	sum := 0.0
	for _, d := range m.durations {
		sum += d
	}
	return sum / float64(len(m.durations))
}

func (m *metrics) print(log zerolog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log.Info().
		Int("games", m.totalGames).
		Int("moves", m.moves).
		Float64("avgDurationSec", m.averageDuration()).
		Interface("byMode", m.gamesByMode).
		Interface("winners", m.winners).
		Interface("perDay", m.gamesPerDay).
		Msg("analytics-summary")
	for name, st := range m.strategies {
		if st.decisions == 0 {
			continue
		}
		n := float64(st.decisions)
		log.Info().
			Str("strategy", name).
			Int("decisions", st.decisions).
			Float64("avgNodes", st.nodes/n).
			Float64("avgThinkMs", st.elapsedMs/n).
			Int("bookHits", st.bookHits).
			Int("fallbacks", st.fallbacks).
			Msg("engine-summary")
	}
}

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	brokers := strings.Split(getenv("KAFKA_BROKERS", "localhost:9092"), ",")
	topic := getenv("KAFKA_TOPIC", "game-events")

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: "connect4-analytics",
	})
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Strs("brokers", brokers).Str("topic", topic).Msg("analytics consumer listening")

	m := newMetrics()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.print(log)
			}
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				m.print(log)
				return
			}
			log.Fatal().Err(err).Msg("read")
		}
		var e analytics.Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			log.Warn().Err(err).Msg("failed to unmarshal event")
			continue
		}
		m.record(e)
		log.Debug().Str("event", e.Event).Interface("game", e.Payload["gameId"]).Msg("event")
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
