package main

import (
	"testing"
	"time"

	"github.com/ardaeerol/smart-connect4/internal/analytics"
)

func TestMetricsRecord(t *testing.T) {
	m := newMetrics()
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m.record(analytics.Event{Event: analytics.EventMovePlayed})
	m.record(analytics.Event{Event: analytics.EventMovePlayed})
	m.record(analytics.Event{
		Event:     analytics.EventGameFinished,
		Timestamp: day,
		Payload:   map[string]any{"mode": "ai", "winner": "player", "duration": 30.0},
	})
	m.record(analytics.Event{
		Event:     analytics.EventGameFinished,
		Timestamp: day,
		Payload:   map[string]any{"mode": "pvp", "winner": "draw", "duration": 10.0},
	})
	m.record(analytics.Event{
		Event:   analytics.EventAIMove,
		Payload: map[string]any{"strategy": "minimax", "nodes": 120.0, "elapsedMs": 4.0, "fromBook": true},
	})

	if m.totalGames != 2 || m.moves != 2 {
		t.Fatalf("games=%d moves=%d", m.totalGames, m.moves)
	}
	if m.gamesByMode["ai"] != 1 || m.winners["draw"] != 1 || m.gamesPerDay["2024-05-01"] != 2 {
		t.Fatalf("unexpected tallies %+v %+v %+v", m.gamesByMode, m.winners, m.gamesPerDay)
	}
	if got := m.averageDuration(); got != 20 {
		t.Fatalf("average duration %v", got)
	}
	st := m.strategies["minimax"]
	if st == nil || st.decisions != 1 || st.bookHits != 1 || st.nodes != 120 {
		t.Fatalf("unexpected strategy stats %+v", st)
	}
}
