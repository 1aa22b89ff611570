package game

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Mode string

const (
	ModeVsAI      Mode = "ai"
	ModeTwoPlayer Mode = "pvp"
)

const (
	StatusActive   = "active"
	StatusFinished = "finished"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrInvalidMode  = errors.New("invalid game mode")
)

func (m Mode) Valid() bool {
	return m == ModeVsAI || m == ModeTwoPlayer
}

// GameState is a snapshot of a session. Values handed out by the Manager
// never share memory with the live session.
type GameState struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	Board      Board     `json:"board"`
	Status     string    `json:"status"`
	Turn       Piece     `json:"turn"`
	Winner     Piece     `json:"winner"`
	IsDraw     bool      `json:"isDraw"`
	Winning    [][2]int  `json:"winning,omitempty"`
	Moves      []int     `json:"moves"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt,omitempty"`
	LastMoveAt time.Time `json:"lastMoveAt"`
}

// AITurn reports whether the AI is expected to move next.
func (g GameState) AITurn() bool {
	return g.Mode == ModeVsAI && g.Status == StatusActive && g.Turn == AiPiece
}

func (g *GameState) snapshot() GameState {
	out := *g
	out.Moves = append([]int(nil), g.Moves...)
	if g.Winning != nil {
		out.Winning = append([][2]int(nil), g.Winning...)
	}
	return out
}

type Move struct {
	GameID string
	Piece  Piece
	Column int
}

type Manager struct {
	mu        sync.RWMutex
	games     map[string]*GameState
	idleAfter time.Duration
	onFinish  func(GameState)
	log       zerolog.Logger
	now       func() time.Time
}

func NewManager(idleAfter time.Duration, onFinish func(GameState), logger zerolog.Logger) *Manager {
	return &Manager{
		games:     make(map[string]*GameState),
		idleAfter: idleAfter,
		onFinish:  onFinish,
		log:       logger,
		now:       time.Now,
	}
}

// Create starts a session. first may be Empty to pick the opening side at
// random.
func (m *Manager) Create(mode Mode, first Piece) (GameState, error) {
	if !mode.Valid() {
		return GameState{}, ErrInvalidMode
	}
	if first != PlayerPiece && first != AiPiece {
		first = PlayerPiece + Piece(rand.Intn(2))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	game := &GameState{
		ID:         uuid.NewString(),
		Mode:       mode,
		Board:      CreateBoard(),
		Status:     StatusActive,
		Turn:       first,
		Moves:      []int{},
		StartedAt:  now,
		LastMoveAt: now,
	}
	m.games[game.ID] = game
	m.log.Info().Str("game", game.ID).Str("mode", string(mode)).Stringer("first", first).Msg("game-created")
	return game.snapshot(), nil
}

func (m *Manager) HandleMove(move Move) (MoveResult, GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	game, ok := m.games[move.GameID]
	if !ok {
		return MoveResult{}, GameState{}, ErrGameNotFound
	}
	if game.Status == StatusFinished {
		return MoveResult{}, game.snapshot(), ErrGameFinished
	}
	if game.Turn != move.Piece {
		return MoveResult{}, game.snapshot(), ErrInvalidTurn
	}
	res, err := game.Board.Play(move.Column, move.Piece)
	if err != nil {
		return MoveResult{}, game.snapshot(), err
	}
	now := m.now()
	game.LastMoveAt = now
	game.Moves = append(game.Moves, move.Column)
	switch {
	case res.Winner != Empty:
		game.Status = StatusFinished
		game.Winner = res.Winner
		game.Winning = res.Winning
		game.EndedAt = now
	case res.IsDraw:
		game.Status = StatusFinished
		game.IsDraw = true
		game.EndedAt = now
	default:
		game.Turn = game.Turn.Opponent()
	}
	snap := game.snapshot()
	if snap.Status == StatusFinished {
		m.log.Info().Str("game", snap.ID).Stringer("winner", snap.Winner).Bool("draw", snap.IsDraw).
			Int("moves", len(snap.Moves)).Msg("game-finished")
		if m.onFinish != nil {
			go m.onFinish(snap)
		}
	}
	return res, snap, nil
}

func (m *Manager) Get(gameID string) (GameState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[gameID]
	if !ok {
		return GameState{}, false
	}
	return g.snapshot(), true
}

func (m *Manager) Remove(gameID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[gameID]; !ok {
		return false
	}
	delete(m.games, gameID)
	return true
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.games)
}

// SweepIdle drops sessions with no move inside the idle window and returns
// how many were removed.
func (m *Manager) SweepIdle() int {
	if m.idleAfter <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, g := range m.games {
		if now.Sub(g.LastMoveAt) > m.idleAfter {
			delete(m.games, id)
			removed++
			m.log.Debug().Str("game", id).Str("status", g.Status).Msg("game-expired")
		}
	}
	return removed
}
