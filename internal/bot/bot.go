package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/game"
	"github.com/ardaeerol/smart-connect4/internal/search"
	"github.com/ardaeerol/smart-connect4/internal/storage"
)

type Strategy string

const (
	StrategyMinimax   Strategy = "minimax"
	StrategyIterative Strategy = "iterative"
	StrategyGreedy    Strategy = "greedy"
)

var (
	ErrNoMoves         = errors.New("no legal move")
	ErrUnknownStrategy = errors.New("unknown strategy")
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyMinimax, StrategyIterative, StrategyGreedy:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
}

type Config struct {
	Depth    int
	Strategy Strategy

	// Timeout bounds one decision; zero means no deadline.
	Timeout time.Duration
	Book    storage.MoveBook
	Logger  zerolog.Logger
}

// Bot plays game.AiPiece.
type Bot struct {
	depth    int
	strategy Strategy
	timeout  time.Duration
	book     storage.MoveBook
	log      zerolog.Logger
}

func New(cfg Config) *Bot {
	if cfg.Depth <= 0 {
		cfg.Depth = 5
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyMinimax
	}
	return &Bot{
		depth:    cfg.Depth,
		strategy: cfg.Strategy,
		timeout:  cfg.Timeout,
		book:     cfg.Book,
		log:      cfg.Logger,
	}
}

func (b *Bot) Depth() int { return b.depth }
func (b *Bot) Strategy() Strategy { return b.strategy }

// BookSize reports the number of cached decisions. ok is false without a
// book or when the book cannot be read.
func (b *Bot) BookSize(ctx context.Context) (n int, ok bool) {
	if b.book == nil {
		return 0, false
	}
	n, err := b.book.Size(ctx)
	if err != nil {
		b.log.Warn().Err(err).Msg("move-book-size")
		return 0, false
	}
	return n, true
}

type Decision struct {
	Column   int          `json:"column"`
	Score    search.Score `json:"score"`
	Strategy Strategy     `json:"strategy"`
	Depth    int          `json:"depth"`
	Stats    search.Stats `json:"stats"`
	FromBook bool         `json:"fromBook"`
	Fallback bool         `json:"fallback"`
}

// Request overrides the bot defaults for a single decision.
type Request struct {
	Depth    int
	Strategy Strategy
	Progress func(search.Progress)
}

func (b *Bot) ChooseMove(ctx context.Context, board game.Board) (Decision, error) {
	return b.Decide(ctx, board, Request{})
}

// Decide picks a column for game.AiPiece. A search that yields no column,
// or fails before producing one, falls back to search.PickBestMove.
func (b *Bot) Decide(ctx context.Context, board game.Board, req Request) (Decision, error) {
	if board.IsTerminal() {
		return Decision{Column: search.NoColumn}, ErrNoMoves
	}
	depth, strategy := req.Depth, req.Strategy
	if depth <= 0 {
		depth = b.depth
	}
	if strategy == "" {
		strategy = b.strategy
	}
	dec := Decision{Column: search.NoColumn, Strategy: strategy, Depth: depth}
	key := board.Key()

	if b.book != nil {
		entry, ok, err := b.book.LookupMove(ctx, key, depth, string(strategy))
		if err != nil {
			b.log.Warn().Err(err).Msg("move-book-lookup")
		} else if ok && board.IsValidLocation(entry.Column) {
			outcome, perr := search.ParseOutcome(entry.Outcome)
			if perr == nil {
				dec.Column = entry.Column
				dec.Score = search.Score{Outcome: outcome, Value: entry.Value}
				dec.FromBook = true
				return dec, nil
			}
		}
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	s := search.New(b.log)
	s.OnDepth = req.Progress
	var (
		res search.Result
		err error
	)
	switch strategy {
	case StrategyMinimax:
		res, err = s.Minimax(ctx, board, depth, search.NegInf, search.PosInf, true)
	case StrategyIterative:
		res, err = s.IterativeDeepening(ctx, board, depth)
	case StrategyGreedy:
		res = search.Result{Column: search.PickBestMove(board, game.AiPiece), Score: search.Heuristic(0)}
	default:
		return dec, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	dec.Stats = s.Stats()

	if err != nil || !res.HasMove() || !board.IsValidLocation(res.Column) {
		b.log.Warn().Err(err).Str("strategy", string(strategy)).Int("depth", depth).Msg("search-fallback")
		dec.Column = search.PickBestMove(board, game.AiPiece)
		dec.Score = search.Heuristic(0)
		dec.Fallback = true
		return dec, nil
	}
	dec.Column, dec.Score = res.Column, res.Score
	// an interrupted deepening run answers for a shallower depth
	complete := dec.Stats.Depth >= depth
	if strategy == StrategyIterative {
		dec.Depth = dec.Stats.Depth
	}

	if b.book != nil && strategy != StrategyGreedy && complete {
		entry := storage.BookEntry{
			Key:      key,
			Depth:    depth,
			Strategy: string(strategy),
			Column:   dec.Column,
			Outcome:  dec.Score.Outcome.String(),
			Value:    dec.Score.Value,
		}
		if err := b.book.SaveMove(ctx, entry); err != nil {
			b.log.Warn().Err(err).Msg("move-book-save")
		}
	}
	b.log.Debug().Str("strategy", string(strategy)).Int("depth", depth).Int("column", dec.Column).
		Stringer("score", dec.Score).Int64("nodes", dec.Stats.Nodes).Dur("elapsed", dec.Stats.Elapsed).Msg("ai-move")
	return dec, nil
}
