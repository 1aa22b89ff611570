// Package search picks AI moves with alpha-beta minimax over copies of the
// board. The AI (game.AiPiece) is always the maximizing side.
package search

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/eval"
	"github.com/ardaeerol/smart-connect4/internal/game"
)

// NoColumn marks a result without a move.
const NoColumn = -1

type Result struct {
	Column int   `json:"column"`
	Score  Score `json:"score"`
}

func (r Result) HasMove() bool {
	return r.Column != NoColumn
}

type Stats struct {
	Nodes   int64         `json:"nodes"`
	Cutoffs int64         `json:"cutoffs"`
	Depth   int           `json:"depth"`
	Elapsed time.Duration `json:"elapsed"`
}

// Progress is reported after every completed iterative-deepening pass.
type Progress struct {
	Depth  int
	Result Result
	Stats  Stats
}

// Searcher carries counters and hooks across one decision. It is not safe
// for concurrent use.
type Searcher struct {
	Logger  zerolog.Logger
	OnDepth func(Progress)

	stats Stats
}

func New(logger zerolog.Logger) *Searcher {
	return &Searcher{Logger: logger}
}

func (s *Searcher) Stats() Stats {
	return s.stats
}

// Minimax searches depth plies. When no child improves on the bounds the
// first valid column is returned.
func (s *Searcher) Minimax(ctx context.Context, b game.Board, depth int, alpha, beta Score, maximizing bool) (Result, error) {
	start := time.Now()
	defer func() { s.stats.Elapsed += time.Since(start) }()
	r, err := s.alphaBeta(ctx, &b, depth, alpha, beta, maximizing, true)
	if err == nil {
		s.stats.Depth = depth
	}
	return r, err
}

// DepthLimited is the iterative-deepening primitive. Unlike Minimax its
// column stays NoColumn unless some child was actually chosen.
func (s *Searcher) DepthLimited(ctx context.Context, b game.Board, limit int) (Result, error) {
	start := time.Now()
	defer func() { s.stats.Elapsed += time.Since(start) }()
	r, err := s.alphaBeta(ctx, &b, limit, NegInf, PosInf, true, false)
	if err == nil {
		s.stats.Depth = limit
	}
	return r, err
}

// IterativeDeepening runs DepthLimited for limits 1..maxDepth and keeps the
// deepest result carrying a column. If ctx expires after at least one
// completed pass the best result so far is returned without error.
func (s *Searcher) IterativeDeepening(ctx context.Context, b game.Board, maxDepth int) (Result, error) {
	best := Result{Column: NoColumn, Score: Draw()}
	completed := 0
	for depth := 1; depth <= maxDepth; depth++ {
		s.Logger.Debug().Int("plies", depth).Msg("deepening-iteratively")
		r, err := s.DepthLimited(ctx, b, depth)
		if err != nil {
			if completed == 0 {
				return Result{Column: NoColumn, Score: Draw()}, err
			}
			s.Logger.Info().Err(err).Int("plies", depth).Int("completed", completed).Msg("deepening-interrupted")
			return best, nil
		}
		completed = depth
		if r.HasMove() || !best.HasMove() {
			best = r
		}
		s.Logger.Debug().Int("plies", depth).Int("column", r.Column).Stringer("score", r.Score).
			Int64("nodes", s.stats.Nodes).Msg("best-val")
		if s.OnDepth != nil {
			s.OnDepth(Progress{Depth: depth, Result: r, Stats: s.stats})
		}
	}
	return best, nil
}

func (s *Searcher) alphaBeta(ctx context.Context, b *game.Board, depth int, alpha, beta Score, maximizing, firstValid bool) (Result, error) {
	s.stats.Nodes++
	if score, ok := leaf(b, depth); ok {
		return Result{Column: NoColumn, Score: score}, nil
	}

	valid := b.ValidLocations()
	piece, best := game.AiPiece, NegInf
	if !maximizing {
		piece, best = game.PlayerPiece, PosInf
	}
	column := NoColumn
	if firstValid {
		column = valid[0]
	}

	for _, col := range valid {
		if err := ctx.Err(); err != nil {
			return Result{Column: column, Score: best}, err
		}
		row := b.NextOpenRow(col)
		if row == game.NoRow {
			continue
		}
		child := *b
		child.DropPiece(row, col, piece)
		r, err := s.alphaBeta(ctx, &child, depth-1, alpha, beta, !maximizing, firstValid)
		if err != nil {
			return Result{Column: column, Score: best}, err
		}
		if maximizing {
			if r.Score.Greater(best) {
				best, column = r.Score, col
			}
			alpha = maxScore(alpha, best)
		} else {
			if r.Score.Less(best) {
				best, column = r.Score, col
			}
			beta = minScore(beta, best)
		}
		if !alpha.Less(beta) {
			s.stats.Cutoffs++
			break
		}
	}
	return Result{Column: column, Score: best}, nil
}

// leaf scores terminal positions and positions at the depth limit.
func leaf(b *game.Board, depth int) (Score, bool) {
	switch {
	case b.WinningMove(game.AiPiece):
		return Win(), true
	case b.WinningMove(game.PlayerPiece):
		return Loss(), true
	case b.Full():
		return Draw(), true
	case depth <= 0:
		return Heuristic(eval.ScorePosition(b, game.AiPiece)), true
	}
	return Score{}, false
}

// Minimax runs an alpha-beta search without deadline or logging.
func Minimax(b game.Board, depth int, alpha, beta Score, maximizing bool) Result {
	r, _ := New(zerolog.Nop()).Minimax(context.Background(), b, depth, alpha, beta, maximizing)
	return r
}

// IterativeDeepening returns the best column found up to maxDepth, or
// NoColumn when the position is already decided.
func IterativeDeepening(b game.Board, maxDepth int) int {
	r, _ := New(zerolog.Nop()).IterativeDeepening(context.Background(), b, maxDepth)
	return r.Column
}
