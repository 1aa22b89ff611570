// Package eval scores Connect 4 positions by counting pieces in every
// 4-cell window of the board.
package eval

import "github.com/ardaeerol/smart-connect4/internal/game"

// Weights. A window scores at most one of the "own" patterns and may also
// take the opponent penalty.
const (
	FourWeight      = 100
	ThreeWeight     = 5
	TwoWeight       = 2
	OppThreePenalty = 4
	CenterWeight    = 3
	CenterColumn    = game.Columns / 2
)

type Window [game.WindowLength]game.Piece

func (w Window) count(p game.Piece) int {
	n := 0
	for _, cell := range w {
		if cell == p {
			n++
		}
	}
	return n
}

// EvaluateWindow scores a single window from piece's point of view.
func EvaluateWindow(w Window, piece game.Piece) int {
	score := 0
	own := w.count(piece)
	empty := w.count(game.Empty)
	switch {
	case own == 4:
		score += FourWeight
	case own == 3 && empty == 1:
		score += ThreeWeight
	case own == 2 && empty == 2:
		score += TwoWeight
	}
	if w.count(piece.Opponent()) == 3 && empty == 1 {
		score -= OppThreePenalty
	}
	return score
}

// ScorePosition sums the center-column bias and every window score.
func ScorePosition(b *game.Board, piece game.Piece) int {
	score := 0
	for r := 0; r < game.Rows; r++ {
		if b[r][CenterColumn] == piece {
			score += CenterWeight
		}
	}
	ForEachWindow(b, func(w Window) {
		score += EvaluateWindow(w, piece)
	})
	return score
}

// ForEachWindow visits horizontal, vertical, positive-diagonal and
// negative-diagonal windows in that order.
func ForEachWindow(b *game.Board, fn func(Window)) {
	const n = game.WindowLength
	var w Window
	for r := 0; r < game.Rows; r++ {
		for c := 0; c <= game.Columns-n; c++ {
			for i := 0; i < n; i++ {
				w[i] = b[r][c+i]
			}
			fn(w)
		}
	}
	for c := 0; c < game.Columns; c++ {
		for r := 0; r <= game.Rows-n; r++ {
			for i := 0; i < n; i++ {
				w[i] = b[r+i][c]
			}
			fn(w)
		}
	}
	for r := 0; r <= game.Rows-n; r++ {
		for c := 0; c <= game.Columns-n; c++ {
			for i := 0; i < n; i++ {
				w[i] = b[r+i][c+i]
			}
			fn(w)
		}
	}
	for r := 0; r <= game.Rows-n; r++ {
		for c := 0; c <= game.Columns-n; c++ {
			for i := 0; i < n; i++ {
				w[i] = b[r+n-1-i][c+i]
			}
			fn(w)
		}
	}
}

// windowCount is the number of windows ForEachWindow visits.
func windowCount() int {
	n := game.WindowLength
	h := game.Rows * (game.Columns - n + 1)
	v := game.Columns * (game.Rows - n + 1)
	d := (game.Rows - n + 1) * (game.Columns - n + 1)
	return h + v + 2*d
}
