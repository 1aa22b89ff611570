package search

import (
	"math"

	"github.com/ardaeerol/smart-connect4/internal/eval"
	"github.com/ardaeerol/smart-connect4/internal/game"
)

// PickBestMove is a one-ply lookahead: it drops piece in every valid
// column and keeps the first column with the highest ScorePosition.
func PickBestMove(b game.Board, piece game.Piece) int {
	bestScore := math.MinInt
	bestCol := NoColumn
	for _, col := range b.ValidLocations() {
		row := b.NextOpenRow(col)
		tmp := b
		tmp.DropPiece(row, col, piece)
		if score := eval.ScorePosition(&tmp, piece); score > bestScore {
			bestScore = score
			bestCol = col
		}
	}
	return bestCol
}
