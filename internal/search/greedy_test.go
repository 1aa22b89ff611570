package search

import (
	"testing"

	"github.com/ardaeerol/smart-connect4/internal/game"
)

func TestPickBestMove(t *testing.T) {
	if col := PickBestMove(game.CreateBoard(), game.AiPiece); col != 3 {
		t.Fatalf("empty board: expected center, got %d", col)
	}
	b := parse(t, "XXX....", "OOO....")
	if col := PickBestMove(b, game.AiPiece); col != 3 {
		t.Fatalf("expected completing column 3, got %d", col)
	}
	full := parse(t,
		"XXOOXOX",
		"XOXOXXX",
		"XXOXOOO",
		"OOOXOXO",
		"XOOXXXO",
		"OXXOOOX",
	)
	if col := PickBestMove(full, game.AiPiece); col != NoColumn {
		t.Fatalf("full board: expected NoColumn, got %d", col)
	}
}
