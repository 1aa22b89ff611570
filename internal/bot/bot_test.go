package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/game"
	"github.com/ardaeerol/smart-connect4/internal/search"
	"github.com/ardaeerol/smart-connect4/internal/storage"
)

func winningBoard(t *testing.T) game.Board {
	t.Helper()
	b, err := game.ParseBoard("XXX....", "OOO....")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return b
}

type failingBook struct{ saves int }

func (f *failingBook) LookupMove(context.Context, string, int, string) (storage.BookEntry, bool, error) {
	return storage.BookEntry{}, false, errors.New("db down")
}

func (f *failingBook) SaveMove(context.Context, storage.BookEntry) error {
	f.saves++
	return errors.New("db down")
}

func (f *failingBook) Size(context.Context) (int, error) {
	return 0, errors.New("db down")
}

func TestNewDefaults(t *testing.T) {
	b := New(Config{})
	if b.Depth() != 5 || b.Strategy() != StrategyMinimax {
		t.Fatalf("unexpected defaults depth=%d strategy=%s", b.Depth(), b.Strategy())
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"minimax", "iterative", "greedy"} {
		if _, err := ParseStrategy(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	if _, err := ParseStrategy("mcts"); !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestEveryStrategyTakesTheWin(t *testing.T) {
	board := winningBoard(t)
	for _, st := range []Strategy{StrategyMinimax, StrategyIterative, StrategyGreedy} {
		b := New(Config{Depth: 4, Strategy: st, Logger: zerolog.Nop()})
		dec, err := b.ChooseMove(context.Background(), board)
		if err != nil {
			t.Fatalf("%s: %v", st, err)
		}
		if dec.Column != 3 || dec.Fallback || dec.Strategy != st {
			t.Fatalf("%s: unexpected decision %+v", st, dec)
		}
		if st != StrategyGreedy && dec.Score != search.Win() {
			t.Fatalf("%s: expected win score, got %s", st, dec.Score)
		}
	}
}

func TestMoveBookRoundTrip(t *testing.T) {
	book := storage.NewMemoryBook()
	b := New(Config{Depth: 3, Book: book})
	board := winningBoard(t)

	first, err := b.ChooseMove(context.Background(), board)
	if err != nil || first.FromBook {
		t.Fatalf("first decision: %+v %v", first, err)
	}
	if n, _ := book.Size(context.Background()); n != 1 {
		t.Fatalf("expected one book entry, got %d", n)
	}
	second, err := b.ChooseMove(context.Background(), board)
	if err != nil || !second.FromBook {
		t.Fatalf("second decision should come from the book: %+v %v", second, err)
	}
	if second.Column != first.Column || second.Score != first.Score {
		t.Fatalf("book returned %d (%s), search gave %d (%s)", second.Column, second.Score, first.Column, first.Score)
	}

	// a different depth is a different book key
	if dec, _ := b.Decide(context.Background(), board, Request{Depth: 2}); dec.FromBook {
		t.Fatalf("depth 2 must not reuse the depth 3 entry")
	}
}

func TestGreedyIsNotBooked(t *testing.T) {
	book := storage.NewMemoryBook()
	b := New(Config{Strategy: StrategyGreedy, Book: book})
	if _, err := b.ChooseMove(context.Background(), game.CreateBoard()); err != nil {
		t.Fatalf("greedy: %v", err)
	}
	if n, _ := book.Size(context.Background()); n != 0 {
		t.Fatalf("greedy decisions must not be stored, got %d", n)
	}
}

func TestStaleBookEntryIgnored(t *testing.T) {
	book := storage.NewMemoryBook()
	board := game.CreateBoard()
	for r := 0; r < game.Rows; r++ {
		board.DropPiece(r, 0, game.PlayerPiece+game.Piece(r%2))
	}
	book.SaveMove(context.Background(), storage.BookEntry{
		Key: board.Key(), Depth: 2, Strategy: string(StrategyMinimax), Column: 0, Outcome: "win",
	})
	dec, err := New(Config{Depth: 2, Book: book}).ChooseMove(context.Background(), board)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if dec.FromBook || dec.Column == 0 {
		t.Fatalf("entry pointing at a full column must be ignored: %+v", dec)
	}
}

func TestBookErrorsDoNotBlockSearch(t *testing.T) {
	book := &failingBook{}
	dec, err := New(Config{Depth: 2, Book: book}).ChooseMove(context.Background(), winningBoard(t))
	if err != nil || dec.Column != 3 {
		t.Fatalf("expected column 3 despite book errors, got %+v %v", dec, err)
	}
	if book.saves != 1 {
		t.Fatalf("expected one save attempt, got %d", book.saves)
	}
}

func TestInterruptedDeepeningIsNotBooked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	book := storage.NewMemoryBook()
	b := New(Config{Depth: 5, Strategy: StrategyIterative, Book: book})
	req := Request{Progress: func(p search.Progress) {
		if p.Depth == 1 {
			cancel()
		}
	}}

	dec, err := b.Decide(ctx, game.CreateBoard(), req)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if dec.Fallback || dec.Column != 3 {
		t.Fatalf("expected the depth 1 answer, got %+v", dec)
	}
	if dec.Depth != 1 {
		t.Fatalf("decision should report the searched depth 1, got %d", dec.Depth)
	}
	if n, ok := b.BookSize(context.Background()); !ok || n != 0 {
		t.Fatalf("interrupted search must not be booked, size %d ok %v", n, ok)
	}

	full, err := b.ChooseMove(context.Background(), game.CreateBoard())
	if err != nil || full.FromBook || full.Depth != 5 {
		t.Fatalf("next decision should search to depth 5: %+v %v", full, err)
	}
	if n, _ := b.BookSize(context.Background()); n != 1 {
		t.Fatalf("completed search should be booked, size %d", n)
	}
}

func TestBookSizeWithoutBook(t *testing.T) {
	if _, ok := New(Config{}).BookSize(context.Background()); ok {
		t.Fatalf("bot without a book has no size")
	}
	if _, ok := New(Config{Book: &failingBook{}}).BookSize(context.Background()); ok {
		t.Fatalf("unreadable book must report ok=false")
	}
}

func TestNoMovesOnDecidedBoard(t *testing.T) {
	board, err := game.ParseBoard("O......", "O......", "O......", "O...XXX")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := New(Config{}).ChooseMove(context.Background(), board); !errors.Is(err, ErrNoMoves) {
		t.Fatalf("expected ErrNoMoves, got %v", err)
	}
}

func TestUnknownStrategyRequest(t *testing.T) {
	_, err := New(Config{}).Decide(context.Background(), game.CreateBoard(), Request{Strategy: "mcts"})
	if !errors.Is(err, ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestCancelledSearchFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dec, err := New(Config{Depth: 6}).ChooseMove(ctx, game.CreateBoard())
	if err != nil {
		t.Fatalf("fallback should not surface an error: %v", err)
	}
	if !dec.Fallback || dec.Column != 3 {
		t.Fatalf("expected greedy fallback to center, got %+v", dec)
	}
}

func TestProgressReportsEachDepth(t *testing.T) {
	var depths []int
	req := Request{
		Depth:    3,
		Strategy: StrategyIterative,
		Progress: func(p search.Progress) { depths = append(depths, p.Depth) },
	}
	if _, err := New(Config{}).Decide(context.Background(), game.CreateBoard(), req); err != nil {
		t.Fatalf("decide: %v", err)
	}
	if len(depths) != 3 || depths[0] != 1 || depths[2] != 3 {
		t.Fatalf("unexpected progress depths %v", depths)
	}
}
