package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ardaeerol/smart-connect4/internal/bot"
	"github.com/ardaeerol/smart-connect4/internal/game"
)

type options struct {
	mode  game.Mode
	first game.Piece
	ai    *bot.Bot
}

func main() {
	var (
		mode     = flag.String("mode", "ai", "game mode: ai or pvp")
		depth    = flag.Int("depth", 5, "search depth for AI")
		strategy = flag.String("strategy", "minimax", "AI strategy: minimax, iterative or greedy")
		first    = flag.String("first", "random", "who moves first: player, ai or random")
		verbose  = flag.Bool("v", false, "log search progress to stderr")
	)
	flag.Parse()

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}

	st, err := bot.ParseStrategy(*strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	opts := options{
		mode: game.Mode(*mode),
		ai:   bot.New(bot.Config{Depth: *depth, Strategy: st, Logger: logger}),
	}
	if !opts.mode.Valid() {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
	switch *first {
	case "player":
		opts.first = game.PlayerPiece
	case "ai":
		opts.first = game.AiPiece
	default:
		opts.first = game.PlayerPiece + game.Piece(rand.Intn(2))
	}

	if err := run(context.Background(), os.Stdin, os.Stdout, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func label(p game.Piece, mode game.Mode) string {
	if p == game.PlayerPiece {
		return "Player 1"
	}
	if mode == game.ModeVsAI {
		return "AI"
	}
	return "Player 2"
}

// run plays one game. Columns are read 1-based from in; EOF ends the game
// early without error.
func run(ctx context.Context, in io.Reader, out io.Writer, opts options) error {
	board := game.CreateBoard()
	turn := opts.first
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, board)

	for {
		var res game.MoveResult
		if opts.mode == game.ModeVsAI && turn == game.AiPiece {
			dec, err := opts.ai.ChooseMove(ctx, board)
			if err != nil {
				return err
			}
			if res, err = board.Play(dec.Column, game.AiPiece); err != nil {
				return fmt.Errorf("ai move %d: %w", dec.Column, err)
			}
			fmt.Fprintf(out, "AI plays column %d (score %s)\n", dec.Column+1, dec.Score)
		} else {
			fmt.Fprintf(out, "%s, choose a column (1-%d): ", label(turn, opts.mode), game.Columns)
			if !scanner.Scan() {
				return scanner.Err()
			}
			col, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
			if err != nil {
				fmt.Fprintf(out, "enter a number between 1 and %d\n", game.Columns)
				continue
			}
			res, err = board.Play(col-1, turn)
			switch {
			case errors.Is(err, game.ErrColumnFull):
				fmt.Fprintln(out, "column is full, pick another")
				continue
			case errors.Is(err, game.ErrInvalidCol):
				fmt.Fprintf(out, "enter a number between 1 and %d\n", game.Columns)
				continue
			case err != nil:
				return err
			}
		}
		fmt.Fprint(out, board)

		if res.Winner != game.Empty {
			fmt.Fprintf(out, "%s wins!!\n", label(res.Winner, opts.mode))
			return nil
		}
		if res.IsDraw {
			fmt.Fprintln(out, "Draw!")
			return nil
		}
		turn = turn.Opponent()
	}
}
