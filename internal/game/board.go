package game

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Columns      = 7
	Rows         = 6
	WindowLength = 4
)

// NoRow is returned by NextOpenRow when a column is full.
const NoRow = -1

type Piece int8

const (
	Empty Piece = iota
	PlayerPiece
	AiPiece
)

var (
	ErrColumnFull   = errors.New("column is full")
	ErrInvalidTurn  = errors.New("not your turn")
	ErrInvalidCol   = errors.New("invalid column")
	ErrGameFinished = errors.New("game already finished")
	ErrInvalidBoard = errors.New("invalid board")
)

// Opponent returns the other side. Empty has no opponent.
func (p Piece) Opponent() Piece {
	switch p {
	case PlayerPiece:
		return AiPiece
	case AiPiece:
		return PlayerPiece
	}
	return Empty
}

func (p Piece) String() string {
	switch p {
	case Empty:
		return "empty"
	case PlayerPiece:
		return "player"
	case AiPiece:
		return "ai"
	}
	return fmt.Sprintf("piece(%d)", int8(p))
}

// Board is indexed [row][col] with row 0 at the bottom. It is a value
// type: assigning a Board copies every cell.
type Board [Rows][Columns]Piece

type MoveResult struct {
	Board   Board
	Row     int
	Column  int
	Piece   Piece
	Winner  Piece
	IsDraw  bool
	Winning [][2]int
}

func CreateBoard() Board {
	return Board{}
}

func (b *Board) IsValidLocation(col int) bool {
	if col < 0 || col >= Columns {
		return false
	}
	return b[Rows-1][col] == Empty
}

func (b *Board) NextOpenRow(col int) int {
	if col < 0 || col >= Columns {
		return NoRow
	}
	for row := 0; row < Rows; row++ {
		if b[row][col] == Empty {
			return row
		}
	}
	return NoRow
}

// DropPiece writes piece into the cell. The caller must pass the row
// reported by NextOpenRow; out-of-range cells are ignored.
func (b *Board) DropPiece(row, col int, piece Piece) {
	if row < 0 || row >= Rows || col < 0 || col >= Columns {
		return
	}
	b[row][col] = piece
}

func (b *Board) WinningMove(piece Piece) bool {
	if piece == Empty {
		return false
	}
	// horizontal
	for c := 0; c <= Columns-WindowLength; c++ {
		for r := 0; r < Rows; r++ {
			if b[r][c] == piece && b[r][c+1] == piece && b[r][c+2] == piece && b[r][c+3] == piece {
				return true
			}
		}
	}
	// vertical
	for c := 0; c < Columns; c++ {
		for r := 0; r <= Rows-WindowLength; r++ {
			if b[r][c] == piece && b[r+1][c] == piece && b[r+2][c] == piece && b[r+3][c] == piece {
				return true
			}
		}
	}
	// positive slope
	for c := 0; c <= Columns-WindowLength; c++ {
		for r := 0; r <= Rows-WindowLength; r++ {
			if b[r][c] == piece && b[r+1][c+1] == piece && b[r+2][c+2] == piece && b[r+3][c+3] == piece {
				return true
			}
		}
	}
	// negative slope
	for c := 0; c <= Columns-WindowLength; c++ {
		for r := WindowLength - 1; r < Rows; r++ {
			if b[r][c] == piece && b[r-1][c+1] == piece && b[r-2][c+2] == piece && b[r-3][c+3] == piece {
				return true
			}
		}
	}
	return false
}

// ValidLocations lists playable columns in ascending order.
func (b *Board) ValidLocations() []int {
	valid := make([]int, 0, Columns)
	for col := 0; col < Columns; col++ {
		if b.IsValidLocation(col) {
			valid = append(valid, col)
		}
	}
	return valid
}

func (b *Board) Full() bool {
	for col := 0; col < Columns; col++ {
		if b[Rows-1][col] == Empty {
			return false
		}
	}
	return true
}

func (b *Board) IsTerminal() bool {
	return b.WinningMove(PlayerPiece) || b.WinningMove(AiPiece) || b.Full()
}

// Play validates col, drops piece into the lowest open row and reports
// the outcome. A rejected move leaves the board untouched.
func (b *Board) Play(col int, piece Piece) (MoveResult, error) {
	if col < 0 || col >= Columns {
		return MoveResult{}, ErrInvalidCol
	}
	row := b.NextOpenRow(col)
	if row == NoRow {
		return MoveResult{}, ErrColumnFull
	}
	b.DropPiece(row, col, piece)
	return evaluate(*b, row, col, piece), nil
}

func evaluate(board Board, row, col int, piece Piece) MoveResult {
	res := MoveResult{Board: board, Row: row, Column: col, Piece: piece}
	directions := [][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}
	for _, d := range directions {
		coords := winningCoords(board, row, col, piece, d[0], d[1])
		if len(coords) >= WindowLength {
			res.Winner = piece
			res.Winning = coords
			return res
		}
	}
	res.IsDraw = board.Full()
	return res
}

func winningCoords(board Board, row, col int, piece Piece, dr, dc int) [][2]int {
	coords := [][2]int{{row, col}}
	walk := func(r, c, dr, dc int) {
		for r >= 0 && r < Rows && c >= 0 && c < Columns {
			if board[r][c] != piece {
				return
			}
			coords = append(coords, [2]int{r, c})
			r += dr
			c += dc
		}
	}
	walk(row+dr, col+dc, dr, dc)
	walk(row-dr, col-dc, -dr, -dc)
	if len(coords) >= WindowLength {
		return coords
	}
	return nil
}

// Validate checks that every cell holds a known piece and that no piece
// floats above an empty cell.
func (b *Board) Validate() error {
	for c := 0; c < Columns; c++ {
		seenEmpty := false
		for r := 0; r < Rows; r++ {
			switch b[r][c] {
			case Empty:
				seenEmpty = true
			case PlayerPiece, AiPiece:
				if seenEmpty {
					return fmt.Errorf("%w: floating piece at row %d column %d", ErrInvalidBoard, r, c)
				}
			default:
				return fmt.Errorf("%w: unknown piece %d at row %d column %d", ErrInvalidBoard, b[r][c], r, c)
			}
		}
	}
	return nil
}

func (b *Board) Count(piece Piece) int {
	n := 0
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			if b[r][c] == piece {
				n++
			}
		}
	}
	return n
}

// Key encodes the board bottom row first, one digit per cell.
func (b *Board) Key() string {
	var sb strings.Builder
	sb.Grow(Rows * Columns)
	for r := 0; r < Rows; r++ {
		for c := 0; c < Columns; c++ {
			sb.WriteByte('0' + byte(b[r][c]))
		}
	}
	return sb.String()
}

// String renders the top row first.
func (b Board) String() string {
	var sb strings.Builder
	for r := Rows - 1; r >= 0; r-- {
		for c := 0; c < Columns; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			switch b[r][c] {
			case PlayerPiece:
				sb.WriteByte('X')
			case AiPiece:
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseBoard builds a board from rows drawn top row first using '.',
// 'X' (PlayerPiece) and 'O' (AiPiece). Missing rows are empty.
func ParseBoard(rows ...string) (Board, error) {
	var b Board
	if len(rows) > Rows {
		return b, fmt.Errorf("%w: %d rows", ErrInvalidBoard, len(rows))
	}
	offset := Rows - len(rows)
	for i, line := range rows {
		cells := strings.ReplaceAll(line, " ", "")
		if len(cells) != Columns {
			return b, fmt.Errorf("%w: row %q has %d cells", ErrInvalidBoard, line, len(cells))
		}
		r := Rows - 1 - (offset + i)
		for c, ch := range cells {
			switch ch {
			case '.':
			case 'X':
				b[r][c] = PlayerPiece
			case 'O':
				b[r][c] = AiPiece
			default:
				return b, fmt.Errorf("%w: unexpected %q", ErrInvalidBoard, ch)
			}
		}
	}
	return b, b.Validate()
}
