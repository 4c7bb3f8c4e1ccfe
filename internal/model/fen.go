package model

import (
	"fmt"
	"strconv"
	"strings"
)

const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w - - 0 1"

var fenLetters = map[byte]PieceType{
	'p': Pawn,
	'n': Knight,
	'b': Bishop,
	'r': Rook,
	'q': Queen,
	'k': King,
}

// EncodeFEN renders the position in Forsyth-Edwards notation. Castling and en
// passant are not part of this rule set, so those fields are always "-".
func EncodeFEN(b Board, toMove Side, fullMove int) string {
	var sb strings.Builder
	for row := 0; row < 8; row++ {
		empty := 0
		for col := 0; col < 8; col++ {
			p := b[row][col]
			if p.Empty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			letter := strings.ToLower(p.Type.notation())
			if p.Type == Pawn {
				letter = "p"
			}
			if p.Side == White {
				letter = strings.ToUpper(letter)
			}
			sb.WriteString(letter)
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if row < 7 {
			sb.WriteByte('/')
		}
	}
	turn := "w"
	if toMove == Black {
		turn = "b"
	}
	if fullMove < 1 {
		fullMove = 1
	}
	return fmt.Sprintf("%s %s - - 0 %d", sb.String(), turn, fullMove)
}

// ParseFEN reads the placement, side to move and move number fields. Castling
// rights, en passant target and the halfmove clock are accepted and ignored.
func ParseFEN(fen string) (Board, Side, int, error) {
	fields := strings.Fields(fen)
	if len(fields) < 2 || len(fields) > 6 {
		return Board{}, "", 0, fmt.Errorf("%w: FEN needs 2 to 6 fields, got %d", ErrInvalidPosition, len(fields))
	}

	var b Board
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return Board{}, "", 0, fmt.Errorf("%w: FEN has %d ranks", ErrInvalidPosition, len(ranks))
	}
	for row, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}
			t, ok := fenLetters[lower(c)]
			if !ok {
				return Board{}, "", 0, fmt.Errorf("%w: FEN piece %q", ErrInvalidPosition, c)
			}
			if col > 7 {
				return Board{}, "", 0, fmt.Errorf("%w: FEN rank %d too long", ErrInvalidPosition, 8-row)
			}
			side := Black
			if c >= 'A' && c <= 'Z' {
				side = White
			}
			b[row][col] = Piece{Type: t, Side: side}
			col++
		}
		if col != 8 {
			return Board{}, "", 0, fmt.Errorf("%w: FEN rank %d has %d files", ErrInvalidPosition, 8-row, col)
		}
	}

	var toMove Side
	switch fields[1] {
	case "w":
		toMove = White
	case "b":
		toMove = Black
	default:
		return Board{}, "", 0, fmt.Errorf("%w: FEN side %q", ErrInvalidPosition, fields[1])
	}

	fullMove := 1
	if len(fields) == 6 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return Board{}, "", 0, fmt.Errorf("%w: FEN move number %q", ErrInvalidPosition, fields[5])
		}
		fullMove = n
	}
	return b, toMove, fullMove, nil
}

// NewGameFromFEN starts a game from a FEN position. An empty string means the
// standard starting position.
func NewGameFromFEN(fen string) (*Game, error) {
	if strings.TrimSpace(fen) == "" {
		return NewGame(), nil
	}
	b, toMove, fullMove, err := ParseFEN(fen)
	if err != nil {
		return nil, err
	}
	g, err := NewGameFromBoard(b, toMove)
	if err != nil {
		return nil, err
	}
	g.startMoveN = fullMove
	g.Reset()
	return g, nil
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
