package model

import (
	"encoding/json"
	"fmt"
)

type PieceType string

const (
	NoPiece PieceType = ""
	King    PieceType = "king"
	Queen   PieceType = "queen"
	Rook    PieceType = "rook"
	Bishop  PieceType = "bishop"
	Knight  PieceType = "knight"
	Pawn    PieceType = "pawn"
)

func (p PieceType) notation() string {
	switch p {
	case King:
		return "K"
	case Queen:
		return "Q"
	case Rook:
		return "R"
	case Bishop:
		return "B"
	case Knight:
		return "N"
	}
	return ""
}

// Side is one of the two players.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

func (s Side) Valid() bool {
	return s == White || s == Black
}

// pawnDir is the row step of a pawn advance. White starts on row 6 and moves
// toward row 0.
func (s Side) pawnDir() int {
	if s == White {
		return -1
	}
	return 1
}

func (s Side) pawnStartRow() int {
	if s == White {
		return 6
	}
	return 1
}

func (s Side) promotionRow() int {
	if s == White {
		return 0
	}
	return 7
}

// Piece is a value; the zero Piece is an empty square.
type Piece struct {
	Type PieceType `json:"type"`
	Side Side      `json:"color"`
}

func (p Piece) Empty() bool {
	return p.Type == NoPiece
}

func (p Piece) String() string {
	if p.Empty() {
		return "empty"
	}
	return fmt.Sprintf("%s %s", p.Side, p.Type)
}

type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < 8 && p.Col >= 0 && p.Col < 8
}

func (p Position) add(d direction) Position {
	return Position{Row: p.Row + d.row, Col: p.Col + d.col}
}

// String renders the square in algebraic form, e.g. (6,4) is "e2".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return fmt.Sprintf("%c%d", 'a'+p.Col, 8-p.Row)
}

func (p Position) file() string {
	return fmt.Sprintf("%c", 'a'+p.Col)
}

// ParseSquare decodes algebraic squares: file a..h is column 0..7 and
// rank 1..8 is row 7..0.
func ParseSquare(s string) (Position, error) {
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: square %q", ErrInvalidNotation, s)
	}
	file, rank := s[0], s[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Position{}, fmt.Errorf("%w: square %q", ErrInvalidNotation, s)
	}
	return Position{Row: 7 - int(rank-'1'), Col: int(file - 'a')}, nil
}

// Board is indexed [row][col].
type Board [8][8]Piece

func NewEmptyBoard() Board {
	return Board{}
}

func NewStartingBoard() Board {
	var b Board
	backRank := [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	for col, t := range backRank {
		b[0][col] = Piece{Type: t, Side: Black}
		b[7][col] = Piece{Type: t, Side: White}
		b[1][col] = Piece{Type: Pawn, Side: Black}
		b[6][col] = Piece{Type: Pawn, Side: White}
	}
	return b
}

// At returns the piece on pos. Off-board squares read as empty.
func (b *Board) At(pos Position) Piece {
	if !pos.Valid() {
		return Piece{}
	}
	return b[pos.Row][pos.Col]
}

func (b *Board) Set(pos Position, piece Piece) {
	if pos.Valid() {
		b[pos.Row][pos.Col] = piece
	}
}

func (b *Board) Clear(pos Position) {
	b.Set(pos, Piece{})
}

// KingPosition finds side's king.
func (b *Board) KingPosition(side Side) (Position, bool) {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if p := b[row][col]; p.Type == King && p.Side == side {
				return Position{Row: row, Col: col}, true
			}
		}
	}
	return Position{}, false
}

func (b *Board) count(t PieceType, side Side) int {
	n := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if p := b[row][col]; p.Type == t && p.Side == side {
				n++
			}
		}
	}
	return n
}

// validate enforces the structural invariants every playable position has.
func (b *Board) validate() error {
	for _, side := range []Side{White, Black} {
		if n := b.count(King, side); n != 1 {
			return fmt.Errorf("%w: %s has %d kings", ErrInvalidPosition, side, n)
		}
	}
	for col := 0; col < 8; col++ {
		if b[0][col].Type == Pawn || b[7][col].Type == Pawn {
			return fmt.Errorf("%w: pawn on back rank", ErrInvalidPosition)
		}
	}
	return nil
}

// MarshalJSON renders rows of nullable pieces for the frontend.
func (b Board) MarshalJSON() ([]byte, error) {
	rows := make([][]*Piece, 8)
	for row := 0; row < 8; row++ {
		rows[row] = make([]*Piece, 8)
		for col := 0; col < 8; col++ {
			if p := b[row][col]; !p.Empty() {
				rows[row][col] = &p
			}
		}
	}
	return json.Marshal(rows)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var rows [][]*Piece
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if len(rows) != 8 {
		return fmt.Errorf("%w: board has %d rows", ErrInvalidPosition, len(rows))
	}
	*b = Board{}
	for row := range rows {
		if len(rows[row]) != 8 {
			return fmt.Errorf("%w: row %d has %d squares", ErrInvalidPosition, row, len(rows[row]))
		}
		for col, p := range rows[row] {
			if p != nil {
				b[row][col] = *p
			}
		}
	}
	return nil
}
