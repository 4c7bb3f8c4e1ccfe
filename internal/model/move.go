package model

import (
	"fmt"
	"strings"
)

// Move is a proposed transition. Promotion only matters for a pawn reaching
// its last rank and defaults to a queen.
type Move struct {
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Promotion PieceType `json:"promotion,omitempty"`
}

// UCI renders coordinate notation, e.g. "e2e4" or "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoPiece {
		s += strings.ToLower(m.Promotion.notation())
	}
	return s
}

func (m Move) String() string {
	return m.UCI()
}

var promotionLetters = map[byte]PieceType{
	'q': Queen,
	'r': Rook,
	'b': Bishop,
	'n': Knight,
}

// ParseUCIMove decodes coordinate notation as produced by UCI engines.
func ParseUCIMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("%w: move %q", ErrInvalidNotation, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, err
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		promotion, ok := promotionLetters[s[4]]
		if !ok {
			return Move{}, fmt.Errorf("%w: promotion %q", ErrInvalidNotation, s[4:])
		}
		m.Promotion = promotion
	}
	return m, nil
}

func validPromotion(t PieceType) bool {
	switch t {
	case NoPiece, Queen, Rook, Bishop, Knight:
		return true
	}
	return false
}

// Ply is a committed move in the game history.
type Ply struct {
	Piece     Piece     `json:"piece"`
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Captured  *Piece    `json:"capturedPiece"`
	Promotion PieceType `json:"promotion,omitempty"`
	Notation  string    `json:"notation"`
	UCI       string    `json:"uci"`
}

type SimpleMove struct {
	From Position `json:"from"`
	To   Position `json:"to"`
}

// notation builds short algebraic notation for a move about to be played on b.
// Check and mate suffixes are added by the caller once the result is known.
func notation(b *Board, m Move, promoted PieceType) string {
	piece := b.At(m.From)
	var sb strings.Builder
	sb.WriteString(piece.Type.notation())
	if piece.Type != Pawn && piece.Type != King {
		sb.WriteString(disambiguation(b, m))
	}
	if !b.At(m.To).Empty() {
		if piece.Type == Pawn {
			sb.WriteString(m.From.file())
		}
		sb.WriteString("x")
	}
	sb.WriteString(m.To.String())
	if promoted != NoPiece {
		sb.WriteString("=" + promoted.notation())
	}
	return sb.String()
}

// disambiguation returns the file, rank or square needed when another piece of
// the same kind could also reach the destination.
func disambiguation(b *Board, m Move) string {
	piece := b.At(m.From)
	sameFile, sameRank, ambiguous := false, false, false
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			other := Position{Row: row, Col: col}
			if other == m.From || b.At(other) != piece {
				continue
			}
			for _, dest := range b.LegalDestinations(other) {
				if dest != m.To {
					continue
				}
				ambiguous = true
				if other.Col == m.From.Col {
					sameFile = true
				}
				if other.Row == m.From.Row {
					sameRank = true
				}
			}
		}
	}
	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return m.From.file()
	case !sameRank:
		return fmt.Sprintf("%d", 8-m.From.Row)
	default:
		return m.From.String()
	}
}
