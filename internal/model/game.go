package model

import (
	"fmt"
)

type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusCheckmate Status = "checkmate"
	StatusStalemate Status = "stalemate"
	StatusDraw      Status = "draw"
)

// Outcome is the game status. Winner is only set for checkmate.
type Outcome struct {
	Status Status `json:"status"`
	Winner Side   `json:"winner,omitempty"`
}

func (o Outcome) Over() bool {
	return o.Status != StatusOngoing
}

type GameState struct {
	Board       Board       `json:"board"`
	ToMove      Side        `json:"toMove"`
	MoveHistory []Ply       `json:"moveHistory"`
	Outcome     Outcome     `json:"outcome"`
	IsCheck     bool        `json:"isCheck"`
	LastMove    *SimpleMove `json:"lastMove"`
	FullMove    int         `json:"fullMove"`
}

// Clone returns a copy that shares nothing mutable with s.
func (s GameState) Clone() GameState {
	c := s
	c.MoveHistory = append(make([]Ply, 0, len(s.MoveHistory)), s.MoveHistory...)
	if s.LastMove != nil {
		lm := *s.LastMove
		c.LastMove = &lm
	}
	return c
}

// Game owns one GameState and is the only way to mutate it. It does no
// locking; callers sharing a Game must serialize access.
type Game struct {
	state      GameState
	start      Board
	startSide  Side
	startMoveN int
}

func NewGame() *Game {
	g, _ := NewGameFromBoard(NewStartingBoard(), White)
	return g
}

// NewGameFromBoard starts a game from an arbitrary position. The board must
// hold exactly one king per side and no pawns on the back ranks.
func NewGameFromBoard(board Board, toMove Side) (*Game, error) {
	if !toMove.Valid() {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidPosition, toMove)
	}
	if err := board.validate(); err != nil {
		return nil, err
	}
	if board.IsInCheck(toMove.Opponent()) {
		return nil, fmt.Errorf("%w: %s to move can capture the king", ErrInvalidPosition, toMove)
	}
	g := &Game{start: board, startSide: toMove, startMoveN: 1}
	g.Reset()
	return g, nil
}

// Reset returns the game to the position it was created with.
func (g *Game) Reset() {
	g.state = GameState{
		Board:       g.start,
		ToMove:      g.startSide,
		MoveHistory: make([]Ply, 0),
		FullMove:    g.startMoveN,
	}
	g.refreshStatus()
}

// State returns a snapshot of the current state.
func (g *Game) State() GameState {
	return g.state.Clone()
}

func (g *Game) ToMove() Side {
	return g.state.ToMove
}

func (g *Game) Outcome() Outcome {
	return g.state.Outcome
}

func (g *Game) StartFEN() string {
	return EncodeFEN(g.start, g.startSide, g.startMoveN)
}

func (g *Game) FEN() string {
	return EncodeFEN(g.state.Board, g.state.ToMove, g.state.FullMove)
}

// LegalDestinations does not require the square to belong to the side to
// move; that filtering is left to callers.
func (g *Game) LegalDestinations(from Position) []Position {
	return g.state.Board.LegalDestinations(from)
}

func (g *Game) LegalMoves() []Move {
	if g.state.Outcome.Over() {
		return nil
	}
	return g.state.Board.LegalMoves(g.state.ToMove)
}

func (g *Game) IsInCheck(side Side) bool {
	return g.state.Board.IsInCheck(side)
}

func (g *Game) ComputeStatus(side Side) Outcome {
	return g.state.Board.ComputeStatus(side)
}

func (g *Game) ApplyMove(from, to Position) (GameState, error) {
	return g.Apply(Move{From: from, To: to})
}

// Apply validates and commits m. A rejected move leaves the state untouched.
func (g *Game) Apply(m Move) (GameState, error) {
	if g.state.Outcome.Over() {
		return GameState{}, &MoveError{Move: m, Err: ErrGameOver}
	}
	if err := ValidateMove(g.state, m); err != nil {
		return GameState{}, err
	}

	board := &g.state.Board
	piece := board.At(m.From)
	promoted := NoPiece
	if piece.Type == Pawn && m.To.Row == piece.Side.promotionRow() {
		promoted = m.Promotion
		if promoted == NoPiece {
			promoted = Queen
		}
	}
	ply := Ply{
		Piece:     piece,
		From:      m.From,
		To:        m.To,
		Promotion: promoted,
		Notation:  notation(board, m, promoted),
		UCI:       Move{From: m.From, To: m.To, Promotion: promoted}.UCI(),
	}
	if captured := board.play(m.From, m.To, promoted); !captured.Empty() {
		ply.Captured = &captured
	}

	if g.state.ToMove == Black {
		g.state.FullMove++
	}
	g.state.ToMove = g.state.ToMove.Opponent()
	g.state.LastMove = &SimpleMove{From: m.From, To: m.To}
	g.refreshStatus()

	switch {
	case g.state.Outcome.Status == StatusCheckmate:
		ply.Notation += "#"
	case g.state.IsCheck:
		ply.Notation += "+"
	}
	g.state.MoveHistory = append(g.state.MoveHistory, ply)
	return g.State(), nil
}

func (g *Game) refreshStatus() {
	g.state.IsCheck = g.state.Board.IsInCheck(g.state.ToMove)
	g.state.Outcome = g.state.Board.ComputeStatus(g.state.ToMove)
	if !g.state.Outcome.Over() && g.state.Board.InsufficientMaterial() {
		g.state.Outcome = Outcome{Status: StatusDraw}
	}
}

// ValidateMove checks m against state without mutating anything. Moves from
// outside the engine, such as UCI output, go through here before use.
func ValidateMove(state GameState, m Move) error {
	if state.Outcome.Over() {
		return &MoveError{Move: m, Err: ErrGameOver}
	}
	if !m.From.Valid() || !m.To.Valid() {
		return illegal(m, "out of bounds")
	}
	piece := state.Board.At(m.From)
	if piece.Empty() {
		return illegal(m, "no piece on origin square")
	}
	if piece.Side != state.ToMove {
		return illegal(m, fmt.Sprintf("%s to move", state.ToMove))
	}
	if !validPromotion(m.Promotion) {
		return illegal(m, fmt.Sprintf("cannot promote to %s", m.Promotion))
	}
	for _, dest := range state.Board.LegalDestinations(m.From) {
		if dest == m.To {
			return nil
		}
	}
	return illegal(m, "destination not reachable")
}
