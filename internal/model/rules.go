package model

import "sort"

type direction struct {
	row int
	col int
}

var (
	rookDirs   = []direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirs = []direction{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	queenDirs  = append(append([]direction{}, rookDirs...), bishopDirs...)
	kingDirs   = queenDirs
	knightDirs = []direction{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
)

// pseudoDestinations is the movement pattern of the piece on from, limited by
// board bounds, same-side occupancy and blocking. It ignores the self-check
// filter.
func (b *Board) pseudoDestinations(from Position) []Position {
	piece := b.At(from)
	switch piece.Type {
	case Pawn:
		return b.pawnDestinations(from, piece.Side)
	case Knight:
		return b.stepDestinations(from, piece.Side, knightDirs)
	case Bishop:
		return b.slideDestinations(from, piece.Side, bishopDirs)
	case Rook:
		return b.slideDestinations(from, piece.Side, rookDirs)
	case Queen:
		return b.slideDestinations(from, piece.Side, queenDirs)
	case King:
		return b.stepDestinations(from, piece.Side, kingDirs)
	default:
		return nil
	}
}

func (b *Board) pawnDestinations(from Position, side Side) []Position {
	var dests []Position
	dir := direction{row: side.pawnDir()}

	one := from.add(dir)
	if one.Valid() && b.At(one).Empty() {
		dests = append(dests, one)
		two := one.add(dir)
		if from.Row == side.pawnStartRow() && two.Valid() && b.At(two).Empty() {
			dests = append(dests, two)
		}
	}
	// Diagonal steps are captures only.
	for _, dc := range []int{-1, 1} {
		target := from.add(direction{row: dir.row, col: dc})
		if !target.Valid() {
			continue
		}
		if occupant := b.At(target); !occupant.Empty() && occupant.Side != side {
			dests = append(dests, target)
		}
	}
	return dests
}

func (b *Board) stepDestinations(from Position, side Side, dirs []direction) []Position {
	var dests []Position
	for _, dir := range dirs {
		target := from.add(dir)
		if !target.Valid() {
			continue
		}
		if occupant := b.At(target); occupant.Empty() || occupant.Side != side {
			dests = append(dests, target)
		}
	}
	return dests
}

func (b *Board) slideDestinations(from Position, side Side, dirs []direction) []Position {
	var dests []Position
	for _, dir := range dirs {
		for target := from.add(dir); target.Valid() && b.PathClear(from, target); target = target.add(dir) {
			if occupant := b.At(target); occupant.Empty() || occupant.Side != side {
				dests = append(dests, target)
			}
		}
	}
	return dests
}

// PathClear reports whether every square strictly between from and to is
// empty. from and to must share a rank, file or diagonal.
func (b *Board) PathClear(from, to Position) bool {
	step := direction{row: sign(to.Row - from.Row), col: sign(to.Col - from.Col)}
	if step == (direction{}) {
		return true
	}
	for cur := from.add(step); cur != to; cur = cur.add(step) {
		if !cur.Valid() {
			return false
		}
		if !b.At(cur).Empty() {
			return false
		}
	}
	return true
}

// isSquareAttacked scans outward from pos for pieces of attacker whose
// unfiltered pattern reaches it.
func (b *Board) isSquareAttacked(pos Position, attacker Side) bool {
	for _, dir := range rookDirs {
		if t := b.firstOccupied(pos, dir); t.Side == attacker && (t.Type == Rook || t.Type == Queen) {
			return true
		}
	}
	for _, dir := range bishopDirs {
		if t := b.firstOccupied(pos, dir); t.Side == attacker && (t.Type == Bishop || t.Type == Queen) {
			return true
		}
	}
	for _, dir := range knightDirs {
		if t := b.At(pos.add(dir)); t.Side == attacker && t.Type == Knight {
			return true
		}
	}
	for _, dir := range kingDirs {
		if t := b.At(pos.add(dir)); t.Side == attacker && t.Type == King {
			return true
		}
	}
	// A pawn attacks diagonally forward, so it sits one row behind pos from
	// the attacker's point of view.
	pawnRow := pos.Row - attacker.pawnDir()
	for _, dc := range []int{-1, 1} {
		if t := b.At(Position{Row: pawnRow, Col: pos.Col + dc}); t.Side == attacker && t.Type == Pawn {
			return true
		}
	}
	return false
}

func (b *Board) firstOccupied(from Position, dir direction) Piece {
	for cur := from.add(dir); cur.Valid(); cur = cur.add(dir) {
		if p := b.At(cur); !p.Empty() {
			return p
		}
	}
	return Piece{}
}

// IsInCheck reports whether side's king is attacked. A side without a king is
// never in check.
func (b *Board) IsInCheck(side Side) bool {
	king, ok := b.KingPosition(side)
	if !ok {
		return false
	}
	return b.isSquareAttacked(king, side.Opponent())
}

// play moves the piece on from to to without any legality checks, promoting
// a pawn that reaches its last rank. It returns the captured piece.
func (b *Board) play(from, to Position, promotion PieceType) Piece {
	piece := b.At(from)
	captured := b.At(to)
	b.Clear(from)
	if piece.Type == Pawn && to.Row == piece.Side.promotionRow() {
		if promotion == NoPiece {
			promotion = Queen
		}
		piece.Type = promotion
	}
	b.Set(to, piece)
	return captured
}

// LegalDestinations returns the squares the piece on from may move to,
// including the self-check filter, in row-major order.
func (b *Board) LegalDestinations(from Position) []Position {
	piece := b.At(from)
	if piece.Empty() {
		return nil
	}
	var legal []Position
	for _, to := range b.pseudoDestinations(from) {
		next := *b
		next.play(from, to, NoPiece)
		if !next.IsInCheck(piece.Side) {
			legal = append(legal, to)
		}
	}
	sort.Slice(legal, func(i, j int) bool {
		if legal[i].Row != legal[j].Row {
			return legal[i].Row < legal[j].Row
		}
		return legal[i].Col < legal[j].Col
	})
	return legal
}

// LegalMoves enumerates every legal move of side. Promotions use the default
// piece.
func (b *Board) LegalMoves(side Side) []Move {
	var moves []Move
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			from := Position{Row: row, Col: col}
			if p := b.At(from); p.Empty() || p.Side != side {
				continue
			}
			for _, to := range b.LegalDestinations(from) {
				moves = append(moves, Move{From: from, To: to})
			}
		}
	}
	return moves
}

func (b *Board) hasLegalMove(side Side) bool {
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			from := Position{Row: row, Col: col}
			if p := b.At(from); p.Empty() || p.Side != side {
				continue
			}
			if len(b.LegalDestinations(from)) > 0 {
				return true
			}
		}
	}
	return false
}

// ComputeStatus decides the outcome for side to move from legal-move
// enumeration alone.
func (b *Board) ComputeStatus(side Side) Outcome {
	if b.hasLegalMove(side) {
		return Outcome{Status: StatusOngoing}
	}
	if b.IsInCheck(side) {
		return Outcome{Status: StatusCheckmate, Winner: side.Opponent()}
	}
	return Outcome{Status: StatusStalemate}
}

// InsufficientMaterial reports bare kings, or a king and one minor piece
// against a bare king.
func (b *Board) InsufficientMaterial() bool {
	minors := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			switch b[row][col].Type {
			case NoPiece, King:
			case Knight, Bishop:
				minors++
			default:
				return false
			}
		}
	}
	return minors <= 1
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
