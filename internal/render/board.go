// Package render draws game positions as images.
package render

import (
	"fmt"
	"image/png"
	"io"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/razzie/chessimage"
)

const DefaultBoardSize = 512

// PNG writes the board of state as a PNG, highlighting the last move and a
// king in check.
func PNG(w io.Writer, state model.GameState, size int) error {
	if size <= 0 {
		size = DefaultBoardSize
	}
	r, err := chessimage.NewRendererFromFEN(model.EncodeFEN(state.Board, state.ToMove, state.FullMove))
	if err != nil {
		return fmt.Errorf("load position: %w", err)
	}

	if lm := state.LastMove; lm != nil {
		from, _ := chessimage.TileFromAN(lm.From.String())
		to, _ := chessimage.TileFromAN(lm.To.String())
		r.SetLastMove(chessimage.LastMove{
			From: from,
			To:   to,
		})
	}
	if state.IsCheck {
		if king, ok := state.Board.KingPosition(state.ToMove); ok {
			tile, _ := chessimage.TileFromAN(king.String())
			r.SetCheckTile(tile)
		}
	}

	img, err := r.Render(chessimage.Options{
		PieceRatio: 1,
		BoardSize:  size,
	})
	if err != nil {
		return fmt.Errorf("render board: %w", err)
	}
	return png.Encode(w, img)
}
