package service

import (
	"fmt"

	"github.com/benbeisheim/chess-backend/internal/model"
)

func statusText(state model.GameState, human model.Side, thinking bool) string {
	switch state.Outcome.Status {
	case model.StatusCheckmate:
		if state.Outcome.Winner == human {
			return "Checkmate. You win."
		}
		return "Checkmate. Computer wins."
	case model.StatusStalemate, model.StatusDraw:
		return "Draw. Start a new game to play again."
	}
	if thinking {
		return "Computer is thinking..."
	}
	if state.ToMove == human {
		return fmt.Sprintf("Your move (%s).", sideName(human))
	}
	return fmt.Sprintf("Computer to move (%s).", sideName(state.ToMove))
}

func sideName(s model.Side) string {
	if s == model.Black {
		return "Black"
	}
	return "White"
}
