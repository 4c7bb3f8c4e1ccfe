package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/benbeisheim/chess-backend/internal/model"
)

// MessageType represents the different kinds of messages our system can handle
type MessageType string

const (
	// client -> server
	MessageTypeMove   MessageType = "move"
	MessageTypeReset  MessageType = "reset"
	MessageTypeSelect MessageType = "select"

	// server -> client
	MessageTypeGameState  MessageType = "gameState"
	MessageTypeLegalMoves MessageType = "legalMoves"
	MessageTypeError      MessageType = "error"
)

// Message represents a WebSocket message in our system
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into an envelope of type t.
func NewMessage(t MessageType, payload interface{}) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Message{Type: t, Payload: raw}, nil
}

// MovePayload carries a move either as board positions or as coordinate
// notation ("e2e4", "e7e8q"). It is used by the REST API as well.
type MovePayload struct {
	From      *model.Position `json:"from,omitempty"`
	To        *model.Position `json:"to,omitempty"`
	Promotion model.PieceType `json:"promotion,omitempty"`
	UCI       string          `json:"uci,omitempty"`
}

var ErrMissingMove = errors.New("move needs from and to, or uci")

func (p MovePayload) Move() (model.Move, error) {
	if strings.TrimSpace(p.UCI) != "" {
		return model.ParseUCIMove(p.UCI)
	}
	if p.From == nil || p.To == nil {
		return model.Move{}, ErrMissingMove
	}
	return model.Move{From: *p.From, To: *p.To, Promotion: p.Promotion}, nil
}

type SelectPayload struct {
	Square string `json:"square"`
}

type LegalMovesPayload struct {
	From         model.Position   `json:"from"`
	Square       string           `json:"square"`
	Destinations []model.Position `json:"destinations"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
