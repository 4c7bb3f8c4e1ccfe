package controller

import (
	"encoding/json"
	"fmt"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/benbeisheim/chess-backend/internal/ws"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

type WebSocketController struct {
	gameService *service.GameService
	logger      *zap.Logger
}

func NewWebSocketController(gameService *service.GameService, logger *zap.Logger) *WebSocketController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketController{
		gameService: gameService,
		logger:      logger,
	}
}

// HandleConnection is called when a new WebSocket connection is established.
// It sends the current game state, then serves inbound messages until the
// client goes away.
func (wsc *WebSocketController) HandleConnection(c *websocket.Conn) {
	gameID := c.Params("gameId")
	playerID, _ := c.Locals("playerID").(string)
	logger := wsc.logger.With(zap.String("game_id", gameID), zap.String("player_id", playerID))
	conn := ws.NewConn(c)

	if err := wsc.gameService.RegisterConnection(gameID, playerID, conn); err != nil {
		logger.Info("websocket rejected", zap.Error(err))
		if err := conn.SendError(err.Error()); err != nil {
			logger.Debug("websocket write failed", zap.Error(err))
		}
		c.Close()
		return
	}
	defer wsc.gameService.UnregisterConnection(gameID, conn)

	wsc.serve(c, conn, gameID, playerID, logger)
}

// messageReader is the read half of a websocket connection.
type messageReader interface {
	ReadMessage() (messageType int, p []byte, err error)
}

// serve handles inbound messages until the client goes away or a reply can
// no longer be written.
func (wsc *WebSocketController) serve(r messageReader, conn *ws.Conn, gameID, playerID string, logger *zap.Logger) {
	for {
		messageType, message, err := r.ReadMessage()
		if err != nil {
			logger.Debug("websocket closed", zap.Error(err))
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			if err := conn.SendError("malformed message"); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
			continue
		}
		if err := wsc.handleMessage(conn, gameID, playerID, msg); err != nil {
			logger.Debug("message rejected", zap.String("type", string(msg.Type)), zap.Error(err))
			if err := conn.SendError(err.Error()); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (wsc *WebSocketController) handleMessage(conn *ws.Conn, gameID, playerID string, msg ws.Message) error {
	switch msg.Type {
	case ws.MessageTypeMove:
		var payload ws.MovePayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		move, err := payload.Move()
		if err != nil {
			return err
		}
		_, err = wsc.gameService.HandleMove(gameID, playerID, move)
		return err

	case ws.MessageTypeReset:
		_, err := wsc.gameService.Reset(gameID, playerID)
		return err

	case ws.MessageTypeSelect:
		var payload ws.SelectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		from, err := model.ParseSquare(payload.Square)
		if err != nil {
			return err
		}
		dests, err := wsc.gameService.LegalMoves(gameID, from)
		if err != nil {
			return err
		}
		return conn.Send(ws.MessageTypeLegalMoves, ws.LegalMovesPayload{
			From:         from,
			Square:       payload.Square,
			Destinations: dests,
		})

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}
