package service

import (
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/ws"
)

// GameService is the API the controllers use; it resolves game IDs and
// forwards to the session.
type GameService struct {
	gameManager *GameManager
}

func NewGameService(gameManager *GameManager) *GameService {
	return &GameService{
		gameManager: gameManager,
	}
}

func (gs *GameService) CreateGame(playerID string, side model.Side, fen string) (View, error) {
	s, err := gs.gameManager.CreateGame(playerID, side, fen)
	if err != nil {
		return View{}, err
	}
	return s.View(), nil
}

func (gs *GameService) GetGame(gameID string) (View, error) {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return View{}, err
	}
	return s.View(), nil
}

func (gs *GameService) HandleMove(gameID, playerID string, move model.Move) (View, error) {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return View{}, err
	}
	return s.Move(playerID, move)
}

func (gs *GameService) Reset(gameID, playerID string) (View, error) {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return View{}, err
	}
	return s.Reset(playerID)
}

func (gs *GameService) LegalMoves(gameID string, from model.Position) ([]model.Position, error) {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return nil, err
	}
	return s.LegalDestinations(from), nil
}

func (gs *GameService) RegisterConnection(gameID, playerID string, conn ws.JSONWriter) error {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return err
	}
	return s.Attach(conn, playerID)
}

func (gs *GameService) UnregisterConnection(gameID string, conn ws.JSONWriter) {
	s, err := gs.gameManager.GetGame(gameID)
	if err != nil {
		return
	}
	s.Detach(conn)
}
