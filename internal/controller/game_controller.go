package controller

import (
	"bytes"
	"errors"

	"github.com/benbeisheim/chess-backend/internal/middleware"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/render"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/benbeisheim/chess-backend/internal/ws"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type GameController struct {
	gameService *service.GameService
	logger      *zap.Logger
}

func NewGameController(gameService *service.GameService, logger *zap.Logger) *GameController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameController{gameService: gameService, logger: logger}
}

type createGameRequest struct {
	Side model.Side `json:"side"`
	FEN  string     `json:"fen"`
}

func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	var req createGameRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, err)
		}
	}

	view, err := gc.gameService.CreateGame(middleware.PlayerID(c), req.Side, req.FEN)
	if err != nil {
		return gc.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Game created",
		"game_id": view.GameID,
		"color":   view.HumanSide,
		"game":    view,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	view, err := gc.gameService.GetGame(c.Params("gameId"))
	if err != nil {
		return gc.fail(c, err)
	}
	return c.JSON(view)
}

func (gc *GameController) LegalMoves(c *fiber.Ctx) error {
	square := c.Query("from")
	from, err := model.ParseSquare(square)
	if err != nil {
		return gc.fail(c, err)
	}
	dests, err := gc.gameService.LegalMoves(c.Params("gameId"), from)
	if err != nil {
		return gc.fail(c, err)
	}
	return c.JSON(ws.LegalMovesPayload{From: from, Square: square, Destinations: dests})
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	var payload ws.MovePayload
	if err := c.BodyParser(&payload); err != nil {
		return badRequest(c, err)
	}
	move, err := payload.Move()
	if err != nil {
		return gc.fail(c, err)
	}
	view, err := gc.gameService.HandleMove(c.Params("gameId"), middleware.PlayerID(c), move)
	if err != nil {
		return gc.fail(c, err)
	}
	return c.JSON(view)
}

func (gc *GameController) ResetGame(c *fiber.Ctx) error {
	view, err := gc.gameService.Reset(c.Params("gameId"), middleware.PlayerID(c))
	if err != nil {
		return gc.fail(c, err)
	}
	return c.JSON(view)
}

func (gc *GameController) BoardImage(c *fiber.Ctx) error {
	view, err := gc.gameService.GetGame(c.Params("gameId"))
	if err != nil {
		return gc.fail(c, err)
	}
	size := c.QueryInt("size", render.DefaultBoardSize)
	if size < 64 || size > 2048 {
		return badRequest(c, errors.New("size must be between 64 and 2048"))
	}

	var buf bytes.Buffer
	if err := render.PNG(&buf, view.State, size); err != nil {
		return gc.fail(c, err)
	}
	c.Type("png")
	return c.Send(buf.Bytes())
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// StatusCode maps domain errors onto HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNotOwner):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrNotYourTurn), errors.Is(err, model.ErrGameOver):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrIllegalMove),
		errors.Is(err, model.ErrInvalidPosition),
		errors.Is(err, model.ErrInvalidNotation),
		errors.Is(err, ws.ErrMissingMove):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (gc *GameController) fail(c *fiber.Ctx, err error) error {
	status := StatusCode(err)
	if status == fiber.StatusInternalServerError {
		gc.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}
