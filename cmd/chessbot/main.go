// Command chessbot plays the human side of a game against the server's
// computer opponent, choosing its own moves with any opponent strategy.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/benbeisheim/chess-backend/internal/logging"
	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/opponent"
	"github.com/benbeisheim/chess-backend/internal/service"
	"github.com/benbeisheim/chess-backend/internal/ws"
	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "server base URL")
	player := flag.String("player", "chessbot", "player ID")
	side := flag.String("side", "white", "side to play when creating a game")
	gameID := flag.String("game", "", "existing game ID to play (default: create one)")
	fen := flag.String("fen", "", "starting position for a new game")
	origin := flag.String("origin", "http://localhost:5173", "Origin header for the websocket handshake")
	kind := flag.String("opponent", "random", "move strategy: random, uci or embedded")
	engine := flag.String("engine", "stockfish", "UCI engine path")
	depth := flag.Int("depth", 8, "search depth")
	moveTime := flag.Duration("movetime", time.Second, "search time per move")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	strategy, err := opponent.New(opponent.Options{
		Kind:       opponent.Kind(*kind),
		EnginePath: *engine,
		Depth:      *depth,
		MoveTime:   *moveTime,
		Timeout:    *moveTime + 2*time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("strategy", zap.Error(err))
	}

	bot := &bot{server: strings.TrimRight(*server, "/"), player: *player, strategy: strategy, logger: logger}
	if *gameID == "" {
		*gameID, err = bot.createGame(model.Side(*side), *fen)
		if err != nil {
			logger.Fatal("create game", zap.Error(err))
		}
		logger.Info("game created", zap.String("game_id", *gameID))
	}
	if err := bot.play(*gameID, *origin); err != nil {
		logger.Fatal("play", zap.Error(err))
	}
}

type bot struct {
	server   string
	player   string
	strategy opponent.Strategy
	logger   *zap.Logger
}

func (b *bot) createGame(side model.Side, fen string) (string, error) {
	agent := fiber.Post(b.server + "/api/game/create")
	agent.Set("X-Player-ID", b.player)
	agent.JSON(map[string]string{"side": string(side), "fen": fen})

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	var resp struct {
		GameID string `json:"game_id"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if code != fiber.StatusCreated {
		return "", fmt.Errorf("server returned %d: %s", code, resp.Error)
	}
	return resp.GameID, nil
}

func (b *bot) play(gameID, origin string) error {
	u, err := url.Parse(b.server)
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws/game/" + gameID
	u.RawQuery = url.Values{"playerId": {b.player}}.Encode()

	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	lastPly := -1
	for {
		var msg ws.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case ws.MessageTypeError:
			var e ws.ErrorPayload
			json.Unmarshal(msg.Payload, &e)
			b.logger.Warn("server error", zap.String("message", e.Message))
			continue
		case ws.MessageTypeGameState:
		default:
			continue
		}

		var view service.View
		if err := json.Unmarshal(msg.Payload, &view); err != nil {
			return fmt.Errorf("decode game state: %w", err)
		}
		b.logger.Info(view.StatusText, zap.String("fen", view.FEN))
		if view.State.Outcome.Over() {
			return nil
		}
		plies := len(view.State.MoveHistory)
		if view.Thinking || view.State.ToMove != view.HumanSide || plies == lastPly {
			continue
		}

		move, err := b.strategy.BestMove(context.Background(), view.State)
		if err != nil {
			return fmt.Errorf("choose move: %w", err)
		}
		b.logger.Debug("playing", zap.String("move", move.UCI()))
		out, err := ws.NewMessage(ws.MessageTypeMove, ws.MovePayload{UCI: move.UCI()})
		if err != nil {
			return err
		}
		if err := conn.WriteJSON(out); err != nil {
			return err
		}
		lastPly = plies
	}
}
