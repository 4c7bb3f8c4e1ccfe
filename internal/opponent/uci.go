package opponent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"go.uber.org/zap"
)

// retireGrace is how long an abandoned search may take to answer "stop"
// before its engine process is given up on.
const retireGrace = 2 * time.Second

// UCI asks an external engine process such as stockfish. The process is
// started on first use and replaced after a failure or cancelled search.
// One search runs at a time; callers waiting for their turn give up when
// their context ends.
type UCI struct {
	path     string
	depth    int
	moveTime time.Duration
	logger   *zap.Logger

	slot chan struct{}
	eng  *uci.Engine // owned by the slot holder
}

func NewUCI(path string, depth int, moveTime time.Duration, logger *zap.Logger) *UCI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UCI{
		path:     path,
		depth:    depth,
		moveTime: moveTime,
		logger:   logger,
		slot:     make(chan struct{}, 1),
	}
}

func (u *UCI) Name() string {
	return string(KindUCI)
}

type searchResult struct {
	eng  *uci.Engine
	move string
	err  error
}

func (u *UCI) BestMove(ctx context.Context, state model.GameState) (model.Move, error) {
	opt, err := chess.FEN(model.EncodeFEN(state.Board, state.ToMove, state.FullMove))
	if err != nil {
		return model.Move{}, fmt.Errorf("encode position: %w", err)
	}
	game := chess.NewGame(opt)
	if len(game.ValidMoves()) == 0 {
		return model.Move{}, ErrNoLegalMoves
	}

	select {
	case u.slot <- struct{}{}:
	case <-ctx.Done():
		return model.Move{}, ctx.Err()
	}
	defer func() { <-u.slot }()

	eng := u.eng
	results := make(chan searchResult, 1)
	go func() {
		results <- u.search(eng, game)
	}()

	select {
	case <-ctx.Done():
		// The search keeps its engine; the next call starts a new one.
		u.eng = nil
		if eng != nil {
			go eng.Run(uci.CmdStop)
		}
		u.retire(results)
		return model.Move{}, ctx.Err()
	case res := <-results:
		if res.err != nil {
			u.eng = nil
			if res.eng != nil {
				go u.closeEngine(res.eng)
			}
			return model.Move{}, res.err
		}
		u.eng = res.eng
		return model.ParseUCIMove(res.move)
	}
}

// search runs one position on eng, starting a new engine when eng is nil.
// The engine used is returned with the result.
func (u *UCI) search(eng *uci.Engine, game *chess.Game) searchResult {
	if eng == nil {
		var err error
		if eng, err = u.start(); err != nil {
			return searchResult{err: err}
		}
	}
	cmdPos := uci.CmdPosition{Position: game.Position()}
	cmdGo := uci.CmdGo{Depth: u.depth, MoveTime: u.moveTime}
	if err := eng.Run(cmdPos, cmdGo); err != nil {
		return searchResult{eng: eng, err: err}
	}
	best := eng.SearchResults().BestMove
	if best == nil {
		return searchResult{eng: eng, err: errors.New("engine returned no move")}
	}
	return searchResult{eng: eng, move: chess.UCINotation{}.Encode(game.Position(), best)}
}

func (u *UCI) start() (*uci.Engine, error) {
	eng, err := uci.New(u.path)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", u.path, err)
	}
	if err := eng.Run(uci.CmdUCI, uci.CmdIsReady, uci.CmdUCINewGame); err != nil {
		go u.closeEngine(eng)
		return nil, fmt.Errorf("handshake with %s: %w", u.path, err)
	}
	u.logger.Info("uci engine started", zap.String("path", u.path))
	return eng, nil
}

// retire closes the engine of an abandoned search once the search returns.
// An engine that never answers is left to exit with the process.
func (u *UCI) retire(results <-chan searchResult) {
	go func() {
		select {
		case res := <-results:
			if res.eng != nil {
				u.closeEngine(res.eng)
			}
		case <-time.After(retireGrace):
			u.logger.Warn("uci engine unresponsive, abandoning it", zap.String("path", u.path))
		}
	}()
}

func (u *UCI) closeEngine(eng *uci.Engine) {
	if err := eng.Close(); err != nil {
		u.logger.Warn("uci engine close", zap.Error(err))
	}
}

// Close stops the idle engine process, if any.
func (u *UCI) Close() error {
	select {
	case u.slot <- struct{}{}:
	case <-time.After(retireGrace):
		return errors.New("uci engine busy")
	}
	defer func() { <-u.slot }()
	if u.eng == nil {
		return nil
	}
	eng := u.eng
	u.eng = nil
	return eng.Close()
}
