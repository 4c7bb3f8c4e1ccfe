package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/opponent"
	"github.com/benbeisheim/chess-backend/internal/store"
	"github.com/benbeisheim/chess-backend/internal/ws"
	"go.uber.org/zap"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrNotOwner     = errors.New("only the player who created the game can move")
)

// View is what clients see of a session.
type View struct {
	GameID     string          `json:"gameId"`
	HumanSide  model.Side      `json:"humanSide"`
	State      model.GameState `json:"state"`
	FEN        string          `json:"fen"`
	Thinking   bool            `json:"thinking"`
	StatusText string          `json:"statusText"`
}

// Session is one human-vs-computer game. The human plays HumanSide; the
// computer's replies are computed in the background and applied only if the
// session has not been reset since they were requested.
type Session struct {
	ID        string
	Owner     string
	HumanSide model.Side

	mu         sync.Mutex
	game       *model.Game
	strategy   opponent.Strategy
	thinkDelay time.Duration
	logger     *zap.Logger
	persist    func(store.Record)

	generation uint64
	cancel     context.CancelFunc
	thinking   bool
	lastActive time.Time
	conns      map[ws.JSONWriter]string
	opponentWG sync.WaitGroup
}

type sessionConfig struct {
	strategy   opponent.Strategy
	thinkDelay time.Duration
	logger     *zap.Logger
	persist    func(store.Record)
}

func newSession(id, owner string, human model.Side, game *model.Game, cfg sessionConfig) *Session {
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return &Session{
		ID:         id,
		Owner:      owner,
		HumanSide:  human,
		game:       game,
		strategy:   cfg.strategy,
		thinkDelay: cfg.thinkDelay,
		logger:     cfg.logger.With(zap.String("game_id", id)),
		persist:    cfg.persist,
		lastActive: time.Now(),
		conns:      make(map[ws.JSONWriter]string),
	}
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	state := s.game.State()
	return View{
		GameID:     s.ID,
		HumanSide:  s.HumanSide,
		State:      state,
		FEN:        s.game.FEN(),
		Thinking:   s.thinking,
		StatusText: statusText(state, s.HumanSide, s.thinking),
	}
}

// Move plays the human's move and, if the game goes on, starts the
// computer's reply.
func (s *Session) Move(playerID string, m model.Move) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.Owner {
		return View{}, ErrNotOwner
	}
	if s.game.Outcome().Over() {
		return View{}, &model.MoveError{Move: m, Err: model.ErrGameOver}
	}
	if s.thinking || s.game.ToMove() != s.HumanSide {
		return View{}, ErrNotYourTurn
	}
	if _, err := s.game.Apply(m); err != nil {
		return View{}, err
	}
	s.logger.Debug("human move", zap.String("player_id", playerID), zap.String("move", m.UCI()))

	s.touchLocked()
	s.startOpponentLocked()
	return s.commitLocked(), nil
}

// Reset returns the board to the session's starting position. Any computer
// search in flight is abandoned.
func (s *Session) Reset(playerID string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if playerID != s.Owner {
		return View{}, ErrNotOwner
	}
	s.stopOpponentLocked()
	s.game.Reset()
	s.logger.Debug("game reset", zap.String("player_id", playerID))

	s.touchLocked()
	s.startOpponentLocked()
	return s.commitLocked(), nil
}

// LegalDestinations lists where the piece on from may go. It is empty while
// the game is over.
func (s *Session) LegalDestinations(from model.Position) []model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.Outcome().Over() {
		return []model.Position{}
	}
	dests := s.game.LegalDestinations(from)
	if dests == nil {
		dests = []model.Position{}
	}
	return dests
}

// Attach registers a connection for state broadcasts and sends it the
// current view.
func (s *Session) Attach(conn ws.JSONWriter, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = playerID
	s.touchLocked()
	msg, err := ws.NewMessage(ws.MessageTypeGameState, s.viewLocked())
	if err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}

func (s *Session) Detach(conn ws.JSONWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// idleFor reports whether the session has had no connection, search or
// activity for longer than timeout at now.
func (s *Session) idleFor(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) > 0 || s.thinking {
		return false
	}
	return now.Sub(s.lastActive) > timeout
}

// close abandons any search and drops all connections.
func (s *Session) close() {
	s.mu.Lock()
	s.stopOpponentLocked()
	s.conns = make(map[ws.JSONWriter]string)
	s.mu.Unlock()
	s.opponentWG.Wait()
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

// commitLocked persists and broadcasts the current state and returns it.
func (s *Session) commitLocked() View {
	view := s.viewLocked()
	if s.persist != nil {
		s.persist(s.recordLocked())
	}
	msg, err := ws.NewMessage(ws.MessageTypeGameState, view)
	if err != nil {
		s.logger.Error("encode game state", zap.Error(err))
		return view
	}
	for conn, playerID := range s.conns {
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Info("dropping connection", zap.String("player_id", playerID), zap.Error(err))
			delete(s.conns, conn)
		}
	}
	return view
}

func (s *Session) recordLocked() store.Record {
	history := s.game.State().MoveHistory
	moves := make([]string, 0, len(history))
	for _, ply := range history {
		moves = append(moves, ply.UCI)
	}
	return store.Record{
		ID:        s.ID,
		Owner:     s.Owner,
		HumanSide: string(s.HumanSide),
		StartFEN:  s.game.StartFEN(),
		Moves:     moves,
	}
}

// startOpponentLocked launches the computer's search when it is the
// computer's turn.
func (s *Session) startOpponentLocked() {
	if s.strategy == nil || s.game.Outcome().Over() || s.game.ToMove() == s.HumanSide {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.thinking = true
	gen := s.generation
	state := s.game.State()

	s.opponentWG.Add(1)
	go func() {
		defer s.opponentWG.Done()
		defer cancel()
		s.runOpponent(ctx, gen, state)
	}()
}

func (s *Session) stopOpponentLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.thinking = false
}

func (s *Session) runOpponent(ctx context.Context, gen uint64, state model.GameState) {
	if s.thinkDelay > 0 {
		select {
		case <-time.After(s.thinkDelay):
		case <-ctx.Done():
			return
		}
	}

	start := time.Now()
	m, err := s.strategy.BestMove(ctx, state)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || ctx.Err() != nil {
		s.logger.Debug("discarding stale opponent result", zap.Uint64("generation", gen))
		return
	}
	s.thinking = false
	s.cancel = nil

	if err != nil {
		s.logger.Error("opponent failed to move", zap.String("strategy", s.strategy.Name()), zap.Error(err))
		s.commitLocked()
		return
	}
	if _, err := s.game.Apply(m); err != nil {
		s.logger.Error("opponent proposed an illegal move",
			zap.String("strategy", s.strategy.Name()),
			zap.String("move", m.UCI()),
			zap.Error(err),
		)
		s.commitLocked()
		return
	}
	s.logger.Debug("opponent move",
		zap.String("strategy", s.strategy.Name()),
		zap.String("move", m.UCI()),
		zap.Duration("took", time.Since(start)),
	)
	s.commitLocked()
}
