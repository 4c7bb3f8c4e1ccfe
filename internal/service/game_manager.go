package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/benbeisheim/chess-backend/internal/opponent"
	"github.com/benbeisheim/chess-backend/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists session records. *store.Redis implements it.
type Store interface {
	Save(ctx context.Context, rec store.Record) error
	Delete(ctx context.Context, id string) error
	LoadAll(ctx context.Context) ([]store.Record, error)
}

type ManagerOptions struct {
	Strategy   opponent.Strategy
	ThinkDelay time.Duration
	// IdleTimeout removes sessions nobody has touched for this long. Zero
	// keeps sessions forever.
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Store         Store
	Logger        *zap.Logger
}

type GameManager struct {
	games map[string]*Session
	mu    sync.RWMutex

	opts   ManagerOptions
	logger *zap.Logger
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func NewGameManager(opts ManagerOptions) *GameManager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Strategy == nil {
		opts.Strategy = opponent.NewRandom(0)
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}
	gm := &GameManager{
		games:  make(map[string]*Session),
		opts:   opts,
		logger: opts.Logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go gm.processExpiry()

	return gm
}

func (gm *GameManager) processExpiry() {
	defer close(gm.done)
	ticker := time.NewTicker(gm.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-gm.stop:
			return
		case now := <-ticker.C:
			gm.expire(now)
		}
	}
}

// expire removes sessions idle since before now minus the idle timeout.
func (gm *GameManager) expire(now time.Time) {
	if gm.opts.IdleTimeout <= 0 {
		return
	}
	var expired []*Session
	gm.mu.Lock()
	for id, s := range gm.games {
		if s.idleFor(now, gm.opts.IdleTimeout) {
			delete(gm.games, id)
			expired = append(expired, s)
		}
	}
	gm.mu.Unlock()

	for _, s := range expired {
		s.close()
		gm.logger.Info("session expired", zap.String("game_id", s.ID))
		if gm.opts.Store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := gm.opts.Store.Delete(ctx, s.ID); err != nil {
				gm.logger.Warn("delete expired session", zap.String("game_id", s.ID), zap.Error(err))
			}
			cancel()
		}
	}
}

// CreateGame starts a session owned by playerID. An empty fen means the
// standard starting position. When the human plays black the computer
// starts thinking straight away.
func (gm *GameManager) CreateGame(playerID string, human model.Side, fen string) (*Session, error) {
	if human == "" {
		human = model.White
	}
	if !human.Valid() {
		return nil, fmt.Errorf("%w: side %q", model.ErrInvalidPosition, human)
	}
	game, err := model.NewGameFromFEN(fen)
	if err != nil {
		return nil, err
	}

	s := gm.newSession(uuid.New().String(), playerID, human, game)
	gm.mu.Lock()
	gm.games[s.ID] = s
	gm.mu.Unlock()

	s.mu.Lock()
	s.startOpponentLocked()
	s.commitLocked()
	s.mu.Unlock()

	gm.logger.Info("game created",
		zap.String("game_id", s.ID),
		zap.String("player_id", playerID),
		zap.String("side", string(human)),
	)
	return s, nil
}

func (gm *GameManager) GetGame(gameID string) (*Session, error) {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	s, exists := gm.games[gameID]
	if !exists {
		return nil, ErrGameNotFound
	}
	return s, nil
}

func (gm *GameManager) Count() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.games)
}

// Restore rebuilds sessions from the store by replaying their moves.
// Records that no longer replay cleanly are dropped from the store.
func (gm *GameManager) Restore(ctx context.Context) (int, error) {
	if gm.opts.Store == nil {
		return 0, nil
	}
	records, loadErr := gm.opts.Store.LoadAll(ctx)
	if loadErr != nil {
		gm.logger.Warn("some sessions could not be loaded", zap.Error(loadErr))
	}

	restored := 0
	for _, rec := range records {
		s, err := gm.replay(rec)
		if err != nil {
			gm.logger.Warn("dropping unreplayable session", zap.String("game_id", rec.ID), zap.Error(err))
			if err := gm.opts.Store.Delete(ctx, rec.ID); err != nil {
				gm.logger.Warn("delete session", zap.String("game_id", rec.ID), zap.Error(err))
			}
			continue
		}
		gm.mu.Lock()
		gm.games[s.ID] = s
		gm.mu.Unlock()

		s.mu.Lock()
		s.startOpponentLocked()
		s.mu.Unlock()
		restored++
	}
	if restored == 0 && loadErr != nil {
		return 0, loadErr
	}
	return restored, nil
}

func (gm *GameManager) replay(rec store.Record) (*Session, error) {
	human := model.Side(rec.HumanSide)
	if !human.Valid() {
		return nil, fmt.Errorf("%w: side %q", model.ErrInvalidPosition, rec.HumanSide)
	}
	game, err := model.NewGameFromFEN(rec.StartFEN)
	if err != nil {
		return nil, err
	}
	for i, uci := range rec.Moves {
		m, err := model.ParseUCIMove(uci)
		if err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
		if _, err := game.Apply(m); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return gm.newSession(rec.ID, rec.Owner, human, game), nil
}

func (gm *GameManager) newSession(id, owner string, human model.Side, game *model.Game) *Session {
	return newSession(id, owner, human, game, sessionConfig{
		strategy:   gm.opts.Strategy,
		thinkDelay: gm.opts.ThinkDelay,
		logger:     gm.logger,
		persist:    gm.persist,
	})
}

func (gm *GameManager) persist(rec store.Record) {
	if gm.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := gm.opts.Store.Save(ctx, rec); err != nil {
		gm.logger.Warn("save session", zap.String("game_id", rec.ID), zap.Error(err))
	}
}

// Close stops the expiry loop and abandons all computer searches. Stored
// sessions are left in place for the next Restore.
func (gm *GameManager) Close() {
	gm.once.Do(func() {
		close(gm.stop)
		<-gm.done

		gm.mu.Lock()
		sessions := make([]*Session, 0, len(gm.games))
		for _, s := range gm.games {
			sessions = append(sessions, s)
		}
		gm.games = make(map[string]*Session)
		gm.mu.Unlock()

		for _, s := range sessions {
			s.close()
		}
	})
}

