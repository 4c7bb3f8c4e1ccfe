// Package opponent picks moves for the computer side of a game.
package opponent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"go.uber.org/zap"
)

var (
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrNoLegalMoves      = errors.New("no legal moves")
)

// Strategy chooses a move for the side to move in state. Implementations must
// return promptly once ctx is done.
type Strategy interface {
	Name() string
	BestMove(ctx context.Context, state model.GameState) (model.Move, error)
}

type Kind string

const (
	KindRandom   Kind = "random"
	KindUCI      Kind = "uci"
	KindEmbedded Kind = "embedded"
)

type Options struct {
	Kind       Kind
	EnginePath string
	Depth      int
	MoveTime   time.Duration
	Timeout    time.Duration
	Seed       int64
}

// New builds the configured strategy. Anything other than the random
// strategy is wrapped in a Fallback that plays a random move when the
// engine fails.
func New(opts Options, logger *zap.Logger) (Strategy, error) {
	random := NewRandom(opts.Seed)
	var primary Strategy
	switch opts.Kind {
	case KindRandom, "":
		return random, nil
	case KindUCI:
		primary = NewUCI(opts.EnginePath, opts.Depth, opts.MoveTime, logger)
	case KindEmbedded:
		primary = NewEmbedded(opts.Depth, opts.MoveTime)
	default:
		return nil, fmt.Errorf("unknown opponent kind %q", opts.Kind)
	}
	return NewFallback(primary, random, opts.Timeout, logger), nil
}
