package opponent

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
)

// Random plays a uniformly chosen legal move.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom seeds the generator with seed, or with the clock when seed is 0.
func NewRandom(seed int64) *Random {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Name() string {
	return string(KindRandom)
}

func (r *Random) BestMove(ctx context.Context, state model.GameState) (model.Move, error) {
	if err := ctx.Err(); err != nil {
		return model.Move{}, err
	}
	if state.Outcome.Over() {
		return model.Move{}, ErrNoLegalMoves
	}
	moves := state.Board.LegalMoves(state.ToMove)
	if len(moves) == 0 {
		return model.Move{}, ErrNoLegalMoves
	}

	r.mu.Lock()
	i := r.rng.Intn(len(moves))
	r.mu.Unlock()
	return moves[i], nil
}
