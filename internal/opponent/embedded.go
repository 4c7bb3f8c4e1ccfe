package opponent

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"github.com/razzie/blunder/engine"
)

var initEngineTables sync.Once

// Embedded runs the blunder search in-process. Searches are bounded by depth
// and move time; a cancelled context abandons the result but the search
// itself runs to its own limit.
type Embedded struct {
	mu     sync.Mutex
	search engine.Search
}

func NewEmbedded(depth int, moveTime time.Duration) *Embedded {
	initEngineTables.Do(func() {
		engine.InitBitboards()
		engine.InitTables()
		engine.InitZobrist()
		engine.InitEvalBitboards()
		engine.InitSearchTables()
	})

	if depth <= 0 || depth > math.MaxUint8 {
		depth = math.MaxUint8
	}
	searchTime := int64(engine.NoValue)
	if moveTime > 0 {
		searchTime = moveTime.Milliseconds()
	}
	e := &Embedded{}
	e.search.TT.Resize(engine.DefaultTTSize, engine.SearchEntrySize)
	timeLeft, increment, movesToGo, maxNodeCount := engine.InfiniteTime, engine.NoValue, int16(engine.NoValue), uint64(math.MaxUint64)
	e.search.Timer.Setup(
		timeLeft,
		increment,
		searchTime,
		movesToGo,
		uint8(depth),
		maxNodeCount,
	)
	return e
}

func (e *Embedded) Name() string {
	return string(KindEmbedded)
}

func (e *Embedded) BestMove(ctx context.Context, state model.GameState) (model.Move, error) {
	if state.Outcome.Over() {
		return model.Move{}, ErrNoLegalMoves
	}
	fen := model.EncodeFEN(state.Board, state.ToMove, state.FullMove)

	results := make(chan searchResult, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.search.Setup(fen)
		results <- searchResult{move: e.search.Search().String()}
	}()

	select {
	case <-ctx.Done():
		return model.Move{}, ctx.Err()
	case res := <-results:
		return model.ParseUCIMove(res.move)
	}
}
