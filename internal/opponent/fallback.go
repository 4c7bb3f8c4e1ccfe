package opponent

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/benbeisheim/chess-backend/internal/model"
	"go.uber.org/zap"
)

// Fallback bounds Primary by a timeout and re-validates its answer. Failure,
// timeout or an illegal proposal all hand the position to Backup.
type Fallback struct {
	Primary Strategy
	Backup  Strategy
	Timeout time.Duration
	logger  *zap.Logger
}

func NewFallback(primary, backup Strategy, timeout time.Duration, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{Primary: primary, Backup: backup, Timeout: timeout, logger: logger}
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Backup.Name()
}

func (f *Fallback) BestMove(ctx context.Context, state model.GameState) (model.Move, error) {
	m, err := f.primary(ctx, state)
	if err == nil {
		return m, nil
	}
	if ctx.Err() != nil {
		return model.Move{}, ctx.Err()
	}
	f.logger.Warn("opponent strategy failed, falling back",
		zap.String("strategy", f.Primary.Name()),
		zap.String("fallback", f.Backup.Name()),
		zap.Error(err),
	)
	return f.Backup.BestMove(ctx, state)
}

func (f *Fallback) primary(ctx context.Context, state model.GameState) (model.Move, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	m, err := f.Primary.BestMove(ctx, state)
	if err != nil {
		return model.Move{}, fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, f.Primary.Name(), err)
	}
	if err := model.ValidateMove(state, m); err != nil {
		return model.Move{}, fmt.Errorf("%w: %s proposed %s: %v", ErrEngineUnavailable, f.Primary.Name(), m, err)
	}
	return m, nil
}

// Close releases the primary strategy's resources, such as an engine process.
func (f *Fallback) Close() error {
	if c, ok := f.Primary.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
