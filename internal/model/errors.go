package model

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrGameOver        = errors.New("game is over")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidNotation = errors.New("invalid notation")
)

// MoveError describes a rejected move. It unwraps to ErrIllegalMove or
// ErrGameOver.
type MoveError struct {
	Move   Move
	Reason string
	Err    error
}

func (e *MoveError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Err, e.Move.UCI(), e.Reason)
	}
	return fmt.Sprintf("%s %s", e.Err, e.Move.UCI())
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

func illegal(m Move, reason string) error {
	return &MoveError{Move: m, Reason: reason, Err: ErrIllegalMove}
}
