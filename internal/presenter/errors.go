package presenter

import (
	"errors"
	"fmt"
)

// Programmer errors. None of them are retryable; they report lifecycle misuse.
var (
	ErrIllegalState   = errors.New("illegal presenter state")
	ErrDestroyed      = errors.New("presenter is destroyed")
	ErrSuperNotCalled = errors.New("lifecycle hook did not call through to super")
	ErrNilView        = errors.New("view must not be nil")
	ErrNoExecutor     = errors.New("no ui executor bound")
)

// StateError describes a rejected transition.
type StateError struct {
	Presenter string
	From      State
	To        State
	Reason    string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("presenter %s: can't move from %s to %s: %s", e.Presenter, e.From, e.To, e.Reason)
}

// Is matches ErrIllegalState, and ErrDestroyed when the presenter was already
// destroyed.
func (e *StateError) Is(target error) bool {
	switch target {
	case ErrIllegalState:
		return true
	case ErrDestroyed:
		return e.From == Destroyed
	}
	return false
}
