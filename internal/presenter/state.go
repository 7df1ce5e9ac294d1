package presenter

import "fmt"

// State is the lifecycle state of a presenter.
type State int

const (
	// Initialized is the state before Create.
	Initialized State = iota
	// CreatedWithDetachedView means the presenter is live without a view. It
	// either gets a view (ViewAttachedAndAwake) or is destroyed.
	CreatedWithDetachedView
	// ViewAttachedAndAwake means a view is bound. The next state is always
	// CreatedWithDetachedView.
	ViewAttachedAndAwake
	// Destroyed is terminal.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "INITIALIZED"
	case CreatedWithDetachedView:
		return "CREATED_WITH_DETACHED_VIEW"
	case ViewAttachedAndAwake:
		return "VIEW_ATTACHED_AND_AWAKE"
	case Destroyed:
		return "DESTROYED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// CanMoveTo reports whether next is a legal successor of s. Staying in the
// same state is not a transition and is rejected here.
func (s State) CanMoveTo(next State) bool {
	switch s {
	case Initialized:
		return next == CreatedWithDetachedView
	case CreatedWithDetachedView:
		return next == ViewAttachedAndAwake || next == Destroyed
	case ViewAttachedAndAwake:
		return next == CreatedWithDetachedView
	default:
		return false
	}
}

func transitionRule(s State) string {
	switch s {
	case Initialized:
		return "the next state after INITIALIZED has to be CREATED_WITH_DETACHED_VIEW"
	case CreatedWithDetachedView:
		return "the allowed states after CREATED_WITH_DETACHED_VIEW are VIEW_ATTACHED_AND_AWAKE or DESTROYED"
	case ViewAttachedAndAwake:
		return "the next state after VIEW_ATTACHED_AND_AWAKE has to be CREATED_WITH_DETACHED_VIEW"
	default:
		return "once destroyed the presenter can't be moved to a different state"
	}
}
