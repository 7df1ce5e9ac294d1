// Package presenter implements the presenter half of Model-View-Presenter: a
// strict lifecycle state machine that outlives the UI container showing it.
//
// # Lifecycle
//
// A presenter moves through four states:
//
//	INITIALIZED -> CREATED_WITH_DETACHED_VIEW -> VIEW_ATTACHED_AND_AWAKE
//	            -> CREATED_WITH_DETACHED_VIEW -> ... -> DESTROYED
//
// The entry points Create, AttachView, DetachView and Destroy perform the
// transitions. Each one runs a hook (OnCreate, OnAttachView, OnDetachView,
// OnDestroy) and notifies lifecycle observers right before and right after the
// hook, both times with the new state.
//
// Redundant calls are logged no-ops: Create twice, Destroy twice, DetachView
// without a view. Everything else that breaks the transition table returns a
// *StateError matching ErrIllegalState (and ErrDestroyed once the presenter is
// gone). These are programmer errors; callers are expected to surface them,
// not retry.
//
// # Writing a presenter
//
// Concrete presenters embed *Base[V] and override hooks. Overrides must call
// the embedded method, which is how Base detects a forgotten "super" call:
//
//	type CounterPresenter struct {
//		*presenter.Base[CounterView]
//	}
//
//	func NewCounterPresenter() *CounterPresenter {
//		p := &CounterPresenter{}
//		p.Base = presenter.New[CounterView](p)
//		return p
//	}
//
//	func (p *CounterPresenter) OnAttachView(v CounterView) {
//		p.Base.OnAttachView(v)
//		v.ShowCount(p.count)
//	}
//
// An override that skips p.Base.OnAttachView makes AttachView return an error
// matching ErrSuperNotCalled.
//
// # View actions
//
// SendToView queues work for the view. Actions wait while no view is attached
// and are replayed in order once AttachView completed. With a view attached
// they are posted to the executor bound through SetExecutor, which the
// delegate keeps pointed at the UI goroutine.
package presenter
