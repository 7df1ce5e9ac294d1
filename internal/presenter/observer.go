package presenter

import (
	"sync"
	"sync/atomic"
)

// Observer is notified twice per transition: with hookCalled false right
// before the lifecycle hook runs and with hookCalled true right after it
// returned. Both calls carry the new state.
type Observer interface {
	OnChange(state State, hookCalled bool)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(state State, hookCalled bool)

// OnChange implements Observer.
func (f ObserverFunc) OnChange(state State, hookCalled bool) { f(state, hookCalled) }

// Removable undoes a registration.
type Removable interface {
	Remove()
	Removed() bool
}

// OnceRemovable runs fn on the first Remove only.
func OnceRemovable(fn func()) Removable {
	return &onceRemovable{fn: fn}
}

type onceRemovable struct {
	once    sync.Once
	removed atomic.Bool
	fn      func()
}

func (r *onceRemovable) Remove() {
	r.once.Do(func() {
		r.removed.Store(true)
		if r.fn != nil {
			r.fn()
		}
	})
}

func (r *onceRemovable) Removed() bool { return r.removed.Load() }

type observerEntry struct {
	observer Observer
	removed  atomic.Bool
}
