// Package deliver holds values back until a view is ready for them.
//
// A Gate sits between a producer and the view. While the gate is closed,
// values pile up according to its Policy; once it opens they are delivered in
// order. ToView opens the gate exactly while the presenter has a view attached
// and the attach hook has completed.
package deliver

import (
	"context"
	"fmt"
	"sync"

	"github.com/five82/anchor/internal/presenter"
)

// Policy selects which held-back values reach the view.
type Policy int

const (
	// All delivers every value, queueing whatever arrives while not ready.
	All Policy = iota
	// Latest delivers only the most recent value; superseded ones are dropped.
	Latest
	// LatestCache behaves like Latest and also redelivers the last delivered
	// value every time the gate opens again, so a re-shown view can redraw.
	// The stream is never reported as completed.
	LatestCache
)

func (p Policy) String() string {
	switch p {
	case All:
		return "all"
	case Latest:
		return "latest"
	case LatestCache:
		return "latest-cache"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a flag value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "all":
		return All, nil
	case "latest":
		return Latest, nil
	case "latest-cache", "cache":
		return LatestCache, nil
	}
	return All, fmt.Errorf("unknown delivery policy %q (want all, latest or latest-cache)", s)
}

// Sink receives what passes the gate. Nil callbacks are skipped.
type Sink[T any] struct {
	Next     func(v T)
	Complete func()
	Error    func(err error)
}

// Gate buffers values until it is ready. It is safe for concurrent use; the
// sink is never called with the gate's lock held and never concurrently with
// itself.
type Gate[T any] struct {
	policy Policy
	sink   Sink[T]

	mu       sync.Mutex
	pending  []T
	open     bool
	closed   bool
	done     bool
	cached   T
	hasCache bool

	deliverComplete bool
	deliverErr      bool
	err             error

	draining    bool
	retick      bool
	retickCache bool

	onClose func()
}

// NewGate returns a closed gate.
func NewGate[T any](policy Policy, sink Sink[T]) *Gate[T] {
	return &Gate[T]{policy: policy, sink: sink}
}

// Push offers v to the view.
func (g *Gate[T]) Push(v T) {
	g.mu.Lock()
	if g.closed || g.done || g.deliverComplete || g.deliverErr {
		g.mu.Unlock()
		return
	}
	if g.policy != All {
		clear(g.pending)
		g.pending = g.pending[:0]
	}
	g.pending = append(g.pending, v)
	g.mu.Unlock()
	g.tick(false)
}

// Complete ends the stream. Queued values are delivered first. Under
// LatestCache completion is swallowed.
func (g *Gate[T]) Complete() {
	g.mu.Lock()
	if g.policy == LatestCache || g.closed {
		g.mu.Unlock()
		return
	}
	g.deliverComplete = true
	g.mu.Unlock()
	g.tick(false)
}

// Fail ends the stream with err once the queued values are delivered.
func (g *Gate[T]) Fail(err error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.err = err
	g.deliverErr = true
	g.mu.Unlock()
	g.tick(false)
}

// SetReady opens or closes the gate. Repeating the current value is a no-op.
// Opening under LatestCache redelivers the cached value unless newer values
// are waiting.
func (g *Gate[T]) SetReady(ready bool) {
	g.mu.Lock()
	if g.open == ready {
		g.mu.Unlock()
		return
	}
	g.open = ready
	g.mu.Unlock()
	g.tick(g.policy == LatestCache)
}

// Ready reports whether the gate is open.
func (g *Gate[T]) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Pending reports how many values wait for the gate to open.
func (g *Gate[T]) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Close stops all delivery and releases the readiness source.
func (g *Gate[T]) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.pending = nil
	onClose := g.onClose
	g.onClose = nil
	g.mu.Unlock()
	if onClose != nil {
		onClose()
	}
}

func (g *Gate[T]) tick(deliverCache bool) {
	g.mu.Lock()
	if g.draining {
		// the running drain picks this up
		g.retick = true
		g.retickCache = g.retickCache || deliverCache
		g.mu.Unlock()
		return
	}
	g.draining = true
	defer func() {
		g.draining = false
		g.mu.Unlock()
	}()

	for {
		if g.closed || !g.open || g.done {
			g.retick, g.retickCache = false, false
			return
		}
		if len(g.pending) > 0 {
			v := g.pending[0]
			var zero T
			g.pending[0] = zero
			g.pending = g.pending[1:]
			deliverCache = false
			if g.policy == LatestCache {
				g.cached, g.hasCache = v, true
			}
			g.call(func() { g.next(v) })
			continue
		}
		if deliverCache && g.hasCache {
			deliverCache = false
			v := g.cached
			g.call(func() { g.next(v) })
			continue
		}
		if g.deliverComplete {
			g.done = true
			g.call(g.complete)
			return
		}
		if g.deliverErr {
			g.done = true
			err := g.err
			g.call(func() { g.fail(err) })
			return
		}
		if g.retick {
			deliverCache = g.retickCache
			g.retick, g.retickCache = false, false
			continue
		}
		return
	}
}

// call runs fn without the lock. Must be called with mu held.
func (g *Gate[T]) call(fn func()) {
	g.mu.Unlock()
	defer g.mu.Lock()
	fn()
}

func (g *Gate[T]) next(v T) {
	if g.sink.Next != nil {
		g.sink.Next(v)
	}
}

func (g *Gate[T]) complete() {
	if g.sink.Complete != nil {
		g.sink.Complete()
	}
}

func (g *Gate[T]) fail(err error) {
	if g.sink.Error != nil {
		g.sink.Error(err)
	}
}

// ToView returns a gate that is open exactly while p has a view attached and
// its attach hook returned. Close the gate to stop observing p.
func ToView[T any](p presenter.Presenter, policy Policy, sink Sink[T]) (*Gate[T], error) {
	g := NewGate(policy, sink)
	removable, err := p.AddLifecycleObserver(presenter.ObserverFunc(func(state presenter.State, hookCalled bool) {
		g.SetReady(state == presenter.ViewAttachedAndAwake && hookCalled)
	}))
	if err != nil {
		return nil, fmt.Errorf("deliver to view: %w", err)
	}
	g.mu.Lock()
	g.onClose = removable.Remove
	g.mu.Unlock()

	g.SetReady(p.State() == presenter.ViewAttachedAndAwake)
	return g, nil
}

// Consume pushes every value from in into g until in is closed, which
// completes g, or ctx is done.
func Consume[T any](ctx context.Context, in <-chan T, g *Gate[T]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-in:
			if !ok {
				g.Complete()
				return nil
			}
			g.Push(v)
		}
	}
}
