// Package binder hands a presenter its view. The view is threaded through the
// registered interceptors once per new view and cached until invalidated, so
// repeated start/stop cycles of the same container reuse the wrapped view.
package binder

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
)

// Interceptor transforms a view before it is bound, typically by wrapping it.
type Interceptor[V any] interface {
	Intercept(view V) V
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc[V any] func(view V) V

// Intercept implements Interceptor.
func (f InterceptorFunc[V]) Intercept(view V) V { return f(view) }

type entry[V any] struct {
	interceptor Interceptor[V]
	output      V
	hasOutput   bool
}

// Binder caches the intercepted view of one container.
type Binder[V any] struct {
	log logging.Sink
	tag string

	mu      sync.Mutex
	entries []*entry[V]
	last    V
	hasLast bool
}

// New returns an empty binder. tag prefixes its diagnostics.
func New[V any](log logging.Sink, tag string) *Binder[V] {
	return &Binder[V]{log: logging.OrDiscard(log), tag: tag}
}

// AddInterceptor appends i to the chain and invalidates the cached view.
// Removing it invalidates the cache again.
func (b *Binder[V]) AddInterceptor(i Interceptor[V]) presenter.Removable {
	e := &entry[V]{interceptor: i}
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.invalidateLocked()
	b.mu.Unlock()

	return presenter.OnceRemovable(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for idx, cur := range b.entries {
			if cur == e {
				b.entries = append(b.entries[:idx:idx], b.entries[idx+1:]...)
				break
			}
		}
		b.invalidateLocked()
	})
}

// BindView attaches the cached view to p. On a cache miss provide is asked
// for a fresh view which then runs through every interceptor in registration
// order.
func (b *Binder[V]) BindView(p presenter.ViewPresenter[V], provide func() V) error {
	if p == nil {
		return fmt.Errorf("bind view: no presenter")
	}

	b.mu.Lock()
	if !b.hasLast {
		if provide == nil {
			b.mu.Unlock()
			return fmt.Errorf("bind view to %v: no view provider", p)
		}
		view := provide()
		for _, e := range b.entries {
			view = e.interceptor.Intercept(view)
			e.output = view
			e.hasOutput = true
		}
		b.last = view
		b.hasLast = true
		logging.Logf(b.log, logging.Verbose, b.tag, "intercepted view through %d interceptors", len(b.entries))
	}
	view := b.last
	b.mu.Unlock()

	logging.Logf(b.log, logging.Verbose, b.tag, "binding view to %v", p)
	return p.AttachView(view)
}

// InvalidateView drops the cached view and every interceptor output. The next
// BindView intercepts a fresh view.
func (b *Binder[V]) InvalidateView() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.invalidateLocked()
}

// InterceptedViewOf returns what i produced during the last interception.
// Interceptors are matched by identity, which needs a comparable dynamic type;
// an InterceptorFunc never matches.
func (b *Binder[V]) InterceptedViewOf(i Interceptor[V]) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.entries {
		if e.hasOutput && same(e.interceptor, i) {
			return e.output, true
		}
	}
	var zero V
	return zero, false
}

// Interceptors returns the registered interceptors accepted by filter, in
// registration order. A nil filter accepts everything.
func (b *Binder[V]) Interceptors(filter func(Interceptor[V]) bool) []Interceptor[V] {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Interceptor[V]
	for _, e := range b.entries {
		if filter == nil || filter(e.interceptor) {
			out = append(out, e.interceptor)
		}
	}
	return out
}

func (b *Binder[V]) invalidateLocked() {
	var zero V
	b.last = zero
	b.hasLast = false
	for _, e := range b.entries {
		e.output = zero
		e.hasOutput = false
	}
}

func same[V any](a, b Interceptor[V]) bool {
	if a == nil || b == nil {
		return false
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
