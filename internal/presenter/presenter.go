package presenter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/pending"
)

// Executor runs work on the UI goroutine.
type Executor interface {
	Execute(fn func())
}

// Presenter is the view-independent surface of every presenter. The savior and
// the delegate work against it.
type Presenter interface {
	Create() error
	DetachView() error
	Destroy() error
	State() State
	Config() Config
	AddLifecycleObserver(o Observer) (Removable, error)
	SetExecutor(e Executor)
}

// ViewPresenter is a Presenter bound to view type V.
type ViewPresenter[V any] interface {
	Presenter
	AttachView(view V) error
	View() (V, bool)
	SendToView(action func(view V)) error
}

// Hooks are the overridable lifecycle callbacks. A concrete presenter embeds
// *Base[V] and overrides any subset; every override must call the embedded
// method, otherwise the entry point fails with ErrSuperNotCalled.
type Hooks[V any] interface {
	OnCreate()
	OnAttachView(view V)
	OnDetachView()
	OnDestroy()
}

// Option customises a Base.
type Option func(*options)

type options struct {
	config Config
	log    logging.Sink
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger sets the diagnostic sink.
func WithLogger(sink logging.Sink) Option {
	return func(o *options) { o.log = sink }
}

// Base implements the presenter state machine.
//
//	INITIALIZED -> CREATED_WITH_DETACHED_VIEW <-> VIEW_ATTACHED_AND_AWAKE
//	                         |
//	                         v
//	                     DESTROYED
//
// Entry points are meant to be called from the UI goroutine. SendToView may
// be called from any goroutine.
type Base[V any] struct {
	hooks  Hooks[V]
	config Config
	log    logging.Sink
	name   string
	tag    string

	mu        sync.Mutex
	state     State
	view      V
	hasView   bool
	ready     bool
	executor  Executor
	observers []*observerEntry

	// super-call ledger
	called bool
	inHook bool

	actions *pending.Queue[V]
}

// New returns a presenter base dispatching hooks to hooks. Pass the concrete
// presenter that embeds the returned value; nil uses the base hooks.
func New[V any](hooks Hooks[V], opts ...Option) *Base[V] {
	o := options{config: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Base[V]{
		config:  o.config,
		log:     logging.OrDiscard(o.log),
		actions: pending.New[V](),
	}
	if hooks == nil {
		b.hooks = b
	} else {
		b.hooks = hooks
	}
	b.name = typeName(b.hooks)
	b.tag = logging.Tag(b.name+":Presenter", reflect.ValueOf(b).Pointer())
	return b
}

// Create moves the presenter to CREATED_WITH_DETACHED_VIEW and runs OnCreate.
// A second call is a logged no-op.
func (b *Base[V]) Create() error {
	switch st := b.State(); st {
	case Initialized:
	case Destroyed:
		return b.stateError(st, CreatedWithDetachedView, "presenter is destroyed")
	default:
		logging.Logf(b.log, logging.Warn, b.tag, "not calling OnCreate(), it was already called")
		return nil
	}

	if err := b.moveToState(CreatedWithDetachedView, false); err != nil {
		return err
	}
	if err := b.runHook("OnCreate", b.hooks.OnCreate); err != nil {
		return err
	}
	return b.moveToState(CreatedWithDetachedView, true)
}

// AttachView binds view and runs OnAttachView. The presenter has to be in
// CREATED_WITH_DETACHED_VIEW. Queued view actions are flushed once the hook
// returned.
func (b *Base[V]) AttachView(view V) error {
	if isNil(view) {
		return fmt.Errorf("attach view to %s: %w, call DetachView() instead", b, ErrNilView)
	}
	switch st := b.State(); st {
	case CreatedWithDetachedView:
	case Initialized:
		return b.stateError(st, ViewAttachedAndAwake, "presenter is not created, call Create() first")
	case ViewAttachedAndAwake:
		return b.stateError(st, ViewAttachedAndAwake, "a view is already attached, call DetachView() first")
	default:
		return b.stateError(st, ViewAttachedAndAwake, "presenter is destroyed, binding a view is not allowed")
	}

	b.mu.Lock()
	b.view = view
	b.hasView = true
	b.mu.Unlock()

	if err := b.moveToState(ViewAttachedAndAwake, false); err != nil {
		b.clearView()
		return err
	}
	if err := b.runHook("OnAttachView", func() { b.hooks.OnAttachView(view) }); err != nil {
		return err
	}

	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()

	if err := b.moveToState(ViewAttachedAndAwake, true); err != nil {
		return err
	}
	b.flushActions()
	return nil
}

// DetachView runs OnDetachView and drops the view. Without an attached view it
// is a no-op.
func (b *Base[V]) DetachView() error {
	switch st := b.State(); st {
	case ViewAttachedAndAwake:
	case Destroyed:
		return b.stateError(st, CreatedWithDetachedView, "presenter is destroyed")
	default:
		logging.Logf(b.log, logging.Verbose, b.tag, "not calling OnDetachView(), no view attached")
		return nil
	}

	b.mu.Lock()
	b.ready = false
	b.mu.Unlock()

	if err := b.moveToState(CreatedWithDetachedView, false); err != nil {
		return err
	}
	if err := b.runHook("OnDetachView", b.hooks.OnDetachView); err != nil {
		return err
	}
	b.clearView()
	return b.moveToState(CreatedWithDetachedView, true)
}

// Destroy runs OnDestroy and moves to the terminal state. Destroying twice, or
// destroying a presenter that was never created, is a logged no-op. A view has
// to be detached first.
func (b *Base[V]) Destroy() error {
	switch st := b.State(); st {
	case CreatedWithDetachedView:
	case ViewAttachedAndAwake:
		return b.stateError(st, Destroyed, transitionRule(st))
	default:
		logging.Logf(b.log, logging.Warn, b.tag, "not calling OnDestroy(), destroy was already called or the presenter was never created")
		return nil
	}

	if err := b.moveToState(Destroyed, false); err != nil {
		return err
	}
	if err := b.runHook("OnDestroy", b.hooks.OnDestroy); err != nil {
		return err
	}
	if err := b.moveToState(Destroyed, true); err != nil {
		return err
	}

	// no new states will be posted
	b.mu.Lock()
	for _, entry := range b.observers {
		entry.removed.Store(true)
	}
	b.observers = nil
	b.executor = nil
	b.mu.Unlock()

	if dropped := b.actions.Close(); dropped > 0 {
		logging.Logf(b.log, logging.Debug, b.tag, "dropped %d view actions that never reached a view", dropped)
	}
	return nil
}

// OnCreate is the first hook, called once. No view is attached yet.
func (b *Base[V]) OnCreate() { b.markCalled("OnCreate", "Create") }

// OnAttachView is called when view was attached.
func (b *Base[V]) OnAttachView(V) { b.markCalled("OnAttachView", "AttachView") }

// OnDetachView is called right before the view is dropped.
func (b *Base[V]) OnDetachView() { b.markCalled("OnDetachView", "DetachView") }

// OnDestroy is the last hook. Release everything here; the presenter will
// never be used again.
func (b *Base[V]) OnDestroy() { b.markCalled("OnDestroy", "Destroy") }

// AddLifecycleObserver registers o. The returned Removable unregisters it;
// removing twice is a no-op.
func (b *Base[V]) AddLifecycleObserver(o Observer) (Removable, error) {
	if o == nil {
		return nil, fmt.Errorf("add lifecycle observer to %s: observer is nil: %w", b, ErrIllegalState)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Destroyed {
		return nil, fmt.Errorf("add lifecycle observer to %s: it reached DESTROYED and will not emit new events: %w",
			b.tag, ErrDestroyed)
	}

	entry := &observerEntry{observer: o}
	b.observers = append(b.observers, entry)
	return OnceRemovable(func() {
		entry.removed.Store(true)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.observers {
			if e == entry {
				b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
				break
			}
		}
	}), nil
}

// SendToView runs action against the view once it is attached. Actions run on
// the UI executor in the order they were sent.
func (b *Base[V]) SendToView(action func(view V)) error {
	if action == nil {
		return nil
	}

	b.mu.Lock()
	state, ready, executor := b.state, b.ready, b.executor
	b.mu.Unlock()

	if state == Destroyed {
		return fmt.Errorf("send to view of %s: %w", b.tag, ErrDestroyed)
	}
	if ready && executor == nil {
		return fmt.Errorf("send to view of %s: %w, the view is attached but actions can't reach the ui goroutine",
			b.tag, ErrNoExecutor)
	}
	if err := b.actions.Enqueue(action); err != nil {
		if errors.Is(err, pending.ErrClosed) {
			return fmt.Errorf("send to view of %s: %w", b.tag, ErrDestroyed)
		}
		return err
	}
	if ready {
		executor.Execute(b.flushActions)
	}
	return nil
}

// SetExecutor binds the executor SendToView posts to. The delegate binds it
// while a view is attached.
func (b *Base[V]) SetExecutor(e Executor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.executor = e
}

// QueuedViewActions reports how many view actions wait for a view.
func (b *Base[V]) QueuedViewActions() int {
	return b.actions.Len()
}

// State returns the current lifecycle state.
func (b *Base[V]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Config returns the presenter configuration.
func (b *Base[V]) Config() Config { return b.config }

// View returns the attached view.
func (b *Base[V]) View() (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view, b.hasView
}

// IsViewAttached reports whether the presenter is VIEW_ATTACHED_AND_AWAKE.
func (b *Base[V]) IsViewAttached() bool { return b.State() == ViewAttachedAndAwake }

// IsCreated reports whether the presenter is CREATED_WITH_DETACHED_VIEW.
func (b *Base[V]) IsCreated() bool { return b.State() == CreatedWithDetachedView }

// IsDestroyed reports whether the presenter reached its terminal state.
func (b *Base[V]) IsDestroyed() bool { return b.State() == Destroyed }

func (b *Base[V]) String() string {
	view := "nil"
	if v, ok := b.View(); ok {
		view = fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%s{view = %s}", b.tag, view)
}

func (b *Base[V]) moveToState(next State, hookCalled bool) error {
	b.mu.Lock()
	prev := b.state
	if hookCalled && next != prev {
		b.mu.Unlock()
		return b.stateError(prev, next, "the state has to change before the lifecycle hook runs")
	}
	if next != prev {
		if !prev.CanMoveTo(next) {
			b.mu.Unlock()
			return b.stateError(prev, next, transitionRule(prev))
		}
		b.state = next
	}
	observers := make([]*observerEntry, len(b.observers))
	copy(observers, b.observers)
	b.mu.Unlock()

	for _, entry := range observers {
		if entry.removed.Load() {
			continue
		}
		entry.observer.OnChange(next, hookCalled)
	}
	return nil
}

func (b *Base[V]) runHook(name string, hook func()) error {
	b.called = false
	b.inHook = true
	func() {
		defer func() { b.inHook = false }()
		logging.Logf(b.log, logging.Debug, b.tag, "%s()", name)
		hook()
	}()
	if !b.called {
		return fmt.Errorf("presenter %s did not call through to super.%s(): %w", b.tag, name, ErrSuperNotCalled)
	}
	return nil
}

func (b *Base[V]) markCalled(hook, entry string) {
	if !b.inHook {
		logging.Logf(b.log, logging.Warn, b.tag, "don't call %s() directly, call %s()", hook, entry)
		return
	}
	b.called = true
}

func (b *Base[V]) flushActions() {
	b.actions.Flush(func() (V, bool) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.view, b.ready && b.hasView
	})
}

func (b *Base[V]) clearView() {
	var zero V
	b.mu.Lock()
	b.view = zero
	b.hasView = false
	b.mu.Unlock()
}

func (b *Base[V]) stateError(from, to State, reason string) error {
	return &StateError{Presenter: b.tag, From: from, To: to, Reason: reason}
}

func typeName(v any) string {
	name := fmt.Sprintf("%T", v)
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimLeft(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
