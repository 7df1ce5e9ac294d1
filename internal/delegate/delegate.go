package delegate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"

	"github.com/five82/anchor/internal/binder"
	"github.com/five82/anchor/internal/bundle"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/distinct"
	"github.com/five82/anchor/internal/intercept"
	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
	"github.com/five82/anchor/internal/savior"
)

// Container lifecycle states.
const (
	StateNew       = "new"
	StateCreated   = "created"
	StateStarted   = "started"
	StateStopped   = "stopped"
	StateDestroyed = "destroyed"
)

const (
	eventCreate  = "create"
	eventStart   = "start"
	eventStop    = "stop"
	eventDestroy = "destroy"
)

// Container is the host side of the delegate: one instance of a screen.
type Container interface {
	// Finishing reports whether the container goes away for good.
	Finishing() bool
	// ChangingConfigurations reports whether the container is destroyed only
	// to be recreated right away.
	ChangingConfigurations() bool
	// RetainDisabled reports whether the host can't hand objects to the next
	// container instance (Retainer will always come back empty).
	RetainDisabled() bool
	// Post queues fn behind the work already waiting on the UI goroutine.
	Post(fn func())
}

// Retainer is the cheap in-process channel: the previous container instance
// handed its presenter over directly.
type Retainer interface {
	Retained() presenter.Presenter
}

// RetainerFunc adapts a function to Retainer.
type RetainerFunc func() presenter.Presenter

// Retained implements Retainer.
func (f RetainerFunc) Retained() presenter.Presenter { return f() }

// Options configure a Delegate.
type Options[V any] struct {
	Container Container
	// Retainer is optional.
	Retainer Retainer
	// Host scopes savior entries. Defaults to Container.
	Host any
	// Savior is optional; without one presenters survive only through the
	// Retainer.
	Savior savior.Savior
	// NewPresenter returns a fresh presenter in INITIALIZED state.
	NewPresenter func() presenter.ViewPresenter[V]
	// View provides the container's view whenever the binder needs a new one.
	View func() V
	// Executor runs view work on the UI goroutine.
	Executor dispatch.Executor
	// Wrappers enable the main-thread, distinct and logging interceptors for V.
	Wrappers   intercept.Wrappers[V]
	Comparator distinct.Comparator
	Logger     logging.Sink
	// ViewCallLog receives every view call when Wrappers.Logging is set.
	// Nil disables call logging.
	ViewCallLog logging.Sink
	// OnError receives errors from work the delegate posted to the container,
	// where no caller can take them. Defaults to logging them.
	OnError func(error)
	Name    string
}

// Delegate drives a presenter from container lifecycle events.
type Delegate[V any] struct {
	container Container
	retainer  Retainer
	host      any
	savior    savior.Savior
	factory   func() presenter.ViewPresenter[V]
	provide   func() V
	executor  dispatch.Executor
	wrappers  intercept.Wrappers[V]
	cmp       distinct.Comparator
	log       logging.Sink
	callLog   logging.Sink
	onError   func(error)
	tag       string

	machine *fsm.FSM
	binder  *binder.Binder[V]
	// generation changes on every start and stop; a posted bind only runs
	// for the start that posted it
	generation atomic.Uint64

	mu          sync.Mutex
	presenter   presenter.ViewPresenter[V]
	presenterID string
	autoBinder  presenter.Removable
	installed   []presenter.Removable
}

// New validates opts and returns a delegate in state "new".
func New[V any](opts Options[V]) (*Delegate[V], error) {
	if opts.Container == nil {
		return nil, errors.New("delegate: container is required")
	}
	if opts.NewPresenter == nil {
		return nil, errors.New("delegate: presenter factory is required")
	}
	if opts.View == nil {
		return nil, errors.New("delegate: view provider is required")
	}

	d := &Delegate[V]{
		container: opts.Container,
		retainer:  opts.Retainer,
		host:      opts.Host,
		savior:    opts.Savior,
		factory:   opts.NewPresenter,
		provide:   opts.View,
		executor:  opts.Executor,
		wrappers:  opts.Wrappers,
		cmp:       opts.Comparator,
		log:       logging.OrDiscard(opts.Logger),
		callLog:   opts.ViewCallLog,
		onError:   opts.OnError,
	}
	if d.host == nil {
		d.host = opts.Container
	}
	name := opts.Name
	if name == "" {
		name = "Delegate"
	}
	d.tag = logging.Tag(name, reflect.ValueOf(d).Pointer())
	if d.onError == nil {
		d.onError = func(err error) {
			logging.Logf(d.log, logging.Error, d.tag, "%v", err)
		}
	}
	d.binder = binder.New[V](d.log, d.tag)
	d.machine = fsm.NewFSM(
		StateNew,
		fsm.Events{
			{Name: eventCreate, Src: []string{StateNew}, Dst: StateCreated},
			{Name: eventStart, Src: []string{StateCreated, StateStopped}, Dst: StateStarted},
			{Name: eventStop, Src: []string{StateStarted}, Dst: StateStopped},
			{Name: eventDestroy, Src: []string{StateCreated, StateStopped}, Dst: StateDestroyed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logging.Logf(d.log, logging.Verbose, d.tag, "container %s -> %s", e.Src, e.Dst)
			},
		},
	)
	return d, nil
}

// OnCreate recovers the presenter or creates a new one, installs the view
// interceptors and creates the presenter. saved is the container's saved
// state, nil on a first start.
func (d *Delegate[V]) OnCreate(saved bundle.Bundle) error {
	if err := d.transition(eventCreate); err != nil {
		return err
	}
	if tracker, host, ok := d.tracker(); ok {
		tracker.HostCreated(host, saved)
	}

	p, err := d.recover(saved)
	if err != nil {
		return err
	}
	if p == nil {
		if p, err = d.createPresenter(); err != nil {
			return err
		}
	}

	d.mu.Lock()
	d.presenter = p
	d.mu.Unlock()

	d.installInterceptors(p.Config())

	removable, err := p.AddLifecycleObserver(presenter.ObserverFunc(func(state presenter.State, hookCalled bool) {
		switch {
		case state == presenter.ViewAttachedAndAwake && !hookCalled:
			p.SetExecutor(d.executor)
		case state == presenter.CreatedWithDetachedView && hookCalled:
			p.SetExecutor(nil)
		}
	}))
	if err != nil {
		return fmt.Errorf("delegate %s: bind ui executor: %w", d.tag, err)
	}
	d.mu.Lock()
	d.autoBinder = removable
	d.mu.Unlock()

	return p.Create()
}

// OnStart binds the view. The bind is posted to the container so the host
// finishes its own start first; it is skipped when the container stopped (or
// stopped and started again) in the meantime.
func (d *Delegate[V]) OnStart() error {
	if err := d.transition(eventStart); err != nil {
		return err
	}
	gen := d.generation.Add(1)
	d.container.Post(func() {
		if d.generation.Load() != gen {
			logging.Logf(d.log, logging.Verbose, d.tag, "container stopped before the view was bound")
			return
		}
		p := d.Presenter()
		if p != nil && p.State() == presenter.ViewAttachedAndAwake {
			logging.Logf(d.log, logging.Verbose, d.tag, "view already bound to %v", p)
			return
		}
		if err := d.binder.BindView(p, d.provide); err != nil {
			d.onError(fmt.Errorf("delegate %s: bind view: %w", d.tag, err))
		}
	})
	return nil
}

// OnStop detaches the view synchronously.
func (d *Delegate[V]) OnStop() error {
	if err := d.transition(eventStop); err != nil {
		return err
	}
	d.generation.Add(1)
	p := d.Presenter()
	if p == nil {
		return nil
	}
	return p.DetachView()
}

// OnSaveInstanceState writes the savior id (and the host scope, when the
// savior tracks hosts) into out.
func (d *Delegate[V]) OnSaveInstanceState(out bundle.Bundle) error {
	if out == nil {
		return fmt.Errorf("delegate %s: save state into nil bundle", d.tag)
	}
	if id := d.PresenterID(); id != "" {
		out[bundle.KeyPresenterID] = id
	}
	if tracker, host, ok := d.tracker(); ok {
		tracker.HostSaveState(host, out)
	}
	return nil
}

// OnConfigurationChanged forces the next bind to wrap a fresh view.
func (d *Delegate[V]) OnConfigurationChanged() {
	d.binder.InvalidateView()
}

// OnDestroy destroys the presenter unless it can be handed to the next
// container instance.
func (d *Delegate[V]) OnDestroy() error {
	if err := d.transition(eventDestroy); err != nil {
		return err
	}

	d.mu.Lock()
	p, id := d.presenter, d.presenterID
	autoBinder, installed := d.autoBinder, d.installed
	d.autoBinder, d.installed = nil, nil
	d.mu.Unlock()
	if p == nil {
		return nil
	}

	// the next container instance installs its own
	if autoBinder != nil {
		autoBinder.Remove()
	}
	for _, r := range installed {
		r.Remove()
	}

	var err error
	if reason, destroy := d.shouldDestroy(p.Config()); destroy {
		logging.Logf(d.log, logging.Verbose, d.tag, "%s, destroying %v", reason, p)
		err = p.Destroy()
		if id != "" && d.savior != nil {
			err = errors.Join(err, d.savior.Free(id, d.host))
		}
		d.mu.Lock()
		d.presenterID = ""
		d.mu.Unlock()
	} else {
		logging.Logf(d.log, logging.Verbose, d.tag,
			"not destroying %v which will be reused by the next container instance", p)
	}

	if tracker, host, ok := d.tracker(); ok {
		tracker.HostDestroyed(host)
	}
	return err
}

// RetainPresenter is what the container hands to its next instance, nil when
// the presenter is not meant to be retained.
func (d *Delegate[V]) RetainPresenter() presenter.Presenter {
	p := d.Presenter()
	if p == nil || !p.Config().RetainPresenter {
		return nil
	}
	return p
}

// Presenter returns the bound presenter, nil before OnCreate.
func (d *Delegate[V]) Presenter() presenter.ViewPresenter[V] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presenter
}

// PresenterID returns the savior id, empty when the presenter is not saved.
func (d *Delegate[V]) PresenterID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presenterID
}

// State returns the container lifecycle state.
func (d *Delegate[V]) State() string { return d.machine.Current() }

// AddInterceptor registers a view interceptor.
func (d *Delegate[V]) AddInterceptor(i binder.Interceptor[V]) presenter.Removable {
	return d.binder.AddInterceptor(i)
}

// InterceptedViewOf returns the view produced by i at the last bind.
func (d *Delegate[V]) InterceptedViewOf(i binder.Interceptor[V]) (V, bool) {
	return d.binder.InterceptedViewOf(i)
}

// Interceptors lists the registered interceptors accepted by filter.
func (d *Delegate[V]) Interceptors(filter func(binder.Interceptor[V]) bool) []binder.Interceptor[V] {
	return d.binder.Interceptors(filter)
}

// InvalidateView drops the cached view.
func (d *Delegate[V]) InvalidateView() { d.binder.InvalidateView() }

func (d *Delegate[V]) transition(event string) error {
	from := d.machine.Current()
	if err := d.machine.Event(context.Background(), event); err != nil {
		return fmt.Errorf("delegate %s: container event %q in state %q: %w (%v)",
			d.tag, event, from, presenter.ErrIllegalState, err)
	}
	return nil
}

// recover tries the retain channel first, then the savior.
func (d *Delegate[V]) recover(saved bundle.Bundle) (presenter.ViewPresenter[V], error) {
	var p presenter.ViewPresenter[V]
	if d.retainer != nil {
		if retained := d.retainer.Retained(); retained != nil {
			vp, err := d.asViewPresenter(retained, "retained")
			if err != nil {
				return nil, err
			}
			p = vp
			logging.Logf(d.log, logging.Verbose, d.tag, "recovered %v from the retain channel", p)
		} else {
			logging.Logf(d.log, logging.Verbose, d.tag, "could not recover a presenter from the retain channel")
		}
	}

	oldID, hasID := saved.Get(bundle.KeyPresenterID)
	if p == nil && hasID && d.savior != nil {
		logging.Logf(d.log, logging.Verbose, d.tag, "try to recover presenter with id %s", oldID)
		recovered, err := d.savior.Recover(oldID, d.host)
		if err != nil {
			return nil, fmt.Errorf("delegate %s: recover presenter: %w", d.tag, err)
		}
		if recovered != nil {
			vp, err := d.asViewPresenter(recovered, "recovered")
			if err != nil {
				return nil, err
			}
			p = vp
			logging.Logf(d.log, logging.Verbose, d.tag, "recovered %v from the savior", p)
		}
	}

	if p != nil && p.State() == presenter.Destroyed {
		logging.Logf(d.log, logging.Warn, d.tag, "ignoring recovered presenter %v, it is destroyed", p)
		p = nil
	}
	if p == nil {
		if saved != nil {
			logging.Logf(d.log, logging.Info, d.tag, "could not recover the presenter although the container "+
				"was recreated; this is normal when the presenter is not retained")
		}
		return nil, nil
	}

	// the predecessor must not be able to free the entry the new owner uses
	cfg := p.Config()
	if d.savior != nil && cfg.RetainPresenter && cfg.UseSaviorToRetain {
		if hasID {
			if err := d.savior.Free(oldID, d.host); err != nil {
				return nil, fmt.Errorf("delegate %s: free old presenter id: %w", d.tag, err)
			}
		}
		id, err := d.savior.Save(p, d.host)
		if err != nil {
			return nil, fmt.Errorf("delegate %s: save recovered presenter: %w", d.tag, err)
		}
		d.mu.Lock()
		d.presenterID = id
		d.mu.Unlock()
	}
	return p, nil
}

func (d *Delegate[V]) createPresenter() (presenter.ViewPresenter[V], error) {
	p := d.factory()
	if p == nil {
		return nil, fmt.Errorf("delegate %s: presenter factory returned nil: %w", d.tag, presenter.ErrIllegalState)
	}
	if st := p.State(); st != presenter.Initialized {
		return nil, fmt.Errorf("delegate %s: presenter factory returned %v in state %s, "+
			"it has to return a new presenter in state %s: %w",
			d.tag, p, st, presenter.Initialized, presenter.ErrIllegalState)
	}
	logging.Logf(d.log, logging.Verbose, d.tag, "created presenter %v", p)

	cfg := p.Config()
	if d.savior != nil && cfg.RetainPresenter && cfg.UseSaviorToRetain {
		id, err := d.savior.Save(p, d.host)
		if err != nil {
			return nil, fmt.Errorf("delegate %s: save presenter: %w", d.tag, err)
		}
		d.mu.Lock()
		d.presenterID = id
		d.mu.Unlock()
	}
	return p, nil
}

func (d *Delegate[V]) installInterceptors(cfg presenter.Config) {
	var installed []presenter.Removable
	// innermost, so it sees the calls that actually reach the view
	if d.callLog != nil && d.wrappers.Logging != nil {
		installed = append(installed, d.binder.AddInterceptor(&intercept.Logging[V]{
			Sink: d.callLog,
			Wrap: d.wrappers.Logging,
		}))
	}
	if cfg.CallOnMainThread {
		if d.wrappers.MainThread != nil {
			installed = append(installed, d.binder.AddInterceptor(&intercept.MainThread[V]{
				Executor: d.executor,
				Wrap:     d.wrappers.MainThread,
			}))
		} else {
			logging.Logf(d.log, logging.Debug, d.tag, "view has no main-thread wrapper, calls are not marshalled")
		}
	}
	if cfg.DistinctUntilChanged {
		if d.wrappers.Distinct != nil {
			installed = append(installed, d.binder.AddInterceptor(&intercept.DistinctUntilChanged[V]{
				Comparator: d.cmp,
				Wrap:       d.wrappers.Distinct,
			}))
		} else {
			logging.Logf(d.log, logging.Debug, d.tag, "view has no distinct wrapper, repeated calls go through")
		}
	}
	d.mu.Lock()
	d.installed = installed
	d.mu.Unlock()
}

// shouldDestroy applies the teardown rule and names the deciding reason.
func (d *Delegate[V]) shouldDestroy(cfg presenter.Config) (string, bool) {
	useSavior := cfg.UseSaviorToRetain && d.savior != nil
	switch {
	case d.container.Finishing():
		return "container is finishing", true
	case !cfg.RetainPresenter:
		return "presenter is configured as not retained", true
	case !useSavior && !d.container.ChangingConfigurations() && d.container.RetainDisabled():
		return "the savior is not used and the host can't retain objects", true
	}
	return "", false
}

func (d *Delegate[V]) asViewPresenter(p presenter.Presenter, how string) (presenter.ViewPresenter[V], error) {
	vp, ok := p.(presenter.ViewPresenter[V])
	if !ok {
		return nil, fmt.Errorf("delegate %s: %s presenter %T does not bind views of type %v: %w",
			d.tag, how, p, reflect.TypeOf((*V)(nil)).Elem(), presenter.ErrIllegalState)
	}
	return vp, nil
}

func (d *Delegate[V]) tracker() (savior.HostTracker, savior.Host, bool) {
	tracker, ok := d.savior.(savior.HostTracker)
	if !ok {
		return nil, nil, false
	}
	host, ok := d.host.(savior.Host)
	if !ok {
		return nil, nil, false
	}
	return tracker, host, true
}
