package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/five82/anchor/internal/deliver"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/distinct"
	"github.com/five82/anchor/internal/intercept"
	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
)

// CounterView is what the counter presenter drives.
type CounterView interface {
	ShowCount(n int)
}

// Feed produces counter values until ctx is done.
type Feed func(ctx context.Context) <-chan int

// counterPresenter shows the latest value of its feed. The feed runs from
// OnCreate to OnDestroy, so a retained presenter keeps counting while its
// screen is recreated.
type counterPresenter struct {
	*presenter.Base[CounterView]

	feed   Feed
	policy deliver.Policy
	log    logging.Sink

	mu       sync.Mutex
	count    int
	received int
	gate     *deliver.Gate[int]
	cancel   context.CancelFunc
}

func newCounterPresenter(feed Feed, policy deliver.Policy, cfg presenter.Config, log logging.Sink) *counterPresenter {
	p := &counterPresenter{feed: feed, policy: policy, log: logging.OrDiscard(log)}
	p.Base = presenter.New[CounterView](p, presenter.WithConfig(cfg), presenter.WithLogger(log))
	return p
}

func (p *counterPresenter) OnCreate() {
	p.Base.OnCreate()

	gate, err := deliver.ToView(p, p.policy, deliver.Sink[int]{
		Next: p.show,
		Error: func(err error) {
			logging.Logf(p.log, logging.Error, "CounterPresenter", "feed failed: %v", err)
		},
	})
	if err != nil {
		logging.Logf(p.log, logging.Error, "CounterPresenter", "%v", err)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())

	p.mu.Lock()
	p.gate, p.cancel = gate, cancel
	p.mu.Unlock()

	if p.feed == nil {
		return
	}
	go func() {
		_ = deliver.Consume(ctx, p.feed(ctx), gate)
	}()
}

func (p *counterPresenter) OnAttachView(view CounterView) {
	p.Base.OnAttachView(view)
	// the gate flushes whatever arrived while detached right after this hook;
	// a presenter that never received a value leaves the restored count alone
	p.mu.Lock()
	count, received := p.count, p.received
	p.mu.Unlock()
	if received > 0 {
		view.ShowCount(count)
	}
}

func (p *counterPresenter) OnDestroy() {
	p.Base.OnDestroy()

	p.mu.Lock()
	gate, cancel := p.gate, p.cancel
	p.gate, p.cancel = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if gate != nil {
		gate.Close()
	}
}

func (p *counterPresenter) show(n int) {
	p.mu.Lock()
	p.count = n
	p.received++
	p.mu.Unlock()

	if err := p.SendToView(func(v CounterView) { v.ShowCount(n) }); err != nil {
		logging.Logf(p.log, logging.Debug, "CounterPresenter", "dropping %d: %v", n, err)
	}
}

// Count is the last value delivered to the presenter.
func (p *counterPresenter) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Received is how many values passed the gate.
func (p *counterPresenter) Received() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.received
}

// Pending is how many values wait in the gate for a view.
func (p *counterPresenter) Pending() int {
	p.mu.Lock()
	gate := p.gate
	p.mu.Unlock()
	if gate == nil {
		return 0
	}
	return gate.Pending()
}

type mainThreadCounter struct {
	next   CounterView
	caller dispatch.Caller
}

func (w mainThreadCounter) ShowCount(n int) {
	w.caller.Call(func() { w.next.ShowCount(n) })
}

func (w mainThreadCounter) String() string { return fmt.Sprint(w.next) }

type distinctCounter struct {
	next   CounterView
	filter *distinct.Filter
}

func (w distinctCounter) ShowCount(n int) {
	w.filter.Call("ShowCount", func() { w.next.ShowCount(n) }, n)
}

func (w distinctCounter) String() string { return fmt.Sprint(w.next) }

type loggingCounter struct {
	next CounterView
	log  logging.Sink
}

func (w loggingCounter) ShowCount(n int) {
	intercept.LogCall(w.log, "ShowCount", n)
	w.next.ShowCount(n)
}

func (w loggingCounter) String() string { return fmt.Sprint(w.next) }

var counterWrappers = intercept.Wrappers[CounterView]{
	MainThread: func(view CounterView, executor dispatch.Executor) CounterView {
		return mainThreadCounter{next: view, caller: dispatch.Caller{Executor: executor}}
	},
	Distinct: func(view CounterView, filter *distinct.Filter) CounterView {
		return distinctCounter{next: view, filter: filter}
	},
	Logging: func(view CounterView, sink logging.Sink) CounterView {
		return loggingCounter{next: view, log: sink}
	},
}
