// Package dispatch moves work onto the UI goroutine.
//
// Every presenter talks to its view through an Executor. Hosts with their own
// event loop (Bubble Tea) use ProgramExecutor; everything else can run a
// Looper, a single goroutine draining a FIFO of closures.
package dispatch

import (
	"context"
	"errors"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrClosed is returned by Post once the looper stopped accepting work.
var ErrClosed = errors.New("dispatch: looper closed")

// Executor runs fn on the UI goroutine, now or later.
type Executor interface {
	Execute(fn func())
}

// Func adapts a function to Executor.
type Func func(fn func())

// Execute implements Executor.
func (f Func) Execute(fn func()) { f(fn) }

// Immediate runs work on the calling goroutine. Useful in tests and for hosts
// that already call everything from their UI goroutine.
type Immediate struct{}

// Execute implements Executor.
func (Immediate) Execute(fn func()) {
	if fn != nil {
		fn()
	}
}

// Looper runs posted closures one at a time, in order, on its own goroutine.
type Looper struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	idle    bool
	done    chan struct{}
}

// NewLooper starts a looper. Call Close to stop it.
func NewLooper() *Looper {
	l := &Looper{done: make(chan struct{}), idle: true}
	l.cond = sync.NewCond(&l.mu)
	go l.loop()
	return l
}

// Post appends fn to the queue.
func (l *Looper) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.pending = append(l.pending, fn)
	l.cond.Broadcast()
	return nil
}

// Execute implements Executor. Work posted after Close is dropped.
func (l *Looper) Execute(fn func()) { _ = l.Post(fn) }

// Drain blocks until the queue is empty and nothing is running, or ctx is
// done. Closures posted by running closures are waited for too.
func (l *Looper) Drain(ctx context.Context) error {
	idle := make(chan struct{})
	go func() {
		l.mu.Lock()
		for !(l.idle && len(l.pending) == 0) && !l.stopped() {
			l.cond.Wait()
		}
		l.mu.Unlock()
		close(idle)
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		// the waiter exits once the looper goes idle or closes
		return ctx.Err()
	}
}

// Close stops accepting work, runs what is already queued and waits for the
// loop to exit.
func (l *Looper) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		l.cond.Broadcast()
	}
	l.mu.Unlock()
	<-l.done
}

// stopped must be called with mu held.
func (l *Looper) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Looper) loop() {
	defer func() {
		l.mu.Lock()
		close(l.done)
		l.cond.Broadcast()
		l.mu.Unlock()
	}()
	for {
		l.mu.Lock()
		for len(l.pending) == 0 && !l.closed {
			l.idle = true
			l.cond.Broadcast()
			l.cond.Wait()
		}
		if len(l.pending) == 0 && l.closed {
			l.idle = true
			l.mu.Unlock()
			return
		}
		fn := l.pending[0]
		l.pending[0] = nil
		l.pending = l.pending[1:]
		l.idle = false
		l.mu.Unlock()

		fn()
	}
}

// RunMsg carries a closure through a Bubble Tea program. The model's Update
// must call Run when it receives one.
type RunMsg struct {
	fn func()
}

// Run executes the carried closure.
func (m RunMsg) Run() {
	if m.fn != nil {
		m.fn()
	}
}

// Sender is the part of *tea.Program the executor needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramExecutor posts work to a Bubble Tea program. Closures collect in a
// mailbox and the first one after the mailbox ran empty wakes the program
// with a RunMsg that drains it, so work runs inside Update in posting order.
// Execute never blocks on the program, which makes it safe to call from
// Update itself.
type ProgramExecutor struct {
	program Sender

	mu      sync.Mutex
	mailbox []func()
}

// NewProgramExecutor wraps program. *tea.Program satisfies Sender.
func NewProgramExecutor(program Sender) *ProgramExecutor {
	return &ProgramExecutor{program: program}
}

// Execute implements Executor.
func (e *ProgramExecutor) Execute(fn func()) {
	if fn == nil || e.program == nil {
		return
	}
	e.mu.Lock()
	wake := len(e.mailbox) == 0
	e.mailbox = append(e.mailbox, fn)
	e.mu.Unlock()
	if wake {
		go e.program.Send(RunMsg{fn: func() { e.Drain() }})
	}
}

// Drain runs the closures waiting in the mailbox and returns how many ran.
// Work posted while draining waits for the next wake.
func (e *ProgramExecutor) Drain() int {
	e.mu.Lock()
	batch := e.mailbox
	e.mailbox = nil
	e.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Pending reports how many closures wait in the mailbox.
func (e *ProgramExecutor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.mailbox)
}

// Cmd returns a tea.Cmd delivering fn as a RunMsg, for callers already inside
// Update.
func Cmd(fn func()) tea.Cmd {
	return func() tea.Msg { return RunMsg{fn: fn} }
}

// Caller forwards void view calls through an executor. The wrappers generated
// per view interface embed it.
type Caller struct {
	Executor Executor
}

// Call runs fn on the executor, or inline when none is set.
func (c Caller) Call(fn func()) {
	if c.Executor == nil {
		fn()
		return
	}
	c.Executor.Execute(fn)
}
