package ui

import (
	"fmt"
	"strconv"

	"github.com/five82/anchor/internal/bundle"
	"github.com/five82/anchor/internal/delegate"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/savior"
)

const keyShownCount = "counter_shown"

// Screen is one instance of the counter screen. It is the container the
// delegate follows, the savior host, and the view the presenter drives. All
// fields are touched from the program goroutine only.
type Screen struct {
	name     string
	instance int
	exec     dispatch.Executor
	delegate *delegate.Delegate[CounterView]

	finishing      bool
	changing       bool
	retainDisabled bool

	shown    int
	hasShown bool
	updates  int
}

var (
	_ delegate.Container = (*Screen)(nil)
	_ savior.Host        = (*Screen)(nil)
	_ CounterView        = (*Screen)(nil)
)

// Finishing implements delegate.Container and savior.Host.
func (s *Screen) Finishing() bool { return s.finishing }

// ChangingConfigurations implements delegate.Container.
func (s *Screen) ChangingConfigurations() bool { return s.changing }

// RetainDisabled implements delegate.Container.
func (s *Screen) RetainDisabled() bool { return s.retainDisabled }

// Post implements delegate.Container.
func (s *Screen) Post(fn func()) { s.exec.Execute(fn) }

// ShowCount implements CounterView.
func (s *Screen) ShowCount(n int) {
	s.shown = n
	s.hasShown = true
	s.updates++
}

func (s *Screen) String() string { return fmt.Sprintf("%s#%d", s.name, s.instance) }

// saveState writes what the screen itself shows, next to the delegate's keys.
func (s *Screen) saveState(out bundle.Bundle) {
	if s.hasShown {
		out[keyShownCount] = strconv.Itoa(s.shown)
	}
}

// restoreState shows the saved count until the presenter delivers a new one.
func (s *Screen) restoreState(saved bundle.Bundle) {
	v, ok := saved.Get(keyShownCount)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		s.shown = n
		s.hasShown = true
	}
}

// counter returns the screen's presenter, nil before OnCreate.
func (s *Screen) counter() *counterPresenter {
	if s.delegate == nil {
		return nil
	}
	p, _ := s.delegate.Presenter().(*counterPresenter)
	return p
}
