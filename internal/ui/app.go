package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/anchor/internal/bundle"
	"github.com/five82/anchor/internal/config"
	"github.com/five82/anchor/internal/delegate"
	"github.com/five82/anchor/internal/deliver"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/distinct"
	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
	"github.com/five82/anchor/internal/savior"
	"github.com/five82/anchor/internal/statestore"
)

const defaultScreenName = "counter"

// Options configures the UI.
type Options struct {
	Context    context.Context
	Config     *config.Config
	ConfigPath string // empty uses config.DefaultPath()
	Savior     *savior.Scoped
	Store      *statestore.Store // optional; without it process death loses the saved state
	Logger     logging.Sink
	Events     *logging.Recorder // optional; shown in the events pane
	Feed       Feed
	Policy     deliver.Policy
	ScreenName string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	cfg        *config.Config
	configPath string
	savior     *savior.Scoped
	store      *statestore.Store
	log        logging.Sink
	events     *logging.Recorder
	feed       Feed
	policy     deliver.Policy
	exec       dispatch.Executor
	name       string

	// UI state
	keys     keyMap
	theme    Theme
	width    int
	height   int
	showHelp bool
	notice   string

	// Screen state
	screen         *Screen
	instances      int
	retainDisabled bool
	stopped        bool

	err error
}

// New creates the model and opens the first screen, restoring the state a
// previous run left in the store. exec must run work inside Update; pass a
// dispatch.ProgramExecutor bound to the program running the model.
func New(opts Options, exec dispatch.Executor) (Model, error) {
	if exec == nil {
		return Model{}, errors.New("ui: executor is required")
	}
	cfg := opts.Config
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	sv := opts.Savior
	if sv == nil {
		sv = savior.NewScoped(savior.WithLogger(opts.Logger))
	}
	name := opts.ScreenName
	if name == "" {
		name = defaultScreenName
	}

	m := Model{
		cfg:        cfg,
		configPath: configPath,
		savior:     sv,
		store:      opts.Store,
		log:        logging.OrDiscard(opts.Logger),
		events:     opts.Events,
		feed:       opts.Feed,
		policy:     opts.Policy,
		exec:       exec,
		name:       name,
		keys:       DefaultKeyMap(),
		theme:      GetTheme(cfg.Theme),
	}

	saved, err := m.loadState()
	if err != nil {
		return Model{}, err
	}
	if err := m.open(saved, nil); err != nil {
		return Model{}, err
	}
	if saved != nil {
		m.notice = "restored saved state of a previous run"
	}
	return m, nil
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.EnterAltScreen
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dispatch.RunMsg:
		msg.Run()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes help
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		if err := m.quit(); err != nil {
			m.err = err
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
	case key.Matches(msg, m.keys.Recreate):
		err = m.recreate()
	case key.Matches(msg, m.keys.Finish):
		err = m.finish()
	case key.Matches(msg, m.keys.ProcessDeath):
		err = m.processDeath()
	case key.Matches(msg, m.keys.Background):
		err = m.toggleStopped()
	case key.Matches(msg, m.keys.ToggleRetain):
		m.retainDisabled = !m.retainDisabled
		m.screen.retainDisabled = m.retainDisabled
		m.notice = fmt.Sprintf("don't keep screens: %t", m.retainDisabled)
	}
	if err != nil {
		// lifecycle errors are programming errors
		m.err = err
		return m, tea.Quit
	}
	return m, nil
}

// Err returns the error that ended the program, if any.
func (m Model) Err() error { return m.err }

// open creates a screen instance and drives it to started.
func (m *Model) open(saved bundle.Bundle, retained presenter.Presenter) error {
	m.instances++
	s := &Screen{
		name:           m.name,
		instance:       m.instances,
		exec:           m.exec,
		retainDisabled: m.retainDisabled,
	}
	s.restoreState(saved)

	var retainer delegate.Retainer
	if retained != nil {
		retainer = delegate.RetainerFunc(func() presenter.Presenter { return retained })
	}
	var callLog logging.Sink
	if m.cfg.LogViewCalls {
		callLog = m.log
	}
	d, err := delegate.New(delegate.Options[CounterView]{
		Container: s,
		Retainer:  retainer,
		Savior:    m.savior,
		NewPresenter: func() presenter.ViewPresenter[CounterView] {
			return newCounterPresenter(m.feed, m.policy, m.cfg.Presenter, m.log)
		},
		View:        func() CounterView { return s },
		Executor:    m.exec,
		Wrappers:    counterWrappers,
		Comparator:  distinct.HashComparator{},
		Logger:      m.log,
		ViewCallLog: callLog,
		Name:        "CounterScreen",
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", s, err)
	}
	s.delegate = d

	if err := d.OnCreate(saved); err != nil {
		return fmt.Errorf("create %s: %w", s, err)
	}
	m.screen = s
	if m.stopped {
		return nil
	}
	if err := d.OnStart(); err != nil {
		return fmt.Errorf("start %s: %w", s, err)
	}
	return nil
}

// stop moves the current screen to stopped unless it already is.
func (m *Model) stop() error {
	if m.screen.delegate.State() != delegate.StateStarted {
		return nil
	}
	return m.screen.delegate.OnStop()
}

// saveInstanceState collects the delegate's keys and the screen's own.
func (m *Model) saveInstanceState() (bundle.Bundle, error) {
	out := bundle.Bundle{}
	if err := m.screen.delegate.OnSaveInstanceState(out); err != nil {
		return nil, err
	}
	m.screen.saveState(out)
	return out, nil
}

// recreate tears the screen down the way a configuration change does and
// hands the presenter to the next instance.
func (m *Model) recreate() error {
	old := m.screen
	old.changing = true
	old.delegate.OnConfigurationChanged()
	if err := m.stop(); err != nil {
		return err
	}
	saved, err := m.saveInstanceState()
	if err != nil {
		return err
	}
	var retained presenter.Presenter
	if !old.retainDisabled {
		retained = old.delegate.RetainPresenter()
	}
	if err := old.delegate.OnDestroy(); err != nil {
		return err
	}
	if err := m.open(saved, retained); err != nil {
		return err
	}
	m.notice = fmt.Sprintf("recreated %s as %s", old, m.screen)
	return nil
}

// finish closes the screen for good and opens a fresh one.
func (m *Model) finish() error {
	old := m.screen
	if err := m.close(); err != nil {
		return err
	}
	if err := m.open(nil, nil); err != nil {
		return err
	}
	m.notice = fmt.Sprintf("finished %s, opened %s", old, m.screen)
	return nil
}

// processDeath saves the screen state to the store and drops everything held
// in memory, then starts over from the stored state.
func (m *Model) processDeath() error {
	old := m.screen
	if err := m.stop(); err != nil {
		return err
	}
	saved, err := m.saveInstanceState()
	if err != nil {
		return err
	}
	if err := m.storeState(saved); err != nil {
		return err
	}

	// a dead process runs no destroy callbacks; only the feed is released so
	// the demo does not leak its goroutine
	m.savior.Clear()
	if p := old.counter(); p != nil {
		if err := p.Destroy(); err != nil {
			return err
		}
	}

	restored, err := m.loadState()
	if err != nil {
		return err
	}
	if err := m.open(restored, nil); err != nil {
		return err
	}
	m.notice = fmt.Sprintf("%s died, restored %s from saved state", old, m.screen)
	return nil
}

func (m *Model) toggleStopped() error {
	d := m.screen.delegate
	if m.stopped {
		if err := d.OnStart(); err != nil {
			return err
		}
		m.stopped = false
		m.notice = fmt.Sprintf("%s started", m.screen)
		return nil
	}
	if err := m.stop(); err != nil {
		return err
	}
	m.stopped = true
	m.notice = fmt.Sprintf("%s stopped, values wait in the gate", m.screen)
	return nil
}

// close finishes the current screen and forgets its stored state.
func (m *Model) close() error {
	s := m.screen
	if s.delegate.State() == delegate.StateDestroyed {
		return nil
	}
	s.finishing = true
	if err := m.stop(); err != nil {
		return err
	}
	if err := s.delegate.OnDestroy(); err != nil {
		return err
	}
	m.stopped = false
	if m.store == nil {
		return nil
	}
	return m.store.Delete(m.name)
}

func (m *Model) quit() error {
	return m.close()
}

func (m *Model) cycleTheme() {
	next := NextTheme(m.theme.Name)
	m.theme = GetTheme(next)
	m.cfg.Theme = next
	if err := config.Save(m.configPath, *m.cfg); err != nil {
		logging.Logf(m.log, logging.Warn, "ui", "save theme: %v", err)
	}
}

func (m *Model) loadState() (bundle.Bundle, error) {
	if m.store == nil {
		return nil, nil
	}
	saved, ok, err := m.store.Get(m.name)
	if err != nil {
		return nil, fmt.Errorf("load saved state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return saved, nil
}

func (m *Model) storeState(saved bundle.Bundle) error {
	if m.store == nil {
		return nil
	}
	if err := m.store.Put(m.name, saved); err != nil {
		return fmt.Errorf("store saved state: %w", err)
	}
	return nil
}

// programRelay lets the executor exist before the program it sends to.
type programRelay struct {
	ready   chan struct{}
	program *tea.Program
}

func (r *programRelay) bind(p *tea.Program) {
	r.program = p
	close(r.ready)
}

// Send implements dispatch.Sender. It blocks until the program is bound.
func (r *programRelay) Send(msg tea.Msg) {
	<-r.ready
	r.program.Send(msg)
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	relay := &programRelay{ready: make(chan struct{})}
	m, err := New(opts, dispatch.NewProgramExecutor(relay))
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithContext(ctx))
	relay.bind(p)
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if fm, ok := final.(Model); ok {
		if fm.err != nil {
			return fm.err
		}
		if ctx.Err() != nil {
			// interrupted rather than quit: close the screen for good
			return fm.quit()
		}
	}
	return nil
}
