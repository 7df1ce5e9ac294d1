package savior

import (
	"fmt"
	"sync"

	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
)

const globalTag = "Savior"

// Global is a process-wide store. Any non-nil host is accepted and ignored;
// every presenter lives in one scope. A nil host is an *IllegalHostError,
// as with Scoped. Saving the same presenter twice yields two independent ids.
type Global struct {
	log     logging.Sink
	metrics *Metrics

	mu         sync.Mutex
	presenters map[string]presenter.Presenter
}

// GlobalOption customises a Global savior.
type GlobalOption func(*Global)

// WithGlobalLogger sets the diagnostic sink.
func WithGlobalLogger(sink logging.Sink) GlobalOption {
	return func(g *Global) { g.log = logging.OrDiscard(sink) }
}

// WithGlobalMetrics reports store sizes to m.
func WithGlobalMetrics(m *Metrics) GlobalOption {
	return func(g *Global) { g.metrics = m }
}

// NewGlobal returns an empty store. The composition root owns it; there is no
// package-level instance.
func NewGlobal(opts ...GlobalOption) *Global {
	g := &Global{log: logging.Discard, presenters: make(map[string]presenter.Presenter)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Save implements Savior.
func (g *Global) Save(p presenter.Presenter, host any) (string, error) {
	if host == nil {
		return "", illegalHost(host)
	}
	if p == nil {
		return "", fmt.Errorf("savior: save nil presenter")
	}
	id := newID(p)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.presenters[id] = p
	g.metrics.setPresenters(len(g.presenters))
	logging.Logf(g.log, logging.Verbose, globalTag, "save presenter with id %s %v", id, p)
	return id, nil
}

// Recover implements Savior.
func (g *Global) Recover(id string, host any) (presenter.Presenter, error) {
	if host == nil {
		return nil, illegalHost(host)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.presenters[id]
	g.metrics.recovered(ok)
	if !ok {
		return nil, nil
	}
	return p, nil
}

// Free implements Savior.
func (g *Global) Free(id string, host any) error {
	if host == nil {
		return illegalHost(host)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.presenters[id]; !ok {
		return nil
	}
	delete(g.presenters, id)
	g.metrics.setPresenters(len(g.presenters))
	logging.Logf(g.log, logging.Verbose, globalTag, "free presenter with id %s", id)
	return nil
}

// Len reports how many presenters are stored.
func (g *Global) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.presenters)
}

// Clear drops every entry, as a process restart would.
func (g *Global) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.presenters)
	g.metrics.setPresenters(0)
}
