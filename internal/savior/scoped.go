package savior

import (
	"fmt"
	"reflect"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/google/uuid"

	"github.com/five82/anchor/internal/bundle"
	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
)

const scopedTag = "ScopedSavior"

// Host is a container instance the savior can scope presenters to. Finishing
// reports whether the host is going away for good rather than being
// recreated.
type Host interface {
	Finishing() bool
}

type scope struct {
	id         string
	presenters cmap.ConcurrentMap[string, presenter.Presenter]
}

func newScope(id string) *scope {
	return &scope{id: id, presenters: cmap.New[presenter.Presenter]()}
}

func (s *scope) contains(p presenter.Presenter) (string, bool) {
	for item := range s.presenters.IterBuffered() {
		if item.Val == p {
			return item.Key, true
		}
	}
	return "", false
}

// Scoped stores presenters per host scope. A scope outlives recreations of
// its host: the host writes the scope id into its saved state
// (HostSaveState) and the next instance reclaims it (HostCreated). When a
// host finishes, its whole scope is dropped.
type Scoped struct {
	log     logging.Sink
	metrics *Metrics

	mu     sync.Mutex
	scopes map[string]*scope
	hosts  map[Host]string
}

// ScopedOption customises a Scoped savior.
type ScopedOption func(*Scoped)

// WithLogger sets the diagnostic sink.
func WithLogger(sink logging.Sink) ScopedOption {
	return func(s *Scoped) { s.log = logging.OrDiscard(sink) }
}

// WithMetrics reports store sizes to m.
func WithMetrics(m *Metrics) ScopedOption {
	return func(s *Scoped) { s.metrics = m }
}

// NewScoped returns an empty savior.
func NewScoped(opts ...ScopedOption) *Scoped {
	s := &Scoped{
		log:    logging.Discard,
		scopes: make(map[string]*scope),
		hosts:  make(map[Host]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save implements Savior. Saving a presenter already stored in host's scope
// fails.
func (s *Scoped) Save(p presenter.Presenter, host any) (string, error) {
	h, err := asHost(host)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", fmt.Errorf("savior: save nil presenter")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scopeID, tracked := s.hosts[h]
	if !tracked {
		scopeID = uuid.NewString()
		s.hosts[h] = scopeID
		logging.Logf(s.log, logging.Debug, scopedTag, "tracking %T with scope %s", h, scopeID)
	}
	sc, ok := s.scopes[scopeID]
	if !ok {
		sc = newScope(scopeID)
		s.scopes[scopeID] = sc
	}
	if existing, dup := sc.contains(p); dup {
		return "", fmt.Errorf("savior: presenter %v is already saved with id %q: %w",
			p, existing, presenter.ErrIllegalState)
	}

	id := newID(p)
	sc.presenters.Set(id, p)
	s.updateMetricsLocked()
	logging.Logf(s.log, logging.Debug, scopedTag, "save %s %v in scope %s", id, p, scopeID)
	return id, nil
}

// Recover implements Savior.
func (s *Scoped) Recover(id string, host any) (presenter.Presenter, error) {
	h, err := asHost(host)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.lookupLocked(h, id)
	s.metrics.recovered(ok)
	if !ok {
		logging.Logf(s.log, logging.Debug, scopedTag, "could not recover %s for %T", id, h)
		return nil, nil
	}
	return p, nil
}

// Free implements Savior. Freeing the last presenter of a scope drops the
// scope and stops tracking its host.
func (s *Scoped) Free(id string, host any) error {
	h, err := asHost(host)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scopeID, ok := s.hosts[h]
	if !ok {
		return nil
	}
	sc, ok := s.scopes[scopeID]
	if !ok {
		return nil
	}
	if _, ok := sc.presenters.Pop(id); !ok {
		return nil
	}
	logging.Logf(s.log, logging.Debug, scopedTag, "free %s from scope %s", id, scopeID)

	if sc.presenters.IsEmpty() {
		delete(s.scopes, scopeID)
		for host, sid := range s.hosts {
			if sid == scopeID {
				delete(s.hosts, host)
			}
		}
	}
	s.stopTrackingIfIdleLocked()
	s.updateMetricsLocked()
	return nil
}

// HostCreated maps a new host instance to the scope id found in its saved
// state, so a recreated host can recover what its predecessor saved.
func (s *Scoped) HostCreated(host Host, saved bundle.Bundle) {
	scopeID, ok := saved.Get(bundle.KeyHostScope)
	if !ok || scopeID == "" || !isComparable(host) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scopes) == 0 {
		return
	}
	s.hosts[host] = scopeID
}

// HostSaveState writes host's scope id into out. Untracked hosts write
// nothing.
func (s *Scoped) HostSaveState(host Host, out bundle.Bundle) {
	if out == nil || !isComparable(host) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if scopeID, ok := s.hosts[host]; ok {
		out[bundle.KeyHostScope] = scopeID
	}
}

// HostDestroyed forgets host. A finishing host takes its whole scope with
// it; a host that is only being recreated keeps the scope for its successor.
func (s *Scoped) HostDestroyed(host Host) {
	if !isComparable(host) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	scopeID, ok := s.hosts[host]
	if !ok {
		return
	}
	delete(s.hosts, host)

	if host.Finishing() {
		if sc, ok := s.scopes[scopeID]; ok {
			logging.Logf(s.log, logging.Debug, scopedTag, "%T finished, dropping %d presenters of scope %s",
				host, sc.presenters.Count(), scopeID)
			delete(s.scopes, scopeID)
		}
	}
	s.stopTrackingIfIdleLocked()
	s.updateMetricsLocked()
}

// Len reports how many presenters are stored across all scopes.
func (s *Scoped) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countLocked()
}

// Scopes reports how many scopes exist.
func (s *Scoped) Scopes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scopes)
}

// TrackedHosts reports how many host instances are mapped to a scope.
func (s *Scoped) TrackedHosts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hosts)
}

// Clear drops every scope and host mapping.
func (s *Scoped) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.scopes)
	clear(s.hosts)
	s.updateMetricsLocked()
}

func (s *Scoped) lookupLocked(h Host, id string) (presenter.Presenter, bool) {
	scopeID, ok := s.hosts[h]
	if !ok {
		return nil, false
	}
	sc, ok := s.scopes[scopeID]
	if !ok {
		return nil, false
	}
	return sc.presenters.Get(id)
}

// stopTrackingIfIdleLocked drops host mappings once nothing is stored, the
// same way the lifecycle observer is unregistered when no scope is left.
func (s *Scoped) stopTrackingIfIdleLocked() {
	if len(s.scopes) == 0 {
		clear(s.hosts)
	}
}

func (s *Scoped) countLocked() int {
	n := 0
	for _, sc := range s.scopes {
		n += sc.presenters.Count()
	}
	return n
}

func (s *Scoped) updateMetricsLocked() {
	s.metrics.setPresenters(s.countLocked())
	s.metrics.setScopes(len(s.scopes))
}

func asHost(host any) (Host, error) {
	h, ok := host.(Host)
	if !ok || !isComparable(h) {
		return nil, illegalHost(host)
	}
	return h, nil
}

func isComparable(host any) bool {
	return host != nil && reflect.TypeOf(host).Comparable()
}

// HostTracker is implemented by saviors that follow the host lifecycle. The
// delegate feeds it when its host implements Host.
type HostTracker interface {
	HostCreated(host Host, saved bundle.Bundle)
	HostSaveState(host Host, out bundle.Bundle)
	HostDestroyed(host Host)
}

var _ HostTracker = (*Scoped)(nil)
