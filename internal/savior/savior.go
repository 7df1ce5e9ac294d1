package savior

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/five82/anchor/internal/presenter"
)

// ErrIllegalHost is matched by every *IllegalHostError.
var ErrIllegalHost = errors.New("unsupported presenter host")

// IllegalHostError reports a host the savior cannot scope presenters to.
type IllegalHostError struct {
	Host string
}

func (e *IllegalHostError) Error() string {
	return fmt.Sprintf("savior: presenter host %s is not supported, hosts must implement savior.Host", e.Host)
}

// Unwrap returns ErrIllegalHost.
func (e *IllegalHostError) Unwrap() error { return ErrIllegalHost }

func illegalHost(host any) error {
	return &IllegalHostError{Host: fmt.Sprintf("%T", host)}
}

// Savior keeps presenters alive between two instances of the same container.
type Savior interface {
	// Save registers p for host and returns a new, never reused id.
	Save(p presenter.Presenter, host any) (string, error)
	// Recover returns the presenter saved under id, or nil when host's scope
	// does not know it. A miss is not an error.
	Recover(id string, host any) (presenter.Presenter, error)
	// Free drops the entry for id. Freeing an unknown id is a no-op.
	Free(id string, host any) error
}

var (
	clockMu  sync.Mutex
	lastNano int64
)

// newID builds "<Type>:<identity>:<nanos>". The timestamp is strictly
// increasing within the process, so ids never repeat even when the same
// presenter is saved again.
func newID(p presenter.Presenter) string {
	clockMu.Lock()
	now := time.Now().UnixNano()
	if now <= lastNano {
		now = lastNano + 1
	}
	lastNano = now
	clockMu.Unlock()

	var ident uintptr
	if v := reflect.ValueOf(p); v.Kind() == reflect.Pointer {
		ident = v.Pointer()
	}
	return fmt.Sprintf("%s:%x:%d", presenterType(p), ident, now)
}

func presenterType(p presenter.Presenter) string {
	name := fmt.Sprintf("%T", p)
	if i := strings.Index(name, "["); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimLeft(name, "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}
