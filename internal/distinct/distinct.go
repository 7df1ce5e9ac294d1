// Package distinct suppresses repeated view calls. A Filter remembers the
// arguments of the last call per method and reports whether a new call would
// only repeat it.
package distinct

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Comparator decides whether two argument lists are the same call. It may keep
// a compact form of the arguments instead of the arguments themselves.
type Comparator interface {
	// Remember returns what the filter stores for args.
	Remember(args []any) any
	// Same reports whether args match a value returned by Remember.
	Same(remembered any, args []any) bool
}

// EqualComparator compares arguments with reflect.DeepEqual. It keeps a
// reference to the arguments, so mutating them after the call defeats it.
type EqualComparator struct{}

// Remember implements Comparator.
func (EqualComparator) Remember(args []any) any {
	dup := make([]any, len(args))
	copy(dup, args)
	return dup
}

// Same implements Comparator.
func (EqualComparator) Same(remembered any, args []any) bool {
	prev, ok := remembered.([]any)
	if !ok || len(prev) != len(args) {
		return false
	}
	for i := range args {
		if !reflect.DeepEqual(prev[i], args[i]) {
			return false
		}
	}
	return true
}

// HashComparator keeps only an xxhash of the printed arguments. Large
// arguments are not retained and later mutations are detected.
type HashComparator struct{}

// Remember implements Comparator.
func (HashComparator) Remember(args []any) any {
	return hashArgs(args)
}

// Same implements Comparator.
func (HashComparator) Same(remembered any, args []any) bool {
	prev, ok := remembered.(uint64)
	return ok && prev == hashArgs(args)
}

func hashArgs(args []any) uint64 {
	d := xxhash.New()
	for _, arg := range args {
		// %#v includes the dynamic type so 1 and "1" differ
		_, _ = fmt.Fprintf(d, "%#v\x00", arg)
	}
	return d.Sum64()
}

// Filter tracks the last call per method. It is safe for concurrent use.
type Filter struct {
	cmp Comparator

	mu   sync.Mutex
	last map[string]any
}

// NewFilter returns a filter using cmp, or EqualComparator when cmp is nil.
func NewFilter(cmp Comparator) *Filter {
	if cmp == nil {
		cmp = EqualComparator{}
	}
	return &Filter{cmp: cmp, last: make(map[string]any)}
}

// Allow reports whether a call to method with args should go through. A call
// that goes through becomes the new reference for method.
func (f *Filter) Allow(method string, args ...any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.last[method]; ok && f.cmp.Same(prev, args) {
		return false
	}
	f.last[method] = f.cmp.Remember(args)
	return true
}

// Call runs fn unless it repeats the last call to method.
func (f *Filter) Call(method string, fn func(), args ...any) {
	if f.Allow(method, args...) {
		fn()
	}
}

// ClearCache forgets every remembered call, so the next call of each method
// goes through.
func (f *Filter) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.last)
}
