// Package intercept holds the built-in view interceptors.
//
// Go has no runtime proxies, so a view interface opts in by providing a
// wrapper constructor: a type implementing the same interface that forwards
// every call. A typical wrapper embeds dispatch.Caller for MainThread and
// calls distinct.Filter.Call for DistinctUntilChanged:
//
//	type counterView struct {
//		next   CounterView
//		caller dispatch.Caller
//		filter *distinct.Filter
//	}
//
//	func (w counterView) ShowCount(n int) {
//		w.filter.Call("ShowCount", func() {
//			w.caller.Call(func() { w.next.ShowCount(n) })
//		}, n)
//	}
//
// A Logging wrapper calls LogCall before forwarding:
//
//	func (w loggingCounter) ShowCount(n int) {
//		intercept.LogCall(w.log, "ShowCount", n)
//		w.next.ShowCount(n)
//	}
//
// Methods that return values should call through directly; only void calls
// can be posted or dropped.
package intercept

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/five82/anchor/internal/binder"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/distinct"
	"github.com/five82/anchor/internal/logging"
)

// LoggingTag tags every line written by LogCall.
const LoggingTag = "LoggingInterceptor"

// maxArgLen limits each argument rather than the whole line, so every
// argument stays visible.
const maxArgLen = 240

// MainThread posts void view calls to the UI executor so presenters may call
// the view from any goroutine.
type MainThread[V any] struct {
	Executor dispatch.Executor
	Wrap     func(view V, executor dispatch.Executor) V
}

var _ binder.Interceptor[any] = (*MainThread[any])(nil)

// Intercept implements binder.Interceptor. Without a wrapper the view is
// returned unchanged.
func (m *MainThread[V]) Intercept(view V) V {
	if m.Wrap == nil {
		return view
	}
	return m.Wrap(view, m.Executor)
}

func (*MainThread[V]) mainThread() {}

// DistinctUntilChanged drops view calls that repeat the previous call of the
// same method with equal arguments. Every new view gets a fresh filter, so the
// first call after a rebind always goes through.
type DistinctUntilChanged[V any] struct {
	Comparator distinct.Comparator
	Wrap       func(view V, filter *distinct.Filter) V

	filter *distinct.Filter
}

var _ binder.Interceptor[any] = (*DistinctUntilChanged[any])(nil)

// Intercept implements binder.Interceptor.
func (d *DistinctUntilChanged[V]) Intercept(view V) V {
	if d.Wrap == nil {
		return view
	}
	d.filter = distinct.NewFilter(d.Comparator)
	return d.Wrap(view, d.filter)
}

// ClearCache forgets the remembered calls of the current view.
func (d *DistinctUntilChanged[V]) ClearCache() {
	if d.filter != nil {
		d.filter.ClearCache()
	}
}

func (*DistinctUntilChanged[V]) distinctUntilChanged() {}

// Logging writes every view call and its arguments to Sink at Verbose level.
// A nil or Discard sink leaves the view unwrapped.
type Logging[V any] struct {
	Sink logging.Sink
	Wrap func(view V, sink logging.Sink) V
}

var _ binder.Interceptor[any] = (*Logging[any])(nil)

// Intercept implements binder.Interceptor.
func (l *Logging[V]) Intercept(view V) V {
	if l.Wrap == nil || l.Sink == nil || l.Sink == logging.Discard {
		return view
	}
	wrapped := l.Wrap(view, l.Sink)
	logging.Logf(l.Sink, logging.Verbose, LoggingTag, "wrapping view %v in %T", view, wrapped)
	return wrapped
}

func (*Logging[V]) logging() {}

// LogCall logs method(args...). Arguments longer than 240 characters are cut
// and end in an ellipsis.
func LogCall(sink logging.Sink, method string, args ...any) {
	if sink == nil || sink == logging.Discard {
		return
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = formatArg(arg)
	}
	sink.Log(logging.Verbose, LoggingTag, method+"("+strings.Join(parts, ", ")+")")
}

func formatArg(arg any) string {
	s := fmt.Sprintf("%v", arg)
	if utf8.RuneCountInString(s) <= maxArgLen {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxArgLen])) + "…"
}

// IsMainThread reports whether i is a MainThread interceptor of any view type.
func IsMainThread(i any) bool {
	_, ok := i.(interface{ mainThread() })
	return ok
}

// IsDistinct reports whether i is a DistinctUntilChanged interceptor of any
// view type.
func IsDistinct(i any) bool {
	_, ok := i.(interface{ distinctUntilChanged() })
	return ok
}

// IsLogging reports whether i is a Logging interceptor of any view type.
func IsLogging(i any) bool {
	_, ok := i.(interface{ logging() })
	return ok
}

// Wrappers bundles the wrapper constructors of one view interface. Any of them
// may be nil when the view does not support that interceptor.
type Wrappers[V any] struct {
	MainThread func(view V, executor dispatch.Executor) V
	Distinct   func(view V, filter *distinct.Filter) V
	Logging    func(view V, sink logging.Sink) V
}
