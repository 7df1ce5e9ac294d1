package intercept

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/anchor/internal/binder"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/distinct"
	"github.com/five82/anchor/internal/logging"
	"github.com/five82/anchor/internal/presenter"
)

type labelView interface {
	SetLabel(s string)
}

type recordingView struct {
	labels []string
}

func (r *recordingView) SetLabel(s string) { r.labels = append(r.labels, s) }

type mainThreadLabel struct {
	next   labelView
	caller dispatch.Caller
}

func (w mainThreadLabel) SetLabel(s string) {
	w.caller.Call(func() { w.next.SetLabel(s) })
}

type distinctLabel struct {
	next   labelView
	filter *distinct.Filter
}

func (w distinctLabel) SetLabel(s string) {
	w.filter.Call("SetLabel", func() { w.next.SetLabel(s) }, s)
}

type loggingLabel struct {
	next labelView
	log  logging.Sink
}

func (w loggingLabel) SetLabel(s string) {
	LogCall(w.log, "SetLabel", s)
	w.next.SetLabel(s)
}

func newLogging(sink logging.Sink) *Logging[labelView] {
	return &Logging[labelView]{
		Sink: sink,
		Wrap: func(v labelView, sink logging.Sink) labelView {
			return loggingLabel{next: v, log: sink}
		},
	}
}

func TestLogging_LogsCallsInOrder(t *testing.T) {
	var rec logging.Recorder
	view := &recordingView{}
	wrapped := newLogging(&rec).Intercept(view)

	wrapped.SetLabel("one")
	wrapped.SetLabel("two")

	var calls []string
	for _, e := range rec.Entries() {
		if e.Tag == LoggingTag && e.Level == logging.Verbose && strings.HasPrefix(e.Msg, "SetLabel(") {
			calls = append(calls, e.Msg)
		}
	}
	if diff := cmp.Diff([]string{"SetLabel(one)", "SetLabel(two)"}, calls); diff != "" {
		t.Fatalf("logged calls mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"one", "two"}, view.labels); diff != "" {
		t.Fatalf("forwarded calls mismatch (-want +got):\n%s", diff)
	}
}

func TestLogging_DiscardLeavesViewUnwrapped(t *testing.T) {
	for name, sink := range map[string]logging.Sink{"nil": nil, "discard": logging.Discard} {
		t.Run(name, func(t *testing.T) {
			rec := &recordingView{}
			if got := newLogging(sink).Intercept(rec); got != labelView(rec) {
				t.Fatalf("Intercept wrapped the view: %T", got)
			}
		})
	}
}

func TestLogCall_FormatsArguments(t *testing.T) {
	long := strings.Repeat("x", 300)
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"no args", nil, "Reset()"},
		{"several", []any{3, "a", true}, "Show(3, a, true)"},
		{"slice", []any{[]int{1, 2}}, "Show([1 2])"},
		{"long", []any{long}, "Show(" + strings.Repeat("x", 240) + "…)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var rec logging.Recorder
			method := "Show"
			if tc.args == nil {
				method = "Reset"
			}
			LogCall(&rec, method, tc.args...)
			entries := rec.Entries()
			if len(entries) != 1 {
				t.Fatalf("entries = %d, want 1", len(entries))
			}
			if entries[0].Msg != tc.want {
				t.Fatalf("LogCall logged %q, want %q", entries[0].Msg, tc.want)
			}
		})
	}
}

func TestIsLogging(t *testing.T) {
	if !IsLogging(&Logging[labelView]{}) {
		t.Fatalf("IsLogging(*Logging) = false, want true")
	}
	if IsLogging(&MainThread[labelView]{}) {
		t.Fatalf("IsLogging(*MainThread) = true, want false")
	}
}

func TestMainThread_PostsCalls(t *testing.T) {
	var posted []func()
	exec := dispatch.Func(func(fn func()) { posted = append(posted, fn) })
	m := &MainThread[labelView]{
		Executor: exec,
		Wrap: func(v labelView, e dispatch.Executor) labelView {
			return mainThreadLabel{next: v, caller: dispatch.Caller{Executor: e}}
		},
	}

	rec := &recordingView{}
	wrapped := m.Intercept(rec)
	wrapped.SetLabel("hello")
	if len(rec.labels) != 0 {
		t.Fatalf("call ran before the executor ran it")
	}
	for _, fn := range posted {
		fn()
	}
	if diff := cmp.Diff([]string{"hello"}, rec.labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestDistinctUntilChanged_FreshFilterPerView(t *testing.T) {
	d := &DistinctUntilChanged[labelView]{
		Wrap: func(v labelView, f *distinct.Filter) labelView {
			return distinctLabel{next: v, filter: f}
		},
	}

	first := &recordingView{}
	w := d.Intercept(first)
	w.SetLabel("a")
	w.SetLabel("a")
	w.SetLabel("b")
	w.SetLabel("a")
	if diff := cmp.Diff([]string{"a", "b", "a"}, first.labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}

	second := &recordingView{}
	w = d.Intercept(second)
	w.SetLabel("a")
	if diff := cmp.Diff([]string{"a"}, second.labels); diff != "" {
		t.Fatalf("new view missed its first call (-want +got):\n%s", diff)
	}

	d.ClearCache()
	w.SetLabel("a")
	if len(second.labels) != 2 {
		t.Fatalf("call dropped after ClearCache")
	}
}

func TestInterceptors_WithoutWrapperPassThrough(t *testing.T) {
	rec := &recordingView{}
	if got := (&MainThread[labelView]{}).Intercept(rec); got != labelView(rec) {
		t.Fatalf("MainThread without wrapper changed the view")
	}
	if got := (&DistinctUntilChanged[labelView]{}).Intercept(rec); got != labelView(rec) {
		t.Fatalf("DistinctUntilChanged without wrapper changed the view")
	}
}

func TestMarkers(t *testing.T) {
	b := binder.New[labelView](nil, "test")
	b.AddInterceptor(&MainThread[labelView]{})
	b.AddInterceptor(&DistinctUntilChanged[labelView]{})
	b.AddInterceptor(binder.InterceptorFunc[labelView](func(v labelView) labelView { return v }))

	main := b.Interceptors(func(i binder.Interceptor[labelView]) bool { return IsMainThread(i) })
	dist := b.Interceptors(func(i binder.Interceptor[labelView]) bool { return IsDistinct(i) })
	if len(main) != 1 || len(dist) != 1 {
		t.Fatalf("found %d main-thread and %d distinct interceptors, want 1 and 1", len(main), len(dist))
	}
	if IsMainThread(dist[0]) || IsDistinct(main[0]) {
		t.Fatalf("markers overlap")
	}
}

func TestBinderIntegration(t *testing.T) {
	b := binder.New[labelView](nil, "test")
	b.AddInterceptor(&MainThread[labelView]{
		Executor: dispatch.Immediate{},
		Wrap: func(v labelView, e dispatch.Executor) labelView {
			return mainThreadLabel{next: v, caller: dispatch.Caller{Executor: e}}
		},
	})
	b.AddInterceptor(&DistinctUntilChanged[labelView]{
		Comparator: distinct.HashComparator{},
		Wrap: func(v labelView, f *distinct.Filter) labelView {
			return distinctLabel{next: v, filter: f}
		},
	})

	p := presenter.New[labelView](nil)
	if err := p.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	rec := &recordingView{}
	if err := b.BindView(p, func() labelView { return rec }); err != nil {
		t.Fatalf("BindView: %v", err)
	}
	p.SetExecutor(dispatch.Immediate{})
	for _, s := range []string{"x", "x", "y"} {
		s := s
		if err := p.SendToView(func(v labelView) { v.SetLabel(s) }); err != nil {
			t.Fatalf("SendToView: %v", err)
		}
	}
	if diff := cmp.Diff([]string{"x", "y"}, rec.labels); diff != "" {
		t.Fatalf("labels mismatch (-want +got):\n%s", diff)
	}
}
