package binder

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/anchor/internal/presenter"
)

type view interface {
	Name() string
}

type namedView string

func (n namedView) Name() string { return string(n) }

type suffix struct {
	s     string
	calls int
}

func (x *suffix) Intercept(v view) view {
	x.calls++
	return namedView(v.Name() + x.s)
}

func newPresenter(t *testing.T) *presenter.Base[view] {
	t.Helper()
	p := presenter.New[view](nil)
	if err := p.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func TestBindView_InterceptsInOrder(t *testing.T) {
	b := New[view](nil, "test")
	first, second := &suffix{s: "+a"}, &suffix{s: "+b"}
	b.AddInterceptor(first)
	b.AddInterceptor(second)

	p := newPresenter(t)
	provided := 0
	if err := b.BindView(p, func() view { provided++; return namedView("v") }); err != nil {
		t.Fatalf("BindView: %v", err)
	}

	got, _ := p.View()
	if got.Name() != "v+a+b" {
		t.Fatalf("bound view = %q, want %q", got.Name(), "v+a+b")
	}
	if out, ok := b.InterceptedViewOf(first); !ok || out.Name() != "v+a" {
		t.Fatalf("InterceptedViewOf(first) = %v, %v, want v+a", out, ok)
	}
	if out, ok := b.InterceptedViewOf(second); !ok || out.Name() != "v+a+b" {
		t.Fatalf("InterceptedViewOf(second) = %v, %v, want v+a+b", out, ok)
	}
	if provided != 1 {
		t.Fatalf("provider calls = %d, want 1", provided)
	}
}

func TestBindView_ReusesCachedView(t *testing.T) {
	b := New[view](nil, "test")
	x := &suffix{s: "!"}
	b.AddInterceptor(x)
	p := newPresenter(t)

	provided := 0
	provide := func() view { provided++; return namedView("v") }
	for i := 0; i < 3; i++ {
		if err := b.BindView(p, provide); err != nil {
			t.Fatalf("BindView %d: %v", i, err)
		}
		if err := p.DetachView(); err != nil {
			t.Fatalf("DetachView: %v", err)
		}
	}
	if provided != 1 || x.calls != 1 {
		t.Fatalf("provider/interceptor calls = %d/%d, want 1/1", provided, x.calls)
	}

	b.InvalidateView()
	if _, ok := b.InterceptedViewOf(x); ok {
		t.Fatalf("interceptor output survived InvalidateView")
	}
	if err := b.BindView(p, provide); err != nil {
		t.Fatalf("BindView: %v", err)
	}
	if provided != 2 || x.calls != 2 {
		t.Fatalf("provider/interceptor calls = %d/%d, want 2/2", provided, x.calls)
	}
}

func TestAddInterceptor_Invalidates(t *testing.T) {
	b := New[view](nil, "test")
	p := newPresenter(t)
	provide := func() view { return namedView("v") }

	_ = b.BindView(p, provide)
	_ = p.DetachView()

	x := &suffix{s: "!"}
	removable := b.AddInterceptor(x)
	_ = b.BindView(p, provide)
	if got, _ := p.View(); got.Name() != "v!" {
		t.Fatalf("bound view = %q, want v!", got.Name())
	}
	_ = p.DetachView()

	removable.Remove()
	removable.Remove()
	_ = b.BindView(p, provide)
	if got, _ := p.View(); got.Name() != "v" {
		t.Fatalf("bound view after removal = %q, want v", got.Name())
	}
	if len(b.Interceptors(nil)) != 0 {
		t.Fatalf("interceptor still registered after Remove")
	}
}

func TestInterceptors_Filter(t *testing.T) {
	b := New[view](nil, "test")
	a, c := &suffix{s: "a"}, &suffix{s: "c"}
	b.AddInterceptor(a)
	b.AddInterceptor(InterceptorFunc[view](func(v view) view { return v }))
	b.AddInterceptor(c)

	got := b.Interceptors(func(i Interceptor[view]) bool {
		_, ok := i.(*suffix)
		return ok
	})
	want := []Interceptor[view]{a, c}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(x, y Interceptor[view]) bool {
		return same(x, y)
	})); diff != "" {
		t.Fatalf("Interceptors mismatch (-want +got):\n%s", diff)
	}
}

func TestInterceptedViewOf_FuncNeverMatches(t *testing.T) {
	b := New[view](nil, "test")
	fn := InterceptorFunc[view](func(v view) view { return v })
	b.AddInterceptor(fn)
	_ = b.BindView(newPresenter(t), func() view { return namedView("v") })
	if _, ok := b.InterceptedViewOf(fn); ok {
		t.Fatalf("InterceptedViewOf matched a func interceptor")
	}
}

func TestBindView_AttachErrorsPropagate(t *testing.T) {
	b := New[view](nil, "test")
	p := presenter.New[view](nil)
	if err := b.BindView(p, func() view { return namedView("v") }); err == nil {
		t.Fatalf("BindView on an uncreated presenter succeeded")
	}
}
