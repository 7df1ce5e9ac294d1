package deliver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/anchor/internal/presenter"
)

type recorder struct {
	values    []int
	completed int
	errs      []error
}

func (r *recorder) sink() Sink[int] {
	return Sink[int]{
		Next:     func(v int) { r.values = append(r.values, v) },
		Complete: func() { r.completed++ },
		Error:    func(err error) { r.errs = append(r.errs, err) },
	}
}

func TestPolicies(t *testing.T) {
	cases := []struct {
		policy Policy
		want   []int
	}{
		{All, []int{1, 2, 3, 4, 5, 6}},
		{Latest, []int{3, 4, 6}},
		{LatestCache, []int{3, 4, 4, 6, 6}},
	}
	for _, tc := range cases {
		t.Run(tc.policy.String(), func(t *testing.T) {
			r := &recorder{}
			g := NewGate(tc.policy, r.sink())

			g.Push(1)
			g.Push(2)
			g.Push(3)
			g.SetReady(true) // 3 (all: 1 2 3)
			g.Push(4)        // 4
			g.SetReady(false)
			g.SetReady(true) // cache: 4
			g.SetReady(false)
			g.Push(5)
			g.Push(6)
			g.SetReady(true) // 6 (all: 5 6), newer values replace the cache redelivery
			g.SetReady(false)
			g.SetReady(true) // cache: 6

			if diff := cmp.Diff(tc.want, r.values); diff != "" {
				t.Fatalf("values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompleteWaitsForReady(t *testing.T) {
	r := &recorder{}
	g := NewGate(All, r.sink())
	g.Push(1)
	g.Complete()
	g.Push(2)
	if r.completed != 0 || len(r.values) != 0 {
		t.Fatalf("delivered before ready")
	}
	g.SetReady(true)
	if diff := cmp.Diff([]int{1}, r.values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if r.completed != 1 {
		t.Fatalf("completed = %d, want 1", r.completed)
	}
	g.SetReady(false)
	g.SetReady(true)
	if r.completed != 1 {
		t.Fatalf("completion delivered twice")
	}
}

func TestLatestCacheNeverCompletes(t *testing.T) {
	r := &recorder{}
	g := NewGate(LatestCache, r.sink())
	g.SetReady(true)
	g.Push(1)
	g.Complete()
	if r.completed != 0 {
		t.Fatalf("cache policy reported completion")
	}
	g.SetReady(false)
	g.SetReady(true)
	if diff := cmp.Diff([]int{1, 1}, r.values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestFailDeliveredAfterValues(t *testing.T) {
	r := &recorder{}
	g := NewGate(All, r.sink())
	boom := errors.New("boom")
	g.Push(1)
	g.Fail(boom)
	g.SetReady(true)
	if diff := cmp.Diff([]int{1}, r.values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if len(r.errs) != 1 || !errors.Is(r.errs[0], boom) {
		t.Fatalf("errs = %v, want [boom]", r.errs)
	}
}

func TestReentrantPush(t *testing.T) {
	var got []int
	var g *Gate[int]
	g = NewGate(All, Sink[int]{Next: func(v int) {
		got = append(got, v)
		if v < 3 {
			g.Push(v + 1)
		}
	}})
	g.SetReady(true)
	g.Push(1)
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestClose(t *testing.T) {
	r := &recorder{}
	g := NewGate(All, r.sink())
	g.Push(1)
	g.Close()
	g.SetReady(true)
	g.Push(2)
	if len(r.values) != 0 {
		t.Fatalf("closed gate delivered %v", r.values)
	}
	g.Close()
}

type view interface{}

type nopView struct{}

func TestToView(t *testing.T) {
	p := presenter.New[view](nil)
	if err := p.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var atDelivery []presenter.State
	var got []int
	g, err := ToView(p, LatestCache, Sink[int]{Next: func(v int) {
		got = append(got, v)
		atDelivery = append(atDelivery, p.State())
	}})
	if err != nil {
		t.Fatalf("ToView: %v", err)
	}

	g.Push(1)
	g.Push(2)
	if len(got) != 0 {
		t.Fatalf("delivered without a view")
	}
	if err := p.AttachView(nopView{}); err != nil {
		t.Fatalf("AttachView: %v", err)
	}
	g.Push(3)
	_ = p.DetachView()
	g.Push(4)
	_ = p.AttachView(nopView{})
	_ = p.DetachView()
	_ = p.AttachView(nopView{})

	if diff := cmp.Diff([]int{2, 3, 4, 4}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	for i, st := range atDelivery {
		if st != presenter.ViewAttachedAndAwake {
			t.Fatalf("value %d delivered in state %v", i, st)
		}
	}

	g.Close()
	_ = p.DetachView()
	_ = p.AttachView(nopView{})
	if len(got) != 4 {
		t.Fatalf("closed gate still observes the presenter")
	}
}

func TestToView_AlreadyAttached(t *testing.T) {
	p := presenter.New[view](nil)
	_ = p.Create()
	_ = p.AttachView(nopView{})

	var got []int
	g, err := ToView(p, All, Sink[int]{Next: func(v int) { got = append(got, v) }})
	if err != nil {
		t.Fatalf("ToView: %v", err)
	}
	g.Push(7)
	if diff := cmp.Diff([]int{7}, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestToView_DestroyedPresenter(t *testing.T) {
	p := presenter.New[view](nil)
	_ = p.Create()
	_ = p.Destroy()
	if _, err := ToView(p, All, Sink[int]{}); !errors.Is(err, presenter.ErrDestroyed) {
		t.Fatalf("ToView = %v, want ErrDestroyed", err)
	}
}

func TestConsume(t *testing.T) {
	r := &recorder{}
	g := NewGate(All, r.sink())
	g.SetReady(true)

	in := make(chan int, 3)
	in <- 1
	in <- 2
	in <- 3
	close(in)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := Consume(ctx, in, g); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, r.values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if r.completed != 1 {
		t.Fatalf("completed = %d, want 1", r.completed)
	}
}

func TestConsume_Cancelled(t *testing.T) {
	g := NewGate(All, Sink[int]{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Consume(ctx, make(chan int), g); !errors.Is(err, context.Canceled) {
		t.Fatalf("Consume = %v, want context.Canceled", err)
	}
}

func TestParsePolicy(t *testing.T) {
	for _, p := range []Policy{All, Latest, LatestCache} {
		got, err := ParsePolicy(p.String())
		if err != nil || got != p {
			t.Fatalf("ParsePolicy(%q) = %v, %v", p.String(), got, err)
		}
	}
	if _, err := ParsePolicy("bogus"); err == nil {
		t.Fatalf("ParsePolicy accepted an unknown policy")
	}
}
