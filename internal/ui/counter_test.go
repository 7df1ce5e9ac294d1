package ui

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/anchor/internal/deliver"
	"github.com/five82/anchor/internal/dispatch"
	"github.com/five82/anchor/internal/distinct"
	"github.com/five82/anchor/internal/presenter"
)

type countRecorder struct {
	shown []int
}

func (r *countRecorder) ShowCount(n int) { r.shown = append(r.shown, n) }

func TestDistinctCounterDropsRepeats(t *testing.T) {
	rec := &countRecorder{}
	view := counterWrappers.Distinct(rec, distinct.NewFilter(distinct.EqualComparator{}))
	for _, n := range []int{1, 1, 2, 2, 1} {
		view.ShowCount(n)
	}
	if diff := cmp.Diff([]int{1, 2, 1}, rec.shown); diff != "" {
		t.Fatalf("shown mismatch (-want +got):\n%s", diff)
	}
}

func TestMainThreadCounterPosts(t *testing.T) {
	rec := &countRecorder{}
	var posted []func()
	exec := dispatch.Func(func(fn func()) { posted = append(posted, fn) })
	view := counterWrappers.MainThread(rec, exec)

	view.ShowCount(3)
	if len(rec.shown) != 0 || len(posted) != 1 {
		t.Fatalf("ShowCount ran inline (shown %v, posted %d)", rec.shown, len(posted))
	}
	posted[0]()
	if diff := cmp.Diff([]int{3}, rec.shown); diff != "" {
		t.Fatalf("shown mismatch (-want +got):\n%s", diff)
	}
}

func TestCounterPresenterStopsFeedOnDestroy(t *testing.T) {
	stopped := make(chan struct{})
	p := newCounterPresenter(func(ctx context.Context) <-chan int {
		go func() {
			<-ctx.Done()
			close(stopped)
		}()
		return make(chan int)
	}, deliver.Latest, presenter.DefaultConfig(), nil)

	if err := p.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := p.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("feed context was not cancelled")
	}
	if got := p.Pending(); got != 0 {
		t.Fatalf("Pending() after destroy = %d, want 0", got)
	}
}
