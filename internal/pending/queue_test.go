package pending

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	calls []string
}

func (r *recorder) call(name string) Action[*recorder] {
	return func(v *recorder) { v.calls = append(v.calls, name) }
}

func attached(v *recorder) func() (*recorder, bool) {
	return func() (*recorder, bool) { return v, true }
}

func detached() (*recorder, bool) { return nil, false }

func TestFlush_DeliversInEnqueueOrder(t *testing.T) {
	q := New[*recorder]()
	view := &recorder{}

	for _, name := range []string{"A", "B", "C"} {
		if err := q.Enqueue(view.call(name)); err != nil {
			t.Fatalf("Enqueue(%s): %v", name, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	if ran := q.Flush(attached(view)); ran != 3 {
		t.Fatalf("Flush ran %d, want 3", ran)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, view.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if q.Len() != 0 {
		t.Fatalf("Len after flush = %d, want 0", q.Len())
	}
}

func TestFlush_DetachedTargetKeepsActions(t *testing.T) {
	q := New[*recorder]()
	view := &recorder{}
	_ = q.Enqueue(view.call("A"))

	if ran := q.Flush(detached); ran != 0 {
		t.Fatalf("Flush ran %d, want 0", ran)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
}

func TestFlush_DetachMidFlushStopsDrain(t *testing.T) {
	q := New[*recorder]()
	view := &recorder{}
	ready := true

	_ = q.Enqueue(func(v *recorder) {
		v.calls = append(v.calls, "A")
		ready = false
	})
	_ = q.Enqueue(view.call("B"))
	_ = q.Enqueue(view.call("C"))

	target := func() (*recorder, bool) { return view, ready }
	if ran := q.Flush(target); ran != 1 {
		t.Fatalf("Flush ran %d, want 1", ran)
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}

	ready = true
	q.Flush(target)
	if diff := cmp.Diff([]string{"A", "B", "C"}, view.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestFlush_ReentrantEnqueueAppendsAfterTail(t *testing.T) {
	q := New[*recorder]()
	view := &recorder{}

	_ = q.Enqueue(func(v *recorder) {
		v.calls = append(v.calls, "A")
		_ = q.Enqueue(v.call("D"))
		// a nested flush must not run anything twice
		q.Flush(attached(v))
	})
	_ = q.Enqueue(view.call("B"))
	_ = q.Enqueue(view.call("C"))

	q.Flush(attached(view))
	if diff := cmp.Diff([]string{"A", "B", "C", "D"}, view.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEnqueue_ConcurrentProducers(t *testing.T) {
	q := New[*recorder]()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = q.Enqueue(func(*recorder) {})
			}
		}()
	}
	wg.Wait()
	if q.Len() != 400 {
		t.Fatalf("Len = %d, want 400", q.Len())
	}
	if ran := q.Flush(attached(&recorder{})); ran != 400 {
		t.Fatalf("Flush ran %d, want 400", ran)
	}
}

func TestClose_RejectsEnqueue(t *testing.T) {
	q := New[*recorder]()
	_ = q.Enqueue(func(*recorder) {})

	if dropped := q.Close(); dropped != 1 {
		t.Fatalf("Close dropped %d, want 1", dropped)
	}
	if err := q.Enqueue(func(*recorder) {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Enqueue after Close = %v, want ErrClosed", err)
	}
	if dropped := q.Close(); dropped != 0 {
		t.Fatalf("second Close dropped %d, want 0", dropped)
	}
}
