// Package pending buffers work aimed at a view that is not ready yet and
// replays it, oldest first, once the view is attached.
package pending

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Workiva/go-datastructures/queue"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("pending queue closed")

// Action is a unit of work applied to a view.
type Action[V any] func(view V)

// Queue is a FIFO of view actions. Enqueue may be called from any goroutine;
// Flush is expected to run on the UI goroutine.
type Queue[V any] struct {
	items    *queue.Queue
	flushing atomic.Bool
}

// New returns an empty queue.
func New[V any]() *Queue[V] {
	return &Queue[V]{items: queue.New(8)}
}

// Enqueue appends action to the tail. Nil actions are ignored.
func (q *Queue[V]) Enqueue(action Action[V]) error {
	if action == nil {
		return nil
	}
	if err := q.items.Put(action); err != nil {
		if errors.Is(err, queue.ErrDisposed) {
			return ErrClosed
		}
		return fmt.Errorf("enqueue view action: %w", err)
	}
	return nil
}

// Flush drains the queue in order. target is asked for the view before every
// action; when it reports no view the drain stops and the rest stays queued.
// Each action is removed before it runs, so an action that enqueues more work
// appends behind the current tail and is picked up by the same drain. A Flush
// that starts while another is running returns immediately.
func (q *Queue[V]) Flush(target func() (V, bool)) int {
	if !q.flushing.CompareAndSwap(false, true) {
		return 0
	}
	defer q.flushing.Store(false)

	ran := 0
	for !q.items.Empty() {
		view, ok := target()
		if !ok {
			break
		}
		// Only Flush removes items and it is not concurrent with itself, so the
		// queue cannot drain between Empty and Get.
		items, err := q.items.Get(1)
		if err != nil || len(items) == 0 {
			break
		}
		action, ok := items[0].(Action[V])
		if !ok {
			continue
		}
		action(view)
		ran++
	}
	return ran
}

// Len reports how many actions are waiting.
func (q *Queue[V]) Len() int {
	return int(q.items.Len())
}

// Close drops every queued action and rejects further Enqueue calls. It
// returns how many actions were dropped.
func (q *Queue[V]) Close() int {
	if q.items.Disposed() {
		return 0
	}
	return len(q.items.Dispose())
}
