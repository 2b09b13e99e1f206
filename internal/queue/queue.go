// Package queue provides the per-project buffer of results awaiting upload.
package queue

import (
	"fmt"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// Queue is an ordered buffer of results plus a cursor marking how many of
// them were confirmed delivered. Items are never reordered, and the sent
// prefix is kept until Reset so batch offsets stay stable while an upload
// is in flight.
//
// Queue is not safe for concurrent use; the dispatcher guards it.
type Queue struct {
	items []model.TestResult
	sent  int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends a result.
func (q *Queue) Push(item model.TestResult) {
	q.items = append(q.items, item)
}

// Len returns the number of buffered items, sent or not.
func (q *Queue) Len() int {
	return len(q.items)
}

// Pending returns the number of items not yet confirmed delivered.
func (q *Queue) Pending() int {
	return len(q.items) - q.sent
}

// Batch returns a copy of the next max unsent items (fewer if fewer are
// pending). It does not advance the cursor.
func (q *Queue) Batch(max int) []model.TestResult {
	n := q.Pending()
	if max > 0 && n > max {
		n = max
	}
	if n == 0 {
		return nil
	}
	batch := make([]model.TestResult, n)
	copy(batch, q.items[q.sent:q.sent+n])
	return batch
}

// MarkSent advances the cursor by n delivered items.
func (q *Queue) MarkSent(n int) {
	if n < 0 || n > q.Pending() {
		panic(fmt.Sprintf("queue: MarkSent(%d) with %d pending", n, q.Pending()))
	}
	q.sent += n
}

// Reset drops all items and rewinds the cursor.
func (q *Queue) Reset() {
	q.items = nil
	q.sent = 0
}
