package enrichment

import (
	"context"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
)

// Task is an outstanding enrichment call. It resolves exactly once, after the
// result has been merged into (or discarded by) the catalog.
type Task struct {
	ItemID string

	done      chan struct{}
	metadata  *models.Metadata
	err       error
	discarded bool
}

func newTask(id string) *Task {
	return &Task{ItemID: id, done: make(chan struct{})}
}

func (t *Task) resolve(md *models.Metadata, discarded bool, err error) {
	t.metadata = md
	t.discarded = discarded
	t.err = err
	close(t.done)
}

// Done is closed once the task has resolved
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task resolves or ctx ends
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the failure of a resolved task; nil while pending
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Metadata returns the merged result, or nil on failure or while pending
func (t *Task) Metadata() *models.Metadata {
	select {
	case <-t.done:
		return t.metadata
	default:
		return nil
	}
}

// Discarded reports that the item was deleted before the result arrived
func (t *Task) Discarded() bool {
	select {
	case <-t.done:
		return t.discarded
	default:
		return false
	}
}
