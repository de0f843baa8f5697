package queue

import (
	"time"

	"github.com/pressbox/darkroom/internal/command"
)

// Status is an item's position in the queue lifecycle.
// There is no "complete" status: completed items are pruned immediately.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusInFlight Status = "in-flight"
	StatusFailed   Status = "failed"
)

// Item is the queue's envelope around a command.
//
// The ID is process-unique and monotonic, assigned at enqueue and stable for
// the item's whole lifetime. Attempts counts execution starts, not retries:
// it ticks when the dispatcher claims the item, so a command that failed
// once and was retried shows 2 after its second claim.
//
// Created by: Core.Enqueue
// Mutated by: Core only (always under its lock)
type Item struct {
	ID          uint64
	Command     command.Command
	ResourceKey string
	Description string
	Attempts    int
	Status      Status
	CreatedAt   time.Time

	// Err is the execution error, set while the item sits in failed.
	Err error
}

// Snapshot is the externally observable queue state.
// Sequences are oldest-first copies; counts are always derived from the
// sequences, never tracked separately.
type Snapshot struct {
	Queued     []Item
	InProgress []Item
	Failed     []Item

	QueuedCount     int
	InProgressCount int
	FailedCount     int
}

func snapshotOf(queued, inFlight, failed []*Item) Snapshot {
	s := Snapshot{
		Queued:     copyItems(queued),
		InProgress: copyItems(inFlight),
		Failed:     copyItems(failed),
	}
	s.QueuedCount = len(s.Queued)
	s.InProgressCount = len(s.InProgress)
	s.FailedCount = len(s.Failed)
	return s
}

func copyItems(items []*Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = *it
	}
	return out
}
