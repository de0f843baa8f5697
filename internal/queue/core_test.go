package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/events"
)

func rating(imageID string, rating int) command.Command {
	return command.SetRating{ImageID: imageID, Rating: rating}
}

func newTestCore() *Core {
	return NewCore(events.NewBroker(), nil)
}

func TestEnqueueAssignsMonotonicIDs(t *testing.T) {
	c := newTestCore()

	id1 := c.Enqueue(rating("a", 1))
	id2 := c.Enqueue(rating("b", 2))
	id3 := c.Enqueue(rating("c", 3))

	assert.Less(t, id1, id2)
	assert.Less(t, id2, id3)

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.QueuedCount)
	assert.Len(t, snap.Queued, snap.QueuedCount)
	assert.Equal(t, id1, snap.Queued[0].ID, "oldest first")
}

func TestClaimNextRespectsLimitAndBusyKeys(t *testing.T) {
	c := newTestCore()

	c.Enqueue(rating("a", 1))
	c.Enqueue(rating("a", 2)) // same key as first
	c.Enqueue(rating("b", 1))
	c.Enqueue(rating("c", 1))

	first, ok := c.ClaimNext(2)
	require.True(t, ok)
	assert.Equal(t, "rating:a", first.ResourceKey)
	assert.Equal(t, StatusInFlight, first.Status)
	assert.Equal(t, 1, first.Attempts)

	// rating:a is busy, so the next claim skips the second "a" command.
	second, ok := c.ClaimNext(2)
	require.True(t, ok)
	assert.Equal(t, "rating:b", second.ResourceKey)

	// Both slots taken.
	_, ok = c.ClaimNext(2)
	assert.False(t, ok)

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.InProgressCount)
	assert.Equal(t, 2, snap.QueuedCount)
}

func TestMarkCompletePrunesEverywhere(t *testing.T) {
	c := newTestCore()

	id := c.Enqueue(rating("a", 1))
	_, ok := c.ClaimNext(1)
	require.True(t, ok)

	c.MarkComplete(id)

	snap := c.Snapshot()
	assert.Zero(t, snap.QueuedCount)
	assert.Zero(t, snap.InProgressCount)
	assert.Zero(t, snap.FailedCount)

	// The freed key is claimable again.
	c.Enqueue(rating("a", 2))
	_, ok = c.ClaimNext(1)
	assert.True(t, ok)
}

func TestMarkCompletePublishesCompletionEvent(t *testing.T) {
	broker := events.NewBroker()
	c := NewCore(broker, nil)
	ch := broker.Subscribe(events.CommandAppliedEvent)

	id := c.Enqueue(command.AddToList{ImageID: "img-7", ListID: "faves"})
	_, ok := c.ClaimNext(1)
	require.True(t, ok)
	c.MarkComplete(id)

	select {
	case ev := <-ch:
		payload, ok := ev.Payload.(events.CommandAppliedPayload)
		require.True(t, ok)
		assert.Equal(t, command.TypeAddToList, payload.CommandType)
		assert.Equal(t, []string{"img-7"}, payload.Ref.ImageIDs)
		assert.Equal(t, "faves", payload.Ref.ListID)
	default:
		t.Fatal("expected a completion event")
	}
}

func TestMarkFailedRetainsError(t *testing.T) {
	c := newTestCore()

	id := c.Enqueue(rating("a", 1))
	_, ok := c.ClaimNext(1)
	require.True(t, ok)

	boom := errors.New("503 from server")
	c.MarkFailed(id, boom)

	snap := c.Snapshot()
	assert.Zero(t, snap.InProgressCount)
	require.Equal(t, 1, snap.FailedCount)
	assert.Equal(t, StatusFailed, snap.Failed[0].Status)
	assert.Equal(t, boom, snap.Failed[0].Err)

	// The key is free again: an unrelated command on it may start.
	c.Enqueue(rating("a", 2))
	_, ok = c.ClaimNext(1)
	assert.True(t, ok)
}

func TestMarkOnUnknownIDIsNoOp(t *testing.T) {
	c := newTestCore()
	c.Enqueue(rating("a", 1))

	// Neither call may disturb the queued item.
	c.MarkComplete(42)
	c.MarkFailed(42, errors.New("nope"))

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.QueuedCount)
	assert.Zero(t, snap.FailedCount)
}

func TestRetryReinsertsAtFrontOfKeyGroup(t *testing.T) {
	c := newTestCore()

	idA := c.Enqueue(rating("a", 1)) // rating:a
	_, ok := c.ClaimNext(1)
	require.True(t, ok)

	// While A is in flight, more work shows up.
	c.Enqueue(rating("a", 2)) // same key, younger
	c.Enqueue(rating("b", 1)) // unrelated

	c.MarkFailed(idA, errors.New("flaky"))
	c.Retry(idA)

	snap := c.Snapshot()
	require.Equal(t, 3, snap.QueuedCount)
	assert.Equal(t, idA, snap.Queued[0].ID, "retried command leads its key group")
	assert.Equal(t, StatusQueued, snap.Queued[0].Status)
	assert.Nil(t, snap.Queued[0].Err)
	assert.Zero(t, snap.FailedCount)
}

func TestRetryKeepsPositionAgainstYoungerUnrelatedCommands(t *testing.T) {
	c := newTestCore()

	idA := c.Enqueue(rating("a", 1))
	_, ok := c.ClaimNext(1)
	require.True(t, ok)
	c.MarkFailed(idA, errors.New("flaky"))

	// Younger, independent work arrives after the failure.
	idB := c.Enqueue(rating("b", 1))

	c.Retry(idA)

	snap := c.Snapshot()
	require.Equal(t, 2, snap.QueuedCount)
	assert.Equal(t, idA, snap.Queued[0].ID)
	assert.Equal(t, idB, snap.Queued[1].ID)
}

func TestRetryIsNoOpForUnknownOrDoubledIDs(t *testing.T) {
	c := newTestCore()

	c.Retry(99) // nothing failed yet

	idA := c.Enqueue(rating("a", 1))
	_, ok := c.ClaimNext(1)
	require.True(t, ok)
	c.MarkFailed(idA, errors.New("flaky"))

	c.Retry(idA)
	c.Retry(idA) // second call finds nothing in failed

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.QueuedCount, "double retry enqueues exactly once")
	assert.Zero(t, snap.FailedCount)
}

func TestSubscribeDeliversCurrentStateImmediately(t *testing.T) {
	c := newTestCore()

	c.Enqueue(rating("a", 1))
	c.Enqueue(rating("b", 1))
	_, ok := c.ClaimNext(1)
	require.True(t, ok)

	var got []Snapshot
	unsub := c.Subscribe(func(s Snapshot) { got = append(got, s) })
	defer unsub()

	require.Len(t, got, 1, "initial snapshot arrives without waiting for a mutation")
	assert.Equal(t, 1, got[0].QueuedCount)
	assert.Equal(t, 1, got[0].InProgressCount)
}

func TestSubscribersAreIndependent(t *testing.T) {
	c := newTestCore()

	var first, second int
	unsubFirst := c.Subscribe(func(Snapshot) { first++ })
	unsubSecond := c.Subscribe(func(Snapshot) { second++ })
	defer unsubSecond()

	c.Enqueue(rating("a", 1))
	unsubFirst()
	c.Enqueue(rating("b", 1))

	assert.Equal(t, 2, first, "initial + one mutation")
	assert.Equal(t, 3, second, "initial + two mutations")
}

func TestCountsAlwaysMatchSequences(t *testing.T) {
	c := newTestCore()

	var last Snapshot
	unsub := c.Subscribe(func(s Snapshot) { last = s })
	defer unsub()

	idA := c.Enqueue(rating("a", 1))
	c.Enqueue(rating("b", 1))
	_, ok := c.ClaimNext(2)
	require.True(t, ok)
	c.MarkFailed(idA, errors.New("boom"))

	assert.Equal(t, len(last.Queued), last.QueuedCount)
	assert.Equal(t, len(last.InProgress), last.InProgressCount)
	assert.Equal(t, len(last.Failed), last.FailedCount)
	assert.Equal(t, 1, last.QueuedCount)
	assert.Equal(t, 1, last.FailedCount)
}
