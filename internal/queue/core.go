// Package queue is the mutation outbox: it accepts commands from UI
// gestures, serializes conflicting writes per resource key, runs the rest
// concurrently up to a fixed limit, and keeps failures inspectable until the
// user retries them.
//
// The package splits into composable parts:
//
//   - Item: envelope around one command (id, status, attempts, error)
//   - Core: the authoritative synchronous state container
//   - Dispatcher: decides which queued items may start executing now
//
// The Core is the single source of truth. Every transition happens inside
// one critical section, so subscribers only ever observe states that belong
// to a serial history of enqueue/claim/complete/fail/retry.
package queue

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/events"
	"github.com/pressbox/darkroom/internal/logger"
)

// Core holds pending, in-flight and failed items and owns every state
// transition. Enqueue never fails; only execution can.
//
// Used by: UI consumers (Enqueue, Retry, Subscribe), Dispatcher (ClaimNext,
// MarkComplete, MarkFailed).
type Core struct {
	mu sync.Mutex

	nextID   uint64
	queued   []*Item
	inFlight []*Item
	failed   []*Item

	// busy tracks resource keys currently in flight. At most one in-flight
	// item per key, ever.
	busy map[string]bool

	subs    map[int]func(Snapshot)
	nextSub int

	wake chan struct{}

	broker *events.Broker
	log    logger.Logger
}

// NewCore creates an empty core publishing completion events to broker.
func NewCore(broker *events.Broker, log logger.Logger) *Core {
	if log == nil {
		log = logger.Nop()
	}
	return &Core{
		busy:   make(map[string]bool),
		subs:   make(map[int]func(Snapshot)),
		wake:   make(chan struct{}, 1),
		broker: broker,
		log:    log,
	}
}

// Enqueue wraps cmd in an Item, assigns the next id and appends it to the
// pending sequence. Subscribers are notified synchronously before Enqueue
// returns. It cannot fail.
func (c *Core) Enqueue(cmd command.Command) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	item := &Item{
		ID:          c.nextID,
		Command:     cmd,
		ResourceKey: cmd.ResourceKey(),
		Description: cmd.Describe(),
		Status:      StatusQueued,
		CreatedAt:   time.Now(),
	}
	c.queued = append(c.queued, item)

	c.log.Debug("enqueued",
		zap.Uint64("id", item.ID),
		zap.String("type", string(cmd.Type())),
		zap.String("key", item.ResourceKey))

	c.notifyLocked()
	c.kick()
	return item.ID
}

// ClaimNext promotes the oldest runnable queued item to in-flight and
// returns it. An item is runnable when its resource key has nothing in
// flight. Returns false when limit slots are taken or nothing is runnable.
//
// Scan and promotion share one critical section, so two concurrent claims
// can never pick the same item or the same resource key.
//
// Called by: Dispatcher only.
func (c *Core) ClaimNext(limit int) (Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.inFlight) >= limit {
		return Item{}, false
	}

	for i, item := range c.queued {
		if c.busy[item.ResourceKey] {
			continue
		}

		c.queued = append(c.queued[:i], c.queued[i+1:]...)
		item.Status = StatusInFlight
		item.Attempts++
		c.inFlight = append(c.inFlight, item)
		c.busy[item.ResourceKey] = true

		c.log.Debug("claimed",
			zap.Uint64("id", item.ID),
			zap.String("key", item.ResourceKey),
			zap.Int("attempt", item.Attempts))

		c.notifyLocked()
		return *item, true
	}

	return Item{}, false
}

// MarkComplete removes an in-flight item entirely and publishes a
// completion event carrying the command type and its identifiers, so
// consumers can refresh stat counters selectively.
// Unknown or non-in-flight ids are a logged no-op.
func (c *Core) MarkComplete(id uint64) {
	c.mu.Lock()

	item := c.removeInFlightLocked(id)
	if item == nil {
		c.mu.Unlock()
		c.log.Warn("mark complete: not in flight", zap.Uint64("id", id))
		return
	}

	c.log.Debug("completed", zap.Uint64("id", id), zap.String("key", item.ResourceKey))
	c.notifyLocked()
	c.kick()
	c.mu.Unlock()

	if c.broker != nil {
		c.broker.Publish(events.Event{
			Type: events.CommandAppliedEvent,
			Payload: events.CommandAppliedPayload{
				CommandType: item.Command.Type(),
				Ref:         item.Command.Ref(),
			},
		})
	}
}

// MarkFailed moves an in-flight item to the failed sequence and retains the
// error for display. Nothing is retried automatically: a transient failure
// on a mutating call must not be repeated without the user seeing it.
// Unknown or non-in-flight ids are a logged no-op.
func (c *Core) MarkFailed(id uint64, err error) {
	c.mu.Lock()

	item := c.removeInFlightLocked(id)
	if item == nil {
		c.mu.Unlock()
		c.log.Warn("mark failed: not in flight", zap.Uint64("id", id))
		return
	}

	item.Status = StatusFailed
	item.Err = err
	c.failed = append(c.failed, item)

	c.log.Warn("command failed",
		zap.Uint64("id", id),
		zap.String("key", item.ResourceKey),
		zap.Int("attempts", item.Attempts),
		zap.Error(err))

	c.notifyLocked()
	c.kick()
	c.mu.Unlock()

	if c.broker != nil {
		c.broker.Publish(events.Event{
			Type: events.CommandFailedEvent,
			Payload: events.CommandFailedPayload{
				ID:          item.ID,
				CommandType: item.Command.Type(),
				Err:         err.Error(),
			},
		})
	}
}

// Retry re-enqueues a failed item at the front of its resource-key group:
// before any queued item sharing its key and before any younger unrelated
// item, so a retry does not lose its place against work submitted later.
// Ids not present in failed are a no-op, which also makes a double Retry
// enqueue the item exactly once.
func (c *Core) Retry(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var item *Item
	for i, it := range c.failed {
		if it.ID == id {
			item = it
			c.failed = append(c.failed[:i], c.failed[i+1:]...)
			break
		}
	}
	if item == nil {
		c.log.Debug("retry: id not in failed", zap.Uint64("id", id))
		return
	}

	item.Status = StatusQueued
	item.Err = nil

	at := len(c.queued)
	for i, it := range c.queued {
		if it.ResourceKey == item.ResourceKey || it.ID > item.ID {
			at = i
			break
		}
	}
	c.queued = append(c.queued, nil)
	copy(c.queued[at+1:], c.queued[at:])
	c.queued[at] = item

	c.log.Info("retrying",
		zap.Uint64("id", id),
		zap.String("key", item.ResourceKey),
		zap.Int("attempts", item.Attempts))

	c.notifyLocked()
	c.kick()
}

// Subscribe registers a snapshot callback and immediately invokes it once
// with the current state, so a late subscriber does not wait for the next
// mutation. Returns an unsubscribe func; subscribers are independent.
//
// Callbacks run synchronously on the mutating goroutine and must not call
// back into the Core.
func (c *Core) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	fn(snapshotOf(c.queued, c.inFlight, c.failed))

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Snapshot returns the current state as oldest-first copies.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return snapshotOf(c.queued, c.inFlight, c.failed)
}

// Wake returns the dispatcher's wake signal. The channel carries a token
// whenever the core mutated in a way that may unblock queued work.
func (c *Core) Wake() <-chan struct{} {
	return c.wake
}

// removeInFlightLocked detaches an item from the in-flight sequence and
// frees its resource key. Returns nil when id is not in flight.
func (c *Core) removeInFlightLocked(id uint64) *Item {
	for i, it := range c.inFlight {
		if it.ID == id {
			c.inFlight = append(c.inFlight[:i], c.inFlight[i+1:]...)
			delete(c.busy, it.ResourceKey)
			return it
		}
	}
	return nil
}

// notifyLocked delivers the current snapshot to every subscriber.
// Caller holds c.mu, so deliveries happen in transition order.
func (c *Core) notifyLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := snapshotOf(c.queued, c.inFlight, c.failed)
	for _, fn := range c.subs {
		fn(snap)
	}
}

// kick nudges the dispatcher without blocking; a pending token already
// guarantees a rescan.
func (c *Core) kick() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
