package queue

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/logger"
)

// DefaultConcurrency is how many commands may be in flight at once when the
// config does not say otherwise.
const DefaultConcurrency = 3

// Dispatcher drives execution without violating the ordering invariants.
//
// A single scan goroutine waits on the core's wake signal and claims
// runnable items: oldest first, skipping resource keys already in flight,
// never exceeding the concurrency limit. Each claimed item executes in its
// own goroutine; the outcome is routed back to the Core, which wakes the
// scan again because a freed slot or key may unblock queued work.
//
// The dispatcher never retries and never aborts in-flight work. An item
// that has started runs to completion or failure; its context is canceled
// only when the whole dispatcher shuts down.
type Dispatcher struct {
	core     *Core
	registry *command.Registry
	limit    int
	log      logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher claiming from core with the given
// concurrency limit.
func NewDispatcher(core *Core, registry *command.Registry, limit int, log logger.Logger) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		core:     core,
		registry: registry,
		limit:    limit,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the scan loop. Call once during startup.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop shuts the dispatcher down and waits for in-flight commands to
// finish. Queued items stay queued; they are lost with the process, which
// is the accepted lifecycle for this queue.
func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	// Drain anything enqueued before Start.
	d.fill()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.core.Wake():
			d.fill()
		}
	}
}

// fill claims runnable items until the limit is hit or nothing runnable
// remains. Spurious wake-ups just make this a no-op pass.
func (d *Dispatcher) fill() {
	for {
		item, ok := d.core.ClaimNext(d.limit)
		if !ok {
			return
		}

		d.wg.Add(1)
		go d.execute(item)
	}
}

// execute runs one command's network call and reports the outcome.
// Timeout behavior belongs to the executor; a timed-out call fails like any
// other rejection.
func (d *Dispatcher) execute(item Item) {
	defer d.wg.Done()

	err := d.registry.Execute(d.ctx, item.Command)
	if err != nil {
		d.log.Debug("execute failed",
			zap.Uint64("id", item.ID),
			zap.String("type", string(item.Command.Type())),
			zap.Error(err))
		d.core.MarkFailed(item.ID, err)
		return
	}

	d.core.MarkComplete(item.ID)
}
