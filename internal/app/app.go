// Package app wires the darkroom services together. Everything state-bearing
// lives on the App struct and is injected where needed; there are no
// package-level singletons, so tests can build as many isolated stacks as
// they like.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pressbox/darkroom/internal/api"
	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/config"
	"github.com/pressbox/darkroom/internal/events"
	"github.com/pressbox/darkroom/internal/library"
	"github.com/pressbox/darkroom/internal/logger"
	"github.com/pressbox/darkroom/internal/queue"
)

// App holds all the core services and business logic
type App struct {
	Config *config.Config
	Log    logger.Logger

	API     *api.Client
	Library *library.Store

	Registry   *command.Registry
	Queue      *queue.Core
	Dispatcher *queue.Dispatcher
	Events     *events.Broker
}

// New creates an app with all services initialized and every command type
// registered.
func New(cfg *config.Config, log logger.Logger) *App {
	if log == nil {
		log = logger.Nop()
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		API:     api.NewClient(cfg.API.BaseURL, cfg.API.TenantID, cfg.API.Token, cfg.API.Timeout),
		Library: library.NewStore(),
		Events:  events.NewBrokerBuffered(cfg.Queue.EventBuffer),
	}

	a.Registry = command.NewRegistry()
	a.registerHandlers()

	a.Queue = queue.NewCore(a.Events, log)
	a.Dispatcher = queue.NewDispatcher(a.Queue, a.Registry, cfg.Queue.Concurrency, log)

	return a
}

// Start begins dispatching queued commands.
func (a *App) Start() {
	a.Dispatcher.Start()
}

// Stop waits for in-flight commands, then shuts down.
func (a *App) Stop() {
	a.Dispatcher.Stop()
}

// EnqueueCommand applies cmd's optimistic patch and submits it to the
// queue, returning the assigned id. Submission cannot fail; a broken
// optimistic patch is logged and the command still goes out, because the
// server-side write matters more than the local preview.
func (a *App) EnqueueCommand(cmd command.Command) uint64 {
	if err := a.Registry.ApplyOptimistic(cmd); err != nil {
		a.Log.Warn("optimistic apply failed: " + err.Error())
		a.Events.Publish(events.Event{
			Type: events.StatusMessageEvent,
			Payload: events.StatusMessagePayload{
				Message: "local preview failed: " + err.Error(),
				Kind:    "warning",
			},
		})
	}
	return a.Queue.Enqueue(cmd)
}

// SubscribeQueue registers a snapshot callback; see queue.Core.Subscribe.
func (a *App) SubscribeQueue(fn func(queue.Snapshot)) func() {
	return a.Queue.Subscribe(fn)
}

// RetryFailedCommand re-enqueues a failed command. Unknown ids no-op.
func (a *App) RetryFailedCommand(id uint64) {
	a.Queue.Retry(id)
}

// RefreshLibrary refetches the image list and server stats concurrently,
// replaces the optimistic view, and returns the authoritative stats. This
// is the reconciliation path after failures.
func (a *App) RefreshLibrary(ctx context.Context) (library.Stats, error) {
	var (
		images []library.Image
		stats  library.Stats
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		images, err = a.API.ListImages(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = a.API.Stats(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return library.Stats{}, fmt.Errorf("refresh library: %w", err)
	}

	a.Library.Replace(images)
	a.Events.Publish(events.Event{Type: events.LibraryRefreshedEvent})
	return stats, nil
}

// registerHandlers installs the optimistic and execute sides for every
// command type. The type switch per handler keeps payload access honest: a
// mismatched command is an error, never a silent partial apply.
func (a *App) registerHandlers() {
	a.Registry.Register(command.TypeSetRating, command.Handler{
		Apply: func(cmd command.Command) error {
			c, ok := cmd.(command.SetRating)
			if !ok {
				return fmt.Errorf("expected SetRating, got %T", cmd)
			}
			a.Library.SetRating(c.ImageID, c.Rating)
			return nil
		},
		Execute: func(ctx context.Context, cmd command.Command) error {
			c, ok := cmd.(command.SetRating)
			if !ok {
				return fmt.Errorf("expected SetRating, got %T", cmd)
			}
			return a.API.SetRating(ctx, c.ImageID, c.Rating)
		},
	})

	a.Registry.Register(command.TypeBulkPermatags, command.Handler{
		Apply: func(cmd command.Command) error {
			c, ok := cmd.(command.BulkPermatags)
			if !ok {
				return fmt.Errorf("expected BulkPermatags, got %T", cmd)
			}
			for _, op := range c.Operations {
				a.Library.ApplyTag(op.ImageID, op.Keyword, op.Category, op.Signum)
			}
			return nil
		},
		Execute: func(ctx context.Context, cmd command.Command) error {
			c, ok := cmd.(command.BulkPermatags)
			if !ok {
				return fmt.Errorf("expected BulkPermatags, got %T", cmd)
			}
			return a.API.ApplyPermatags(ctx, c.Operations)
		},
	})

	a.Registry.Register(command.TypeAddToList, command.Handler{
		Apply: func(cmd command.Command) error {
			c, ok := cmd.(command.AddToList)
			if !ok {
				return fmt.Errorf("expected AddToList, got %T", cmd)
			}
			a.Library.SetListMembership(c.ImageID, c.ListID, true)
			return nil
		},
		Execute: func(ctx context.Context, cmd command.Command) error {
			c, ok := cmd.(command.AddToList)
			if !ok {
				return fmt.Errorf("expected AddToList, got %T", cmd)
			}
			return a.API.AddToList(ctx, c.ListID, c.ImageID)
		},
	})

	a.Registry.Register(command.TypeRemoveFromList, command.Handler{
		Apply: func(cmd command.Command) error {
			c, ok := cmd.(command.RemoveFromList)
			if !ok {
				return fmt.Errorf("expected RemoveFromList, got %T", cmd)
			}
			a.Library.SetListMembership(c.ImageID, c.ListID, false)
			return nil
		},
		Execute: func(ctx context.Context, cmd command.Command) error {
			c, ok := cmd.(command.RemoveFromList)
			if !ok {
				return fmt.Errorf("expected RemoveFromList, got %T", cmd)
			}
			return a.API.RemoveFromList(ctx, c.ListID, c.ImageID)
		},
	})
}
