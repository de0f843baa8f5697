package events

import "github.com/pressbox/darkroom/internal/command"

// EventType identifies the type of event
type EventType string

const (
	// Queue events
	CommandAppliedEvent EventType = "command.applied"
	CommandFailedEvent  EventType = "command.failed"

	// Library events
	LibraryRefreshedEvent EventType = "library.refreshed"

	// UI events
	StatusMessageEvent EventType = "ui.status"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	Payload interface{}
}

// Event payload types

// CommandAppliedPayload announces a successfully applied command.
// It carries the command type plus identifying fields so stat-counter
// consumers can decide whether to refresh without inspecting queue state.
type CommandAppliedPayload struct {
	CommandType command.Type
	Ref         command.Ref
}

// CommandFailedPayload announces a command landing in the failed set.
type CommandFailedPayload struct {
	ID          uint64
	CommandType command.Type
	Err         string
}

type StatusMessagePayload struct {
	Message string
	Kind    string // "info", "warning", "error", "success"
}
