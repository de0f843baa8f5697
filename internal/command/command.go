// Package command defines the mutation commands the outbox can carry.
//
// A Command is an immutable description of one user intent: enough data to
// patch the local library optimistically and to build the network request.
// The set of types is closed; the queue only ever sees the Command interface.
package command

import (
	"fmt"
	"strings"
)

// Type tags a command for registry lookup and completion events.
type Type string

const (
	TypeSetRating      Type = "set-rating"
	TypeBulkPermatags  Type = "bulk-permatags"
	TypeAddToList      Type = "add-to-list"
	TypeRemoveFromList Type = "remove-from-list"
)

// Command is one user intent headed for the remote service.
//
// ResourceKey decides which commands must be serialized relative to each
// other: at most one command per key is in flight, and commands sharing a
// key start in submission order. The derivation is total and deterministic.
type Command interface {
	Type() Type
	ResourceKey() string
	Describe() string
	Ref() Ref
}

// Ref carries the payload-derived identifiers a completion event exposes,
// so consumers can refresh selectively without inspecting payloads.
type Ref struct {
	ImageIDs  []string
	ListID    string
	HotspotID string
}

// SetRating sets an image's rating.
type SetRating struct {
	TenantID string
	ImageID  string
	Rating   int
}

func (c SetRating) Type() Type          { return TypeSetRating }
func (c SetRating) ResourceKey() string { return "rating:" + c.ImageID }
func (c SetRating) Ref() Ref            { return Ref{ImageIDs: []string{c.ImageID}} }

func (c SetRating) Describe() string {
	return fmt.Sprintf("rate %s → %d", c.ImageID, c.Rating)
}

// TagOperation is one signed tag delta inside a bulk command.
// Signum +1 applies the tag, -1 removes it.
type TagOperation struct {
	ImageID  string `json:"image_id"`
	Keyword  string `json:"keyword"`
	Category string `json:"category"`
	Signum   int    `json:"signum"`
}

// BulkPermatags applies a batch of tag deltas produced by dropping a
// selection onto a hotspot. The batch is atomic from the queue's point of
// view; partial server-side application is the executor's call.
//
// The resource key is the hotspot that produced the batch: sequential drops
// onto the same hotspot serialize, drops onto different hotspots run in
// parallel. Keying on every touched image would serialize almost everything
// during a large multi-select.
type BulkPermatags struct {
	TenantID    string
	HotspotID   string
	Operations  []TagOperation
	Description string
}

func (c BulkPermatags) Type() Type          { return TypeBulkPermatags }
func (c BulkPermatags) ResourceKey() string { return "permatags:" + c.HotspotID }

func (c BulkPermatags) Describe() string {
	if c.Description != "" {
		return c.Description
	}
	return fmt.Sprintf("%d tag changes", len(c.Operations))
}

func (c BulkPermatags) Ref() Ref {
	seen := make(map[string]bool, len(c.Operations))
	ids := make([]string, 0, len(c.Operations))
	for _, op := range c.Operations {
		if !seen[op.ImageID] {
			seen[op.ImageID] = true
			ids = append(ids, op.ImageID)
		}
	}
	return Ref{ImageIDs: ids, HotspotID: c.HotspotID}
}

// AddToList adds an image to a curated list.
type AddToList struct {
	TenantID string
	ImageID  string
	ListID   string
}

func (c AddToList) Type() Type          { return TypeAddToList }
func (c AddToList) ResourceKey() string { return listKey(c.ListID, c.ImageID) }
func (c AddToList) Describe() string    { return fmt.Sprintf("add %s to %s", c.ImageID, c.ListID) }

func (c AddToList) Ref() Ref {
	return Ref{ImageIDs: []string{c.ImageID}, ListID: c.ListID}
}

// RemoveFromList removes an image from a curated list.
type RemoveFromList struct {
	TenantID string
	ImageID  string
	ListID   string
}

func (c RemoveFromList) Type() Type          { return TypeRemoveFromList }
func (c RemoveFromList) ResourceKey() string { return listKey(c.ListID, c.ImageID) }

func (c RemoveFromList) Describe() string {
	return fmt.Sprintf("remove %s from %s", c.ImageID, c.ListID)
}

func (c RemoveFromList) Ref() Ref {
	return Ref{ImageIDs: []string{c.ImageID}, ListID: c.ListID}
}

// Add and remove against the same list entry share a key so they can never
// reorder around each other.
func listKey(listID, imageID string) string {
	return strings.Join([]string{"list", listID, imageID}, ":")
}
