package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pressbox/darkroom/internal/library"
	"github.com/pressbox/darkroom/internal/queue"
)

func TestWindowAroundClampsToBounds(t *testing.T) {
	start, end := windowAround(0, 3, 10)
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, end)

	start, end = windowAround(0, 100, 10)
	assert.Equal(t, 0, start)
	assert.Equal(t, 10, end)

	start, end = windowAround(99, 100, 10)
	assert.Equal(t, 90, start)
	assert.Equal(t, 100, end)

	start, end = windowAround(50, 100, 10)
	assert.Equal(t, 45, start)
	assert.Equal(t, 55, end)
}

func TestRatingBadge(t *testing.T) {
	assert.Equal(t, "–", ratingBadge(0))
	assert.Equal(t, "★★★", ratingBadge(3))
}

func TestTagsSummaryTruncatesAndSorts(t *testing.T) {
	img := library.Image{Tags: map[string]string{
		"dusk": "scene", "beach": "scene", "crowd": "subject", "ava": "person",
	}}
	assert.Equal(t, "ava, beach, crowd +1", tagsSummary(img))

	assert.Equal(t, "", tagsSummary(library.Image{}))
}

func TestItemErrorFallsBackWhenNil(t *testing.T) {
	assert.Equal(t, "unknown error", itemError(queue.Item{}))
	assert.Equal(t, "boom", itemError(queue.Item{Err: errors.New("boom")}))
}
