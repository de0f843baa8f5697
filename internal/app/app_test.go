package app

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/config"
	"github.com/pressbox/darkroom/internal/events"
	"github.com/pressbox/darkroom/internal/queue"
)

// flakyServer fails each distinct request path a configurable number of
// times before accepting it.
type flakyServer struct {
	mu       sync.Mutex
	failures map[string]int
	hits     map[string]int
}

func (f *flakyServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		f.hits[key]++
		if f.failures[key] > 0 {
			f.failures[key]--
			http.Error(w, `{"error":"try later"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestApp(t *testing.T, baseURL string) *App {
	t.Helper()

	cfg := &config.Config{
		API:   config.APIConfig{BaseURL: baseURL, TenantID: "t1", Timeout: time.Second},
		Queue: config.QueueConfig{Concurrency: 3, EventBuffer: 16},
	}
	a := New(cfg, nil)
	a.Start()
	t.Cleanup(a.Stop)
	return a
}

func TestEnqueueAppliesOptimisticallyAndDelivers(t *testing.T) {
	srv := &flakyServer{failures: map[string]int{}, hits: map[string]int{}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	a := newTestApp(t, ts.URL)
	applied := a.Events.Subscribe(events.CommandAppliedEvent)

	a.EnqueueCommand(command.SetRating{TenantID: "t1", ImageID: "img-1", Rating: 4})

	// Optimistic feedback is visible before the network round-trip settles.
	img, ok := a.Library.Get("img-1")
	require.True(t, ok)
	assert.Equal(t, 4, img.Rating)

	select {
	case ev := <-applied:
		payload := ev.Payload.(events.CommandAppliedPayload)
		assert.Equal(t, command.TypeSetRating, payload.CommandType)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a completion event")
	}

	require.Eventually(t, func() bool {
		s := a.Queue.Snapshot()
		return s.QueuedCount == 0 && s.InProgressCount == 0 && s.FailedCount == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestFailedCommandStaysVisibleUntilRetried(t *testing.T) {
	srv := &flakyServer{
		failures: map[string]int{"PUT /api/images/img-2/rating": 1},
		hits:     map[string]int{},
	}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	a := newTestApp(t, ts.URL)

	var lastSnap queue.Snapshot
	var snapMu sync.Mutex
	unsub := a.SubscribeQueue(func(s queue.Snapshot) {
		snapMu.Lock()
		lastSnap = s
		snapMu.Unlock()
	})
	defer unsub()

	id := a.EnqueueCommand(command.SetRating{TenantID: "t1", ImageID: "img-2", Rating: 5})

	require.Eventually(t, func() bool {
		snapMu.Lock()
		defer snapMu.Unlock()
		return lastSnap.FailedCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	// Optimistic rating survives the failure; no rollback.
	img, _ := a.Library.Get("img-2")
	assert.Equal(t, 5, img.Rating)

	a.RetryFailedCommand(id)

	require.Eventually(t, func() bool {
		snapMu.Lock()
		defer snapMu.Unlock()
		return lastSnap.FailedCount == 0 && lastSnap.QueuedCount == 0 && lastSnap.InProgressCount == 0
	}, 2*time.Second, 5*time.Millisecond)

	srv.mu.Lock()
	assert.Equal(t, 2, srv.hits["PUT /api/images/img-2/rating"], "one failure, one successful retry")
	srv.mu.Unlock()
}

func TestBulkPermatagsPatchesEveryTouchedImage(t *testing.T) {
	srv := &flakyServer{failures: map[string]int{}, hits: map[string]int{}}
	ts := httptest.NewServer(srv.handler())
	defer ts.Close()

	a := newTestApp(t, ts.URL)

	a.EnqueueCommand(command.BulkPermatags{
		TenantID:  "t1",
		HotspotID: "hs-sunset",
		Operations: []command.TagOperation{
			{ImageID: "a", Keyword: "sunset", Category: "scene", Signum: 1},
			{ImageID: "b", Keyword: "sunset", Category: "scene", Signum: 1},
		},
	})

	for _, id := range []string{"a", "b"} {
		img, ok := a.Library.Get(id)
		require.True(t, ok)
		assert.Equal(t, "scene", img.Tags["sunset"])
	}
}
