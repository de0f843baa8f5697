// Package tui is the terminal front end: a library browser whose gestures
// (rate, tag a selection, toggle list membership) all go through the
// mutation outbox, plus a live panel over the queue itself.
//
// The TUI is a plain queue consumer. It learns about queue state through
// Core.Subscribe and about completions through the event broker; it never
// reaches into queue internals.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/pressbox/darkroom/internal/app"
	"github.com/pressbox/darkroom/internal/command"
	"github.com/pressbox/darkroom/internal/events"
	"github.com/pressbox/darkroom/internal/library"
	"github.com/pressbox/darkroom/internal/queue"
)

// favoritesList is the list the "f" gesture toggles membership in.
const favoritesList = "favorites"

// Messages pumped in from the queue subscription and the event broker.
type (
	snapshotMsg    queue.Snapshot
	brokerEventMsg events.Event

	libraryLoadedMsg struct {
		images []library.Image
		stats  library.Stats
		err    error
	}

	statsMsg struct {
		stats library.Stats
		err   error
	}
)

// Model is the root TUI model.
type Model struct {
	app  *app.App
	keys KeyMap

	// Queue state, updated on every core transition.
	snap   queue.Snapshot
	snapCh chan queue.Snapshot
	unsub  func()
	evCh   <-chan events.Event

	// Library view.
	images   []library.Image
	stats    library.Stats
	cursor   int
	selected map[string]bool

	spinner  spinner.Model
	width    int
	height   int
	showHelp bool
	errText  string
}

// New creates the root model wired to a.
func New(a *app.App) *Model {
	m := &Model{
		app:      a,
		keys:     DefaultKeyMap(),
		snapCh:   make(chan queue.Snapshot, 8),
		selected: make(map[string]bool),
		spinner:  newSpinner(),
	}

	// The subscription callback runs on the mutating goroutine: forward
	// without blocking, dropping the oldest buffered snapshot when full.
	// Only the newest snapshot matters to a renderer.
	m.unsub = a.SubscribeQueue(func(s queue.Snapshot) {
		for {
			select {
			case m.snapCh <- s:
				return
			default:
				select {
				case <-m.snapCh:
				default:
				}
			}
		}
	})

	m.evCh = a.Events.Subscribe(events.CommandAppliedEvent, events.CommandFailedEvent, events.StatusMessageEvent)

	return m
}

func newSpinner() spinner.Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return s
}

// Init kicks off the snapshot/event pumps and the initial library fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.waitSnapshot(),
		m.waitEvent(),
		m.loadLibrary(),
		m.spinner.Tick,
	)
}

func (m *Model) waitSnapshot() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-m.snapCh)
	}
}

func (m *Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.evCh
		if !ok {
			return nil
		}
		return brokerEventMsg(ev)
	}
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		stats, err := m.app.RefreshLibrary(ctx)
		return libraryLoadedMsg{images: m.app.Library.All(), stats: stats, err: err}
	}
}

// refreshStats refetches only the counters. Used after completions, where a
// full library refetch would be wasteful.
func (m *Model) refreshStats() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		stats, err := m.app.API.Stats(ctx)
		return statsMsg{stats: stats, err: err}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		m.snap = queue.Snapshot(msg)
		return m, m.waitSnapshot()

	case brokerEventMsg:
		ev := events.Event(msg)
		switch ev.Type {
		case events.CommandAppliedEvent:
			// A mutation landed remotely; derived counters may have moved.
			return m, tea.Batch(m.refreshStats(), m.waitEvent())
		case events.StatusMessageEvent:
			if p, ok := ev.Payload.(events.StatusMessagePayload); ok {
				m.errText = p.Message
			}
		}
		return m, m.waitEvent()

	case libraryLoadedMsg:
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		m.images = msg.images
		m.stats = msg.stats
		if m.cursor >= len(m.images) && len(m.images) > 0 {
			m.cursor = len(m.images) - 1
		}
		return m, nil

	case statsMsg:
		if msg.err == nil {
			m.stats = msg.stats
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.unsub()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.images)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if img, ok := m.current(); ok {
			m.selected[img.ID] = !m.selected[img.ID]
		}
		return m, nil

	case key.Matches(msg, m.keys.Rate):
		return m, m.rateCurrent(msg.String())

	case key.Matches(msg, m.keys.Fave):
		return m, m.toggleFavorite()

	case key.Matches(msg, m.keys.Tag):
		return m, m.tagSelection()

	case key.Matches(msg, m.keys.Retry):
		return m, m.retryOldestFailure()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadLibrary()
	}

	return m, nil
}

func (m *Model) current() (library.Image, bool) {
	if m.cursor < 0 || m.cursor >= len(m.images) {
		return library.Image{}, false
	}
	return m.images[m.cursor], true
}

// rateCurrent enqueues a rating change for the image under the cursor. The
// optimistic patch makes the badge move before the request resolves.
func (m *Model) rateCurrent(digit string) tea.Cmd {
	img, ok := m.current()
	if !ok || len(digit) != 1 {
		return nil
	}

	m.app.EnqueueCommand(command.SetRating{
		TenantID: m.app.Config.API.TenantID,
		ImageID:  img.ID,
		Rating:   int(digit[0] - '0'),
	})
	m.images = m.app.Library.All()
	return nil
}

func (m *Model) toggleFavorite() tea.Cmd {
	img, ok := m.current()
	if !ok {
		return nil
	}

	if img.Lists[favoritesList] {
		m.app.EnqueueCommand(command.RemoveFromList{
			TenantID: m.app.Config.API.TenantID,
			ImageID:  img.ID,
			ListID:   favoritesList,
		})
	} else {
		m.app.EnqueueCommand(command.AddToList{
			TenantID: m.app.Config.API.TenantID,
			ImageID:  img.ID,
			ListID:   favoritesList,
		})
	}
	m.images = m.app.Library.All()
	return nil
}

// tagSelection is the hotspot-drop gesture: the whole multi-select becomes
// one atomic bulk command keyed on the hotspot.
func (m *Model) tagSelection() tea.Cmd {
	ops := make([]command.TagOperation, 0, len(m.selected))
	for id, on := range m.selected {
		if on {
			ops = append(ops, command.TagOperation{
				ImageID:  id,
				Keyword:  "sunset",
				Category: "scene",
				Signum:   1,
			})
		}
	}
	if len(ops) == 0 {
		return nil
	}

	m.app.EnqueueCommand(command.BulkPermatags{
		TenantID:    m.app.Config.API.TenantID,
		HotspotID:   "hotspot:sunset",
		Operations:  ops,
		Description: fmt.Sprintf("tag %d as sunset", len(ops)),
	})

	m.selected = make(map[string]bool)
	m.images = m.app.Library.All()
	return nil
}

func (m *Model) retryOldestFailure() tea.Cmd {
	if len(m.snap.Failed) == 0 {
		return nil
	}
	m.app.RetryFailedCommand(m.snap.Failed[0].ID)
	return nil
}
