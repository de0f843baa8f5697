package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/pressbox/darkroom/internal/library"
	"github.com/pressbox/darkroom/internal/queue"
)

// View renders the UI
func (m *Model) View() tea.View {
	if m.showHelp {
		return tea.NewView(m.helpView())
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("darkroom"))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"%d images · %d tagged · %d rated · %d flagged",
		m.stats.Images, m.stats.Tagged, m.stats.Rated, m.stats.Flagged)))
	b.WriteString("\n\n")

	if m.errText != "" {
		b.WriteString(errStyle.Render("⚠ " + m.errText))
		b.WriteString("\n\n")
	}

	b.WriteString(m.tableView())
	b.WriteString("\n")
	b.WriteString(m.queuePanelView())
	b.WriteString("\n")
	b.WriteString(m.statusBarView())

	return tea.NewView(b.String())
}

// tableView renders a window of the library around the cursor.
func (m *Model) tableView() string {
	if len(m.images) == 0 {
		return helpStyle.Render("  (library empty — R to refresh)")
	}

	rows := m.visibleRows()
	start, end := windowAround(m.cursor, len(m.images), rows)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-14s %-20s %-7s %-9s %s", "ID", "FILE", "RATING", "FAVORITE", "TAGS")))
	b.WriteString("\n")

	for i := start; i < end; i++ {
		img := m.images[i]
		line := fmt.Sprintf("%-14s %-20s %-7s %-9s %s",
			img.ID, img.Filename, ratingBadge(img.Rating), faveBadge(img), tagsSummary(img))

		switch {
		case i == m.cursor:
			b.WriteString(cursorStyle.Render("▸ " + line))
		case m.selected[img.ID]:
			b.WriteString(selectedStyle.Render("• " + line))
		default:
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// queuePanelView lists in-progress and failed commands, the inspectable
// error surface the queue promises.
func (m *Model) queuePanelView() string {
	if m.snap.InProgressCount == 0 && m.snap.FailedCount == 0 && m.snap.QueuedCount == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("  queue"))
	b.WriteString("\n")

	for _, item := range m.snap.InProgress {
		b.WriteString(inFlightStyle.Render(fmt.Sprintf("  %s #%d %s", m.spinner.View(), item.ID, item.Description)))
		b.WriteString("\n")
	}
	for _, item := range m.snap.Queued {
		b.WriteString(queuedStyle.Render(fmt.Sprintf("  · #%d %s", item.ID, item.Description)))
		b.WriteString("\n")
	}
	for _, item := range m.snap.Failed {
		b.WriteString(failedStyle.Render(fmt.Sprintf("  ✗ #%d %s — %s (r to retry)", item.ID, item.Description, itemError(item))))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) statusBarView() string {
	left := fmt.Sprintf("queued %d · in flight %d · failed %d",
		m.snap.QueuedCount, m.snap.InProgressCount, m.snap.FailedCount)
	right := "space select · t tag · f fave · 0-5 rate · r retry · ? help · q quit"

	bar := left
	if m.width > len(left)+len(right)+4 {
		bar = left + strings.Repeat(" ", m.width-len(left)-len(right)-2) + right
	}
	return statusBarStyle.Render(bar)
}

// visibleRows is how many table rows fit above the queue panel and bar.
func (m *Model) visibleRows() int {
	reserved := 6 + m.snap.InProgressCount + m.snap.QueuedCount + m.snap.FailedCount
	rows := m.height - reserved
	if rows < 5 {
		rows = 5
	}
	return rows
}

func windowAround(cursor, total, rows int) (int, int) {
	if total <= rows {
		return 0, total
	}
	start := cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > total {
		start = total - rows
	}
	return start, start + rows
}

func ratingBadge(rating int) string {
	if rating <= 0 {
		return "–"
	}
	return strings.Repeat("★", rating)
}

func faveBadge(img library.Image) string {
	if img.Lists[favoritesList] {
		return "♥"
	}
	return ""
}

func tagsSummary(img library.Image) string {
	if len(img.Tags) == 0 {
		return ""
	}
	keywords := make([]string, 0, len(img.Tags))
	for k := range img.Tags {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)
	if len(keywords) > 3 {
		return fmt.Sprintf("%s +%d", strings.Join(keywords[:3], ", "), len(keywords)-3)
	}
	return strings.Join(keywords, ", ")
}

func itemError(item queue.Item) string {
	if item.Err == nil {
		return "unknown error"
	}
	return item.Err.Error()
}
