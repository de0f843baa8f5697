package tui

import (
	"github.com/charmbracelet/glamour/v2"
)

const helpMarkdown = `# darkroom

A terminal client for your image library. Every edit is applied locally
first, then pushed to the server in the background. If a push fails the
command stays in the queue panel until you retry it.

## Keys

| Key | Action |
| --- | --- |
| ` + "`↑/k` `↓/j`" + ` | move cursor |
| ` + "`space`" + ` | select / deselect image |
| ` + "`0`–`5`" + ` | rate current image |
| ` + "`f`" + ` | toggle favorite |
| ` + "`t`" + ` | tag selection |
| ` + "`r`" + ` | retry oldest failed command |
| ` + "`R`" + ` | refresh library from server |
| ` + "`?`" + ` | toggle this help |
| ` + "`q`" + ` | quit |

## Queue

Commands on the same image run in order. Independent images run in
parallel. Failed commands never retry on their own.
`

func (m *Model) helpView() string {
	width := m.width - 4
	if width < 40 {
		width = 40
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return helpMarkdown
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return helpMarkdown
	}
	return out + helpStyle.Render("  press ? to close")
}
