package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const maxErrorWidth = 40

// renderHeader renders the top bar.
//
// Layout:
//
//	left:   "yb-stats  <hosts>"
//	center: "● LIVE" once a diff exists, "● WAITING" before, or
//	        "● NO DATA  <error>" after a failed poll
//	right:  "Last: HH:MM:SS  Poll: 5s" (or "Press r to retry" when failing)
func renderHeader(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}

	left := "yb-stats  " + strings.Join(app.cfg.Hosts, ",")

	var center, right string
	switch {
	case app.connState == stateFailing:
		msg := "● NO DATA"
		if app.lastError != nil {
			msg += "  " + truncate(app.lastError.Error(), maxErrorWidth)
		}
		center = StyleError.Render(msg)
		right = StyleError.Render("Press r to retry")
	case app.report == nil:
		center = StyleStatusWaiting.Render("● WAITING")
		right = StyleDim.Render("Poll: " + formatDuration(app.cfg.Interval))
	default:
		center = StyleStatusOK.Render("● LIVE")
		right = StyleDim.Render(fmt.Sprintf("Last: %s  Poll: %s",
			app.lastUpdated.Format("15:04:05"), formatDuration(app.cfg.Interval)))
	}

	// StyleHeader pads one cell on each side.
	innerWidth := width - 2
	spacing := max(innerWidth-lipgloss.Width(left)-lipgloss.Width(center)-lipgloss.Width(right), 0)
	leftSpacing := spacing / 2

	row := left +
		strings.Repeat(" ", leftSpacing) +
		center +
		strings.Repeat(" ", spacing-leftSpacing) +
		right

	return StyleHeader.Width(width).Render(row)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// formatDuration formats a poll interval compactly, e.g. "10s" or "2m".
func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
