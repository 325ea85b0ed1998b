// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/presenced/cmd/presencectl/cli"
	"github.com/bureau-foundation/presenced/control"
)

// theme carries the styles for one output stream. With the Ascii
// profile every style renders as plain text.
type theme struct {
	header lipgloss.Style
	label  lipgloss.Style
	muted  lipgloss.Style
	good   lipgloss.Style
	bad    lipgloss.Style
}

// newTheme picks a color profile for w: colors only on a terminal and
// only when NO_COLOR is unset.
func newTheme(w io.Writer) theme {
	profile := termenv.Ascii
	if f, ok := w.(*os.File); ok && cli.IsTerminal(f) && os.Getenv("NO_COLOR") == "" {
		profile = termenv.EnvColorProfile()
	}
	return newThemeWithProfile(w, profile)
}

func newThemeWithProfile(w io.Writer, profile termenv.Profile) theme {
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)
	return theme{
		header: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:  renderer.NewStyle().Bold(true),
		muted:  renderer.NewStyle().Foreground(lipgloss.Color("8")),
		good:   renderer.NewStyle().Foreground(lipgloss.Color("10")),
		bad:    renderer.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func renderStatus(status control.StatusResponse, th theme) string {
	var out strings.Builder
	row := func(label, value string) {
		fmt.Fprintf(&out, "%s %s\n", th.label.Width(12).Render(label), value)
	}

	row("version", status.Version)
	row("uptime", formatDuration(time.Duration(status.UptimeSeconds*float64(time.Second))))
	row("mode", status.Mode)
	row("sink", status.Sink)
	if len(status.Endpoints) == 0 {
		row("endpoints", th.bad.Render("none"))
	}
	for index, endpoint := range status.Endpoints {
		label := ""
		if index == 0 {
			label = "endpoints"
		}
		row(label, endpoint)
	}
	row("connections", fmt.Sprintf("%d", status.Connections))
	row("records", fmt.Sprintf("%d", status.Records))

	publishes := fmt.Sprintf("%s ok, %s failed",
		th.good.Render(fmt.Sprintf("%d", status.PublishesSucceeded)),
		failedStyle(th, status.PublishesFailed).Render(fmt.Sprintf("%d", status.PublishesFailed)))
	row("publishes", publishes)
	if status.LastPublish.IsZero() {
		row("last", th.muted.Render("never"))
	} else {
		row("last", status.LastPublish.Local().Format(time.DateTime))
	}
	if status.LastError != "" {
		row("last error", th.bad.Render(status.LastError))
	}
	return out.String()
}

func failedStyle(th theme, failed uint64) lipgloss.Style {
	if failed == 0 {
		return th.muted
	}
	return th.bad
}

// column widths, before the flexible details column.
const (
	nameWidth  = 20
	stateWidth = 24
	sinceWidth = 10
	gapWidth   = 2
)

// renderSnapshot draws the records as a table no wider than width.
// Overlong cells are cut with an ellipsis.
func renderSnapshot(snapshot control.SnapshotResponse, width int, th theme) string {
	if len(snapshot.Entries) == 0 {
		return th.muted.Render("no activities") + "\n"
	}

	detailsWidth := max(width-nameWidth-stateWidth-sinceWidth-3*gapWidth, 10)
	widths := []int{nameWidth, stateWidth, detailsWidth, sinceWidth}

	var out strings.Builder
	writeRow := func(style lipgloss.Style, cells ...string) {
		for index, cell := range cells {
			cell = ansi.Truncate(cell, widths[index], "…")
			padded := cell + strings.Repeat(" ", widths[index]-ansi.StringWidth(cell))
			if index == len(cells)-1 {
				padded = strings.TrimRight(padded, " ")
			} else {
				padded += strings.Repeat(" ", gapWidth)
			}
			out.WriteString(style.Render(padded))
		}
		out.WriteString("\n")
	}

	writeRow(th.header, "NAME", "STATE", "DETAILS", "SINCE")
	for _, entry := range snapshot.Entries {
		since := "-"
		if entry.Start != nil {
			since = formatDuration(snapshot.TakenAt.Sub(*entry.Start))
		}
		writeRow(lipgloss.NewStyle(), entry.Name, entry.State, entry.Details, since)
	}
	return out.String()
}

// formatDuration renders d at the two largest units ("3d 4h", "5m 2s").
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "-"
	}
	d = d.Truncate(time.Second)
	days := d / (24 * time.Hour)
	hours := (d % (24 * time.Hour)) / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
