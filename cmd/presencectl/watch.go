// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/presenced/control"
	"github.com/bureau-foundation/presenced/lib/clock"
)

// snapshotSource is the part of control.Client the live view polls.
type snapshotSource interface {
	Snapshot(ctx context.Context) (control.SnapshotResponse, error)
}

// watchKeyMap holds the live view's bindings.
type watchKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

var defaultWatchKeys = watchKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (keys watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Up, keys.Down, keys.Refresh, keys.Quit}
}

// FullHelp implements help.KeyMap.
func (keys watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{keys.ShortHelp()}
}

// snapshotMsg carries the result of one poll.
type snapshotMsg struct {
	snapshot control.SnapshotResponse
	err      error
}

// pollTickMsg asks for the next poll.
type pollTickMsg struct{}

// watchModel is the bubbletea model behind "presencectl watch". It
// polls the daemon's snapshot action on a fixed interval and shows the
// records in a scrollable table.
type watchModel struct {
	source   snapshotSource
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration

	keys  watchKeyMap
	help  help.Model
	table table.Model
	theme theme

	width    int
	snapshot control.SnapshotResponse
	polled   bool
	err      error
}

func newWatchModel(source snapshotSource, clk clock.Clock, interval time.Duration, th theme) watchModel {
	model := watchModel{
		source:   source,
		clock:    clk,
		interval: interval,
		timeout:  callTimeout,
		keys:     defaultWatchKeys,
		help:     help.New(),
		theme:    th,
		width:    defaultWidth,
	}
	model.table = table.New(
		table.WithColumns(watchColumns(model.width)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	return model
}

// watchColumns splits width across the table columns, giving the
// remainder to details.
func watchColumns(width int) []table.Column {
	// Each cell carries one column of padding on either side.
	details := max(width-nameWidth-stateWidth-sinceWidth-8, 10)
	return []table.Column{
		{Title: "NAME", Width: nameWidth},
		{Title: "STATE", Width: stateWidth},
		{Title: "DETAILS", Width: details},
		{Title: "SINCE", Width: sinceWidth},
	}
}

func watchRows(snapshot control.SnapshotResponse) []table.Row {
	rows := make([]table.Row, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		since := "-"
		if entry.Start != nil {
			since = formatDuration(snapshot.TakenAt.Sub(*entry.Start))
		}
		rows = append(rows, table.Row{entry.Name, entry.State, entry.Details, since})
	}
	return rows
}

// Init implements tea.Model. The first poll runs immediately.
func (model watchModel) Init() tea.Cmd {
	return model.poll()
}

func (model watchModel) poll() tea.Cmd {
	source, timeout := model.source, model.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		snapshot, err := source.Snapshot(ctx)
		return snapshotMsg{snapshot: snapshot, err: err}
	}
}

func (model watchModel) scheduleTick() tea.Cmd {
	clk, interval := model.clock, model.interval
	return func() tea.Msg {
		<-clk.After(interval)
		return pollTickMsg{}
	}
}

// Update implements tea.Model.
func (model watchModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case snapshotMsg:
		model.polled = true
		model.err = message.err
		if message.err == nil {
			model.snapshot = message.snapshot
			model.table.SetRows(watchRows(message.snapshot))
		}
		return model, model.scheduleTick()

	case pollTickMsg:
		return model, model.poll()

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.help.Width = message.Width
		model.table.SetColumns(watchColumns(message.Width))
		// Title, blank line, table header, footer.
		model.table.SetHeight(max(message.Height-5, 3))
		return model, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Refresh):
			return model, model.poll()
		}
	}

	var command tea.Cmd
	model.table, command = model.table.Update(message)
	return model, command
}

// View implements tea.Model.
func (model watchModel) View() string {
	var out strings.Builder
	title := "presenced activities"
	if !model.polled {
		title += " (connecting…)"
	} else {
		title += fmt.Sprintf(" (%d, as of %s)", len(model.snapshot.Entries),
			model.snapshot.TakenAt.Local().Format(time.TimeOnly))
	}
	out.WriteString(model.theme.header.Render(title))
	out.WriteString("\n\n")
	if model.polled && len(model.snapshot.Entries) == 0 {
		out.WriteString(model.theme.muted.Render("no activities"))
		out.WriteString("\n")
	} else {
		out.WriteString(model.table.View())
		out.WriteString("\n")
	}
	if model.err != nil {
		out.WriteString(model.theme.bad.Render("poll failed: " + model.err.Error()))
		out.WriteString("\n")
	}
	out.WriteString(model.help.View(model.keys))
	return out.String()
}
