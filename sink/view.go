// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"time"

	"github.com/flosch/pongo2/v6"

	"github.com/bureau-foundation/presenced/publish"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// indexTemplate renders the snapshot. pongo2 autoescapes every
// variable; client-supplied strings are never trusted as markup.
const indexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Presence</title>
<style>
body { font-family: sans-serif; margin: 2rem auto; max-width: 48rem; color: #222; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 0.75rem 1rem; margin-bottom: 0.75rem; }
.client { font-weight: bold; }
.muted { color: #777; font-size: 0.9em; }
</style>
</head>
<body>
<h1>Presence</h1>
{% for entry in states %}
<div class="card">
  <div class="client">{{ entry.Client }}</div>
  {% if entry.Details %}<div>{{ entry.Details }}</div>{% endif %}
  {% if entry.State %}<div>{{ entry.State }}</div>{% endif %}
  {% if entry.LargeText %}<div class="muted">{{ entry.LargeText }}</div>{% endif %}
  {% if entry.SmallText %}<div class="muted">{{ entry.SmallText }}</div>{% endif %}
  {% if entry.Start %}<div class="muted">since {{ entry.Start }}</div>{% endif %}
  {% if entry.End %}<div class="muted">until {{ entry.End }}</div>{% endif %}
</div>
{% empty %}
<p>Nothing is running.</p>
{% endfor %}
<p class="muted">Last updated {{ last_updated }}</p>
</body>
</html>
`

// viewState is a PresenceState with its times preformatted.
type viewState struct {
	Client    string
	LargeText string
	SmallText string
	State     string
	Details   string
	Start     string
	End       string
}

type view struct {
	template *pongo2.Template
}

func newView() (*view, error) {
	template, err := pongo2.FromString(indexTemplate)
	if err != nil {
		return nil, err
	}
	return &view{template: template}, nil
}

func (v *view) render(states []publish.PresenceState, lastUpdated time.Time) ([]byte, error) {
	entries := make([]viewState, 0, len(states))
	for _, state := range states {
		entries = append(entries, viewState{
			Client:    state.Client,
			LargeText: state.LargeText,
			SmallText: state.SmallText,
			State:     state.State,
			Details:   state.Details,
			Start:     formatTime(state.StartTime),
			End:       formatTime(state.EndTime),
		})
	}
	return v.template.ExecuteBytes(pongo2.Context{
		"states":       entries,
		"last_updated": lastUpdated.Local().Format(timeLayout),
	})
}

func formatTime(instant *time.Time) string {
	if instant == nil {
		return ""
	}
	return instant.Local().Format(timeLayout)
}
