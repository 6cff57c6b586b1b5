package engine

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/protocol"
)

// PanelSink is the display surface that can host side-channel payloads.
// HasPanel reflects the capabilities the client announced when it
// connected; the router never assumes a panel exists.
type PanelSink interface {
	HasPanel(kind RouteKind) bool
	SendJobs(jobs json.RawMessage, tag string) error
	SendHeatmap(data json.RawMessage) error
}

// InlineSink renders fallback HTML into the transcript so a payload is
// still visible when no panel can take it.
type InlineSink interface {
	InlineHTML(html string)
}

// Router forwards structured payloads to their display surface the
// moment they arrive. It is decoupled from message lifecycle on purpose:
// payloads can show up before, during or after text and are never
// buffered until turn completion.
type Router struct {
	panels PanelSink
	inline InlineSink
}

func NewRouter(panels PanelSink, inline InlineSink) *Router {
	return &Router{panels: panels, inline: inline}
}

// Route delivers one payload. It never fails the turn: a missing or
// broken panel degrades to inline rendering, and a missing inline sink
// only logs.
func (r *Router) Route(kind RouteKind, payload json.RawMessage, tag string) {
	switch kind {
	case RouteJobs:
		if r.panels != nil && r.panels.HasPanel(RouteJobs) {
			err := r.panels.SendJobs(payload, tag)
			if err == nil {
				return
			}
			log.Warn().Err(err).Msg("Jobs panel rejected payload, rendering inline")
		}
		r.renderInline(jobsFallbackHTML(payload, tag))

	case RouteHeatmap:
		if r.panels != nil && r.panels.HasPanel(RouteHeatmap) {
			err := r.panels.SendHeatmap(payload)
			if err == nil {
				return
			}
			log.Warn().Err(err).Msg("Heatmap panel rejected payload, rendering inline")
		}
		r.renderInline(`<em>Skill heatmap data is ready, but no chart panel is attached.</em>`)

	default:
		log.Warn().Str("kind", string(kind)).Msg("Unknown side-channel kind")
	}
}

func (r *Router) renderInline(markup string) {
	if r.inline == nil {
		log.Warn().Msg("No inline sink for side-channel fallback")
		return
	}
	r.inline.InlineHTML(markup)
}

// jobsFallbackHTML builds a minimal listing for transcripts without a
// jobs panel. Fields are parsed loosely and escaped; listings that fail
// to parse are dropped from the fallback only, never from the payload.
func jobsFallbackHTML(payload json.RawMessage, tag string) string {
	var raws []json.RawMessage
	if err := json.Unmarshal(payload, &raws); err != nil {
		log.Warn().Err(err).Msg("Unparseable jobs payload in fallback renderer")
		return `<em>Job results received, but they could not be displayed.</em>`
	}

	jobs := make([]protocol.Job, 0, len(raws))
	for _, raw := range raws {
		var j protocol.Job
		if err := json.Unmarshal(raw, &j); err == nil {
			jobs = append(jobs, j)
		}
	}

	var b strings.Builder
	if tag == TagPersonalized {
		b.WriteString("<strong>Personalized job matches</strong>")
	} else {
		b.WriteString("<strong>Job results</strong>")
	}

	if len(jobs) == 0 {
		b.WriteString("<br><em>No listings to show.</em>")
		return b.String()
	}

	b.WriteString("<ul>")
	for _, j := range jobs {
		b.WriteString("<li>")
		title := j.Title
		if title == "" {
			title = "Untitled role"
		}
		if j.URL != "" {
			fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>`,
				html.EscapeString(j.URL), html.EscapeString(title))
		} else {
			b.WriteString(html.EscapeString(title))
		}
		if j.Company != "" {
			b.WriteString(" at " + html.EscapeString(j.Company))
		}
		if j.Location != "" {
			b.WriteString(" (" + html.EscapeString(j.Location) + ")")
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
