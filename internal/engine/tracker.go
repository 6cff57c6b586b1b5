package engine

import (
	"github.com/jobcatcher/console/internal/config"
)

// ToolStatus is the lifecycle stage of the visible tool invocation.
// Stages only move forward; a stale lower-stage event never regresses the
// indicator.
type ToolStatus int

const (
	StatusAnnounced ToolStatus = iota + 1
	StatusExecuting
)

// Tracker enforces the single-visible-indicator invariant. All methods
// return the effects that realize the change; an empty slice means the
// event changed nothing visible.
type Tracker struct {
	tools   *config.ToolsConfig
	visible bool
	tool    string
	status  ToolStatus
}

func NewTracker(tools *config.ToolsConfig) *Tracker {
	if tools == nil {
		tools = config.DefaultToolsConfig()
	}
	return &Tracker{tools: tools}
}

// Show announces a tool. A previously visible indicator is hidden first,
// even for the same tool: a fresh announcement is a fresh invocation.
func (t *Tracker) Show(name string) []Effect {
	var effects []Effect
	if t.visible {
		effects = append(effects, IndicatorHide{})
	}

	t.visible = true
	t.tool = name
	t.status = StatusAnnounced

	effects = append(effects, IndicatorShow{Tool: name, Label: t.label()})
	return effects
}

// UpdateStatus moves the visible invocation to a new stage. When nothing
// is visible yet the update acts as a show, so a stream that skips the
// announcement still gets an indicator.
func (t *Tracker) UpdateStatus(name string, status ToolStatus) []Effect {
	if !t.visible || t.tool != name {
		effects := t.Show(name)
		if status > StatusAnnounced {
			t.status = status
			effects[len(effects)-1] = IndicatorShow{Tool: name, Label: t.label()}
		}
		return effects
	}

	if status <= t.status {
		return nil
	}

	t.status = status
	return []Effect{IndicatorUpdate{Tool: t.tool, Label: t.label()}}
}

// Hide removes the indicator if one is visible.
func (t *Tracker) Hide() []Effect {
	if !t.visible {
		return nil
	}
	t.visible = false
	t.tool = ""
	t.status = 0
	return []Effect{IndicatorHide{}}
}

// Visible returns the currently indicated tool, if any.
func (t *Tracker) Visible() (string, bool) {
	return t.tool, t.visible
}

func (t *Tracker) label() string {
	def := t.tools.Lookup(t.tool)
	if t.status >= StatusExecuting {
		return def.RunningLabel
	}
	return def.Label
}
