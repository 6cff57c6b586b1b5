package engine

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/protocol"
)

// Dispatcher is the per-turn state machine. It consumes decoded events in
// arrival order and returns the effects each one implies. It performs no
// I/O itself and is safe to drive from exactly one goroutine, which is
// how turns run: one FIFO loop from the decoder to the effect
// interpreter.
type Dispatcher struct {
	state   State
	acc     *Accumulator
	tracker *Tracker
	msgOpen bool
}

func NewDispatcher(tools *config.ToolsConfig) *Dispatcher {
	return &Dispatcher{
		state:   StateIdle,
		acc:     &Accumulator{},
		tracker: NewTracker(tools),
	}
}

// State returns the current turn state.
func (d *Dispatcher) State() State {
	return d.state
}

// Text returns the raw accumulated assistant text so far.
func (d *Dispatcher) Text() string {
	return d.acc.Text()
}

// Dispatch advances the state machine by one event.
func (d *Dispatcher) Dispatch(ev protocol.Event) []Effect {
	if d.state.Terminal() {
		log.Debug().
			Str("state", d.state.String()).
			Str("event", string(ev.EventType())).
			Msg("Ignoring event after terminal state")
		return nil
	}

	switch e := ev.(type) {
	case protocol.StartEvent:
		log.Debug().Msg("Turn started")
		return nil

	case protocol.TextDeltaEvent:
		return d.onTextDelta(e)

	case protocol.ContentBlockStartEvent:
		if !e.IsToolUse() {
			return nil
		}
		d.state = StateToolActive
		return d.tracker.Show(e.ContentBlock.Name)

	case protocol.ToolInputProgressEvent:
		d.state = StateToolActive
		return d.tracker.UpdateStatus(e.ToolName, StatusAnnounced)

	case protocol.ToolExecuteStartEvent:
		d.state = StateToolActive
		return d.tracker.UpdateStatus(e.ToolName, StatusExecuting)

	case protocol.ToolExecuteCompleteEvent:
		d.state = StateTextStreaming
		effects := d.tracker.Hide()
		return append(effects, d.dispatchToolResult(e)...)

	case protocol.JobDataEvent:
		return []Effect{RouteData{
			Kind:    RouteJobs,
			Payload: marshalJobs(e.Jobs),
			Tag:     matchTag(e.MatchType),
		}}

	case protocol.HeatmapDataEvent:
		return []Effect{RouteData{
			Kind:    RouteHeatmap,
			Payload: e.Data,
			Tag:     TagChart,
		}}

	case protocol.ErrorEvent:
		text := e.Content
		if text == "" {
			text = "The assistant ran into an error"
		}
		return d.terminate(StateError, &Notice{Level: NoticeLevelError, Text: text}, TurnStatusError)

	case protocol.CompleteEvent:
		var effects []Effect
		if e.SessionID != "" {
			effects = append(effects, SessionUpdate{SessionID: e.SessionID})
		}
		return append(effects, d.terminate(StateComplete, nil, TurnStatusComplete)...)

	default:
		log.Warn().Str("event", string(ev.EventType())).Msg("Ignoring unhandled event type")
		return nil
	}
}

// Fail ends the turn after a transport fault. Partial text stays
// rendered; a single error notice is surfaced.
func (d *Dispatcher) Fail(message string) []Effect {
	if d.state.Terminal() {
		return nil
	}
	return d.terminate(StateError, &Notice{Level: NoticeLevelError, Text: message}, TurnStatusError)
}

// Abort ends the turn without a notice, for a user-initiated clear. The
// open message is finalized as-is so nothing is left dangling in a
// streaming state.
func (d *Dispatcher) Abort() []Effect {
	if d.state.Terminal() {
		return nil
	}
	return d.terminate(StateError, nil, TurnStatusCancelled)
}

func (d *Dispatcher) onTextDelta(e protocol.TextDeltaEvent) []Effect {
	d.state = StateTextStreaming
	d.acc.Append(e.Content)

	var effects []Effect
	if !d.msgOpen {
		if d.acc.Blank() {
			// nothing visible yet, keep the bubble unopened
			return nil
		}
		d.msgOpen = true
		effects = append(effects, MessageOpen{})
	}

	return append(effects, MessageUpdate{HTML: d.acc.HTML(), Text: d.acc.Text()})
}

func (d *Dispatcher) dispatchToolResult(e protocol.ToolExecuteCompleteEvent) []Effect {
	if e.Error != "" {
		return []Effect{Notice{
			Level: NoticeLevelWarn,
			Text:  fmt.Sprintf("%s failed: %s", e.ToolName, e.Error),
		}}
	}

	switch e.ToolName {
	case "analyze_resume":
		return []Effect{CacheToolResult{Tool: e.ToolName, Result: e.Result}}

	case "match_jobs":
		return []Effect{
			CacheToolResult{Tool: e.ToolName, Result: e.Result},
			RouteData{Kind: RouteJobs, Payload: jobsFromResult(e.Result), Tag: TagPersonalized},
		}

	case "generate_skill_heatmap":
		return []Effect{
			RouteData{Kind: RouteHeatmap, Payload: heatmapFromResult(e.Result), Tag: TagChart},
		}

	case "web_search":
		// results come back through the text stream
		return nil

	default:
		log.Info().Str("tool", e.ToolName).Msg("No handler for tool result")
		return nil
	}
}

// terminate finalizes the open message, hides any indicator and ends the
// turn. Every path out of TEXT_STREAMING or TOOL_ACTIVE funnels through
// here, which is what keeps the machine out of non-terminal dead ends.
func (d *Dispatcher) terminate(next State, notice *Notice, status string) []Effect {
	effects := d.tracker.Hide()

	if d.msgOpen {
		d.msgOpen = false
		effects = append(effects, MessageFinalize{HTML: d.acc.HTML(), Text: d.acc.Text()})
	}

	if notice != nil {
		effects = append(effects, *notice)
	}

	d.state = next
	return append(effects, TurnEnd{Status: status})
}

func marshalJobs(jobs []json.RawMessage) json.RawMessage {
	if len(jobs) == 0 {
		return json.RawMessage("[]")
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		log.Error().Err(err).Msg("Failed to re-marshal job payload")
		return json.RawMessage("[]")
	}
	return data
}

func matchTag(matchType string) string {
	if matchType == TagPersonalized {
		return TagPersonalized
	}
	return TagGeneral
}

func jobsFromResult(result json.RawMessage) json.RawMessage {
	var probe struct {
		Jobs json.RawMessage `json:"jobs"`
	}
	if err := json.Unmarshal(result, &probe); err == nil && len(probe.Jobs) > 0 {
		return probe.Jobs
	}
	return result
}

func heatmapFromResult(result json.RawMessage) json.RawMessage {
	var probe struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(result, &probe); err == nil && len(probe.Data) > 0 {
		return probe.Data
	}
	return result
}
