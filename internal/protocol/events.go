// Package protocol defines the backend wire format: the SSE stream events
// a turn is made of, and the request bodies the console sends out.
package protocol

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// EventType discriminates stream event kinds.
type EventType string

const (
	EventTypeStart               EventType = "start"
	EventTypeText                EventType = "text"
	EventTypeTextDelta           EventType = "text_delta"
	EventTypeContentBlockStart   EventType = "content_block_start"
	EventTypeToolInputProgress   EventType = "tool_input_progress"
	EventTypeToolExecuteStart    EventType = "tool_execute_start"
	EventTypeToolExecuteComplete EventType = "tool_execute_complete"
	EventTypeJobData             EventType = "job_data"
	EventTypeHeatmapData         EventType = "heatmap_data"
	EventTypeError               EventType = "error"
	EventTypeComplete            EventType = "complete"
	// EventTypeEnd is the terminal marker of an older backend iteration.
	// It carries no session id; its "[DONE]" content is discarded.
	EventTypeEnd EventType = "end"
)

// Event is the interface for stream event discrimination.
type Event interface {
	EventType() EventType
}

// StartEvent marks the beginning of a turn.
type StartEvent struct {
	Type EventType `json:"type"`
}

// EventType returns the stream event type.
func (e StartEvent) EventType() EventType { return EventTypeStart }

// TextDeltaEvent carries incremental assistant text. The backend has
// emitted this under both the "text" and "text_delta" names; both decode
// here and the canonical type is text_delta.
type TextDeltaEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// EventType returns the stream event type.
func (e TextDeltaEvent) EventType() EventType { return EventTypeTextDelta }

// ContentBlock is the payload of a content_block_start event.
type ContentBlock struct {
	Type string `json:"type"`
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ContentBlockStartEvent announces a content block. Blocks of type
// tool_use or server_tool_use announce a tool invocation; anything else
// carries no lifecycle meaning for the console.
type ContentBlockStartEvent struct {
	Type         EventType    `json:"type"`
	ContentBlock ContentBlock `json:"content_block"`
}

// EventType returns the stream event type.
func (e ContentBlockStartEvent) EventType() EventType { return EventTypeContentBlockStart }

// IsToolUse reports whether the block announces a tool invocation.
func (e ContentBlockStartEvent) IsToolUse() bool {
	return e.ContentBlock.Type == "tool_use" || e.ContentBlock.Type == "server_tool_use"
}

// ToolInputProgressEvent reports that the agent is still composing the
// input for a tool call.
type ToolInputProgressEvent struct {
	Type     EventType `json:"type"`
	ToolName string    `json:"tool_name"`
}

// EventType returns the stream event type.
func (e ToolInputProgressEvent) EventType() EventType { return EventTypeToolInputProgress }

// ToolExecuteStartEvent marks a tool as running.
type ToolExecuteStartEvent struct {
	Type     EventType `json:"type"`
	ToolName string    `json:"tool_name"`
}

// EventType returns the stream event type.
func (e ToolExecuteStartEvent) EventType() EventType { return EventTypeToolExecuteStart }

// ToolExecuteCompleteEvent marks a tool as finished. Result is kept raw;
// the console dispatches on the tool name and never validates result
// schemas. A non-empty Error means the tool itself failed.
type ToolExecuteCompleteEvent struct {
	Type     EventType       `json:"type"`
	ToolName string          `json:"tool_name"`
	Result   json.RawMessage `json:"result"`
	Error    string          `json:"error"`
}

// EventType returns the stream event type.
func (e ToolExecuteCompleteEvent) EventType() EventType { return EventTypeToolExecuteComplete }

// Job is the loosely-parsed shape of one job listing, used only for
// fallback inline rendering when no jobs panel is attached.
type Job struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// JobDataEvent carries an out-of-band job listing payload.
type JobDataEvent struct {
	Type      EventType         `json:"type"`
	Jobs      []json.RawMessage `json:"jobs"`
	MatchType string            `json:"match_type"`
}

// EventType returns the stream event type.
func (e JobDataEvent) EventType() EventType { return EventTypeJobData }

// DecodedJobs parses each listing into the loose Job shape. Listings that
// fail to parse are skipped; the raw payload is what gets forwarded.
func (e JobDataEvent) DecodedJobs() []Job {
	jobs := make([]Job, 0, len(e.Jobs))
	for _, raw := range e.Jobs {
		var j Job
		if err := json.Unmarshal(raw, &j); err != nil {
			continue
		}
		jobs = append(jobs, j)
	}
	return jobs
}

// HeatmapDataEvent carries skill-heatmap chart data.
type HeatmapDataEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventType returns the stream event type.
func (e HeatmapDataEvent) EventType() EventType { return EventTypeHeatmapData }

// ErrorEvent is fatal for the turn.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content"`
}

// EventType returns the stream event type.
func (e ErrorEvent) EventType() EventType { return EventTypeError }

// CompleteEvent ends the turn, possibly renaming the session.
type CompleteEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// EventType returns the stream event type.
func (e CompleteEvent) EventType() EventType { return EventTypeComplete }

// ParseEvent decodes one wire record into its event variant. Unknown
// types are logged and dropped so newer backends keep working against an
// older console.
func ParseEvent(data json.RawMessage) (Event, error) {
	var base struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}

	switch base.Type {
	case EventTypeStart:
		var e StartEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeText, EventTypeTextDelta:
		var e TextDeltaEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeContentBlockStart:
		var e ContentBlockStartEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeToolInputProgress:
		var e ToolInputProgressEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeToolExecuteStart:
		var e ToolExecuteStartEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeToolExecuteComplete:
		var e ToolExecuteCompleteEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeJobData:
		var e JobDataEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeHeatmapData:
		var e HeatmapDataEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeError:
		var e ErrorEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	case EventTypeComplete, EventTypeEnd:
		var e CompleteEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		log.Warn().Str("type", string(base.Type)).Msg("Skipping unknown stream event type")
		return nil, nil
	}
}
