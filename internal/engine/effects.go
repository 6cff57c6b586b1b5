package engine

import (
	"encoding/json"
)

// EffectType discriminates effect kinds.
type EffectType string

const (
	EffectTypeMessageOpen     EffectType = "message_open"
	EffectTypeMessageUpdate   EffectType = "message_update"
	EffectTypeMessageFinalize EffectType = "message_finalize"
	EffectTypeIndicatorShow   EffectType = "indicator_show"
	EffectTypeIndicatorUpdate EffectType = "indicator_update"
	EffectTypeIndicatorHide   EffectType = "indicator_hide"
	EffectTypeRouteData       EffectType = "route_data"
	EffectTypeCacheToolResult EffectType = "cache_tool_result"
	EffectTypeSessionUpdate   EffectType = "session_update"
	EffectTypeNotice          EffectType = "notice"
	EffectTypeTurnEnd         EffectType = "turn_end"
)

// Effect is one UI or session mutation the dispatcher wants performed.
// Effects come out of Dispatch in the exact order they must be applied.
type Effect interface {
	EffectType() EffectType
}

// MessageOpen creates the assistant message container. Emitted lazily, on
// the first delta that leaves the accumulated text non-blank.
type MessageOpen struct{}

func (MessageOpen) EffectType() EffectType { return EffectTypeMessageOpen }

// MessageUpdate replaces the rendered body of the open message with a
// fresh full rendering of the accumulated text.
type MessageUpdate struct {
	HTML string
	Text string
}

func (MessageUpdate) EffectType() EffectType { return EffectTypeMessageUpdate }

// MessageFinalize closes the open message. Text is the complete
// accumulated content, ready for the session history.
type MessageFinalize struct {
	HTML string
	Text string
}

func (MessageFinalize) EffectType() EffectType { return EffectTypeMessageFinalize }

// IndicatorShow makes the tool indicator visible for one tool.
type IndicatorShow struct {
	Tool  string
	Label string
}

func (IndicatorShow) EffectType() EffectType { return EffectTypeIndicatorShow }

// IndicatorUpdate relabels the already-visible indicator.
type IndicatorUpdate struct {
	Tool  string
	Label string
}

func (IndicatorUpdate) EffectType() EffectType { return EffectTypeIndicatorUpdate }

// IndicatorHide removes the visible indicator.
type IndicatorHide struct{}

func (IndicatorHide) EffectType() EffectType { return EffectTypeIndicatorHide }

// RouteKind names a side-channel display surface.
type RouteKind string

const (
	RouteJobs    RouteKind = "jobs"
	RouteHeatmap RouteKind = "heatmap"
)

// Route tags.
const (
	TagGeneral      = "general"
	TagPersonalized = "personalized"
	TagChart        = "chart"
)

// RouteData hands a structured payload to the side-channel router.
type RouteData struct {
	Kind    RouteKind
	Payload json.RawMessage
	Tag     string
}

func (RouteData) EffectType() EffectType { return EffectTypeRouteData }

// CacheToolResult stores a tool result on the session.
type CacheToolResult struct {
	Tool   string
	Result json.RawMessage
}

func (CacheToolResult) EffectType() EffectType { return EffectTypeCacheToolResult }

// SessionUpdate records a server-assigned session id.
type SessionUpdate struct {
	SessionID string
}

func (SessionUpdate) EffectType() EffectType { return EffectTypeSessionUpdate }

// Notice levels.
const (
	NoticeLevelInfo  = "info"
	NoticeLevelWarn  = "warn"
	NoticeLevelError = "error"
)

// Notice surfaces a user-visible message outside the assistant text.
type Notice struct {
	Level string
	Text  string
}

func (Notice) EffectType() EffectType { return EffectTypeNotice }

// Turn end statuses.
const (
	TurnStatusComplete  = "complete"
	TurnStatusError     = "error"
	TurnStatusCancelled = "cancelled"
)

// TurnEnd marks the turn as finished.
type TurnEnd struct {
	Status string
}

func (TurnEnd) EffectType() EffectType { return EffectTypeTurnEnd }
