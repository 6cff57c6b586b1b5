// Package engine holds the streaming conversation core: the turn state
// machine, the text accumulator, tool indicator tracking and side-channel
// routing. The dispatcher is deliberately free of I/O; it turns decoded
// events into effects that a caller interprets against whatever surface
// it is driving (websocket bridge, replay printer, test recorder).
package engine

// State is the turn-level state of the dispatcher.
type State int

const (
	StateIdle State = iota
	StateTextStreaming
	StateToolActive
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTextStreaming:
		return "text_streaming"
	case StateToolActive:
		return "tool_active"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether the turn has ended.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateError
}
