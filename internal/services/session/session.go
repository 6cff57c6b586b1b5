package session

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/jobcatcher/console/internal/protocol"
)

// Session is the live state of one conversation: the backend-visible
// id, a bounded history window, the resume flag, at most one pending
// attachment and the cached results of data-bearing tools.
type Session struct {
	mu             sync.Mutex
	id             string
	history        []protocol.HistoryEntry
	resumeUploaded bool
	attachment     *protocol.Document
	toolResults    map[string]json.RawMessage
}

func newSession() *Session {
	return &Session{
		id:          uuid.New().String(),
		toolResults: make(map[string]json.RawMessage),
	}
}

func restoreSession(state *State) *Session {
	sess := &Session{
		id:             state.SessionID,
		history:        append([]protocol.HistoryEntry(nil), state.History...),
		resumeUploaded: state.ResumeUploaded,
		attachment:     state.Attachment,
		toolResults:    make(map[string]json.RawMessage, len(state.ToolResults)),
	}
	for name, result := range state.ToolResults {
		sess.toolResults[name] = result
	}
	if sess.id == "" {
		sess.id = uuid.New().String()
	}
	return sess
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// SetID adopts the id the backend assigned in its completion event.
func (s *Session) SetID(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// BuildContext assembles the request context for the next message. The
// pending attachment rides along exactly once and is cleared here; the
// resume flag persists for the rest of the conversation.
func (s *Session) BuildContext() protocol.ChatContext {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := protocol.ChatContext{
		SessionID:      s.id,
		ChatHistory:    append([]protocol.HistoryEntry(nil), s.history...),
		ResumeUploaded: s.resumeUploaded,
		UploadedFile:   s.attachment,
	}
	s.attachment = nil
	return ctx
}

// AppendHistory records a completed turn half and trims the window to
// the most recent entries.
func (s *Session) AppendHistory(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, protocol.HistoryEntry{Role: role, Content: content})
	if excess := len(s.history) - maxHistoryEntries; excess > 0 {
		s.history = append([]protocol.HistoryEntry(nil), s.history[excess:]...)
	}
}

func (s *Session) History() []protocol.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.HistoryEntry(nil), s.history...)
}

// AttachDocument queues an uploaded resume for the next message and
// marks the conversation as resume-aware.
func (s *Session) AttachDocument(doc *protocol.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachment = doc
	s.resumeUploaded = true
}

func (s *Session) ResumeUploaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumeUploaded
}

func (s *Session) CacheToolResult(tool string, result json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolResults[tool] = result
}

func (s *Session) ToolResult(tool string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.toolResults[tool]
	return result, ok
}

// Reset wipes the conversation and assigns a fresh id, returning the
// old one so stored copies can be dropped.
func (s *Session) Reset() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.id
	s.id = uuid.New().String()
	s.history = nil
	s.resumeUploaded = false
	s.attachment = nil
	s.toolResults = make(map[string]json.RawMessage)
	return old
}

func (s *Session) snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := &State{
		SessionID:      s.id,
		History:        append([]protocol.HistoryEntry(nil), s.history...),
		ResumeUploaded: s.resumeUploaded,
		Attachment:     s.attachment,
	}
	if len(s.toolResults) > 0 {
		state.ToolResults = make(map[string]json.RawMessage, len(s.toolResults))
		for name, result := range s.toolResults {
			state.ToolResults[name] = result
		}
	}
	return state
}
