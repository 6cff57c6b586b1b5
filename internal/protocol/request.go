package protocol

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one line of the rolling context window sent with each
// turn.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Document is the parsed response of the resume upload endpoint, attached
// to the session and sent with the next turn only.
type Document struct {
	Filename            string `json:"filename" validate:"required"`
	DocumentData        string `json:"document_data"`
	ClaudeNativeSupport bool   `json:"claude_native_support"`
	Size                int64  `json:"size"`
}

// ChatContext carries the session state that accompanies a message.
type ChatContext struct {
	SessionID      string         `json:"session_id"`
	ChatHistory    []HistoryEntry `json:"chat_history"`
	ResumeUploaded bool           `json:"resume_uploaded"`
	UploadedFile   *Document      `json:"uploaded_file,omitempty"`
}

// ChatRequest is the body of POST /chat/stream.
type ChatRequest struct {
	Message string      `json:"message" validate:"required"`
	Context ChatContext `json:"context"`
}
