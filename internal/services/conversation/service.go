package conversation

import (
	"context"
	"errors"
	"io"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/engine"
	"github.com/jobcatcher/console/internal/protocol"
	"github.com/jobcatcher/console/internal/services/session"
)

// ErrTurnInProgress rejects a message that arrives while the previous
// turn is still streaming.
var ErrTurnInProgress = errors.New("a turn is already in progress for this session")

// Streamer opens the backend event stream for one turn.
type Streamer interface {
	StreamMessage(ctx context.Context, req *protocol.ChatRequest) (io.ReadCloser, error)
}

// Sink renders turn effects for one connected client. Implementations
// are called from the turn goroutine, one effect at a time, in dispatch
// order.
type Sink interface {
	MessageOpen()
	MessageUpdate(html string)
	MessageFinalize(html string)
	IndicatorShow(tool, label string)
	IndicatorUpdate(tool, label string)
	IndicatorHide()
	SessionChanged(sessionID string)
	Notice(level, text string)
	TurnEnded(status string)
}

// Service owns the shared pieces of turn execution: the backend client,
// the session store and the tool label table.
type Service struct {
	backend  Streamer
	sessions *session.Service
	tools    *config.ToolsConfig
}

func NewService(backend Streamer, sessions *session.Service, tools *config.ToolsConfig) *Service {
	if tools == nil {
		tools = config.DefaultToolsConfig()
	}
	return &Service{
		backend:  backend,
		sessions: sessions,
		tools:    tools,
	}
}

// NewRunner binds a conversation to one client connection. The sink and
// router belong to that connection; the runner never outlives it.
func (s *Service) NewRunner(sess *session.Session, sink Sink, router *engine.Router) *Runner {
	return &Runner{
		svc:    s,
		sess:   sess,
		sink:   sink,
		router: router,
	}
}
