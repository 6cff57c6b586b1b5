package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/engine"
	"github.com/jobcatcher/console/internal/protocol"
	"github.com/jobcatcher/console/internal/services/session"
)

// Runner executes turns for one connection. A turn is a single
// goroutine that decodes stream events, feeds them through the
// dispatcher and applies the resulting effects in order, so every
// client-visible mutation happens in arrival order.
type Runner struct {
	svc    *Service
	sess   *session.Session
	sink   Sink
	router *engine.Router

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches a turn for message. It returns ErrTurnInProgress when
// the previous turn has not reached a terminal state yet.
func (r *Runner) Start(ctx context.Context, message string) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return ErrTurnInProgress
	}

	turnCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.cancel = nil
			r.done = nil
			r.mu.Unlock()
			cancel()
			close(done)
		}()
		r.run(turnCtx, message)
	}()

	return nil
}

// Active reports whether a turn is currently streaming.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Cancel stops the in-flight turn, if any, and waits for it to wind
// down. The aborted turn finalizes its open message and reports a
// cancelled turn end before Cancel returns.
func (r *Runner) Cancel() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Clear cancels any in-flight turn, resets the conversation and tells
// the client its fresh session id.
func (r *Runner) Clear(ctx context.Context) {
	r.Cancel()
	r.svc.sessions.Clear(ctx, r.sess)
	r.svc.sessions.Save(ctx, r.sess)
	r.sink.SessionChanged(r.sess.ID())
}

func (r *Runner) run(ctx context.Context, message string) {
	reqCtx := r.sess.BuildContext()
	r.sess.AppendHistory(protocol.RoleUser, message)

	req := &protocol.ChatRequest{Message: message, Context: reqCtx}
	d := engine.NewDispatcher(r.svc.tools)

	body, err := r.svc.backend.StreamMessage(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("session_id", reqCtx.SessionID).Msg("Failed to open conversation stream")
		r.apply(d.Fail("The assistant is unreachable right now."))
		r.persist()
		return
	}
	defer body.Close()

	dec := protocol.NewDecoder(body)
	for {
		ev, err := dec.Next()
		if ev != nil {
			r.apply(d.Dispatch(ev))
			if d.State().Terminal() {
				break
			}
			continue
		}

		if ctx.Err() != nil {
			r.apply(d.Abort())
			break
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if !d.State().Terminal() {
				log.Warn().Str("session_id", reqCtx.SessionID).Msg("Stream ended without a completion event")
				r.apply(d.Fail("The conversation ended unexpectedly."))
			}
			break
		}
		log.Error().Err(err).Str("session_id", reqCtx.SessionID).Msg("Conversation stream failed")
		r.apply(d.Fail("The connection to the assistant was lost."))
		break
	}

	if dropped := dec.Dropped(); dropped > 0 {
		log.Warn().
			Int("dropped", dropped).
			Str("session_id", reqCtx.SessionID).
			Msg("Turn finished with undecodable stream lines")
	}

	r.persist()
}

// apply interprets effects one by one. This is the only place effects
// touch the outside world.
func (r *Runner) apply(effects []engine.Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case engine.MessageOpen:
			r.sink.MessageOpen()
		case engine.MessageUpdate:
			r.sink.MessageUpdate(e.HTML)
		case engine.MessageFinalize:
			r.sink.MessageFinalize(e.HTML)
			if strings.TrimSpace(e.Text) != "" {
				r.sess.AppendHistory(protocol.RoleAssistant, e.Text)
			}
		case engine.IndicatorShow:
			r.sink.IndicatorShow(e.Tool, e.Label)
		case engine.IndicatorUpdate:
			r.sink.IndicatorUpdate(e.Tool, e.Label)
		case engine.IndicatorHide:
			r.sink.IndicatorHide()
		case engine.RouteData:
			r.router.Route(e.Kind, e.Payload, e.Tag)
		case engine.CacheToolResult:
			r.sess.CacheToolResult(e.Tool, e.Result)
		case engine.SessionUpdate:
			r.svc.sessions.AdoptID(r.sess, e.SessionID)
			r.sink.SessionChanged(e.SessionID)
		case engine.Notice:
			r.sink.Notice(e.Level, e.Text)
		case engine.TurnEnd:
			r.sink.TurnEnded(e.Status)
		default:
			log.Warn().Str("effect", string(effect.EffectType())).Msg("Unhandled effect type")
		}
	}
}

func (r *Runner) persist() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.svc.sessions.Save(ctx, r.sess)
}
