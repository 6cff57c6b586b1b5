package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/connections"
	"github.com/jobcatcher/console/internal/engine"
	"github.com/jobcatcher/console/internal/services"
	"github.com/jobcatcher/console/internal/services/conversation"
)

// clientFrame is everything a browser may send. Type selects the
// operation; chat requires a message, hello may announce panel
// capabilities.
type clientFrame struct {
	Type    string   `json:"type" validate:"required,oneof=hello chat clear"`
	Message string   `json:"message,omitempty" validate:"required_if=Type chat"`
	Panels  []string `json:"panels,omitempty"`
}

type sessionFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type messageFrame struct {
	Type  string `json:"type"`
	HTML  string `json:"html"`
	Final bool   `json:"final"`
}

type indicatorFrame struct {
	Type    string `json:"type"`
	Visible bool   `json:"visible"`
	Tool    string `json:"tool,omitempty"`
	Label   string `json:"label,omitempty"`
}

type jobsFrame struct {
	Type      string          `json:"type"`
	Jobs      json.RawMessage `json:"jobs"`
	MatchType string          `json:"match_type"`
}

type heatmapFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type inlineFrame struct {
	Type string `json:"type"`
	HTML string `json:"html"`
}

type noticeFrame struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Text  string `json:"text"`
}

type turnFrame struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // In production, implement proper origin checking
		},
	}

	// single instance, it caches struct info
	frameValidator = validator.New(validator.WithRequiredStructEnabled())
)

// wsSession binds one websocket to one conversation. It is the display
// surface for turn effects: the conversation sink, the panel sink and
// the inline fallback all write frames through it.
type wsSession struct {
	conn     *websocket.Conn
	timeouts connections.TimeoutConfig

	writeMu sync.Mutex

	panelMu sync.RWMutex
	panels  map[engine.RouteKind]bool
}

func (c *wsSession) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.timeouts.WriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsSession) send(v interface{}) {
	if err := c.writeJSON(v); err != nil {
		log.Debug().Err(err).Msg("Websocket write failed")
	}
}

func (c *wsSession) MessageOpen() {
	c.send(messageFrame{Type: "message"})
}

func (c *wsSession) MessageUpdate(html string) {
	c.send(messageFrame{Type: "message", HTML: html})
}

func (c *wsSession) MessageFinalize(html string) {
	c.send(messageFrame{Type: "message", HTML: html, Final: true})
}

func (c *wsSession) IndicatorShow(tool, label string) {
	c.send(indicatorFrame{Type: "indicator", Visible: true, Tool: tool, Label: label})
}

func (c *wsSession) IndicatorUpdate(tool, label string) {
	c.send(indicatorFrame{Type: "indicator", Visible: true, Tool: tool, Label: label})
}

func (c *wsSession) IndicatorHide() {
	c.send(indicatorFrame{Type: "indicator", Visible: false})
}

func (c *wsSession) SessionChanged(sessionID string) {
	c.send(sessionFrame{Type: "session", SessionID: sessionID})
}

func (c *wsSession) Notice(level, text string) {
	c.send(noticeFrame{Type: "notice", Level: level, Text: text})
}

func (c *wsSession) TurnEnded(status string) {
	c.send(turnFrame{Type: "turn", Status: status})
}

func (c *wsSession) HasPanel(kind engine.RouteKind) bool {
	c.panelMu.RLock()
	defer c.panelMu.RUnlock()
	return c.panels[kind]
}

func (c *wsSession) SendJobs(jobs json.RawMessage, tag string) error {
	return c.writeJSON(jobsFrame{Type: "jobs", Jobs: jobs, MatchType: tag})
}

func (c *wsSession) SendHeatmap(data json.RawMessage) error {
	return c.writeJSON(heatmapFrame{Type: "heatmap", Data: data})
}

func (c *wsSession) InlineHTML(html string) {
	c.send(inlineFrame{Type: "inline", HTML: html})
}

func (c *wsSession) setPanels(names []string) {
	c.panelMu.Lock()
	defer c.panelMu.Unlock()
	c.panels = make(map[engine.RouteKind]bool, len(names))
	for _, name := range names {
		kind := engine.RouteKind(name)
		switch kind {
		case engine.RouteJobs, engine.RouteHeatmap:
			c.panels[kind] = true
		default:
			log.Debug().Str("panel", name).Msg("Ignoring unknown panel capability")
		}
	}
}

// HandleWS upgrades the browser connection and runs its frame loop. The
// loop stays responsive while turns stream: chat launches the turn
// goroutine and returns, so a clear can still interrupt it.
func HandleWS(svcs *services.Services, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	sessionService := svcs.GetSessionService()
	sess := sessionService.Acquire(r.Context(), sessionService.CookieSessionID(r))

	// the upgrade response is the only chance to set the cookie
	header := http.Header{}
	if cookie, err := sessionService.IssueCookie(sess.ID()); err == nil {
		header.Add("Set-Cookie", cookie.String())
	} else {
		log.Warn().Err(err).Msg("Failed to issue session cookie")
	}

	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		sessionService.Release(r.Context(), sess)
		return
	}

	timeouts := manager.GetTimeouts()
	ws := &wsSession{conn: conn, timeouts: timeouts}
	runner := svcs.GetConversationService().NewRunner(sess, ws, engine.NewRouter(ws, ws))

	ctx, cancel := context.WithCancel(context.Background())
	manager.AddConnection(conn, sess.ID())

	defer func() {
		cancel()
		runner.Cancel()
		manager.RemoveConnection(conn)
		conn.Close()

		releaseCtx, releaseCancel := context.WithTimeout(context.Background(), 5*time.Second)
		sessionService.Release(releaseCtx, sess)
		releaseCancel()

		log.Info().Str("session_id", sess.ID()).Msg("Websocket disconnected")
	}()

	log.Info().Str("session_id", sess.ID()).Msg("Websocket connected")

	// Set up ping/pong handlers
	conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	// Start ping ticker in separate goroutine
	pingDone := make(chan struct{})
	defer close(pingDone)

	go func() {
		ticker := time.NewTicker(timeouts.PingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				deadline := time.Now().Add(timeouts.WriteWait)
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
					return
				}
			case <-pingDone:
				return
			}
		}
	}()

	// the browser learns its conversation id first
	ws.SessionChanged(sess.ID())

	for {
		conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("session_id", sess.ID()).Msg("Websocket closed unexpectedly")
			}
			break
		}
		handleFrame(ctx, runner, ws, data)
	}
}

func handleFrame(ctx context.Context, runner *conversation.Runner, ws *wsSession, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Warn().Err(err).Msg("Client sent malformed frame")
		ws.Notice(engine.NoticeLevelWarn, "That message could not be read.")
		return
	}

	if err := frameValidator.Struct(frame); err != nil {
		log.Warn().Err(err).Msg("Frame validation failed")
		ws.Notice(engine.NoticeLevelWarn, "That message could not be read.")
		return
	}

	switch frame.Type {
	case "hello":
		ws.setPanels(frame.Panels)

	case "chat":
		if strings.TrimSpace(frame.Message) == "" {
			ws.Notice(engine.NoticeLevelWarn, "Say something first.")
			return
		}
		if err := runner.Start(ctx, frame.Message); err != nil {
			if errors.Is(err, conversation.ErrTurnInProgress) {
				ws.Notice(engine.NoticeLevelWarn, "Hold on, the assistant is still responding.")
				return
			}
			log.Error().Err(err).Msg("Failed to start turn")
			ws.Notice(engine.NoticeLevelError, "That message could not be sent.")
		}

	case "clear":
		clearCtx, clearCancel := context.WithTimeout(context.Background(), 10*time.Second)
		runner.Clear(clearCtx)
		clearCancel()
	}
}
