// Package replay feeds recorded assistant streams back through the
// decoder and turn engine, printing the conversation a browser would
// have seen. It exists for debugging transcripts captured from the
// backend without standing up a websocket.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/engine"
	"github.com/jobcatcher/console/internal/protocol"
)

// Player renders a stream of recorded events as a terminal transcript.
// A transcript file may hold several turns back to back; each terminal
// event closes one turn and the next event opens a fresh one.
type Player struct {
	out   io.Writer
	tools *config.ToolsConfig
}

func NewPlayer(out io.Writer, tools *config.ToolsConfig) *Player {
	if tools == nil {
		tools = config.DefaultToolsConfig()
	}
	return &Player{out: out, tools: tools}
}

// Play decodes the reader to exhaustion. A stream that ends mid-turn
// gets the same treatment a live turn would: the partial message is
// finalized and the drop is reported.
func (p *Player) Play(r io.Reader) error {
	dec := protocol.NewDecoder(r)

	d, err := p.stream(dec)
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}

	if d.State() != engine.StateIdle {
		p.apply(d.Fail("The conversation ended unexpectedly."))
	}
	if n := dec.Dropped(); n > 0 {
		fmt.Fprintf(p.out, "-- skipped %d undecodable lines\n", n)
	}
	return nil
}

// Follow tails path as it is written, decoding new bytes as they
// arrive. Cancelling the context is the only way out.
func (p *Player) Follow(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open stream file: %w", err)
	}
	defer file.Close()

	wake := make(chan struct{}, 1)
	go watchForWrites(ctx, path, wake)

	dec := protocol.NewDecoder(&tailReader{ctx: ctx, file: file, wake: wake})
	if _, err := p.stream(dec); !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (p *Player) stream(dec *protocol.Decoder) (*engine.Dispatcher, error) {
	d := engine.NewDispatcher(p.tools)

	for {
		ev, err := dec.Next()
		if ev != nil {
			p.apply(d.Dispatch(ev))
			if d.State().Terminal() {
				d = engine.NewDispatcher(p.tools)
			}
		}
		if err != nil {
			return d, err
		}
	}
}

func (p *Player) apply(effects []engine.Effect) {
	for _, e := range effects {
		switch eff := e.(type) {
		case engine.MessageFinalize:
			fmt.Fprintf(p.out, "assistant> %s\n", eff.Text)
		case engine.IndicatorShow:
			fmt.Fprintf(p.out, "   [tool] %s\n", eff.Label)
		case engine.IndicatorUpdate:
			fmt.Fprintf(p.out, "   [tool] %s\n", eff.Label)
		case engine.RouteData:
			fmt.Fprintf(p.out, "   [%s] %s\n", eff.Kind, summarizeRoute(eff))
		case engine.SessionUpdate:
			fmt.Fprintf(p.out, "   [session] %s\n", eff.SessionID)
		case engine.Notice:
			fmt.Fprintf(p.out, "   [%s] %s\n", eff.Level, eff.Text)
		case engine.TurnEnd:
			fmt.Fprintf(p.out, "-- turn %s\n", eff.Status)
		}
	}
}

func summarizeRoute(eff engine.RouteData) string {
	switch eff.Kind {
	case engine.RouteJobs:
		var jobs []json.RawMessage
		if err := json.Unmarshal(eff.Payload, &jobs); err != nil {
			return fmt.Sprintf("unreadable payload (%s)", eff.Tag)
		}
		return fmt.Sprintf("%d jobs (%s)", len(jobs), eff.Tag)
	case engine.RouteHeatmap:
		return "skill heatmap"
	default:
		return string(eff.Kind)
	}
}

// tailReader serves file bytes and, at end of file, blocks until the
// watcher signals growth instead of surfacing io.EOF.
type tailReader struct {
	ctx  context.Context
	file *os.File
	wake <-chan struct{}
}

func (t *tailReader) Read(p []byte) (int, error) {
	for {
		n, err := t.file.Read(p)
		if n > 0 {
			return n, nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}

		select {
		case <-t.ctx.Done():
			return 0, t.ctx.Err()
		case <-t.wake:
		}
	}
}

// watchForWrites nudges the wake channel whenever the file may have
// grown. Watching the directory is more reliable than watching the file
// itself. Environments without inotify fall back to polling.
func watchForWrites(ctx context.Context, path string, wake chan<- struct{}) {
	notify := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("File watcher unavailable, polling instead")
		pollForWrites(ctx, notify)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Watch failed, polling instead")
		pollForWrites(ctx, notify)
		return
	}

	base := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base || !event.Has(fsnotify.Write) {
				continue
			}
			notify()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debug().Err(err).Msg("File watcher error")
		}
	}
}

func pollForWrites(ctx context.Context, notify func()) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			notify()
		}
	}
}
