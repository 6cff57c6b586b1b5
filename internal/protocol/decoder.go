package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
)

const dataPrefix = "data:"

// DecodeError wraps a line that could not be parsed. It never escapes the
// decoder; it exists so the drop can be logged with the offending line.
type DecodeError struct {
	Line string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("undecodable stream line %q: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decoder turns an SSE byte stream into an ordered sequence of events.
// Chunk boundaries are invisible to callers: the underlying buffered
// reader reassembles lines however the transport split them, so a fixed
// byte stream always decodes to the same event sequence.
type Decoder struct {
	r       *bufio.Reader
	err     error
	dropped int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next decoded event. It skips blank separators, comment
// lines and records that fail to parse, and returns io.EOF once the
// stream is exhausted. Transport errors are returned as-is.
func (d *Decoder) Next() (Event, error) {
	if d.err != nil {
		return nil, d.err
	}

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			// a final unterminated line still counts
			d.err = err
			if ev := d.decodeLine(line); ev != nil {
				return ev, nil
			}
			return nil, err
		}

		if ev := d.decodeLine(line); ev != nil {
			return ev, nil
		}
	}
}

// Dropped returns how many data lines were discarded as undecodable.
func (d *Decoder) Dropped() int { return d.dropped }

func (d *Decoder) decodeLine(line string) Event {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if payload == "" {
		return nil
	}

	ev, err := ParseEvent([]byte(payload))
	if err != nil {
		d.dropped++
		derr := &DecodeError{Line: line, Err: err}
		log.Warn().Err(derr).Msg("Dropping undecodable stream line")
		return nil
	}
	return ev
}
