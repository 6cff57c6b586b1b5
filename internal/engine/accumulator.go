package engine

import (
	"strings"

	"github.com/jobcatcher/console/pkg/markdown"
)

// Accumulator owns the cumulative text of the in-progress assistant
// message. Deltas are plain concatenated; live streaming hands out
// non-overlapping token chunks, so no joining logic is needed. Rendering
// always runs over the full text because a markdown marker can be split
// across two deltas, which makes patch-based rendering unsound.
type Accumulator struct {
	b strings.Builder
}

// Append adds one streamed delta.
func (a *Accumulator) Append(delta string) {
	a.b.WriteString(delta)
}

// Text returns the raw accumulated text.
func (a *Accumulator) Text() string {
	return a.b.String()
}

// HTML returns the full re-rendering of the accumulated text.
func (a *Accumulator) HTML() string {
	return markdown.Render(a.b.String())
}

// Blank reports whether the accumulated text is empty after trimming,
// which is what decides whether a message container is worth opening.
func (a *Accumulator) Blank() bool {
	return strings.TrimSpace(a.b.String()) == ""
}

// Reset discards the accumulated text for the next turn.
func (a *Accumulator) Reset() {
	a.b.Reset()
}
