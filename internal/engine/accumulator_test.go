package engine

import (
	"strings"
	"testing"
)

func TestAccumulatorConcatenation(t *testing.T) {
	var a Accumulator
	parts := []string{"He", "llo", " ", "**wor", "ld**"}
	for _, p := range parts {
		a.Append(p)
	}

	if got, want := a.Text(), strings.Join(parts, ""); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
	if got := a.HTML(); got != "Hello <strong>world</strong>" {
		t.Errorf("HTML() = %q", got)
	}
}

func TestAccumulatorBlank(t *testing.T) {
	var a Accumulator
	if !a.Blank() {
		t.Error("empty accumulator should be blank")
	}

	a.Append(" \n\t")
	if !a.Blank() {
		t.Error("whitespace-only accumulator should be blank")
	}

	a.Append("x")
	if a.Blank() {
		t.Error("accumulator with text should not be blank")
	}
}

func TestAccumulatorReset(t *testing.T) {
	var a Accumulator
	a.Append("first turn")
	a.Reset()

	if a.Text() != "" {
		t.Errorf("Text() after Reset = %q", a.Text())
	}
}

// A marker split across deltas must render correctly once complete,
// which only works because every append re-renders the whole text.
func TestAccumulatorSplitMarkerConverges(t *testing.T) {
	var a Accumulator
	a.Append("see `co")
	if strings.Contains(a.HTML(), "<code>") {
		t.Errorf("half-open code span rendered too early: %q", a.HTML())
	}

	a.Append("de` here")
	if !strings.Contains(a.HTML(), "<code>code</code>") {
		t.Errorf("completed code span not rendered: %q", a.HTML())
	}
}
