// Package markdown converts assistant text into transcript-safe HTML.
//
// The input is re-rendered from scratch on every streamed delta, so the
// renderer has to behave sensibly on partial markdown: an unterminated
// bold marker stays literal until its close arrives, and an unterminated
// fence renders the remainder of the text as code. No state is kept
// between calls.
package markdown

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var (
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	hrRe        = regexp.MustCompile(`^(?:-{3,}|\*{3,}|_{3,})\s*$`)
	quoteRe     = regexp.MustCompile(`^&gt;\s?(.*)$`)
	unorderedRe = regexp.MustCompile(`^(\s*)[-*+]\s+(.*)$`)
	orderedRe   = regexp.MustCompile(`^(\s*)\d+\.\s+(.*)$`)
	boldRe      = regexp.MustCompile(`\*\*(.+?)\*\*`)
	italicRe    = regexp.MustCompile(`\*([^*\n]+)\*`)
	inlineCode  = regexp.MustCompile("`([^`\n]+)`")
	fencedPh    = regexp.MustCompile(`^\x00fb\d+\x00$`)
	urlRe       = regexp.MustCompile(`https?://[^\s<` + "\x00" + `]+`)

	// newlines directly after a block element are structural, not soft breaks
	afterBlockRe = regexp.MustCompile(`(</h[1-6]>|</li>|</ul>|</ol>|</blockquote>|<hr>|\x00fb\d+\x00)\n`)
)

// Render converts markdown-ish text to escaped HTML. Pipeline: escape the
// raw text, pull fenced blocks and inline code out behind placeholders,
// apply block and inline rules line by line, autolink bare URLs, turn the
// remaining newlines into <br>, then put the protected code back.
func Render(text string) string {
	if text == "" {
		return ""
	}

	escaped := html.EscapeString(text)
	protected, spans := protectCode(escaped)

	structured := renderBlocks(protected)
	linked := autolink(structured)
	broken := breakLines(linked)

	return restoreCode(broken, spans)
}

// protectCode replaces fenced blocks and inline code spans with opaque
// placeholders so no later rule can touch their contents. A fence with no
// closing marker protects through to the end of the input; during
// streaming that is the right call, since the close may simply not have
// arrived yet.
func protectCode(text string) (string, map[string]string) {
	spans := make(map[string]string)
	n := 0

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !strings.HasPrefix(line, "```") {
			out = append(out, line)
			continue
		}

		lang := strings.TrimSpace(strings.TrimPrefix(line, "```"))
		var body []string
		for i++; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "```" {
				break
			}
			body = append(body, lines[i])
		}

		key := fmt.Sprintf("\x00fb%d\x00", n)
		n++
		content := strings.Join(body, "\n")
		if lang != "" {
			spans[key] = fmt.Sprintf(`<pre><code class="language-%s">%s</code></pre>`, lang, content)
		} else {
			spans[key] = fmt.Sprintf(`<pre><code>%s</code></pre>`, content)
		}
		out = append(out, key)
	}

	withInline := inlineCode.ReplaceAllStringFunc(strings.Join(out, "\n"), func(m string) string {
		inner := m[1 : len(m)-1]
		key := fmt.Sprintf("\x00ic%d\x00", n)
		n++
		spans[key] = "<code>" + inner + "</code>"
		return key
	})

	return withInline, spans
}

type listLevel struct {
	indent  int
	ordered bool
}

// renderBlocks applies the line-level rules: headings, horizontal rules,
// blockquotes and nested lists. Lists are tracked as a stack of open
// levels; any non-list line closes the whole stack.
func renderBlocks(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var stack []listLevel

	closeAll := func() {
		if len(stack) == 0 {
			return
		}
		var b strings.Builder
		for i := len(stack) - 1; i >= 0; i-- {
			b.WriteString(closeTag(stack[i].ordered))
		}
		stack = stack[:0]
		out = append(out, b.String())
	}

	for _, line := range lines {
		if fencedPh.MatchString(strings.TrimSpace(line)) {
			closeAll()
			out = append(out, strings.TrimSpace(line))
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			closeAll()
			level := len(m[1])
			out = append(out, fmt.Sprintf("<h%d>%s</h%d>", level, inline(m[2]), level))
			continue
		}

		if hrRe.MatchString(line) {
			closeAll()
			out = append(out, "<hr>")
			continue
		}

		if m := quoteRe.FindStringSubmatch(line); m != nil {
			closeAll()
			out = append(out, "<blockquote>"+inline(m[1])+"</blockquote>")
			continue
		}

		ordered := false
		var indent, content string
		if m := unorderedRe.FindStringSubmatch(line); m != nil {
			indent, content = m[1], m[2]
		} else if m := orderedRe.FindStringSubmatch(line); m != nil {
			indent, content = m[1], m[2]
			ordered = true
		} else {
			closeAll()
			out = append(out, inline(line))
			continue
		}

		level := indentWidth(indent) / 2
		var b strings.Builder
		for len(stack) > 0 && stack[len(stack)-1].indent > level {
			b.WriteString(closeTag(stack[len(stack)-1].ordered))
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && stack[len(stack)-1].indent == level && stack[len(stack)-1].ordered != ordered {
			b.WriteString(closeTag(stack[len(stack)-1].ordered))
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 || stack[len(stack)-1].indent < level {
			b.WriteString(openTag(ordered))
			stack = append(stack, listLevel{indent: level, ordered: ordered})
		}
		b.WriteString("<li>" + inline(content) + "</li>")
		out = append(out, b.String())
	}

	closeAll()
	return strings.Join(out, "\n")
}

func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		if r == '\t' {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func openTag(ordered bool) string {
	if ordered {
		return "<ol>"
	}
	return "<ul>"
}

func closeTag(ordered bool) string {
	if ordered {
		return "</ol>"
	}
	return "</ul>"
}

// inline applies bold then italic. Unpaired markers are left alone, which
// is what keeps a half-streamed "**bol" readable.
func inline(s string) string {
	s = boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	s = italicRe.ReplaceAllString(s, "<em>$1</em>")
	return s
}

func autolink(text string) string {
	return urlRe.ReplaceAllStringFunc(text, func(u string) string {
		trimmed := strings.TrimRight(u, ".,;:!?")
		tail := u[len(trimmed):]
		return fmt.Sprintf(`<a href="%s" target="_blank" rel="noopener noreferrer">%s</a>%s`, trimmed, trimmed, tail)
	})
}

// breakLines turns soft newlines into <br>. Newlines that directly follow
// a block element (or a fenced-code placeholder) are structural and are
// dropped instead.
func breakLines(text string) string {
	text = afterBlockRe.ReplaceAllString(text, "$1")
	return strings.ReplaceAll(text, "\n", "<br>")
}

func restoreCode(text string, spans map[string]string) string {
	for key, span := range spans {
		text = strings.Replace(text, key, span, 1)
	}
	return text
}
