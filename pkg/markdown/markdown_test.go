package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "plain text",
			input: "Hello",
			want:  "Hello",
		},
		{
			name:  "html is escaped",
			input: `<script>alert("x")</script>`,
			want:  "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;",
		},
		{
			name:  "bold",
			input: "a **bold** move",
			want:  "a <strong>bold</strong> move",
		},
		{
			name:  "italic",
			input: "an *italic* word",
			want:  "an <em>italic</em> word",
		},
		{
			name:  "unterminated bold stays literal",
			input: "**bo",
			want:  "**bo",
		},
		{
			name:  "soft newline becomes br",
			input: "a\nb",
			want:  "a<br>b",
		},
		{
			name:  "no br after heading",
			input: "# Title\nbody",
			want:  "<h1>Title</h1>body",
		},
		{
			name:  "deep heading",
			input: "### Skills",
			want:  "<h3>Skills</h3>",
		},
		{
			name:  "horizontal rule",
			input: "---",
			want:  "<hr>",
		},
		{
			name:  "blockquote",
			input: "> stay hungry",
			want:  "<blockquote>stay hungry</blockquote>",
		},
		{
			name:  "unordered list closed by plain line",
			input: "- a\n- b\ndone",
			want:  "<ul><li>a</li><li>b</li></ul>done",
		},
		{
			name:  "ordered list",
			input: "1. one\n2. two",
			want:  "<ol><li>one</li><li>two</li></ol>",
		},
		{
			name:  "nested list by indentation",
			input: "- a\n  - b\n- c",
			want:  "<ul><li>a</li><ul><li>b</li></ul><li>c</li></ul>",
		},
		{
			name:  "list items keep inline formatting",
			input: "- **Go** expert",
			want:  "<ul><li><strong>Go</strong> expert</li></ul>",
		},
		{
			name:  "inline code is protected from formatting",
			input: "use `**not bold**` here",
			want:  "use <code>**not bold**</code> here",
		},
		{
			name:  "fenced code is protected from formatting",
			input: "```\ncode **x**\n```",
			want:  "<pre><code>code **x**</code></pre>",
		},
		{
			name:  "fenced code keeps language",
			input: "```python\nprint(1)\n```",
			want:  `<pre><code class="language-python">print(1)</code></pre>`,
		},
		{
			name:  "unterminated fence protects the remainder",
			input: "```\nstill code",
			want:  "<pre><code>still code</code></pre>",
		},
		{
			name:  "text after fence has no leading br",
			input: "```\nx\n```\nafter",
			want:  "<pre><code>x</code></pre>after",
		},
		{
			name:  "newlines inside fence are preserved",
			input: "```\na\nb\n```",
			want:  "<pre><code>a\nb</code></pre>",
		},
		{
			name:  "bare url becomes a link",
			input: "see https://example.com/jobs now",
			want:  `see <a href="https://example.com/jobs" target="_blank" rel="noopener noreferrer">https://example.com/jobs</a> now`,
		},
		{
			name:  "trailing punctuation stays outside the link",
			input: "https://example.com.",
			want:  `<a href="https://example.com" target="_blank" rel="noopener noreferrer">https://example.com</a>.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.input); got != tt.want {
				t.Errorf("Render(%q)\n got: %q\nwant: %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRenderCodeBlockProtection(t *testing.T) {
	got := Render("```\n`**not bold**`\n```")

	if strings.Contains(got, "<strong>") {
		t.Errorf("bold applied inside fenced block: %q", got)
	}
	if !strings.Contains(got, "**not bold**") {
		t.Errorf("literal text lost inside fenced block: %q", got)
	}
}

func TestRenderURLInsideCodeNotLinked(t *testing.T) {
	got := Render("`https://example.com`")

	if strings.Contains(got, "<a ") {
		t.Errorf("autolink applied inside code span: %q", got)
	}
	if got != "<code>https://example.com</code>" {
		t.Errorf("unexpected rendering: %q", got)
	}
}

func TestRenderEscapesInsideCode(t *testing.T) {
	got := Render("```\n<b>tag</b>\n```")

	if strings.Contains(got, "<b>") {
		t.Errorf("raw html leaked through fenced block: %q", got)
	}
	if !strings.Contains(got, "&lt;b&gt;tag&lt;/b&gt;") {
		t.Errorf("escaped code content missing: %q", got)
	}
}

// Rendering the whole accumulated text must converge once markers close,
// which is the reason for full re-rendering instead of patching.
func TestRenderProgressiveDeltas(t *testing.T) {
	partial := Render("Results:\n**match")
	if strings.Contains(partial, "<strong>") {
		t.Errorf("half-streamed bold should stay literal: %q", partial)
	}

	full := Render("Results:\n**matched** 3 jobs")
	if !strings.Contains(full, "<strong>matched</strong>") {
		t.Errorf("completed bold not rendered: %q", full)
	}
}
