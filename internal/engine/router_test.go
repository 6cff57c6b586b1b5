package engine

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

type fakePanels struct {
	panels   map[RouteKind]bool
	jobs     []json.RawMessage
	jobTags  []string
	heatmaps []json.RawMessage
	sendErr  error
}

func (f *fakePanels) HasPanel(kind RouteKind) bool { return f.panels[kind] }

func (f *fakePanels) SendJobs(jobs json.RawMessage, tag string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.jobs = append(f.jobs, jobs)
	f.jobTags = append(f.jobTags, tag)
	return nil
}

func (f *fakePanels) SendHeatmap(data json.RawMessage) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.heatmaps = append(f.heatmaps, data)
	return nil
}

type fakeInline struct {
	rendered []string
}

func (f *fakeInline) InlineHTML(html string) { f.rendered = append(f.rendered, html) }

func TestRouterForwardsToPanel(t *testing.T) {
	panels := &fakePanels{panels: map[RouteKind]bool{RouteJobs: true, RouteHeatmap: true}}
	inline := &fakeInline{}
	r := NewRouter(panels, inline)

	r.Route(RouteJobs, json.RawMessage(`[{"title":"Go Engineer"}]`), TagPersonalized)
	r.Route(RouteHeatmap, json.RawMessage(`{"go":9}`), TagChart)

	if len(panels.jobs) != 1 || panels.jobTags[0] != TagPersonalized {
		t.Errorf("jobs not forwarded with tag: %v %v", panels.jobs, panels.jobTags)
	}
	if len(panels.heatmaps) != 1 {
		t.Errorf("heatmap not forwarded: %v", panels.heatmaps)
	}
	if len(inline.rendered) != 0 {
		t.Errorf("inline fallback used although panels exist: %v", inline.rendered)
	}
}

func TestRouterFallsBackWithoutPanel(t *testing.T) {
	inline := &fakeInline{}
	r := NewRouter(nil, inline)

	r.Route(RouteJobs, json.RawMessage(`[{"title":"Go Engineer","company":"Acme","location":"Berlin"}]`), TagPersonalized)

	if len(inline.rendered) != 1 {
		t.Fatalf("expected 1 inline rendering, got %d", len(inline.rendered))
	}
	got := inline.rendered[0]
	for _, want := range []string{"Personalized", "Go Engineer", "Acme", "Berlin"} {
		if !strings.Contains(got, want) {
			t.Errorf("fallback html missing %q: %s", want, got)
		}
	}
}

func TestRouterFallsBackWhenPanelErrors(t *testing.T) {
	panels := &fakePanels{
		panels:  map[RouteKind]bool{RouteJobs: true},
		sendErr: errors.New("socket closed"),
	}
	inline := &fakeInline{}
	r := NewRouter(panels, inline)

	r.Route(RouteJobs, json.RawMessage(`[{"title":"SRE"}]`), TagGeneral)

	if len(inline.rendered) != 1 {
		t.Fatalf("panel failure must degrade to inline rendering, got %d renderings", len(inline.rendered))
	}
}

func TestRouterEscapesFallbackFields(t *testing.T) {
	inline := &fakeInline{}
	r := NewRouter(nil, inline)

	r.Route(RouteJobs, json.RawMessage(`[{"title":"<script>x</script>","company":"A&B"}]`), TagGeneral)

	got := inline.rendered[0]
	if strings.Contains(got, "<script>") {
		t.Errorf("fallback html not escaped: %s", got)
	}
	if !strings.Contains(got, "&amp;B") {
		t.Errorf("ampersand not escaped: %s", got)
	}
}

func TestRouterHeatmapFallback(t *testing.T) {
	inline := &fakeInline{}
	r := NewRouter(nil, inline)

	r.Route(RouteHeatmap, json.RawMessage(`{"go":9}`), TagChart)

	if len(inline.rendered) != 1 {
		t.Fatalf("expected heatmap fallback rendering")
	}
}

func TestRouterSurvivesMissingInlineSink(t *testing.T) {
	r := NewRouter(nil, nil)
	// must not panic
	r.Route(RouteJobs, json.RawMessage(`[]`), TagGeneral)
	r.Route(RouteHeatmap, json.RawMessage(`{}`), TagChart)
}

func TestRouterUnparseableJobsPayload(t *testing.T) {
	inline := &fakeInline{}
	r := NewRouter(nil, inline)

	r.Route(RouteJobs, json.RawMessage(`{"not":"an array"}`), TagGeneral)

	if len(inline.rendered) != 1 {
		t.Fatalf("expected a graceful fallback line, got %d", len(inline.rendered))
	}
	if !strings.Contains(inline.rendered[0], "could not be displayed") {
		t.Errorf("unexpected fallback text: %s", inline.rendered[0])
	}
}
