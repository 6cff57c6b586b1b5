package protocol

import (
	"encoding/json"
	"testing"
)

func TestParseEvent_TextDelta(t *testing.T) {
	raw := json.RawMessage(`{"type":"text_delta","content":"hello"}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	td, ok := ev.(TextDeltaEvent)
	if !ok {
		t.Fatalf("expected TextDeltaEvent, got %T", ev)
	}
	if td.Content != "hello" {
		t.Errorf("expected content 'hello', got %q", td.Content)
	}
	if td.EventType() != EventTypeTextDelta {
		t.Errorf("expected EventType text_delta, got %q", td.EventType())
	}
}

func TestParseEvent_TextSpellingAliasesTextDelta(t *testing.T) {
	raw := json.RawMessage(`{"type":"text","content":"hi"}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	td, ok := ev.(TextDeltaEvent)
	if !ok {
		t.Fatalf("expected TextDeltaEvent for legacy spelling, got %T", ev)
	}
	if td.Content != "hi" {
		t.Errorf("expected content 'hi', got %q", td.Content)
	}
	if td.EventType() != EventTypeTextDelta {
		t.Errorf("legacy spelling must dispatch as text_delta, got %q", td.EventType())
	}
}

func TestParseEvent_ContentBlockStart(t *testing.T) {
	raw := json.RawMessage(`{"type":"content_block_start","content_block":{"type":"server_tool_use","name":"web_search","id":"tu_1"}}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cb, ok := ev.(ContentBlockStartEvent)
	if !ok {
		t.Fatalf("expected ContentBlockStartEvent, got %T", ev)
	}
	if !cb.IsToolUse() {
		t.Error("server_tool_use block should announce a tool")
	}
	if cb.ContentBlock.Name != "web_search" {
		t.Errorf("expected tool name web_search, got %q", cb.ContentBlock.Name)
	}
}

func TestParseEvent_ContentBlockStart_TextBlockIsNotTool(t *testing.T) {
	raw := json.RawMessage(`{"type":"content_block_start","content_block":{"type":"text"}}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.(ContentBlockStartEvent).IsToolUse() {
		t.Error("text block must not announce a tool")
	}
}

func TestParseEvent_ToolExecuteComplete(t *testing.T) {
	raw := json.RawMessage(`{"type":"tool_execute_complete","tool_name":"match_jobs","result":{"jobs":[]}}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := ev.(ToolExecuteCompleteEvent)
	if !ok {
		t.Fatalf("expected ToolExecuteCompleteEvent, got %T", ev)
	}
	if tc.ToolName != "match_jobs" {
		t.Errorf("expected tool_name match_jobs, got %q", tc.ToolName)
	}
	if len(tc.Result) == 0 {
		t.Error("expected raw result payload to be preserved")
	}
	if tc.Error != "" {
		t.Errorf("expected no tool error, got %q", tc.Error)
	}
}

func TestParseEvent_JobData(t *testing.T) {
	raw := json.RawMessage(`{"type":"job_data","match_type":"personalized","jobs":[{"title":"Go Engineer","company":"Acme"},{"broken":}]}`)
	// the second listing is intentionally invalid JSON, so the whole event fails
	if _, err := ParseEvent(raw); err == nil {
		t.Fatal("expected error for malformed jobs array")
	}

	raw = json.RawMessage(`{"type":"job_data","match_type":"personalized","jobs":[{"title":"Go Engineer","company":"Acme"},{"title":"SRE"}]}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	jd, ok := ev.(JobDataEvent)
	if !ok {
		t.Fatalf("expected JobDataEvent, got %T", ev)
	}
	if len(jd.Jobs) != 2 {
		t.Errorf("expected 2 raw jobs, got %d", len(jd.Jobs))
	}
	if jd.MatchType != "personalized" {
		t.Errorf("expected match_type personalized, got %q", jd.MatchType)
	}

	decoded := jd.DecodedJobs()
	if len(decoded) != 2 || decoded[0].Title != "Go Engineer" {
		t.Errorf("unexpected decoded jobs: %+v", decoded)
	}
}

func TestParseEvent_Complete(t *testing.T) {
	raw := json.RawMessage(`{"type":"complete","session_id":"s-42"}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ce, ok := ev.(CompleteEvent)
	if !ok {
		t.Fatalf("expected CompleteEvent, got %T", ev)
	}
	if ce.SessionID != "s-42" {
		t.Errorf("expected session id s-42, got %q", ce.SessionID)
	}
}

func TestParseEvent_EndSpellingAliasesComplete(t *testing.T) {
	raw := json.RawMessage(`{"type":"end","content":"[DONE]"}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ce, ok := ev.(CompleteEvent)
	if !ok {
		t.Fatalf("expected CompleteEvent, got %T", ev)
	}
	if ce.SessionID != "" {
		t.Errorf("end events carry no session id, got %q", ce.SessionID)
	}
}

func TestParseEvent_Unknown(t *testing.T) {
	raw := json.RawMessage(`{"type":"future_event","data":"x"}`)
	ev, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("unexpected error for unknown event type: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil for unknown event type, got %T", ev)
	}
}

func TestParseEvent_InvalidJSON(t *testing.T) {
	if _, err := ParseEvent(json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
