package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jobcatcher/console/internal/protocol"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("BACKEND_URL", srv.URL)
	return NewService()
}

func TestStreamMessageSendsRequestAndReturnsBody(t *testing.T) {
	var got protocol.ChatRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/stream" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if accept := r.Header.Get("Accept"); accept != "text/event-stream" {
			t.Errorf("Accept = %q", accept)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"text_delta\",\"content\":\"Hi\"}\n\n")
		io.WriteString(w, "data: {\"type\":\"complete\",\"session_id\":\"s1\"}\n\n")
	})

	req := &protocol.ChatRequest{
		Message: "find me a job",
		Context: protocol.ChatContext{
			SessionID:      "s1",
			ResumeUploaded: true,
			ChatHistory: []protocol.HistoryEntry{
				{Role: protocol.RoleUser, Content: "hello"},
			},
		},
	}

	body, err := svc.StreamMessage(context.Background(), req)
	if err != nil {
		t.Fatalf("StreamMessage: %v", err)
	}
	defer body.Close()

	if got.Message != "find me a job" || got.Context.SessionID != "s1" {
		t.Errorf("backend received %+v", got)
	}
	if !got.Context.ResumeUploaded || len(got.Context.ChatHistory) != 1 {
		t.Errorf("context not forwarded: %+v", got.Context)
	}

	dec := protocol.NewDecoder(body)
	first, err := dec.Next()
	if err != nil {
		t.Fatalf("decode first event: %v", err)
	}
	if delta, ok := first.(protocol.TextDeltaEvent); !ok || delta.Content != "Hi" {
		t.Errorf("first event = %#v", first)
	}
}

func TestStreamMessageBackendFailure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	})

	_, err := svc.StreamMessage(context.Background(), &protocol.ChatRequest{Message: "hi"})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestUploadProxiesMultipart(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload/resume" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("user_id"); got != "session-1" {
			t.Errorf("user_id = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "resume.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("part content type = %q", ct)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "%PDF-1.4 fake" {
			t.Errorf("file content = %q", content)
		}

		json.NewEncoder(w).Encode(protocol.Document{
			Filename:            "resume.pdf",
			DocumentData:        "base64data",
			ClaudeNativeSupport: true,
			Size:                13,
		})
	})

	doc, err := svc.Upload(context.Background(), "session-1", "resume.pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if doc.Filename != "resume.pdf" || !doc.ClaudeNativeSupport || doc.Size != 13 {
		t.Errorf("document = %+v", doc)
	}
}

func TestUploadBackendRejection(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported file type", http.StatusBadRequest)
	})

	_, err := svc.Upload(context.Background(), "s1", "resume.exe", strings.NewReader("MZ"))
	if err == nil {
		t.Fatal("expected error for rejected upload")
	}
}

func TestDeleteSession(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"deleted", http.StatusNoContent, false},
		{"ok body", http.StatusOK, false},
		{"already gone", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodDelete {
					t.Errorf("method = %s", r.Method)
				}
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
			})

			err := svc.DeleteSession(context.Background(), "abc-123")
			if (err != nil) != tt.wantErr {
				t.Errorf("DeleteSession error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotPath != "/chat/session/abc-123" {
				t.Errorf("path = %q", gotPath)
			}
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"resume.pdf", "application/pdf"},
		{"resume.PDF", "application/pdf"},
		{"notes.txt", "text/plain"},
		{"cv.doc", "application/msword"},
		{"cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{"unknown.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := contentTypeFor(tt.filename); got != tt.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
