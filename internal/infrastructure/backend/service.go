package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/protocol"
)

// Service is the HTTP client for the JobCatcher backend. Streaming
// requests get a client without a timeout so long turns are bounded by
// context cancellation alone; everything else uses the configured
// request timeout.
type Service struct {
	client       *http.Client
	streamClient *http.Client
	baseURL      string
}

func NewService() *Service {
	return &Service{
		client:       &http.Client{Timeout: config.GetBackendTimeout()},
		streamClient: &http.Client{},
		baseURL:      strings.TrimRight(config.GetBackendURL(), "/"),
	}
}

func (s *Service) BaseURL() string {
	return s.baseURL
}

// StreamMessage opens the event stream for one turn. The returned body
// carries server-sent events and must be closed by the caller.
func (s *Service) StreamMessage(ctx context.Context, req *protocol.ChatRequest) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/stream", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := s.streamClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if readErr == nil && len(body) > 0 {
			log.Error().
				Int("status", resp.StatusCode).
				Str("body", string(body)).
				Msg("Backend rejected stream request")
		}
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// Upload proxies a resume to the backend and returns the parsed
// document descriptor for the next turn.
func (s *Service) Upload(ctx context.Context, sessionID, filename string, file io.Reader) (*protocol.Document, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", contentTypeFor(filename))
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := writer.WriteField("user_id", sessionID); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/upload/resume", s.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && len(body) > 0 {
			log.Error().
				Int("status", resp.StatusCode).
				Str("body", string(body)).
				Msg("Backend rejected upload")
		}
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var doc protocol.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if doc.Filename == "" {
		doc.Filename = filename
	}

	return &doc, nil
}

// DeleteSession asks the backend to drop its state for a conversation.
// A session the backend no longer knows counts as deleted.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/chat/session/%s", s.baseURL, sessionID)
	httpReq, err := http.NewRequestWithContext(ctx, "DELETE", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("backend returned status %d", resp.StatusCode)
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
