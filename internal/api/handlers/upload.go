package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/services"
	"github.com/jobcatcher/console/pkg/httpext"
)

// HandleUpload proxies a resume to the backend and attaches the parsed
// document to the caller's session so it rides along with the next
// message. A failed upload leaves the session exactly as it was.
func HandleUpload(svcs *services.Services, w http.ResponseWriter, r *http.Request) {
	maxBytes := config.GetUploadMaxBytes()

	// generous slack for the multipart framing around the file
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+64*1024)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn().Int64("limit", maxBytes).Msg("Upload rejected, request too large")
			httpext.JsonError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		log.Warn().Err(err).Msg("Upload rejected, malformed multipart body")
		httpext.JsonError(w, "Invalid upload request", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpext.JsonError(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		log.Warn().
			Int64("size", header.Size).
			Int64("limit", maxBytes).
			Str("filename", header.Filename).
			Msg("Upload rejected, file too large")
		httpext.JsonError(w, "File too large", http.StatusRequestEntityTooLarge)
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !extensionAllowed(ext) {
		log.Warn().Str("extension", ext).Msg("Upload rejected, unsupported file type")
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            fmt.Sprintf("Unsupported file type %q", ext),
			ErrorDescription: "allowed: " + strings.Join(config.GetUploadAllowedExtensions(), ", "),
		})
		return
	}

	sessionService := svcs.GetSessionService()
	sess := sessionService.Acquire(r.Context(), sessionService.CookieSessionID(r))
	defer sessionService.Release(r.Context(), sess)

	doc, err := svcs.GetBackendService().Upload(r.Context(), sess.ID(), header.Filename, file)
	if err != nil {
		log.Error().Err(err).Str("filename", header.Filename).Msg("Backend upload failed")
		httpext.JsonError(w, "Upload failed", http.StatusBadGateway)
		return
	}

	sess.AttachDocument(doc)

	// keep the browser pointed at this conversation
	if cookie, err := sessionService.IssueCookie(sess.ID()); err == nil {
		http.SetCookie(w, cookie)
	} else {
		log.Warn().Err(err).Msg("Failed to issue session cookie")
	}

	log.Info().
		Str("filename", doc.Filename).
		Int64("size", doc.Size).
		Str("session_id", sess.ID()).
		Msg("Resume attached to session")

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		log.Error().Err(err).Msg("Failed to encode upload response")
	}
}

func extensionAllowed(ext string) bool {
	for _, allowed := range config.GetUploadAllowedExtensions() {
		if ext == allowed {
			return true
		}
	}
	return false
}
