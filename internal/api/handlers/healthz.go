package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jobcatcher/console/internal/connections"
	"github.com/jobcatcher/console/internal/infrastructure/backend"
)

type healthzResponse struct {
	Status      string `json:"status"`
	Backend     string `json:"backend"`
	Connections int    `json:"connections"`
}

// HandleHealthz reports liveness plus where the console is pointed.
func HandleHealthz(backendService *backend.Service, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := healthzResponse{
		Status:      "ok",
		Backend:     backendService.BaseURL(),
		Connections: manager.GetConnectionCount(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode healthz response")
	}
}
