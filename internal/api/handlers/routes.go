package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jobcatcher/console/internal/api/middleware"
	"github.com/jobcatcher/console/internal/connections"
	"github.com/jobcatcher/console/internal/services"
)

// RegisterRoutes wires every gateway endpoint onto the router.
func RegisterRoutes(router *mux.Router, svcs *services.Services, manager *connections.Manager) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		HandleHealthz(svcs.GetBackendService(), manager, w, r)
	}).Methods("GET")

	router.Handle("/ws", middleware.RateLimit("ws_connect")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleWS(svcs, manager, w, r)
	}))).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Handle("/upload", middleware.RateLimit("upload")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleUpload(svcs, w, r)
	}))).Methods("POST")
}
