package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Pipeline routes
	mux.HandleFunc("/process", s.app.ProcessHandler.ProcessHandler)                // POST - upload and process
	mux.HandleFunc("/status/{process_id}", s.app.StatusHandler.StatusHandler)      // GET - job status
	mux.HandleFunc("/download/{process_id}", s.app.DownloadHandler.DownloadHandler) // GET - report download

	// System routes
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Catch-all for unknown API paths
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
