package server

import (
	"net/http"
	"time"

	"github.com/hackutd/harp-sub000/internal/version"
)

// HealthResponse reports liveness and build info.
type HealthResponse struct {
	Status  string `json:"status"`
	Env     string `json:"env"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Env:     s.configs.Config().Env,
		Version: version.Get().Version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}
