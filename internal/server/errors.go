package server

import (
	"context"
	"errors"
	"net/http"
)

func (s *Server) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	// The client is gone; nothing to answer and nothing worth logging.
	if errors.Is(r.Context().Err(), context.Canceled) {
		return
	}
	s.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (s *Server) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) unauthorizedResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warnw("unauthorized", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	w.Header().Set("WWW-Authenticate", `Bearer realm="harp"`)
	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (s *Server) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warnw("not found", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusNotFound, "not found")
}

func (s *Server) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warnw("conflict", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeJSONError(w, http.StatusConflict, err.Error())
}
