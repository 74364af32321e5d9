package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/hackutd/harp-sub000/internal/storage"
)

// NotesResponse wraps the peer notes left on an application.
type NotesResponse struct {
	Notes []storage.ReviewNote `json:"notes"`
}

// listApplicationsHandler returns one keyset page of applications.
func (s *Server) listApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	req, _, err := pagination.ParseRequest(r.URL.Query())
	if err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	if req.Status != "" && !storage.ApplicationStatus(req.Status).Valid() {
		s.badRequestResponse(w, r, fmt.Errorf("invalid status value %q", req.Status))
		return
	}

	page, err := s.store.ListApplications(r.Context(), req)
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, storage.NewApplicationListResult(page))
}

// getApplicationStats returns application counts per status.
func (s *Server) getApplicationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.ApplicationStats(r.Context())
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, stats)
}

// getApplication returns a single application by ID.
func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicationID")
	if id == "" {
		s.badRequestResponse(w, r, errors.New("application ID is required"))
		return
	}

	app, err := s.store.GetApplication(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.notFoundResponse(w, r, err)
			return
		}
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, app)
}

// getApplicationNotes returns every non-empty note reviewers have left on
// the application, oldest first.
func (s *Server) getApplicationNotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicationID")
	if id == "" {
		s.badRequestResponse(w, r, errors.New("application ID is required"))
		return
	}

	if _, err := s.store.GetApplication(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.notFoundResponse(w, r, err)
			return
		}
		s.internalServerError(w, r, err)
		return
	}

	notes, err := s.store.NotesByApplication(r.Context(), id)
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, NotesResponse{Notes: nonNil(notes)})
}
