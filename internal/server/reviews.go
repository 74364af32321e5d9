package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackutd/harp-sub000/internal/storage"
)

// ReviewResponse wraps one review.
type ReviewResponse struct {
	Review storage.Review `json:"review"`
}

// ReviewsListResponse wraps a list of reviews.
type ReviewsListResponse struct {
	Reviews []storage.Review `json:"reviews"`
}

// getPendingReviews returns the caller's undecided reviews, oldest first.
func (s *Server) getPendingReviews(w http.ResponseWriter, r *http.Request) {
	admin := adminFromContext(r.Context())

	reviews, err := s.store.ListPendingReviews(r.Context(), admin.ID)
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, ReviewsListResponse{Reviews: nonNil(reviews)})
}

// getCompletedReviews returns the caller's decided reviews, newest first.
func (s *Server) getCompletedReviews(w http.ResponseWriter, r *http.Request) {
	admin := adminFromContext(r.Context())

	reviews, err := s.store.ListCompletedReviews(r.Context(), admin.ID)
	if err != nil {
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, ReviewsListResponse{Reviews: nonNil(reviews)})
}

// getNextReview assigns the next application needing review to the caller.
func (s *Server) getNextReview(w http.ResponseWriter, r *http.Request) {
	admin := adminFromContext(r.Context())
	perApp := s.configs.Config().ReviewsPerApp

	review, err := s.store.AssignNext(r.Context(), admin.ID, perApp)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.notFoundResponse(w, r, errors.New("no applications need review"))
			return
		}
		s.internalServerError(w, r, err)
		return
	}
	s.jsonResponse(w, r, http.StatusOK, ReviewResponse{Review: *review})
}

// submitVote records the caller's decision on one of their reviews. A
// review can be decided only once; a second vote is a 409.
func (s *Server) submitVote(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewID")
	if reviewID == "" {
		s.badRequestResponse(w, r, errors.New("review ID is required"))
		return
	}
	admin := adminFromContext(r.Context())

	var req storage.VotePayload
	if err := readJSON(w, r, &req); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.badRequestResponse(w, r, err)
		return
	}

	review, err := s.store.SubmitVote(r.Context(), reviewID, admin.ID, req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.notFoundResponse(w, r, err)
		case errors.Is(err, storage.ErrConflict):
			s.conflictResponse(w, r, errors.New("review already has a vote"))
		default:
			s.internalServerError(w, r, err)
		}
		return
	}
	s.jsonResponse(w, r, http.StatusOK, ReviewResponse{Review: *review})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
