package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hackutd/harp-sub000/internal/pagination"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a vote targets a review that already
	// has one. Decided reviews are never overwritten.
	ErrConflict = errors.New("review already has a vote")
)

// QueryTimeout bounds every single-statement query.
const QueryTimeout = 5 * time.Second

// Store is the persistence surface used by the API server. *DB (SQLite)
// and *PgStore (PostgreSQL) implement it.
type Store interface {
	ListPendingReviews(ctx context.Context, adminID string) ([]Review, error)
	ListCompletedReviews(ctx context.Context, adminID string) ([]Review, error)
	SubmitVote(ctx context.Context, reviewID, adminID string, p VotePayload) (*Review, error)
	NotesByApplication(ctx context.Context, applicationID string) ([]ReviewNote, error)
	AssignNext(ctx context.Context, adminID string, reviewsPerApp int) (*Review, error)

	GetApplication(ctx context.Context, id string) (*Application, error)
	ListApplications(ctx context.Context, req pagination.Request) (pagination.Page[ApplicationListItem], error)
	ApplicationStats(ctx context.Context) (*ApplicationStats, error)

	UpsertAdmin(ctx context.Context, a Admin) error
	CreateApplication(ctx context.Context, app *Application) error
	CreateReview(ctx context.Context, applicationID, adminID string, assignedAt time.Time) (*Review, error)

	Close() error
}

func newID() string {
	return uuid.NewString()
}

// normalizeNotes maps empty notes to NULL.
func normalizeNotes(notes *string) *string {
	if notes == nil || *notes == "" {
		return nil
	}
	return notes
}

func applicationCursor(it ApplicationListItem) pagination.Cursor {
	return pagination.Cursor{CreatedAt: it.CreatedAt, ID: it.ID}
}

// validStatusFilter reports whether the request's status filter is usable.
func validStatusFilter(req pagination.Request) bool {
	return req.Status == "" || ApplicationStatus(req.Status).Valid()
}
