// Package triage holds the client-side state of the review queue: the
// review set, unsaved drafts, keyboard navigation and the selection that
// ties them together. Nothing here knows about the terminal.
package triage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/hackutd/harp-sub000/internal/storage"
)

var (
	ErrSubmitting     = errors.New("a vote is already being submitted")
	ErrAlreadyDecided = errors.New("review already has a vote")
	ErrReadOnly       = errors.New("completed reviews cannot be changed")
	ErrUnknownReview  = errors.New("review is not in the list")
	ErrNoSelection    = errors.New("no review selected")
	ErrNotSelected    = errors.New("review is no longer selected")
	ErrStale          = errors.New("result is for an outdated request")
)

// Repository is the subset of the API the triage views consume.
type Repository interface {
	ListPendingReviews(ctx context.Context) ([]storage.Review, error)
	ListCompletedReviews(ctx context.Context) ([]storage.Review, error)
	SubmitVote(ctx context.Context, reviewID string, p storage.VotePayload) (*storage.Review, error)
	FetchApplication(ctx context.Context, applicationID string) (*storage.Application, error)
	FetchPeerNotes(ctx context.Context, applicationID string) ([]storage.ReviewNote, error)
}

// Kind selects which review set a Store holds.
type Kind int

const (
	KindPending Kind = iota
	KindCompleted
)

func (k Kind) String() string {
	if k == KindCompleted {
		return "completed"
	}
	return "pending"
}

// StoreState is a snapshot of a Store.
type StoreState struct {
	Reviews    []storage.Review
	Loading    bool
	Submitting bool
	Err        error
}

// Store is the in-memory review set. Only Fetch and SubmitVote change it.
type Store struct {
	repo Repository
	kind Kind

	mu         sync.Mutex
	reviews    []storage.Review
	loading    bool
	submitting bool
	err        error
	fetchSeq   uint64
}

// NewStore returns an empty store for kind.
func NewStore(repo Repository, kind Kind) *Store {
	return &Store{repo: repo, kind: kind, reviews: []storage.Review{}}
}

// Kind reports which set the store holds.
func (s *Store) Kind() Kind {
	return s.kind
}

// State returns a snapshot; the slice is a copy.
func (s *Store) State() StoreState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreState{
		Reviews:    slices.Clone(s.reviews),
		Loading:    s.loading,
		Submitting: s.submitting,
		Err:        s.err,
	}
}

// Reviews returns a copy of the current set.
func (s *Store) Reviews() []storage.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.reviews)
}

// Lookup returns the review with id and its index.
func (s *Store) Lookup(id string) (storage.Review, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return storage.Review{}, -1, false
	}
	return s.reviews[i], i, true
}

func (s *Store) indexLocked(id string) int {
	return slices.IndexFunc(s.reviews, func(r storage.Review) bool { return r.ID == id })
}

// Fetch reloads the set. On success the set is replaced wholesale; on
// failure it is cleared and the error kept. A result that arrives after ctx
// is done, or after a newer Fetch started, is dropped without touching the
// set.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.loading = true
	s.mu.Unlock()

	var (
		reviews []storage.Review
		err     error
	)
	if s.kind == KindCompleted {
		reviews, err = s.repo.ListCompletedReviews(ctx)
	} else {
		reviews, err = s.repo.ListPendingReviews(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.fetchSeq {
		return ErrStale
	}
	s.loading = false
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		s.reviews = []storage.Review{}
		s.err = err
		return err
	}
	if reviews == nil {
		reviews = []storage.Review{}
	}
	s.reviews = reviews
	s.err = nil
	return nil
}

// SubmitVote decides one review. Only one submission may be in flight at a
// time. On success the review leaves the set; on failure the set is
// unchanged. It never retries.
func (s *Store) SubmitVote(ctx context.Context, id string, p storage.VotePayload) (*storage.Review, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.kind == KindCompleted {
		s.mu.Unlock()
		return nil, ErrReadOnly
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitting
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrUnknownReview
	}
	if s.reviews[i].Decided() {
		s.mu.Unlock()
		return nil, ErrAlreadyDecided
	}
	s.submitting = true
	s.mu.Unlock()

	review, err := s.repo.SubmitVote(ctx, id, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		return nil, err
	}
	// A fetch may have replaced the set meanwhile; remove by id.
	if i := s.indexLocked(id); i >= 0 {
		s.reviews = slices.Delete(s.reviews, i, i+1)
	}
	return review, nil
}
