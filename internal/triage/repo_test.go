package triage

import (
	"context"
	"sync"

	"github.com/hackutd/harp-sub000/internal/storage"
)

type voteCall struct {
	ID      string
	Payload storage.VotePayload
}

// fakeRepo is an in-memory Repository. A gate, when set, holds the
// matching call until the channel is closed or the context ends.
type fakeRepo struct {
	mu        sync.Mutex
	pending   []storage.Review
	completed []storage.Review
	listErr   error
	voteErr   error
	apps      map[string]*storage.Application
	notes     map[string][]storage.ReviewNote
	votes     []voteCall
	listCalls int

	listGate  chan struct{}
	voteGate  chan struct{}
	appGates  map[string]chan struct{}
	noteGates map[string]chan struct{}
}

func newFakeRepo(pending ...storage.Review) *fakeRepo {
	return &fakeRepo{
		pending:   pending,
		apps:      make(map[string]*storage.Application),
		notes:     make(map[string][]storage.ReviewNote),
		appGates:  make(map[string]chan struct{}),
		noteGates: make(map[string]chan struct{}),
	}
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRepo) ListPendingReviews(ctx context.Context) ([]storage.Review, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []storage.Review{}
	for _, r := range f.pending {
		if !r.Decided() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListCompletedReviews(ctx context.Context) ([]storage.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]storage.Review(nil), f.completed...), nil
}

func (f *fakeRepo) SubmitVote(ctx context.Context, id string, p storage.VotePayload) (*storage.Review, error) {
	f.mu.Lock()
	f.votes = append(f.votes, voteCall{ID: id, Payload: p})
	gate := f.voteGate
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.voteErr != nil {
		return nil, f.voteErr
	}
	for i := range f.pending {
		if f.pending[i].ID == id {
			v := p.Vote
			f.pending[i].Vote = &v
			f.pending[i].Notes = p.Notes
			r := f.pending[i]
			return &r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeRepo) FetchApplication(ctx context.Context, id string) (*storage.Application, error) {
	f.mu.Lock()
	gate := f.appGates[id]
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if app, ok := f.apps[id]; ok {
		return app, nil
	}
	return &storage.Application{ID: id, Email: id + "@example.edu"}, nil
}

func (f *fakeRepo) FetchPeerNotes(ctx context.Context, id string) ([]storage.ReviewNote, error) {
	f.mu.Lock()
	gate := f.noteGates[id]
	f.mu.Unlock()
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.ReviewNote{}, f.notes[id]...), nil
}

func (f *fakeRepo) voteCalls() []voteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]voteCall(nil), f.votes...)
}

func pendingReview(id string) storage.Review {
	return storage.Review{ID: id, ApplicationID: "app-" + id, AdminID: "alice"}
}

func decidedReview(id string, v storage.Vote) storage.Review {
	r := pendingReview(id)
	r.Vote = &v
	return r
}

func ids(reviews []storage.Review) []string {
	out := make([]string, len(reviews))
	for i, r := range reviews {
		out[i] = r.ID
	}
	return out
}

func votePtr(v storage.Vote) *storage.Vote { return &v }

func strPtr(s string) *string { return &s }

func (f *fakeRepo) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}
