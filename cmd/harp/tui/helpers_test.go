package tui

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackutd/harp-sub000/internal/client"
	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/hackutd/harp-sub000/internal/storage"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type voteCall struct {
	id      string
	payload storage.VotePayload
}

// fakeClient is an in-memory client.Client.
type fakeClient struct {
	mu        sync.Mutex
	pending   []storage.Review
	completed []storage.Review
	apps      []storage.ApplicationListItem
	details   map[string]*storage.Application
	notes     map[string][]storage.ReviewNote
	votes     []voteCall
	voteErr   error
	next      *storage.Review
	nextErr   error
	listCalls int
	appReqs   []pagination.Request

	statsCalls int
	statsErr   error
}

func newFakeClient(pending ...storage.Review) *fakeClient {
	return &fakeClient{
		pending: pending,
		details: make(map[string]*storage.Application),
		notes:   make(map[string][]storage.ReviewNote),
	}
}

func (f *fakeClient) ListPendingReviews(context.Context) ([]storage.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]storage.Review{}, f.pending...), nil
}

func (f *fakeClient) ListCompletedReviews(context.Context) ([]storage.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Review{}, f.completed...), nil
}

func (f *fakeClient) SubmitVote(_ context.Context, id string, p storage.VotePayload) (*storage.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.votes = append(f.votes, voteCall{id: id, payload: p})
	if f.voteErr != nil {
		return nil, f.voteErr
	}
	for i, r := range f.pending {
		if r.ID != id {
			continue
		}
		v := p.Vote
		r.Vote = &v
		r.Notes = p.Notes
		at := testNow
		r.ReviewedAt = &at
		f.pending = append(f.pending[:i], f.pending[i+1:]...)
		f.completed = append(f.completed, r)
		return &r, nil
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "review not found"}
}

func (f *fakeClient) FetchPeerNotes(_ context.Context, appID string) ([]storage.ReviewNote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[appID], nil
}

func (f *fakeClient) FetchApplication(_ context.Context, appID string) (*storage.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if app, ok := f.details[appID]; ok {
		return app, nil
	}
	return nil, &client.APIError{StatusCode: http.StatusNotFound, Message: "application not found"}
}

func (f *fakeClient) ListApplications(_ context.Context, req pagination.Request) (pagination.Page[storage.ApplicationListItem], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appReqs = append(f.appReqs, req)

	var rows []storage.ApplicationListItem
	for _, a := range f.apps {
		if req.Status == "" || string(a.Status) == req.Status {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return newer(rows[i], appKey(rows[j])) })

	if req.Cursor != "" {
		cur, err := pagination.Decode(req.Cursor)
		if err != nil {
			return pagination.Page[storage.ApplicationListItem]{}, err
		}
		var kept []storage.ApplicationListItem
		if req.Direction == pagination.Backward {
			for i := len(rows) - 1; i >= 0; i-- {
				if newer(rows[i], cur) {
					kept = append(kept, rows[i])
				}
			}
		} else {
			for _, r := range rows {
				if r.ID != cur.ID && !newer(r, cur) {
					kept = append(kept, r)
				}
			}
		}
		rows = kept
	}
	if limit := req.Normalize().Limit; len(rows) > limit+1 {
		rows = rows[:limit+1]
	}
	return pagination.Window(rows, req, appKey), nil
}

func (f *fakeClient) ApplicationStats(context.Context) (*storage.ApplicationStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsCalls++
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	stats := &storage.ApplicationStats{TotalApplications: len(f.apps)}
	for _, a := range f.apps {
		switch a.Status {
		case storage.StatusDraft:
			stats.Draft++
		case storage.StatusSubmitted:
			stats.Submitted++
		case storage.StatusAccepted:
			stats.Accepted++
		case storage.StatusRejected:
			stats.Rejected++
		case storage.StatusWaitlisted:
			stats.Waitlisted++
		}
	}
	if len(f.apps) > 0 {
		stats.AcceptanceRate = float64(stats.Accepted) * 100 / float64(len(f.apps))
	}
	return stats, nil
}

func (f *fakeClient) NextReview(context.Context) (*storage.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nextErr != nil {
		return nil, f.nextErr
	}
	if f.next == nil {
		return nil, &client.APIError{StatusCode: http.StatusNotFound}
	}
	f.pending = append(f.pending, *f.next)
	r := *f.next
	f.next = nil
	return &r, nil
}

func (f *fakeClient) voteCalls() []voteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]voteCall(nil), f.votes...)
}

func appKey(a storage.ApplicationListItem) pagination.Cursor {
	return pagination.Cursor{CreatedAt: a.CreatedAt, ID: a.ID}
}

// newer reports whether a sorts before c in (created_at DESC, id DESC).
func newer(a storage.ApplicationListItem, c pagination.Cursor) bool {
	if !a.CreatedAt.Equal(c.CreatedAt) {
		return a.CreatedAt.After(c.CreatedAt)
	}
	return a.ID > c.ID
}

type mockClipboard struct {
	lastText string
	err      error
}

func (m *mockClipboard) WriteText(text string) error {
	if m.err != nil {
		return m.err
	}
	m.lastText = text
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func makeReview(id, first, last string) storage.Review {
	return storage.Review{
		ID:            id,
		ApplicationID: "app-" + id,
		AdminID:       "admin-1",
		AssignedAt:    testNow.Add(-2 * time.Hour),
		FirstName:     strPtr(first),
		LastName:      strPtr(last),
		Email:         first + "@example.com",
		Age:           intPtr(20),
		University:    strPtr("UT Dallas"),
	}
}

func makeApplication(r storage.Review) *storage.Application {
	return &storage.Application{
		ID:                   r.ApplicationID,
		Email:                r.Email,
		Status:               storage.StatusSubmitted,
		FirstName:            r.FirstName,
		LastName:             r.LastName,
		Age:                  r.Age,
		University:           r.University,
		Major:                strPtr("Computer Science"),
		ShortAnswerResponses: []byte(`[{"question":"Why HackUTD?","answer":"I want to build *things*."}]`),
		CreatedAt:            testNow.Add(-48 * time.Hour),
	}
}

// newTestModel builds a model over f with a fixed clock, a mock clipboard
// and a known window size.
func newTestModel(t *testing.T, f *fakeClient, opts ...option) (model, *mockClipboard) {
	t.Helper()
	opts = append([]option{withExternalIODisabled()}, opts...)
	m := newModel(f, opts...)
	cb := &mockClipboard{}
	m.clipboard = cb
	m.now = func() time.Time { return testNow }
	t.Cleanup(m.close)
	m, _ = updateModel(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, cb
}

// loadInitial runs the fetch Init would issue for the start view.
func loadInitial(t *testing.T, m model) model {
	t.Helper()
	var cmd tea.Cmd
	switch m.currentView {
	case viewCompleted:
		cmd = m.reviewsCmd(m.currentKind())
	case viewApplications:
		cmd = tea.Batch(m.appsCmd(m.apps.First), m.appStatsCmd())
	default:
		cmd = m.reviewsCmd(m.currentKind())
	}
	return drain(t, m, cmd)
}

func updateModel(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	next, ok := updated.(model)
	if !ok {
		t.Fatalf("Update returned %T, want model", updated)
	}
	return next, cmd
}

func pressKey(t *testing.T, m model, r rune) (model, tea.Cmd) {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func pressSpecial(t *testing.T, m model, k tea.KeyType) (model, tea.Cmd) {
	t.Helper()
	return updateModel(t, m, tea.KeyMsg{Type: k})
}

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	m, _ = updateModel(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

// collect runs cmd, expanding batches, and returns the messages that arrive
// within a short window. Timer messages (spinner frames, flash expiry) are
// dropped; their commands would otherwise hold the test for seconds.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	out := make(chan tea.Msg, 128)
	var wg sync.WaitGroup
	var run func(c tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, child := range batch {
					run(child)
				}
				return
			}
			out <- msg
		}()
	}
	run(cmd)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
	}

	var msgs []tea.Msg
	for {
		select {
		case msg := <-out:
			switch msg.(type) {
			case nil, spinner.TickMsg, flashExpiredMsg:
			default:
				msgs = append(msgs, msg)
			}
		default:
			return msgs
		}
	}
}

// drain feeds every message cmd produces back into the model until nothing
// but timers is left.
func drain(t *testing.T, m model, cmd tea.Cmd) model {
	t.Helper()
	for range 10 {
		msgs := collect(t, cmd)
		if len(msgs) == 0 {
			return m
		}
		var next []tea.Cmd
		for _, msg := range msgs {
			var c tea.Cmd
			m, c = updateModel(t, m, msg)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	t.Fatal("commands did not settle")
	return m
}
