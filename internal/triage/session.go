package triage

import (
	"context"
	"errors"
	"sync"

	"github.com/hackutd/harp-sub000/internal/storage"
)

// Selection identifies one selection change. Detail and peer-note fetches
// for it share its context, which is cancelled as soon as the selection
// moves on; their results are applied only while it is still current.
type Selection struct {
	ReviewID      string
	ApplicationID string

	ctx    context.Context
	cancel context.CancelFunc
}

// Context is cancelled when the selection is superseded.
func (sel *Selection) Context() context.Context {
	return sel.ctx
}

// Detail is the data loaded for the selected review. The two halves load
// independently and either may arrive first.
type Detail struct {
	Application *storage.Application
	AppLoading  bool
	AppErr      error

	PeerNotes    []storage.ReviewNote
	NotesLoading bool
	NotesErr     error
}

// View is a render snapshot of a Session.
type View struct {
	Kind       Kind
	Reviews    []storage.Review
	Loading    bool
	Submitting bool
	Err        error

	Mode          Mode
	Selected      *storage.Review
	SelectedIndex int
	NotesFocused  bool
	Detail        Detail

	// Effective values for the selected review, drafts included.
	Vote     *storage.Vote
	Notes    string
	HasDraft bool
}

// Session composes a Store, the override layer and keyboard navigation
// into one triage screen. It owns the selection.
type Session struct {
	store     *Store
	overrides *Overrides
	repo      Repository

	mu           sync.Mutex
	root         context.Context
	closeRoot    context.CancelFunc
	selectedID   string
	expanded     bool
	notesFocused bool
	sel          *Selection
	detail       Detail
}

// NewSession wires a store and override layer to repo.
func NewSession(store *Store, overrides *Overrides, repo Repository) *Session {
	root, cancel := context.WithCancel(context.Background())
	return &Session{
		store:     store,
		overrides: overrides,
		repo:      repo,
		root:      root,
		closeRoot: cancel,
	}
}

// Store returns the session's review store.
func (s *Session) Store() *Store {
	return s.store
}

// Overrides returns the session's draft layer.
func (s *Session) Overrides() *Overrides {
	return s.overrides
}

// Close cancels every outstanding selection fetch. Call it when the screen
// goes away.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeRoot()
	s.sel = nil
}

// View returns a consistent snapshot for rendering.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.State()
	v := View{
		Kind:          s.store.Kind(),
		Reviews:       st.Reviews,
		Loading:       st.Loading,
		Submitting:    st.Submitting,
		Err:           st.Err,
		Mode:          s.modeLocked(),
		SelectedIndex: -1,
		NotesFocused:  s.notesFocused,
		Detail:        s.detail,
	}
	for i := range st.Reviews {
		if st.Reviews[i].ID == s.selectedID {
			r := st.Reviews[i]
			v.Selected = &r
			v.SelectedIndex = i
			v.Vote = s.overrides.EffectiveVote(r.ID, r.Vote)
			v.Notes = s.overrides.EffectiveNotes(r.ID, r.Notes)
			v.HasDraft = s.overrides.HasDraft(r.ID)
			break
		}
	}
	return v
}

func (s *Session) modeLocked() Mode {
	switch {
	case s.selectedID == "":
		return Browsing
	case s.expanded:
		return ReviewingExpanded
	default:
		return Reviewing
	}
}

// SelectedID returns the selected review id, or "".
func (s *Session) SelectedID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Select changes the selection. It returns nil when nothing needs loading:
// the id is already selected, or it is not in the set (a stale id selects
// nothing). Otherwise the caller runs LoadDetail and LoadPeerNotes with the
// returned token.
func (s *Session) Select(id string) *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(id)
}

func (s *Session) selectLocked(id string) *Selection {
	if id != "" && id == s.selectedID {
		return nil
	}
	if s.sel != nil {
		s.sel.cancel()
		s.sel = nil
	}
	s.notesFocused = false
	s.detail = Detail{}

	review, _, ok := s.store.Lookup(id)
	if id == "" || !ok {
		s.selectedID = ""
		s.expanded = false
		return nil
	}

	ctx, cancel := context.WithCancel(s.root)
	s.selectedID = id
	s.sel = &Selection{
		ReviewID:      id,
		ApplicationID: review.ApplicationID,
		ctx:           ctx,
		cancel:        cancel,
	}
	s.detail = Detail{AppLoading: true, NotesLoading: true}
	return s.sel
}

// Suspend cancels the in-flight fetches of the current selection, e.g.
// when the screen is hidden. The selection itself is kept; Resume reloads
// whatever was interrupted.
func (s *Session) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel == nil || (!s.detail.AppLoading && !s.detail.NotesLoading) {
		return
	}
	s.sel.cancel()
	s.sel = nil
	s.detail.AppLoading = false
	s.detail.NotesLoading = false
}

// Resume returns a fresh token for the selected review after Suspend, or
// nil when nothing was suspended.
func (s *Session) Resume() *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sel != nil || s.selectedID == "" {
		return nil
	}
	review, _, ok := s.store.Lookup(s.selectedID)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithCancel(s.root)
	s.sel = &Selection{
		ReviewID:      review.ID,
		ApplicationID: review.ApplicationID,
		ctx:           ctx,
		cancel:        cancel,
	}
	s.detail = Detail{AppLoading: true, NotesLoading: true}
	return s.sel
}

// ClearSelection closes the detail panel.
func (s *Session) ClearSelection() {
	s.Select("")
}

// SelectNext selects the following review, or the first when nothing is
// selected. At the end of the list the selection stays put.
func (s *Session) SelectNext() *Selection {
	return s.step(+1)
}

// SelectPrev selects the preceding review, or the last when nothing is
// selected.
func (s *Session) SelectPrev() *Selection {
	return s.step(-1)
}

func (s *Session) step(delta int) *Selection {
	s.mu.Lock()
	defer s.mu.Unlock()

	reviews := s.store.Reviews()
	if len(reviews) == 0 {
		return nil
	}
	cur := -1
	for i := range reviews {
		if reviews[i].ID == s.selectedID {
			cur = i
			break
		}
	}
	var next int
	switch {
	case cur < 0 && delta > 0:
		next = 0
	case cur < 0:
		next = len(reviews) - 1
	default:
		next = min(max(cur+delta, 0), len(reviews)-1)
	}
	return s.selectLocked(reviews[next].ID)
}

// LoadDetail fetches the selected application. The result is applied only
// if sel is still the current selection and has not been cancelled.
func (s *Session) LoadDetail(sel *Selection) error {
	app, err := s.repo.FetchApplication(sel.ctx, sel.ApplicationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(sel) {
		return ErrStale
	}
	s.detail.AppLoading = false
	s.detail.Application, s.detail.AppErr = app, err
	return err
}

// LoadPeerNotes fetches the notes other reviewers left on the selected
// application, under the same rules as LoadDetail.
func (s *Session) LoadPeerNotes(sel *Selection) error {
	notes, err := s.repo.FetchPeerNotes(sel.ctx, sel.ApplicationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.currentLocked(sel) {
		return ErrStale
	}
	s.detail.NotesLoading = false
	s.detail.PeerNotes, s.detail.NotesErr = notes, err
	return err
}

func (s *Session) currentLocked(sel *Selection) bool {
	return sel != nil && sel == s.sel && sel.ctx.Err() == nil
}

// Expand switches to full-screen mode. It needs a selection.
func (s *Session) Expand() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID == "" {
		return false
	}
	s.expanded = true
	return true
}

// Collapse leaves full-screen mode.
func (s *Session) Collapse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expanded = false
}

// FocusNotes gives the notes field focus. Decided reviews have no
// editable notes.
func (s *Session) FocusNotes() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	review, _, ok := s.store.Lookup(s.selectedID)
	if !ok || review.Decided() {
		return false
	}
	s.notesFocused = true
	return true
}

// BlurNotes takes focus from the notes field and commits its text as the
// selected review's draft.
func (s *Session) BlurNotes(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.notesFocused {
		return
	}
	s.notesFocused = false
	if review, _, ok := s.store.Lookup(s.selectedID); ok && !review.Decided() {
		s.overrides.CommitNotes(review.ID, text)
	}
}

// Refresh reloads the store and drops a selection that vanished from it.
func (s *Session) Refresh(ctx context.Context) error {
	err := s.store.Fetch(ctx)
	if errors.Is(err, ErrStale) || ctx.Err() != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectedID != "" {
		if _, _, ok := s.store.Lookup(s.selectedID); !ok {
			s.selectLocked("")
		}
	}
	return err
}

// VoteResult describes a confirmed vote.
type VoteResult struct {
	Review *storage.Review
	// Next is non-nil when the selection advanced and needs loading.
	Next *Selection
	// Closed is true when the list emptied and the panel closed.
	Closed bool
}

// Vote casts v on review id, which must still be the selected review, with
// the drafted notes. Callers pass the id that was selected when the key was
// pressed, so a repeated shortcut never lands on the review the first vote
// advanced to. The neighbour to advance to is chosen from the list before
// removal: the following review, else the preceding one, else none. Drafts
// are cleared only after the server confirms; nothing is written to them
// beforehand.
func (s *Session) Vote(ctx context.Context, id string, v storage.Vote) (VoteResult, error) {
	s.mu.Lock()
	if id == "" || s.selectedID == "" {
		s.mu.Unlock()
		return VoteResult{}, ErrNoSelection
	}
	reviews := s.store.Reviews()
	idx := -1
	for i := range reviews {
		if reviews[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return VoteResult{}, ErrUnknownReview
	}
	if id != s.selectedID {
		s.mu.Unlock()
		return VoteResult{}, ErrNotSelected
	}
	if s.store.Kind() == KindCompleted {
		s.mu.Unlock()
		return VoteResult{}, ErrReadOnly
	}
	if reviews[idx].Decided() {
		s.mu.Unlock()
		return VoteResult{}, ErrAlreadyDecided
	}
	nextID := ""
	switch {
	case idx+1 < len(reviews):
		nextID = reviews[idx+1].ID
	case idx-1 >= 0:
		nextID = reviews[idx-1].ID
	}
	notes := s.overrides.EffectiveNotes(id, reviews[idx].Notes)
	s.mu.Unlock()

	payload := storage.VotePayload{Vote: v}
	if notes != "" {
		payload.Notes = &notes
	}
	review, err := s.store.SubmitVote(ctx, id, payload)
	if err != nil {
		return VoteResult{}, err
	}
	s.overrides.Clear(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	res := VoteResult{Review: review}
	// The admin may have moved on while the vote was in flight.
	if s.selectedID != id {
		return res, nil
	}
	res.Next = s.selectLocked(nextID)
	res.Closed = res.Next == nil && s.selectedID == ""
	return res, nil
}

// State is the keyboard state machine's view of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := s.store.State()
	decided := false
	if r, _, ok := s.store.Lookup(s.selectedID); ok {
		decided = r.Decided()
	}
	return State{
		Mode:            s.modeLocked(),
		InputFocused:    s.notesFocused,
		ListLen:         len(st.Reviews),
		SelectedDecided: decided,
		Submitting:      st.Submitting,
	}
}

// HandleKey runs ev through the state machine and applies navigation
// effects. Voting and blurring need more than the key (a context, the
// field's text), so those commands are returned for the caller to run with
// Vote and BlurNotes; a vote command carries the review selected at the
// time of the press, and an ExitExpanded command with Blur set still needs
// BlurNotes. The returned Selection is non-nil when the selection
// changed.
func (s *Session) HandleKey(ev KeyEvent) (Command, *Selection) {
	cmd := Interpret(s.State(), ev)
	switch cmd.Action {
	case ActionExitExpanded:
		s.Collapse()
	case ActionVote:
		cmd.ReviewID = s.SelectedID()
	case ActionExpand:
		s.Expand()
	case ActionFocusNotes:
		s.FocusNotes()
	case ActionSelectPrev:
		return cmd, s.SelectPrev()
	case ActionSelectNext:
		return cmd, s.SelectNext()
	}
	return cmd, nil
}
