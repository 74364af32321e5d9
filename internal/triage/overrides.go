package triage

import (
	"sync"

	"github.com/hackutd/harp-sub000/internal/storage"
)

// Overrides holds unsaved per-review drafts. A draft survives selection
// changes and is dropped only once a vote for that review is confirmed.
type Overrides struct {
	mu    sync.RWMutex
	votes map[string]*storage.Vote
	notes map[string]string
}

// NewOverrides returns an empty override layer.
func NewOverrides() *Overrides {
	return &Overrides{
		votes: make(map[string]*storage.Vote),
		notes: make(map[string]string),
	}
}

// SetVote records a drafted vote. A nil vote is an explicit "unset" draft,
// which still shadows the server value.
func (o *Overrides) SetVote(id string, v *storage.Vote) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if v != nil {
		cp := *v
		v = &cp
	}
	o.votes[id] = v
}

// CommitNotes records the notes field's value when it loses focus.
func (o *Overrides) CommitNotes(id, notes string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes[id] = notes
}

// Clear drops both drafts for id.
func (o *Overrides) Clear(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.votes, id)
	delete(o.notes, id)
}

// HasDraft reports whether any draft exists for id.
func (o *Overrides) HasDraft(id string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, v := o.votes[id]
	_, n := o.notes[id]
	return v || n
}

// EffectiveVote prefers the local draft, present even when nil, over the
// server value.
func (o *Overrides) EffectiveVote(id string, server *storage.Vote) *storage.Vote {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if v, ok := o.votes[id]; ok {
		return v
	}
	return server
}

// EffectiveNotes prefers the local draft over the server value; missing
// server notes read as "".
func (o *Overrides) EffectiveNotes(id string, server *string) string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if n, ok := o.notes[id]; ok {
		return n
	}
	if server == nil {
		return ""
	}
	return *server
}
