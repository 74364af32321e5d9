package triage

import (
	"testing"

	"github.com/hackutd/harp-sub000/internal/storage"
)

func TestOverridesPrecedence(t *testing.T) {
	server := votePtr(storage.VoteReject)
	serverNotes := strPtr("from server")

	tests := []struct {
		name      string
		setup     func(o *Overrides)
		wantVote  *storage.Vote
		wantNotes string
	}{
		{"no draft falls back", func(o *Overrides) {}, server, "from server"},
		{"local vote wins", func(o *Overrides) { o.SetVote("r1", votePtr(storage.VoteAccept)) }, votePtr(storage.VoteAccept), "from server"},
		{"explicit unset wins", func(o *Overrides) { o.SetVote("r1", nil) }, nil, "from server"},
		{"local notes win", func(o *Overrides) { o.CommitNotes("r1", "draft") }, server, "draft"},
		{"empty notes draft wins", func(o *Overrides) { o.CommitNotes("r1", "") }, server, ""},
		{"other id ignored", func(o *Overrides) { o.CommitNotes("r2", "draft") }, server, "from server"},
		{"clear restores server", func(o *Overrides) {
			o.SetVote("r1", votePtr(storage.VoteAccept))
			o.CommitNotes("r1", "draft")
			o.Clear("r1")
		}, server, "from server"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOverrides()
			tt.setup(o)

			got := o.EffectiveVote("r1", server)
			if (got == nil) != (tt.wantVote == nil) || (got != nil && *got != *tt.wantVote) {
				t.Errorf("EffectiveVote = %v, want %v", got, tt.wantVote)
			}
			if n := o.EffectiveNotes("r1", serverNotes); n != tt.wantNotes {
				t.Errorf("EffectiveNotes = %q, want %q", n, tt.wantNotes)
			}
		})
	}
}

func TestOverridesNilServerNotes(t *testing.T) {
	o := NewOverrides()
	if got := o.EffectiveNotes("r1", nil); got != "" {
		t.Errorf("EffectiveNotes(nil) = %q, want empty", got)
	}
	if o.HasDraft("r1") {
		t.Error("HasDraft should be false")
	}
	o.CommitNotes("r1", "x")
	if !o.HasDraft("r1") {
		t.Error("HasDraft should be true after commit")
	}
}

func TestOverridesSetVoteCopies(t *testing.T) {
	o := NewOverrides()
	v := storage.VoteAccept
	o.SetVote("r1", &v)
	v = storage.VoteReject
	if got := o.EffectiveVote("r1", nil); got == nil || *got != storage.VoteAccept {
		t.Errorf("draft changed through caller's pointer: %v", got)
	}
}
