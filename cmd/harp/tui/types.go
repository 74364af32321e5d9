package tui

import (
	"github.com/atotto/clipboard"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/triage"
)

type viewKind int

const (
	viewPending viewKind = iota
	viewCompleted
	viewApplications
	viewHelp
)

func (v viewKind) title() string {
	switch v {
	case viewPending:
		return "Pending"
	case viewCompleted:
		return "Completed"
	case viewApplications:
		return "Applications"
	case viewHelp:
		return "Help"
	}
	return ""
}

// helpItem is a single help-bar entry with a key label and description.
type helpItem struct {
	key  string
	desc string
}

// reviewsMsg reports a finished review-set fetch. The data itself lives in
// the session; the message only triggers a re-render and error display.
type reviewsMsg struct {
	kind triage.Kind
	err  error
}

// detailMsg reports a finished application or peer-notes load for a
// selection. Stale loads are dropped by the session and arrive with
// triage.ErrStale.
type detailMsg struct {
	kind triage.Kind
	err  error
}

type voteResultMsg struct {
	kind     triage.Kind
	reviewID string
	vote     storage.Vote
	name   string
	result triage.VoteResult
	err    error
}

type unsentVote struct {
	kind     triage.Kind
	reviewID string
	vote     storage.Vote
}

type nextReviewMsg struct {
	review *storage.Review
	err    error
}

type appsMsg struct {
	err error
}

type appStatsMsg struct {
	stats *storage.ApplicationStats
	err   error
}

type appDetailMsg struct {
	id  string
	app *storage.Application
	err error
}

type clipboardResultMsg struct {
	err  error
	what string
	view viewKind // The view where copy was triggered (for flash attribution)
}

type flashExpiredMsg struct {
	seq int
}

// ClipboardWriter is an interface for clipboard operations (allows mocking in tests)
type ClipboardWriter interface {
	WriteText(text string) error
}

// realClipboard implements ClipboardWriter using the system clipboard
type realClipboard struct{}

func (r *realClipboard) WriteText(text string) error {
	return clipboard.WriteAll(text)
}

// option func(*options) is a functional option for TUI.
type option func(*options)

// withStartView opens the TUI on a view other than the pending queue.
func withStartView(v viewKind) option {
	return func(o *options) { o.startView = v }
}

// withPageSize sets the applications page size.
func withPageSize(n int) option {
	return func(o *options) { o.pageSize = n }
}

// withExternalIODisabled skips terminal detection in newModel.
func withExternalIODisabled() option {
	return func(o *options) { o.disableExternalIO = true }
}

type options struct {
	startView         viewKind
	pageSize          int
	disableExternalIO bool
}
