package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/triage"
)

// Command builders. Each returns a tea.Cmd whose result message the
// matching handler applies; the session and pager discard stale results
// themselves, so handlers only re-render and report errors.

func (m model) reviewsCmd(kind triage.Kind) tea.Cmd {
	s := m.session(kind)
	ctx := m.ctx
	return func() tea.Msg {
		return reviewsMsg{kind: kind, err: s.Refresh(ctx)}
	}
}

// selectionCmds loads the application and the peer notes for sel as two
// independent requests.
func (m model) selectionCmds(kind triage.Kind, sel *triage.Selection) []tea.Cmd {
	s := m.session(kind)
	return []tea.Cmd{
		func() tea.Msg { return detailMsg{kind: kind, err: s.LoadDetail(sel)} },
		func() tea.Msg { return detailMsg{kind: kind, err: s.LoadPeerNotes(sel)} },
	}
}

func (m model) voteCmd(kind triage.Kind, reviewID string, vote storage.Vote, name string) tea.Cmd {
	s := m.session(kind)
	ctx := m.ctx
	return func() tea.Msg {
		res, err := s.Vote(ctx, reviewID, vote)
		return voteResultMsg{kind: kind, reviewID: reviewID, vote: vote, name: name, result: res, err: err}
	}
}

func (m model) nextReviewCmd() tea.Cmd {
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		r, err := repo.NextReview(ctx)
		return nextReviewMsg{review: r, err: err}
	}
}

// appsCmd runs one pager operation (First, Next, Prev or a status change).
func (m model) appsCmd(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return appsMsg{err: op(ctx)}
	}
}

func (m model) appStatsCmd() tea.Cmd {
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		stats, err := repo.ApplicationStats(ctx)
		return appStatsMsg{stats: stats, err: err}
	}
}

func (m model) appDetailCmd(id string) tea.Cmd {
	repo, ctx := m.repo, m.ctx
	return func() tea.Msg {
		app, err := repo.FetchApplication(ctx, id)
		return appDetailMsg{id: id, app: app, err: err}
	}
}

func (m model) copyToClipboard(content, what string) tea.Cmd {
	view := m.currentView // Capture view at trigger time
	cb := m.clipboard
	return func() tea.Msg {
		if content == "" {
			return clipboardResultMsg{err: fmt.Errorf("nothing to copy"), what: what, view: view}
		}
		return clipboardResultMsg{err: cb.WriteText(content), what: what, view: view}
	}
}

// track records n requests going out and keeps the spinner running while
// any are in flight.
func (m *model) track(n int, cmds ...tea.Cmd) tea.Cmd {
	m.inflight += n
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spin.Tick)
	}
	return tea.Batch(cmds...)
}

func (m *model) settle() {
	if m.inflight > 0 {
		m.inflight--
	}
}

func (m *model) fetchReviews(kind triage.Kind) tea.Cmd {
	if kind == triage.KindCompleted {
		m.completedLoaded = true
	}
	return m.track(1, m.reviewsCmd(kind))
}

func (m *model) loadSelection(kind triage.Kind, sel *triage.Selection) tea.Cmd {
	if sel == nil {
		return nil
	}
	m.detailScroll = 0
	return m.track(2, m.selectionCmds(kind, sel)...)
}

func (m *model) fetchApps(op func(context.Context) error) tea.Cmd {
	m.appsLoaded = true
	return m.track(1, m.appsCmd(op))
}

// reloadApps refetches the list with op and refreshes the status counts
// alongside it.
func (m *model) reloadApps(op func(context.Context) error) tea.Cmd {
	m.appsLoaded = true
	return m.track(2, m.appsCmd(op), m.appStatsCmd())
}

func (m *model) fetchAppDetail(id string) tea.Cmd {
	m.appDetailID = id
	m.appDetail = nil
	m.appDetailErr = nil
	m.appDetailLoading = true
	return m.track(1, m.appDetailCmd(id))
}

// setFlash shows msg in the current view until flashDuration passes or a
// newer flash replaces it.
func (m *model) setFlash(msg string, isError bool) tea.Cmd {
	m.flashSeq++
	seq := m.flashSeq
	m.flashMessage = msg
	m.flashIsError = isError
	m.flashView = m.currentView
	return tea.Tick(flashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{seq: seq}
	})
}
