package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackutd/harp-sub000/internal/client"
	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/hackutd/harp-sub000/internal/triage"
)

// handleKeyMsg dispatches key events to view-specific handlers.
func (m model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.close()
		return m, tea.Quit
	}
	switch m.currentView {
	case viewHelp:
		return m.handleHelpKey(msg)
	case viewApplications:
		return m.handleApplicationsKey(msg)
	}
	return m.handleTriageKey(msg)
}

// handleTriageKey runs a key through the session's state machine first.
// Keys it handles never reach the notes field; the rest are typed into the
// field while it has focus, or matched against the view's own bindings.
func (m model) handleTriageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kind := m.currentKind()
	s := m.session(kind)

	cmd, sel := s.HandleKey(toKeyEvent(msg))
	if cmd.Handled {
		switch cmd.Action {
		case triage.ActionBlurNotes:
			s.BlurNotes(m.notes.Value())
			m.notes.Blur()
		case triage.ActionFocusNotes:
			v := s.View()
			if v.NotesFocused {
				m.notes.SetValue(v.Notes)
				m.notes.CursorEnd()
				return m, m.notes.Focus()
			}
		case triage.ActionVote:
			name := ""
			if v := s.View(); v.Selected != nil {
				name = v.Selected.ApplicantName()
			}
			return m, m.track(1, m.voteCmd(kind, cmd.ReviewID, cmd.Vote, name))
		case triage.ActionExitExpanded:
			if cmd.Blur {
				s.BlurNotes(m.notes.Value())
				m.notes.Blur()
			}
			m.detailScroll = 0
		case triage.ActionExpand:
			m.detailScroll = 0
		case triage.ActionSelectPrev, triage.ActionSelectNext:
			return m, m.loadSelection(kind, sel)
		}
		return m, nil
	}

	if s.View().NotesFocused {
		var c tea.Cmd
		m.notes, c = m.notes.Update(msg)
		return m, c
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.helpFromView = m.currentView
		m.currentView = viewHelp
		return m, nil
	case key.Matches(msg, m.keys.Pending):
		return m.switchView(viewPending)
	case key.Matches(msg, m.keys.Completed):
		return m.switchView(viewCompleted)
	case key.Matches(msg, m.keys.Applications):
		return m.switchView(viewApplications)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.fetchReviews(kind)
	case key.Matches(msg, m.keys.Copy):
		v := s.View()
		if v.Selected == nil {
			return m, nil
		}
		return m, m.copyToClipboard(formatClipboardContent(v.Selected.ApplicantName(), v.Selected.Email), "email")
	case key.Matches(msg, m.keys.NextReview):
		if kind != triage.KindPending {
			return m, nil
		}
		return m, m.track(1, m.nextReviewCmd())
	case key.Matches(msg, m.keys.Close):
		s.ClearSelection()
		m.detailScroll = 0
		return m, nil
	case key.Matches(msg, m.keys.ScrollUp):
		if s.View().Mode == triage.ReviewingExpanded {
			m.detailScroll = max(m.detailScroll-m.detailPageSize(), 0)
		}
		return m, nil
	case key.Matches(msg, m.keys.ScrollDown):
		if s.View().Mode == triage.ReviewingExpanded {
			m.detailScroll = min(m.detailScroll+m.detailPageSize(), m.mdCache.lastMaxScroll)
		}
		return m, nil
	}
	return m, nil
}

func (m model) switchView(v viewKind) (tea.Model, tea.Cmd) {
	if m.currentView == v {
		return m, nil
	}
	// Hidden triage screens stop loading; coming back resumes them.
	if from, ok := triageKind(m.currentView); ok {
		m.session(from).Suspend()
	}
	m.currentView = v
	m.detailScroll = 0
	var cmds []tea.Cmd
	if to, ok := triageKind(v); ok {
		cmds = append(cmds, m.loadSelection(to, m.session(to).Resume()))
	}
	switch {
	case v == viewCompleted && !m.completedLoaded:
		cmds = append(cmds, m.fetchReviews(triage.KindCompleted))
	case v == viewApplications && !m.appsLoaded:
		cmds = append(cmds, m.reloadApps(m.apps.First))
	}
	return m, tea.Batch(cmds...)
}

func triageKind(v viewKind) (triage.Kind, bool) {
	switch v {
	case viewPending:
		return triage.KindPending, true
	case viewCompleted:
		return triage.KindCompleted, true
	}
	return 0, false
}

func (m model) handleHelpKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Help), msg.Type == tea.KeyEsc:
		m.currentView = m.helpFromView
	}
	return m, nil
}

func (m model) handleApplicationsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.apps.State()
	items := st.Page.Items

	// The detail overlay only needs a way out.
	if m.appDetailID != "" {
		switch {
		case msg.Type == tea.KeyEsc, key.Matches(msg, m.keys.Close):
			m.appDetailID = ""
			m.appDetail = nil
			m.appDetailErr = nil
			m.appDetailLoading = false
			m.detailScroll = 0
		case key.Matches(msg, m.keys.ScrollUp):
			m.detailScroll = max(m.detailScroll-m.detailPageSize(), 0)
		case key.Matches(msg, m.keys.ScrollDown):
			m.detailScroll = min(m.detailScroll+m.detailPageSize(), m.mdCache.lastMaxScroll)
		case key.Matches(msg, m.keys.Copy):
			if m.appDetail != nil {
				return m, m.copyToClipboard(formatClipboardContent(m.appDetail.FullName(), m.appDetail.Email), "email")
			}
		case key.Matches(msg, m.keys.Quit):
			m.close()
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case msg.Type == tea.KeyUp || msg.String() == "k":
		if m.appsIdx > 0 {
			m.appsIdx--
		}
	case msg.Type == tea.KeyDown || msg.String() == "j":
		if m.appsIdx < len(items)-1 {
			m.appsIdx++
		}
	case msg.Type == tea.KeyEnter:
		if m.appsIdx < len(items) {
			return m, m.fetchAppDetail(items[m.appsIdx].ID)
		}
	case key.Matches(msg, m.keys.NextPage):
		if !m.apps.CanNext() {
			return m, m.setFlash("No next page", false)
		}
		return m, m.fetchApps(m.apps.Next)
	case key.Matches(msg, m.keys.PrevPage):
		if !m.apps.CanPrev() {
			return m, m.setFlash("Already on the first page", false)
		}
		return m, m.fetchApps(m.apps.Prev)
	case key.Matches(msg, m.keys.Status):
		m.appsStatus = (m.appsStatus + 1) % len(appStatusFilters)
		status := appStatusFilters[m.appsStatus]
		return m, m.fetchApps(func(ctx context.Context) error {
			return m.apps.SetStatus(ctx, status)
		})
	case key.Matches(msg, m.keys.Refresh):
		return m, m.reloadApps(m.apps.First)
	case key.Matches(msg, m.keys.Copy):
		if m.appsIdx < len(items) {
			it := items[m.appsIdx]
			return m, m.copyToClipboard(formatClipboardContent(it.Name(), it.Email), "email")
		}
	case key.Matches(msg, m.keys.Pending):
		return m.switchView(viewPending)
	case key.Matches(msg, m.keys.Completed):
		return m.switchView(viewCompleted)
	case key.Matches(msg, m.keys.Help):
		m.helpFromView = m.currentView
		m.currentView = viewHelp
	case key.Matches(msg, m.keys.Quit):
		m.close()
		return m, tea.Quit
	}
	return m, nil
}

func (m model) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.notes.SetWidth(max(m.detailWidth()-4, 10))
	return m, nil
}

func (m model) handleSpinnerTick(msg spinner.TickMsg) (tea.Model, tea.Cmd) {
	if m.inflight == 0 && !m.anyLoading() {
		m.spinning = false
		return m, nil
	}
	var cmd tea.Cmd
	m.spin, cmd = m.spin.Update(msg)
	return m, cmd
}

// anyLoading reports whether a view still shows a loading state, e.g. a
// vote the session is still submitting.
func (m model) anyLoading() bool {
	for _, s := range []*triage.Session{m.pending, m.completed} {
		v := s.View()
		if v.Loading || v.Submitting || v.Detail.AppLoading || v.Detail.NotesLoading {
			return true
		}
	}
	return m.apps.State().Loading || m.appDetailLoading
}

func (m model) handleReviewsMsg(msg reviewsMsg) (tea.Model, tea.Cmd) {
	m.settle()
	if ignorable(msg.err) {
		return m, nil
	}
	if msg.err != nil {
		return m, m.setFlash(fmt.Sprintf("Failed to load %s reviews: %v", msg.kind, msg.err), true)
	}
	// A refresh can drop the selected review; the notes field goes with it.
	if !m.session(msg.kind).View().NotesFocused && msg.kind == m.currentKind() {
		m.notes.Blur()
	}
	return m, nil
}

func (m model) handleDetailMsg(msg detailMsg) (tea.Model, tea.Cmd) {
	m.settle()
	// Failures are rendered inline in the detail pane.
	return m, nil
}

func (m model) handleVoteResultMsg(msg voteResultMsg) (tea.Model, tea.Cmd) {
	m.settle()
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, triage.ErrSubmitting), errors.Is(msg.err, triage.ErrNotSelected),
			errors.Is(msg.err, triage.ErrUnknownReview), ignorable(msg.err):
			return m, nil
		case client.IsConflict(msg.err):
			return m, tea.Batch(
				m.setFlash("Review was already decided; refreshing", true),
				m.fetchReviews(msg.kind),
			)
		}
		m.unsent = &unsentVote{kind: msg.kind, reviewID: msg.reviewID, vote: msg.vote}
		return m, m.setFlash(fmt.Sprintf("Vote %s not sent: %v (notes kept, press again to retry)", msg.vote, msg.err), true)
	}

	if m.unsent != nil && m.unsent.reviewID == msg.reviewID {
		m.unsent = nil
	}
	cmds := []tea.Cmd{m.setFlash(fmt.Sprintf("Voted %s on %s", msg.vote, msg.name), false)}
	if msg.result.Next != nil {
		cmds = append(cmds, m.loadSelection(msg.kind, msg.result.Next))
	}
	if m.completedLoaded {
		cmds = append(cmds, m.fetchReviews(triage.KindCompleted))
	}
	return m, tea.Batch(cmds...)
}

func (m model) handleNextReviewMsg(msg nextReviewMsg) (tea.Model, tea.Cmd) {
	m.settle()
	switch {
	case ignorable(msg.err):
		return m, nil
	case client.IsNotFound(msg.err):
		return m, m.setFlash("No applications need review", false)
	case msg.err != nil:
		return m, m.setFlash(fmt.Sprintf("Could not assign a review: %v", msg.err), true)
	}
	return m, tea.Batch(
		m.setFlash(fmt.Sprintf("Assigned %s", msg.review.ApplicantName()), false),
		m.fetchReviews(triage.KindPending),
	)
}

func (m model) handleAppsMsg(msg appsMsg) (tea.Model, tea.Cmd) {
	m.settle()
	if errors.Is(msg.err, pagination.ErrSuperseded) || ignorable(msg.err) {
		return m, nil
	}
	if msg.err != nil {
		return m, m.setFlash(fmt.Sprintf("Failed to load applications: %v", msg.err), true)
	}
	m.appsIdx = 0
	return m, nil
}

// handleAppStatsMsg keeps the last good counts when a refresh fails.
func (m model) handleAppStatsMsg(msg appStatsMsg) (tea.Model, tea.Cmd) {
	m.settle()
	if ignorable(msg.err) {
		return m, nil
	}
	m.appStatsErr = msg.err
	if msg.err == nil {
		m.appStats = msg.stats
	}
	return m, nil
}

func (m model) handleAppDetailMsg(msg appDetailMsg) (tea.Model, tea.Cmd) {
	m.settle()
	// Dropped if the overlay was closed or another row opened meanwhile.
	if msg.id != m.appDetailID {
		return m, nil
	}
	m.appDetailLoading = false
	m.appDetail, m.appDetailErr = msg.app, msg.err
	return m, nil
}

func (m model) handleClipboardResultMsg(msg clipboardResultMsg) (tea.Model, tea.Cmd) {
	if msg.view != m.currentView {
		return m, nil
	}
	if msg.err != nil {
		return m, m.setFlash(fmt.Sprintf("Copy failed: %v", msg.err), true)
	}
	return m, m.setFlash(fmt.Sprintf("Copied %s to clipboard", msg.what), false)
}

// ignorable reports errors that only mean a result was superseded.
func ignorable(err error) bool {
	return errors.Is(err, triage.ErrStale) || errors.Is(err, context.Canceled)
}
