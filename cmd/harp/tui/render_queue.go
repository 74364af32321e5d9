package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/triage"
)

// header(1) + status(1) + body + flash(1) + help(dynamic)
const chromeLines = 3

func (m model) renderTriageView() string {
	v := m.session(m.currentKind()).View()
	help := renderHelpTable(m.triageHelpRows(v), m.width)
	bodyH := max(m.height-chromeLines-lipgloss.Height(help), 3)

	var body string
	switch v.Mode {
	case triage.Browsing:
		body = m.renderQueue(v, m.width, bodyH)
	case triage.Reviewing:
		qw := m.queueWidth(v.Mode)
		dw := max(m.width-qw-1, 10)
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().MaxWidth(qw).Render(m.renderQueue(v, qw, bodyH)),
			" ",
			m.renderDetail(v, dw, bodyH))
	default:
		body = m.renderDetail(v, m.width, bodyH)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine(v))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Height(bodyH).MaxHeight(bodyH).Render(body))
	b.WriteString("\n")
	b.WriteString(m.renderFlash())
	b.WriteString("\n")
	b.WriteString(help)
	return b.String()
}

// renderHeader draws the title and the view tabs.
func (m model) renderHeader() string {
	tabs := []struct {
		view  viewKind
		label string
	}{
		{viewPending, fmt.Sprintf("1 Pending (%d)", len(m.pending.View().Reviews))},
		{viewCompleted, "2 Completed"},
		{viewApplications, "3 Applications"},
	}
	if m.completedLoaded {
		tabs[1].label = fmt.Sprintf("2 Completed (%d)", len(m.completed.View().Reviews))
	}
	active := m.currentView
	if active == viewHelp {
		active = m.helpFromView
	}
	parts := []string{titleStyle.Render("harp")}
	for _, t := range tabs {
		if t.view == active {
			parts = append(parts, activeTabStyle.Render(t.label))
		} else {
			parts = append(parts, tabStyle.Render(t.label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m model) renderStatusLine(v triage.View) string {
	var parts []string
	switch {
	case v.Submitting:
		parts = append(parts, m.spin.View()+" submitting vote")
	case v.Loading:
		parts = append(parts, m.spin.View()+" loading")
	}
	if v.Kind == triage.KindCompleted {
		parts = append(parts, "read-only")
	}
	if v.Mode != triage.Browsing {
		parts = append(parts, fmt.Sprintf("%d of %d", v.SelectedIndex+1, len(v.Reviews)))
	}
	parts = append(parts, v.Mode.String())
	if v.NotesFocused {
		parts = append(parts, "editing notes")
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

func (m model) renderFlash() string {
	if m.flashMessage == "" || m.flashView != m.currentView {
		return ""
	}
	if m.flashIsError {
		return errorStyle.Render(m.flashMessage)
	}
	return flashStyle.Render(m.flashMessage)
}

// queueWidth is the width of the list column: everything while browsing,
// a fixed share beside the detail pane.
func (m model) queueWidth(mode triage.Mode) int {
	if mode == triage.Browsing {
		return m.width
	}
	return min(max(32, m.width*2/5), m.width)
}

// detailWidth is the width of the detail pane in the current mode.
func (m model) detailWidth() int {
	if m.currentView == viewApplications {
		return m.width
	}
	mode := m.session(m.currentKind()).View().Mode
	if mode == triage.ReviewingExpanded {
		return m.width
	}
	return max(m.width-m.queueWidth(mode)-1, 10)
}

// queueColumn is one column of the review table.
type queueColumn struct {
	title string
	width int
	value func(r storage.Review) string
}

func (m model) queueColumns(kind triage.Kind, width int) []queueColumn {
	now := m.now()
	var cols []queueColumn
	if width >= 40 {
		cols = append(cols, queueColumn{"Age", 3, func(r storage.Review) string { return derefInt(r.Age) }})
	}
	if width >= 60 {
		cols = append(cols, queueColumn{"University", 18, func(r storage.Review) string { return deref(r.University) }})
	}
	if width >= 84 {
		cols = append(cols, queueColumn{"Major", 16, func(r storage.Review) string { return deref(r.Major) }})
	}
	if width >= 100 {
		cols = append(cols, queueColumn{"Hacks", 5, func(r storage.Review) string { return derefInt(r.HackathonsAttendedCount) }})
	}
	if kind == triage.KindCompleted {
		cols = append(cols, queueColumn{"Vote", 8, func(r storage.Review) string { return voteLabel(r.Vote) }})
		if width >= 50 {
			cols = append(cols, queueColumn{"Reviewed", 8, func(r storage.Review) string {
				if r.ReviewedAt == nil {
					return "-"
				}
				return relTime(*r.ReviewedAt, now)
			}})
		}
	} else {
		cols = append(cols, queueColumn{"Assigned", 8, func(r storage.Review) string { return relTime(r.AssignedAt, now) }})
	}
	return cols
}

// renderQueue draws the review list. Rows with unsent drafts carry a
// marker; the window scrolls to keep the selection visible.
func (m model) renderQueue(v triage.View, width, height int) string {
	var lines []string
	switch {
	case len(v.Reviews) == 0 && v.Loading:
		return m.spin.View() + " Loading reviews..."
	case len(v.Reviews) == 0 && v.Err != nil:
		return errorStyle.Render(fmt.Sprintf("Error: %v", v.Err)) + "\n" + statusStyle.Render("Press r to retry.")
	case len(v.Reviews) == 0 && v.Kind == triage.KindPending:
		return statusStyle.Render("No pending reviews. Press n to get the next application assigned.")
	case len(v.Reviews) == 0:
		return statusStyle.Render("No completed reviews yet.")
	}

	const marker = 2
	cols := m.queueColumns(v.Kind, width)
	nameW := width - marker
	for _, c := range cols {
		nameW -= c.width + 1
	}
	nameW = max(nameW, 8)

	header := strings.Repeat(" ", marker) + cell("Applicant", nameW)
	for _, c := range cols {
		header += " " + cell(c.title, c.width)
	}
	lines = append(lines, statusStyle.Render(header))

	visible := max(height-1, 1)
	start := 0
	if len(v.Reviews) > visible && v.SelectedIndex >= 0 {
		start = max(v.SelectedIndex-visible/2, 0)
		start = min(start, len(v.Reviews)-visible)
	}
	end := min(start+visible, len(v.Reviews))

	overrides := m.session(v.Kind).Overrides()
	for i := start; i < end; i++ {
		r := v.Reviews[i]
		mark := "  "
		if overrides.HasDraft(r.ID) {
			mark = draftStyle.Render("* ")
		}
		row := cell(r.ApplicantName(), nameW)
		for _, c := range cols {
			row += " " + cell(c.value(r), c.width)
		}
		if i == v.SelectedIndex {
			row = selectedStyle.Render(row)
		} else if r.Vote != nil {
			row = styleForVote(*r.Vote).Render(row)
		}
		lines = append(lines, mark+row)
	}
	return strings.Join(lines, "\n")
}

func styleForVote(v storage.Vote) lipgloss.Style {
	switch v {
	case storage.VoteAccept:
		return acceptStyle
	case storage.VoteReject:
		return rejectStyle
	case storage.VoteWaitlist:
		return waitlistStyle
	}
	return lipgloss.NewStyle()
}
