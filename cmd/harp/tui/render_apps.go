package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hackutd/harp-sub000/internal/storage"
)

func (m model) renderApplicationsView() string {
	help := renderHelpTable(m.applicationsHelpRows(), m.width)
	bodyH := max(m.height-chromeLines-lipgloss.Height(help), 3)

	var body string
	if m.appDetailID != "" {
		body = m.renderAppDetail(bodyH)
	} else {
		body = m.renderAppsList(bodyH)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderAppsStatusLine())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Height(bodyH).MaxHeight(bodyH).Render(body))
	b.WriteString("\n")
	b.WriteString(m.renderFlash())
	b.WriteString("\n")
	b.WriteString(help)
	return b.String()
}

func (m model) renderAppsStatusLine() string {
	st := m.apps.State()
	filter := "all"
	if st.Status != "" {
		filter = st.Status
	}
	parts := []string{"status: " + filter}
	if s := m.appStats; s != nil {
		if st.Status != "" {
			parts[0] += fmt.Sprintf(" (%d of %d)", s.Count(storage.ApplicationStatus(st.Status)), s.TotalApplications)
		}
		parts = append(parts, m.renderAppStats(*s))
	} else if m.appStatsErr != nil {
		parts = append(parts, "counts unavailable")
	}
	if st.Loading {
		parts = append(parts, m.spin.View()+" loading")
	}
	parts = append(parts, fmt.Sprintf("%d on this page", len(st.Page.Items)))
	var pages []string
	if st.Page.PrevCursor != nil {
		pages = append(pages, "[ prev")
	}
	if st.Page.NextCursor != nil {
		pages = append(pages, "next ]")
	}
	if len(pages) > 0 {
		parts = append(parts, strings.Join(pages, "  "))
	}
	return statusStyle.Render(strings.Join(parts, " · "))
}

// renderAppStats summarizes the per-status counts, shortened on narrow
// terminals.
func (m model) renderAppStats(s storage.ApplicationStats) string {
	if m.width < 120 {
		return fmt.Sprintf("%d total, %.1f%% accepted", s.TotalApplications, s.AcceptanceRate)
	}
	return fmt.Sprintf("%d total: %d submitted, %d accepted, %d waitlisted, %d rejected, %d draft (%.1f%% accepted)",
		s.TotalApplications, s.Submitted, s.Accepted, s.Waitlisted, s.Rejected, s.Draft, s.AcceptanceRate)
}

func (m model) renderAppsList(height int) string {
	st := m.apps.State()
	items := st.Page.Items
	switch {
	case len(items) == 0 && st.Loading:
		return m.spin.View() + " Loading applications..."
	case len(items) == 0 && st.Err != nil:
		return errorStyle.Render(fmt.Sprintf("Error: %v", st.Err)) + "\n" + statusStyle.Render("Press r to retry.")
	case len(items) == 0:
		return statusStyle.Render("No applications match this filter.")
	}

	const statusW, uniW, dateW = 10, 20, 12
	emailW := 0
	if m.width >= 90 {
		emailW = 28
	}
	nameW := m.width - statusW - dateW - 3
	if m.width >= 70 {
		nameW -= uniW + 1
	}
	if emailW > 0 {
		nameW -= emailW + 1
	}
	nameW = max(nameW, 8)

	row := func(name, email, status, uni, date string) string {
		s := cell(name, nameW)
		if emailW > 0 {
			s += " " + cell(email, emailW)
		}
		s += " " + cell(status, statusW)
		if m.width >= 70 {
			s += " " + cell(uni, uniW)
		}
		return s + " " + cell(date, dateW)
	}

	lines := []string{statusStyle.Render(row("Name", "Email", "Status", "University", "Submitted"))}
	visible := max(height-1, 1)
	start := 0
	if len(items) > visible {
		start = min(max(m.appsIdx-visible/2, 0), len(items)-visible)
	}
	end := min(start+visible, len(items))
	for i := start; i < end; i++ {
		it := items[i]
		submitted := "-"
		if it.SubmittedAt != nil {
			submitted = it.SubmittedAt.Local().Format("Jan 2 15:04")
		}
		line := row(it.Name(), it.Email, string(it.Status), deref(it.University), submitted)
		if i == m.appsIdx {
			line = selectedStyle.Render(line)
		} else {
			line = styleForStatus(it.Status).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderAppDetail(height int) string {
	switch {
	case m.appDetailLoading:
		return m.spin.View() + " Loading application..."
	case m.appDetailErr != nil:
		return errorStyle.Render("Could not load application: " + m.appDetailErr.Error())
	case m.appDetail == nil:
		return ""
	}
	app := m.appDetail
	lines := []string{
		titleStyle.Render(sanitizeForDisplay(app.FullName())) + "  " + statusStyle.Render(sanitizeForDisplay(app.Email)),
	}
	lines = append(lines, m.applicationLines(app, m.width)...)
	return m.scrolled(lines, m.width, height, m.detailScroll)
}

func styleForStatus(s storage.ApplicationStatus) lipgloss.Style {
	switch s {
	case storage.StatusAccepted:
		return acceptStyle
	case storage.StatusRejected:
		return rejectStyle
	case storage.StatusWaitlisted:
		return waitlistStyle
	case storage.StatusDraft:
		return statusStyle
	}
	return lipgloss.NewStyle()
}
