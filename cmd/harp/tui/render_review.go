package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/triage"
)

const notesPreviewLines = 3

// renderDetail draws the selected review: applicant content in a viewport
// with the notes field and the vote bar pinned below it. Only the expanded
// pane scrolls.
func (m model) renderDetail(v triage.View, width, height int) string {
	if v.Selected == nil {
		return ""
	}
	expanded := v.Mode == triage.ReviewingExpanded
	footer := m.detailFooter(v, width, expanded)
	bodyH := max(height-lipgloss.Height(footer)-1, 1)

	offset := 0
	if expanded {
		offset = m.detailScroll
	}
	return m.scrolled(m.reviewLines(v, width), width, bodyH, offset) + "\n" + footer
}

// scrolled renders lines through a viewport at offset and records the
// maximum offset for the scroll keys.
func (m model) scrolled(lines []string, width, height, offset int) string {
	m.mdCache.lastMaxScroll = max(len(lines)-height, 0)
	vp := viewport.New(width, height)
	vp.SetContent(strings.Join(lines, "\n"))
	vp.SetYOffset(offset)
	return vp.View()
}

// detailPageSize is how far pgup/pgdn move the detail pane.
func (m model) detailPageSize() int {
	return max((m.height-chromeLines-8)/2, 1)
}

func (m model) reviewLines(v triage.View, width int) []string {
	r := v.Selected
	d := v.Detail
	lines := []string{
		titleStyle.Render(sanitizeForDisplay(r.ApplicantName())) + "  " + statusStyle.Render(sanitizeForDisplay(r.Email)),
	}
	if d.Application != nil {
		lines = append(lines, m.applicationLines(d.Application, width)...)
	} else {
		lines = append(lines, wrapText(reviewSummary(*r), width)...)
		switch {
		case d.AppLoading:
			lines = append(lines, m.spin.View()+" Loading application...")
		case d.AppErr != nil:
			lines = append(lines, errorStyle.Render("Could not load application: "+d.AppErr.Error()))
		}
	}

	lines = append(lines, "", sectionStyle.Render("Reviewer notes"))
	switch {
	case d.NotesLoading:
		lines = append(lines, m.spin.View()+" Loading notes...")
	case d.NotesErr != nil:
		lines = append(lines, errorStyle.Render("Could not load notes: "+d.NotesErr.Error()))
	case len(d.PeerNotes) == 0:
		lines = append(lines, statusStyle.Render("(none yet)"))
	default:
		now := m.now()
		for _, n := range d.PeerNotes {
			who := n.AdminEmail
			if who == "" {
				who = n.AdminID
			}
			lines = append(lines, statusStyle.Render(fmt.Sprintf("%s · %s", who, relTime(n.CreatedAt, now))))
			for _, l := range wrapText(sanitizeForDisplay(n.Notes), max(width-2, 10)) {
				lines = append(lines, "  "+l)
			}
		}
	}
	return lines
}

// reviewSummary is what the review row itself knows about the applicant,
// shown until the full application arrives.
func reviewSummary(r storage.Review) string {
	var facts []string
	if r.Age != nil {
		facts = append(facts, fmt.Sprintf("Age %d", *r.Age))
	}
	for _, s := range []*string{r.University, r.Major, r.CountryOfResidence} {
		if s != nil && *s != "" {
			facts = append(facts, sanitizeForDisplay(*s))
		}
	}
	if r.HackathonsAttendedCount != nil {
		facts = append(facts, fmt.Sprintf("%d hackathons", *r.HackathonsAttendedCount))
	}
	return strings.Join(facts, " · ")
}

// applicationLines renders the full record. Short answers go through
// glamour since applicants write them in markdown.
func (m model) applicationLines(app *storage.Application, width int) []string {
	var lines []string
	add := func(label string, values ...*string) {
		var vals []string
		for _, v := range values {
			if v != nil && *v != "" {
				vals = append(vals, sanitizeForDisplay(*v))
			}
		}
		if len(vals) > 0 {
			lines = append(lines, wrapText(label+strings.Join(vals, " · "), width)...)
		}
	}

	var facts []string
	if app.Age != nil {
		facts = append(facts, fmt.Sprintf("Age %d", *app.Age))
	}
	facts = append(facts, string(app.Status))
	if app.SubmittedAt != nil {
		facts = append(facts, "submitted "+app.SubmittedAt.Local().Format("Jan 2 15:04"))
	}
	lines = append(lines, statusStyle.Render(strings.Join(facts, " · ")))

	add("", app.University, app.Major, app.LevelOfStudy)
	add("From: ", app.CountryOfResidence)
	var hacks *string
	if app.HackathonsAttendedCount != nil {
		s := fmt.Sprintf("%d hackathons", *app.HackathonsAttendedCount)
		hacks = &s
	}
	add("Experience: ", hacks, app.SoftwareExperienceLevel)
	add("Heard about us: ", app.HeardAbout)
	var dietary *string
	if len(app.DietaryRestrictions) > 0 {
		s := strings.Join(app.DietaryRestrictions, ", ")
		dietary = &s
	}
	add("Shirt / dietary: ", app.ShirtSize, dietary)
	add("Phone: ", app.PhoneE164)
	add("", app.Github)
	add("", app.LinkedIn)
	add("", app.Website)

	answers := app.ShortAnswers()
	if len(answers) > 0 {
		var md strings.Builder
		for _, a := range answers {
			fmt.Fprintf(&md, "**%s**\n\n%s\n\n", a.Question, a.Answer)
		}
		lines = append(lines, "", sectionStyle.Render("Short answers"))
		lines = append(lines, m.mdCache.render(app.ID, md.String(), width)...)
	}
	return lines
}

func (m model) detailFooter(v triage.View, width int, expanded bool) string {
	r := v.Selected
	lines := []string{sectionStyle.Render("Your notes")}
	switch {
	case v.NotesFocused:
		ta := m.notes
		ta.SetWidth(max(width-2, 10))
		lines = append(lines, ta.View())
	case r.Decided():
		notes := deref(r.Notes)
		if notes == "" {
			lines = append(lines, statusStyle.Render("(none)"))
		} else {
			lines = append(lines, clip(wrapText(sanitizeForDisplay(notes), width), notesPreviewLines)...)
		}
	case v.Notes != "":
		lines = append(lines, clip(wrapText(sanitizeForDisplay(v.Notes), width), notesPreviewLines)...)
		if expanded {
			lines = append(lines, statusStyle.Render("tab to edit"))
		}
	case expanded:
		lines = append(lines, statusStyle.Render("tab to add notes"))
	default:
		lines = append(lines, statusStyle.Render("enter to expand, then tab to add notes"))
	}
	if bar := m.voteBar(v, expanded); bar != "" {
		lines = append(lines, bar)
	}
	return strings.Join(lines, "\n")
}

func (m model) voteBar(v triage.View, expanded bool) string {
	r := v.Selected
	switch {
	case r.Decided():
		return "Decision: " + styleForVote(*r.Vote).Render(string(*r.Vote))
	case v.Submitting:
		return m.spin.View() + " Submitting vote..."
	case v.Kind == triage.KindCompleted:
		return ""
	}
	hint := statusStyle.Render("enter to expand and vote")
	if expanded {
		hint = rejectStyle.Render("ctrl+j reject") + "  " +
			waitlistStyle.Render("ctrl+k waitlist") + "  " +
			acceptStyle.Render("ctrl+l accept")
	}
	if u := m.unsent; u != nil && u.kind == v.Kind && u.reviewID == r.ID {
		hint = draftStyle.Render("unsent: "+string(u.vote)) + "  " + hint
	}
	return hint
}

// clip keeps the first n lines, marking the cut.
func clip(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	out := append([]string(nil), lines[:n]...)
	out[n-1] += " …"
	return out
}
