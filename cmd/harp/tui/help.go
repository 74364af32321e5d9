package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hackutd/harp-sub000/internal/triage"
	"github.com/mattn/go-runewidth"
)

func bindingItem(b key.Binding) helpItem {
	h := b.Help()
	return helpItem{key: h.Key, desc: h.Desc}
}

func itemWidth(item helpItem) int {
	w := runewidth.StringWidth(item.key)
	if item.desc != "" {
		w += 1 + runewidth.StringWidth(item.desc)
	}
	return w
}

// reflowHelpRows splits rows into chunks of at most n columns, picking the
// largest n whose aligned columns fit in width. Each cell after the first
// costs two extra cells for its separator.
func reflowHelpRows(rows [][]helpItem, width int) [][]helpItem {
	if width <= 0 {
		return rows
	}
	widest := 0
	for _, row := range rows {
		widest = max(widest, len(row))
	}
	for n := widest; n >= 1; n-- {
		var out [][]helpItem
		for _, row := range rows {
			for i := 0; i < len(row); i += n {
				out = append(out, row[i:min(i+n, len(row))])
			}
		}
		colW := make([]int, n)
		for _, row := range out {
			for c, item := range row {
				colW[c] = max(colW[c], itemWidth(item))
			}
		}
		total := 0
		for c, w := range colW {
			total += w
			if c > 0 {
				total += 2
			}
		}
		if total <= width || n == 1 {
			return out
		}
	}
	return nil
}

// renderHelpTable renders help rows as an aligned, borderless table with a
// thin separator between columns.
func renderHelpTable(rows [][]helpItem, width int) string {
	rows = reflowHelpRows(rows, width)
	if len(rows) == 0 {
		return ""
	}
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	colW := make([]int, cols)
	for _, row := range rows {
		for c, item := range row {
			colW[c] = max(colW[c], itemWidth(item))
		}
	}

	sep := lipgloss.NewStyle().
		PaddingLeft(1).
		Border(lipgloss.Border{Left: "▕"}, false, false, false, true).
		BorderForeground(lipgloss.AdaptiveColor{Light: "248", Dark: "242"})

	t := table.New().
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderRow(false).
		BorderHeader(false).
		Wrap(false).
		StyleFunc(func(_, col int) lipgloss.Style {
			if col == 0 {
				return lipgloss.NewStyle().Width(colW[0])
			}
			return sep.Width(colW[col] + 2)
		})
	for _, row := range rows {
		cells := make([]string, cols)
		for i, item := range row {
			cells[i] = helpKeyStyle.Render(item.key)
			if item.desc != "" {
				cells[i] += " " + helpDescStyle.Render(item.desc)
			}
		}
		t.Row(cells...)
	}
	return strings.TrimRight(t.Render(), "\n")
}

// triageHelpRows lists the keys that do something right now.
func (m model) triageHelpRows(v triage.View) [][]helpItem {
	k := m.keys
	if v.NotesFocused {
		esc := helpItem{"esc", "save notes"}
		if v.Mode == triage.ReviewingExpanded {
			esc.desc = "save notes and collapse"
		}
		return [][]helpItem{{
			esc,
			{"ctrl+c", "quit"},
		}}
	}
	var nav []helpItem
	switch v.Mode {
	case triage.Browsing:
		nav = []helpItem{{"↑/↓", "select"}}
	case triage.Reviewing:
		nav = []helpItem{{"↑/↓", "select"}, {"enter", "expand"}, bindingItem(k.Close)}
	default:
		nav = []helpItem{{"↑/↓", "select"}, {"esc", "collapse"}, bindingItem(k.ScrollDown)}
		if v.Kind == triage.KindPending && v.Selected != nil && !v.Selected.Decided() {
			nav = append(nav, helpItem{"tab", "notes"})
		}
	}
	if v.Mode == triage.ReviewingExpanded && v.Kind == triage.KindPending && v.Selected != nil && !v.Selected.Decided() {
		nav = append(nav,
			helpItem{"ctrl+j", "reject"},
			helpItem{"ctrl+k", "waitlist"},
			helpItem{"ctrl+l", "accept"})
	}
	global := []helpItem{bindingItem(k.Refresh)}
	if v.Selected != nil {
		global = append(global, bindingItem(k.Copy))
	}
	if v.Kind == triage.KindPending {
		global = append(global, bindingItem(k.NextReview))
	}
	global = append(global, bindingItem(k.Help), bindingItem(k.Quit))
	return [][]helpItem{nav, global}
}

func (m model) applicationsHelpRows() [][]helpItem {
	k := m.keys
	if m.appDetailID != "" {
		return [][]helpItem{{
			{"esc", "close"},
			bindingItem(k.ScrollDown),
			bindingItem(k.Copy),
			bindingItem(k.Quit),
		}}
	}
	return [][]helpItem{
		{{"↑/↓", "select"}, {"enter", "open"}, bindingItem(k.PrevPage), bindingItem(k.NextPage), bindingItem(k.Status)},
		{bindingItem(k.Refresh), bindingItem(k.Copy), bindingItem(k.Help), bindingItem(k.Quit)},
	}
}

var helpSections = []struct {
	title string
	items []helpItem
}{
	{"Views", []helpItem{
		{"1", "pending reviews"},
		{"2", "completed reviews (read-only)"},
		{"3", "all applications"},
		{"?", "toggle this help"},
		{"q", "quit"},
	}},
	{"Reviewing", []helpItem{
		{"↑ / ↓", "move through the queue"},
		{"enter", "expand the selected review"},
		{"esc", "save notes and leave full screen"},
		{"tab", "edit notes (expanded, undecided)"},
		{"ctrl+j", "vote reject"},
		{"ctrl+k", "vote waitlist"},
		{"ctrl+l", "vote accept"},
		{"pgup / pgdn", "scroll the expanded review"},
		{"x", "close the review"},
		{"n", "get the next application assigned"},
		{"y", "copy the applicant's email"},
		{"r", "refresh"},
	}},
	{"Applications", []helpItem{
		{"enter", "open the application"},
		{"[ / ]", "previous / next page"},
		{"s", "cycle the status filter"},
	}},
}

func (m model) renderHelpView() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	keyW := 0
	for _, s := range helpSections {
		for _, it := range s.items {
			keyW = max(keyW, runewidth.StringWidth(it.key))
		}
	}
	for i, s := range helpSections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(s.title))
		b.WriteString("\n")
		for _, it := range s.items {
			b.WriteString("  ")
			b.WriteString(helpKeyStyle.Render(runewidth.FillRight(it.key, keyW)))
			b.WriteString("  ")
			b.WriteString(helpDescStyle.Render(it.desc))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("Notes are kept locally until you vote. A failed vote keeps your choice; press it again to retry."))
	b.WriteString("\n\n")
	b.WriteString(renderHelpTable([][]helpItem{{{"esc", "back"}, {"?", "back"}, {"q", "back"}}}, m.width))
	return lipgloss.NewStyle().MaxHeight(m.height).Render(b.String())
}
