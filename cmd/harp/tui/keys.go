package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hackutd/harp-sub000/internal/triage"
)

// keyMap holds the bindings that are not part of the triage state machine.
// Those (arrows, enter, tab, esc and the vote chords) go through
// triage.Interpret so the same rules apply wherever the session is used.
type keyMap struct {
	Quit         key.Binding
	Help         key.Binding
	Pending      key.Binding
	Completed    key.Binding
	Applications key.Binding
	Refresh      key.Binding
	Copy         key.Binding
	NextReview   key.Binding
	Close        key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
	PrevPage     key.Binding
	NextPage     key.Binding
	Status       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Pending:      key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "pending")),
		Completed:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "completed")),
		Applications: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "applications")),
		Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy email")),
		NextReview:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "assign next")),
		Close:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close")),
		ScrollUp:     key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "scroll")),
		ScrollDown:   key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "scroll")),
		PrevPage:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		NextPage:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		Status:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
	}
}

// toKeyEvent translates a terminal key press for triage.Interpret.
// Terminals cannot report Cmd, so Ctrl and Alt chords both become ModCmd;
// ctrl+j/k/l arrive as dedicated control key types rather than runes.
func toKeyEvent(msg tea.KeyMsg) triage.KeyEvent {
	var ev triage.KeyEvent
	if msg.Alt {
		ev.Mod |= triage.ModCmd
	}
	switch msg.Type {
	case tea.KeyEsc:
		ev.Key = triage.KeyEscape
	case tea.KeyTab:
		ev.Key = triage.KeyTab
	case tea.KeyEnter:
		ev.Key = triage.KeyEnter
	case tea.KeyUp:
		ev.Key = triage.KeyUp
	case tea.KeyDown:
		ev.Key = triage.KeyDown
	case tea.KeyLeft:
		ev.Key = triage.KeyLeft
	case tea.KeyRight:
		ev.Key = triage.KeyRight
	case tea.KeyCtrlJ:
		ev.Key, ev.Rune = triage.KeyRune, 'j'
		ev.Mod |= triage.ModCmd
	case tea.KeyCtrlK:
		ev.Key, ev.Rune = triage.KeyRune, 'k'
		ev.Mod |= triage.ModCmd
	case tea.KeyCtrlL:
		ev.Key, ev.Rune = triage.KeyRune, 'l'
		ev.Mod |= triage.ModCmd
	case tea.KeyRunes:
		if len(msg.Runes) == 1 {
			ev.Key, ev.Rune = triage.KeyRune, msg.Runes[0]
		}
	}
	return ev
}
