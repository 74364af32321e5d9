package triage

import (
	"unicode"

	"github.com/hackutd/harp-sub000/internal/storage"
)

// Mode is the triage screen's navigation state.
type Mode int

const (
	// Browsing: nothing selected.
	Browsing Mode = iota
	// Reviewing: a review is selected and shown beside the queue.
	Reviewing
	// ReviewingExpanded: the selected review fills the screen.
	ReviewingExpanded
)

func (m Mode) String() string {
	switch m {
	case Browsing:
		return "browsing"
	case Reviewing:
		return "reviewing"
	case ReviewingExpanded:
		return "expanded"
	}
	return "unknown"
}

// Key identifies the keys the state machine cares about.
type Key int

const (
	KeyOther Key = iota
	KeyRune
	KeyEscape
	KeyTab
	KeyEnter
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
)

// Modifier is a bit set of held modifier keys.
type Modifier uint8

const (
	// ModCmd is Cmd on macOS and Ctrl elsewhere. Terminals that cannot
	// report Cmd deliver Ctrl or Alt instead, and both map here.
	ModCmd Modifier = 1 << iota
	ModShift
)

// KeyEvent is one key press, independent of the terminal library.
type KeyEvent struct {
	Key  Key
	Rune rune
	Mod  Modifier
}

// State is everything the transition table guards on.
type State struct {
	Mode            Mode
	InputFocused    bool
	ListLen         int
	SelectedDecided bool
	Submitting      bool
}

// Action is the effect a key press should have.
type Action int

const (
	ActionNone Action = iota
	ActionExitExpanded
	ActionExpand
	ActionFocusNotes
	ActionBlurNotes
	ActionSelectPrev
	ActionSelectNext
	ActionVote
)

// Command is the result of interpreting a key. Handled keys must not be
// passed on to the focused input.
type Command struct {
	Action Action
	Vote   storage.Vote
	// ReviewID is the review a vote was aimed at. HandleKey fills it in
	// from the selection at the moment of the key press.
	ReviewID string
	// Blur is set on ActionExitExpanded when the notes field had focus;
	// the field's text must be committed as well.
	Blur    bool
	Handled bool
}

var voteKeys = map[rune]storage.Vote{
	'j': storage.VoteReject,
	'k': storage.VoteWaitlist,
	'l': storage.VoteAccept,
}

// Interpret maps a key press to a command. It is pure; the caller applies
// the command.
func Interpret(st State, ev KeyEvent) Command {
	selected := st.Mode != Browsing
	expanded := st.Mode == ReviewingExpanded

	switch ev.Key {
	case KeyEscape:
		if expanded {
			return Command{Action: ActionExitExpanded, Blur: st.InputFocused, Handled: true}
		}
		if st.InputFocused {
			return Command{Action: ActionBlurNotes, Handled: true}
		}
	case KeyTab:
		if expanded && !st.InputFocused && !st.SelectedDecided {
			return Command{Action: ActionFocusNotes, Handled: true}
		}
	case KeyEnter:
		if st.Mode == Reviewing && !st.InputFocused {
			return Command{Action: ActionExpand, Handled: true}
		}
	case KeyUp, KeyLeft:
		if !st.InputFocused && st.ListLen > 0 {
			return Command{Action: ActionSelectPrev, Handled: true}
		}
	case KeyDown, KeyRight:
		if !st.InputFocused && st.ListLen > 0 {
			return Command{Action: ActionSelectNext, Handled: true}
		}
	case KeyRune:
		if ev.Mod&ModCmd == 0 {
			break
		}
		vote, ok := voteKeys[unicode.ToLower(ev.Rune)]
		if !ok {
			break
		}
		if expanded && selected && !st.InputFocused && !st.SelectedDecided && !st.Submitting {
			return Command{Action: ActionVote, Vote: vote, Handled: true}
		}
	}
	return Command{Action: ActionNone}
}
