package tui

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/mattn/go-runewidth"
)

// ansiEscapePattern matches ANSI escape sequences (colors, cursor movement, etc.)
// Handles CSI sequences (\x1b[...X) and OSC sequences terminated by BEL (\x07) or ST (\x1b\\)
var ansiEscapePattern = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\]([^\x07\x1b]|\x1b[^\\])*(\x07|\x1b\\)`)

// sanitizeForDisplay strips ANSI escape sequences and control characters
// from applicant-supplied text before it reaches the terminal.
func sanitizeForDisplay(s string) string {
	s = ansiEscapePattern.ReplaceAllString(s, "")
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// cell truncates s to width display cells and pads it on the right.
func cell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(sanitizeForDisplay(s), "\n", " ")
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return runewidth.FillRight(s, width)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

// relTime renders t as a short age ("5m", "3h", "2d").
func relTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func voteLabel(v *storage.Vote) string {
	if v == nil {
		return ""
	}
	return string(*v)
}

// formatClipboardContent is what `y` copies: the applicant's name and email.
func formatClipboardContent(name, email string) string {
	if email == "" {
		return ""
	}
	if name == "" || name == email {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}
