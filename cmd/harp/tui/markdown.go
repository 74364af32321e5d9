package tui

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	gansi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	xansi "github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
)

// markdownCache caches glamour-rendered short answers for the detail pane.
// Stored as a pointer in model so that View() (value receiver) can update
// the cache and have it persist across bubbletea's model copies.
//
// The style is detected once at creation time, before bubbletea takes over
// the terminal: termenv.HasDarkBackground blocks inside raw mode.
type markdownCache struct {
	glamourStyle gansi.StyleConfig

	key   string
	text  string
	width int
	lines []string

	// Max scroll of the detail pane computed during the last render.
	// Stored here (in the shared pointer) so key handlers can clamp
	// scroll values even though View() uses a value receiver.
	lastMaxScroll int
}

func glamourStyle(detect bool) gansi.StyleConfig {
	style := styles.LightStyleConfig
	if detect && termenv.HasDarkBackground() {
		style = styles.DarkStyleConfig
	}
	zeroMargin := uint(0)
	style.Document.Margin = &zeroMargin
	style.CodeBlock.Margin = &zeroMargin
	style.Code.Prefix = ""
	style.Code.Suffix = ""
	return style
}

func newMarkdownCache(detect bool) *markdownCache {
	return &markdownCache{glamourStyle: glamourStyle(detect)}
}

// render returns the rendered lines of text, keyed by the application id so
// switching applicants always re-renders.
func (c *markdownCache) render(key, text string, width int) []string {
	if c.key == key && c.text == text && c.width == width && c.lines != nil {
		return c.lines
	}
	c.lines = renderMarkdownLines(text, width, c.glamourStyle)
	c.key, c.text, c.width = key, text, width
	return c.lines
}

// trailingPadRe matches trailing whitespace and ANSI SGR sequences.
// Glamour pads lines with spaces to fill the wrap width.
var trailingPadRe = regexp.MustCompile(`(\s|\x1b\[[0-9;]*m)+$`)

func renderMarkdownLines(text string, width int, style gansi.StyleConfig) []string {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	)
	if err != nil {
		return wrapText(sanitizeForDisplay(text), width)
	}
	out, err := r.Render(text)
	if err != nil {
		return wrapText(sanitizeForDisplay(text), width)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i, line := range lines {
		line = trailingPadRe.ReplaceAllString(line, "") + "\x1b[0m"
		if xansi.StringWidth(line) > width {
			line = xansi.Truncate(line, width, "")
		}
		lines[i] = line
	}
	return lines
}

// wrapText breaks plain text at spaces so no line exceeds width cells.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return strings.Split(text, "\n")
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			for runewidth.StringWidth(word) > width {
				head := runewidth.Truncate(word, width, "")
				if head == "" {
					_, size := utf8.DecodeRuneInString(word)
					head = word[:size]
				}
				if line != "" {
					out = append(out, line)
					line = ""
				}
				out = append(out, head)
				word = word[len(head):]
			}
			switch {
			case line == "":
				line = word
			case runewidth.StringWidth(line)+1+runewidth.StringWidth(word) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		out = append(out, line)
	}
	return out
}
