// Package tui is the terminal front end of the review triage workflow: the
// pending queue, the read-only completed list and the applications browser.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hackutd/harp-sub000/internal/client"
	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/hackutd/harp-sub000/internal/storage"
	"github.com/hackutd/harp-sub000/internal/triage"
)

const flashDuration = 3 * time.Second

// TUI styles using AdaptiveColor for light/dark terminal support.
// Light colors are chosen for dark-on-light terminals; Dark colors for light-on-dark.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "125", Dark: "205"}) // Magenta/Pink

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"}) // Gray

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "153", Dark: "24"}) // Light blue background

	tabStyle       = lipgloss.NewStyle().Padding(0, 1)
	activeTabStyle = tabStyle.
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "125", Dark: "205"}).
			Underline(true)

	acceptStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"})   // Green
	rejectStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}) // Red
	waitlistStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "136", Dark: "226"}) // Yellow/Gold
	draftStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "166", Dark: "208"}) // Orange

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "33"}) // Blue

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"})
	flashStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "46"})

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "242", Dark: "246"})
	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "248", Dark: "240"})
)

// appStatusFilters is the cycle order of the applications status filter.
// The empty string shows every status.
var appStatusFilters = []string{
	"",
	string(storage.StatusSubmitted),
	string(storage.StatusAccepted),
	string(storage.StatusWaitlisted),
	string(storage.StatusRejected),
	string(storage.StatusDraft),
}

type model struct {
	repo   client.Client
	ctx    context.Context
	cancel context.CancelFunc

	pending         *triage.Session
	completed       *triage.Session
	completedLoaded bool

	apps             *pagination.Pager[storage.ApplicationListItem]
	appsLoaded       bool
	appsIdx          int
	appsStatus       int
	appStats         *storage.ApplicationStats
	appStatsErr      error
	appDetail        *storage.Application
	appDetailID      string
	appDetailErr     error
	appDetailLoading bool

	currentView  viewKind
	helpFromView viewKind
	width        int
	height       int

	keys     keyMap
	notes    textarea.Model
	spin     spinner.Model
	spinning bool
	inflight int

	// detailScroll is the first visible line of the expanded detail pane.
	detailScroll int

	// unsent is the last vote the server did not accept, shown as a hint
	// on that review until a vote for it succeeds.
	unsent *unsentVote

	// Flash message (temporary status message shown briefly)
	flashMessage string
	flashIsError bool
	flashView    viewKind
	flashSeq     int

	// Glamour render cache (pointer so View's value receiver can update it)
	mdCache *markdownCache

	clipboard ClipboardWriter
	now       func() time.Time
}

func newModel(repo client.Client, opts ...option) model {
	var opt options
	for _, o := range opts {
		o(&opt)
	}
	ctx, cancel := context.WithCancel(context.Background())

	notes := textarea.New()
	notes.Placeholder = "Notes for this applicant"
	notes.CharLimit = storage.MaxNotesLength
	notes.ShowLineNumbers = false
	notes.SetHeight(4)

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = statusStyle

	pending := triage.NewSession(triage.NewStore(repo, triage.KindPending), triage.NewOverrides(), repo)
	completed := triage.NewSession(triage.NewStore(repo, triage.KindCompleted), triage.NewOverrides(), repo)

	m := model{
		repo:        repo,
		ctx:         ctx,
		cancel:      cancel,
		pending:     pending,
		completed:   completed,
		apps:        pagination.NewPager(repo.ListApplications, opt.pageSize),
		currentView: opt.startView,
		width:       80, // sensible defaults until we get WindowSizeMsg
		height:      24,
		keys:        defaultKeyMap(),
		notes:       notes,
		spin:        spin,
		mdCache:     newMarkdownCache(!opt.disableExternalIO),
		clipboard:   &realClipboard{},
		now:         time.Now,
		// Init issues the first fetch and starts the spinner.
		inflight: 1,
		spinning: true,
	}
	switch m.currentView {
	case viewCompleted:
		m.completedLoaded = true
	case viewApplications:
		m.appsLoaded = true
		m.inflight = 2
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.WindowSize(), m.spin.Tick}
	switch m.currentView {
	case viewCompleted:
		cmds = append(cmds, m.reviewsCmd(triage.KindCompleted))
	case viewApplications:
		cmds = append(cmds, m.appsCmd(m.apps.First), m.appStatsCmd())
	default:
		cmds = append(cmds, m.reviewsCmd(triage.KindPending))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)
	case spinner.TickMsg:
		return m.handleSpinnerTick(msg)
	case reviewsMsg:
		return m.handleReviewsMsg(msg)
	case detailMsg:
		return m.handleDetailMsg(msg)
	case voteResultMsg:
		return m.handleVoteResultMsg(msg)
	case nextReviewMsg:
		return m.handleNextReviewMsg(msg)
	case appsMsg:
		return m.handleAppsMsg(msg)
	case appStatsMsg:
		return m.handleAppStatsMsg(msg)
	case appDetailMsg:
		return m.handleAppDetailMsg(msg)
	case clipboardResultMsg:
		return m.handleClipboardResultMsg(msg)
	case flashExpiredMsg:
		if msg.seq == m.flashSeq {
			m.flashMessage = ""
		}
		return m, nil
	}
	if m.notes.Focused() {
		var cmd tea.Cmd
		m.notes, cmd = m.notes.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	switch m.currentView {
	case viewHelp:
		return m.renderHelpView()
	case viewApplications:
		return m.renderApplicationsView()
	}
	return m.renderTriageView()
}

// session returns the triage session behind a review view.
func (m model) session(kind triage.Kind) *triage.Session {
	if kind == triage.KindCompleted {
		return m.completed
	}
	return m.pending
}

// currentKind maps the current view to its review set.
func (m model) currentKind() triage.Kind {
	if m.currentView == viewCompleted {
		return triage.KindCompleted
	}
	return triage.KindPending
}

// Config holds resolved parameters for running the TUI.
type Config struct {
	Client    client.Client
	StartView string // "pending", "completed" or "applications"
	PageSize  int
}

// Run starts the interactive TUI.
func Run(cfg Config) error {
	opts := []option{withPageSize(cfg.PageSize)}
	switch cfg.StartView {
	case "completed":
		opts = append(opts, withStartView(viewCompleted))
	case "applications":
		opts = append(opts, withStartView(viewApplications))
	}
	m := newModel(cfg.Client, opts...)
	defer m.close()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// close cancels everything still in flight.
func (m model) close() {
	m.pending.Close()
	m.completed.Close()
	m.cancel()
}
