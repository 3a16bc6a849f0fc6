package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/nestctl/internal/nest"
)

// DefaultMaxEntries is how many updates the watch view keeps on screen
const DefaultMaxEntries = 10

const pollTickInterval = 250 * time.Millisecond

// Messages fed to WatchModel by the goroutine running nest.Client.Watch
type (
	// UpdateMsg is one finished long-poll; Update is nil when nothing changed
	UpdateMsg struct {
		Update *nest.Update
		At     time.Time
	}

	// ErrorMsg is a long-poll that failed and will be retried
	ErrorMsg struct {
		Err error
		At  time.Time
	}

	// DoneMsg ends the view once Watch has returned
	DoneMsg struct {
		Err error
	}

	pollTickMsg time.Time
)

// watchKeyMap defines key bindings for the watch view
type watchKeyMap struct {
	Clear key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k watchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Clear, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k watchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Clear},
		{k.Help, k.Quit},
	}
}

// WatchEntry is one line of the update list
type WatchEntry struct {
	At     time.Time
	Update *nest.Update
	Err    error
}

// WatchModel shows subscription results as they arrive: a spinner and a
// bar filling towards nest.SubscribeTimeout while a long-poll is in flight,
// then the most recent updates, newest first.
type WatchModel struct {
	Categories []nest.Category
	MaxEntries int
	Entries    []WatchEntry

	// Counters
	Rounds   int
	Changes  int
	Failures int

	Done bool
	Err  error

	// waiting reports whether a long-poll is outstanding (nest.Client.Waiting)
	waiting      func() bool
	inFlight     bool
	waitingSince time.Time
	now          time.Time

	// cancel stops the Watch goroutine when the user quits
	cancel func()

	// UI state
	Width    int
	Spinner  spinner.Model
	Progress progress.Model
	Help     help.Model
	Keys     watchKeyMap
}

// NewWatchModel creates the watch view. waiting is polled to drive the
// spinner; cancel is called when the user quits.
func NewWatchModel(categories []nest.Category, waiting func() bool, cancel func()) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	if len(categories) == 0 {
		categories = nest.DefaultCategories
	}

	return WatchModel{
		Categories: categories,
		MaxEntries: DefaultMaxEntries,
		waiting:    waiting,
		cancel:     cancel,
		Width:      GetTerminalWidth(),
		Spinner:    s,
		Progress:   bar,
		Help:       help.New(),
		Keys: watchKeyMap{
			Clear: key.NewBinding(
				key.WithKeys("c"),
				key.WithHelp("c", "clear"),
			),
			Help: key.NewBinding(
				key.WithKeys("?"),
				key.WithHelp("?", "help"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

func pollTick() tea.Cmd {
	return tea.Tick(pollTickInterval, func(t time.Time) tea.Msg {
		return pollTickMsg(t)
	})
}

// Init implements tea.Model
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, pollTick())
}

// Update implements tea.Model
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.Keys.Quit):
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, m.Keys.Clear):
			m.Entries = nil
		case key.Matches(msg, m.Keys.Help):
			m.Help.ShowAll = !m.Help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Help.Width = msg.Width
		barWidth := msg.Width - 40
		if barWidth < 10 {
			barWidth = 10
		}
		if barWidth > 40 {
			barWidth = 40
		}
		m.Progress.Width = barWidth
		return m, nil

	case UpdateMsg:
		m.Rounds++
		m.inFlight = false
		if msg.Update != nil {
			m.Changes++
			m.push(WatchEntry{At: msg.At, Update: msg.Update})
		}
		return m, nil

	case ErrorMsg:
		m.Rounds++
		m.Failures++
		m.inFlight = false
		m.push(WatchEntry{At: msg.At, Err: msg.Err})
		return m, nil

	case DoneMsg:
		m.Done = true
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.Err = msg.Err
		}
		return m, tea.Quit

	case pollTickMsg:
		m.now = time.Time(msg)
		waiting := m.waiting != nil && m.waiting()
		if waiting && !m.inFlight {
			m.waitingSince = m.now
		}
		m.inFlight = waiting
		return m, pollTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// push prepends an entry, keeping at most MaxEntries
func (m *WatchModel) push(e WatchEntry) {
	limit := m.MaxEntries
	if limit <= 0 {
		limit = DefaultMaxEntries
	}
	m.Entries = append([]WatchEntry{e}, m.Entries...)
	if len(m.Entries) > limit {
		m.Entries = m.Entries[:limit]
	}
}

// View implements tea.Model
func (m WatchModel) View() string {
	var b strings.Builder

	names := make([]string, len(m.Categories))
	for i, c := range m.Categories {
		names[i] = string(c)
	}
	b.WriteString(SectionTitleStyle.Render("Watching " + strings.Join(names, ", ")))
	b.WriteString("\n\n")

	switch {
	case m.Done && m.Err != nil:
		b.WriteString(ErrorMessageStyle.Render("  " + FailureMarker + " " + nest.ShortMessage(m.Err)))
	case m.Done:
		b.WriteString(MutedStyle.Render("  Stopped."))
	case m.inFlight:
		elapsed := m.now.Sub(m.waitingSince)
		if elapsed < 0 {
			elapsed = 0
		}
		pct := float64(elapsed) / float64(nest.SubscribeTimeout)
		if pct > 1 {
			pct = 1
		}
		fmt.Fprintf(&b, "  %s Waiting for changes  %s  %s",
			m.Spinner.View(),
			m.Progress.ViewAs(pct),
			MutedStyle.Render(elapsed.Truncate(time.Second).String()))
	default:
		b.WriteString(MutedStyle.Render("  Between long-polls"))
	}
	b.WriteString("\n")

	b.WriteString(MutedStyle.Render(fmt.Sprintf("  rounds %d · changes %d · failures %d", m.Rounds, m.Changes, m.Failures)))
	b.WriteString("\n\n")

	if len(m.Entries) == 0 {
		b.WriteString(MutedStyle.Render("  No updates yet."))
		b.WriteString("\n")
	}
	for _, e := range m.Entries {
		if e.Err != nil {
			b.WriteString(ErrorMessageStyle.Render("  " + FailureMarker + " " + e.At.Format("15:04:05") + " " + nest.ShortMessage(e.Err)))
		} else {
			b.WriteString("  " + HomeStyle.Render(UpdateMarker) + " " + FormatUpdate(e.Update, e.At))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.Help.View(m.Keys))
	return b.String()
}

// FormatUpdate renders an update as a single line:
// "15:04:05 shared.ABC123 v201 name=Hallway target_temperature=22".
// A nil update renders as "no change".
func FormatUpdate(u *nest.Update, at time.Time) string {
	stamp := at.Format("15:04:05")
	if u == nil {
		return stamp + " no change"
	}
	line := fmt.Sprintf("%s %s.%s", stamp, u.Category, u.EntityID)
	if u.Record == nil {
		return line
	}
	line += fmt.Sprintf(" v%d", u.Record.Version)
	if summary := SummarizeFields(u.Record, 4); summary != "" {
		line += " " + summary
	}
	return line
}

// SummarizeFields renders up to limit fields of a record as sorted
// key=value pairs, noting how many were left out.
func SummarizeFields(r *nest.Record, limit int) string {
	if r == nil || len(r.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for i, k := range keys {
		if limit > 0 && i == limit {
			parts = append(parts, fmt.Sprintf("(+%d more)", len(keys)-limit))
			break
		}
		v := fmt.Sprintf("%v", r.Fields[k])
		if len(v) > 24 {
			v = v[:21] + "..."
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, " ")
}
