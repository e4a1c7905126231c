package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nullclaw/internal/domain"
	"nullclaw/internal/usecase/timeline"
)

const (
	maxRenderedEvents = 1000
	pollInterval      = 500 * time.Millisecond
)

var (
	styleMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleInfo  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleError = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
)

// severityFilters lists the min-severity filters; 'a', 'w' and 'e' each select one directly.
var severityFilters = []struct {
	key   string
	label string
	min   domain.EventSeverity
}{
	{"a", "All", ""},
	{"w", "Warn+", domain.SeverityWarn},
	{"e", "Error", domain.SeverityError},
}

type tickMsg time.Time

type model struct {
	path     string
	offset   int64
	events   []domain.TimelineEvent
	filter   domain.ReplayFilter
	viewport viewport.Model
	ready    bool
	width    int
	height   int
	err      error
}

func newModel(path string) (*model, error) {
	m := &model{path: path}
	if err := m.loadInitial(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *model) loadInitial() error {
	f, err := os.Open(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", m.path, err)
	}
	defer f.Close()

	reader := timeline.NewReplayReader(f)
	for {
		e, ok := reader.Next()
		if !ok {
			break
		}
		m.events = append(m.events, e)
	}
	if len(m.events) > maxRenderedEvents {
		m.events = m.events[len(m.events)-maxRenderedEvents:]
	}

	info, statErr := f.Stat()
	if statErr == nil {
		m.offset = info.Size()
	}
	return reader.Err()
}

func (m *model) pollNew() tea.Cmd {
	return func() tea.Msg {
		time.Sleep(pollInterval)
		return tickMsg(time.Now())
	}
}

func (m *model) appendNewSinceOffset() {
	f, err := os.Open(m.path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() <= m.offset {
		return
	}
	if _, err := f.Seek(m.offset, 0); err != nil {
		return
	}

	reader := timeline.NewReplayReader(f)
	for {
		e, ok := reader.Next()
		if !ok {
			break
		}
		m.events = append(m.events, e)
	}
	if len(m.events) > maxRenderedEvents {
		m.events = m.events[len(m.events)-maxRenderedEvents:]
	}
	m.offset = info.Size()
}

func (m *model) Init() tea.Cmd {
	return m.pollNew()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 3
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.viewport.MouseWheelEnabled = true
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.width, m.height = msg.Width, msg.Height
		m.refresh()

	case tickMsg:
		m.appendNewSinceOffset()
		m.refresh()
		return m, m.pollNew()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "a", "w", "e":
			for _, sf := range severityFilters {
				if sf.key == msg.String() {
					m.filter.MinSeverity = sf.min
					m.refresh()
					break
				}
			}
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	var sb strings.Builder
	shown := 0
	for _, e := range m.events {
		if !timeline.Matches(m.filter, e) {
			continue
		}
		sb.WriteString(renderEvent(e))
		sb.WriteByte('\n')
		shown++
	}
	if shown == 0 {
		sb.WriteString(styleMuted.Render("  waiting for events..."))
	}
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(sb.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func renderEvent(e domain.TimelineEvent) string {
	ts := time.UnixMilli(e.Ts).Format("15:04:05.000")
	name := fmt.Sprintf("%-28s", e.Name)

	var styled string
	switch e.Severity {
	case domain.SeverityError:
		styled = styleError.Render(name)
	case domain.SeverityWarn:
		styled = styleWarn.Render(name)
	case domain.SeverityDebug:
		styled = styleMuted.Render(name)
	default:
		styled = styleInfo.Render(name)
	}

	session := ""
	if e.SessionID != "" {
		session = " session=" + e.SessionID
	}
	return fmt.Sprintf("  %s  %s%s", styleDim.Render(ts), styled, styleMuted.Render(session))
}

func (m *model) View() string {
	if !m.ready {
		return "initializing...\n"
	}

	header := styleTitle.Render("nullclaw timeline") + "  " + styleMuted.Render(m.path)

	var filterParts []string
	for _, sf := range severityFilters {
		label := fmt.Sprintf("[%s] %s", sf.key, sf.label)
		if m.filter.MinSeverity == sf.min {
			filterParts = append(filterParts, styleInfo.Render(label))
		} else {
			filterParts = append(filterParts, styleMuted.Render(label))
		}
	}
	filterBar := "  " + strings.Join(filterParts, "  ")

	shown := 0
	for _, e := range m.events {
		if timeline.Matches(m.filter, e) {
			shown++
		}
	}
	footer := styleDim.Render(fmt.Sprintf("  %d events shown · q to quit", shown))

	return header + "\n" + filterBar + "\n" + m.viewport.View() + "\n" + footer
}
