// Package ui renders patch progress in the terminal with Bubble Tea.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"nextpatch/internal/report"
)

type progressModel struct {
	title      string
	events     <-chan report.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []fileItem
	index      map[string]int
	stage      report.Stage
	stageLabel string
	failed     bool
	width      int
	done       bool
}

type fileItem struct {
	path   string
	status report.Status
}

type eventMsg report.Event
type doneMsg struct{}

// NewProgressModel returns a model listing files and the current run stage.
// It quits when events is closed.
func NewProgressModel(title string, files []string, events <-chan report.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: report.StatusQueued})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(report.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		// The run cannot be cancelled; only stop drawing.
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	switch {
	case m.done && m.failed:
		header = "failed: " + header
	case m.done:
		header = "done: " + header
	default:
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth = 12
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}
	for _, item := range m.items {
		label := fileLabel(item.status)
		styled := styleStatus(item.status).Render(fmt.Sprintf("%12s", label))
		b.WriteString(fmt.Sprintf("  %s %s\n", styled, truncate(item.path, nameWidth)))
	}

	b.WriteString("\n")
	if m.done && !m.failed {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev report.Event) tea.Cmd {
	if ev.Status == report.StatusError {
		m.failed = true
	}
	if ev.File == "" {
		m.stage = ev.Stage
		m.stageLabel = runLabel(ev.Stage, ev.Status)
		if ev.Stage == report.StageCommit && ev.Status == report.StatusDone {
			return m.prog.SetPercent(1.0)
		}
		return m.prog.SetPercent(m.percent())
	}
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	m.items[idx].status = ev.Status
	return m.prog.SetPercent(m.percent())
}

// percent weighs the run stages and, within the patch stage, finished files.
func (m *progressModel) percent() float64 {
	switch m.stage {
	case report.StageDetect:
		return 0.05
	case report.StagePrepare:
		return 0.2
	case report.StagePatch:
		if len(m.items) == 0 {
			return 0.3
		}
		finished := 0
		for _, item := range m.items {
			switch item.status {
			case report.StatusDone, report.StatusSkipped, report.StatusError:
				finished++
			}
		}
		return 0.3 + 0.5*float64(finished)/float64(len(m.items))
	case report.StageCommit:
		return 0.9
	default:
		return 0
	}
}

func runLabel(stage report.Stage, status report.Status) string {
	switch status {
	case report.StatusError:
		return string(stage) + " failed"
	case report.StatusWorking:
		switch stage {
		case report.StageDetect:
			return "detecting"
		case report.StagePrepare:
			return "preparing"
		case report.StagePatch:
			return "patching"
		case report.StageCommit:
			return "committing"
		}
	}
	return ""
}

func fileLabel(status report.Status) string {
	switch status {
	case report.StatusWorking:
		return "patching"
	case report.StatusSkipped:
		return "unchanged"
	default:
		return string(status)
	}
}

func styleStatus(status report.Status) lipgloss.Style {
	switch status {
	case report.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case report.StatusSkipped:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	case report.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case report.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
