package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"loom/internal/core/ports"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	isCycle     bool
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list        list.Model
	errors      []string
	cycleCount  int
	buildID     string
	lastUpdate  time.Time
	moduleCount int
	typeCount   int
	valueCount  int
}

type buildMsg struct {
	update ports.WatchUpdate
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case buildMsg:
		m.errors = msg.update.Errors
		m.buildID = msg.update.BuildID
		m.moduleCount = msg.update.ModuleCount
		m.typeCount = msg.update.TypeCount
		m.valueCount = msg.update.ValueCount
		m.lastUpdate = time.Now()
		m.cycleCount = 0

		items := []list.Item{}
		for _, e := range m.errors {
			if isCycleError(e) {
				m.cycleCount++
				items = append(items, item{
					title:   "Dependency Cycle",
					desc:    e,
					isCycle: true,
				})
				continue
			}
			items = append(items, item{
				title: "Build Error",
				desc:  e,
			})
		}
		m.list.SetItems(items)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	build := "no builds yet"
	if m.buildID != "" {
		build = shortID(m.buildID)
	}
	status := statusStyle.Render(fmt.Sprintf("Build %s at %v | %d modules | %d types | %d values",
		build, m.lastUpdate.Format("15:04:05"), m.moduleCount, m.typeCount, m.valueCount))

	var summary string
	if len(m.errors) == 0 {
		summary = successStyle.Render("✅ Repository Clean")
	} else if m.cycleCount > 0 {
		summary = fmt.Sprintf("⚠️  %s | %s",
			cycleStyle.Render(fmt.Sprintf("%d Cycles", m.cycleCount)),
			errorStyle.Render(fmt.Sprintf("%d Errors", len(m.errors)-m.cycleCount)))
	} else {
		summary = fmt.Sprintf("⚠️  %s", errorStyle.Render(fmt.Sprintf("%d Errors", len(m.errors))))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Loom Build Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Build Errors"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}

// isCycleError matches the three cycle rejection codes the build pipeline
// can emit: MODULE_CYCLE, TYPE_CYCLE and VALUE_CYCLE.
func isCycleError(msg string) bool {
	return strings.Contains(msg, "_CYCLE]")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
