package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ripple/internal/analyzer"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	testStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	jobStyle = lipgloss.NewStyle().
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
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	list       list.Model
	result     *analyzer.Result
	lastUpdate time.Time
}

type updateMsg struct {
	result *analyzer.Result
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
	case updateMsg:
		m.result = msg.result
		m.lastUpdate = time.Now()
		m.list.SetItems(itemsFromResult(msg.result))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func itemsFromResult(result *analyzer.Result) []list.Item {
	items := []list.Item{}
	if result == nil {
		return items
	}

	for _, test := range result.ImpactedTests {
		items = append(items, item{title: "Impacted Test", desc: test})
	}
	for _, mod := range result.ImpactedModules {
		items = append(items, item{title: "Impacted Module", desc: mod})
	}
	for _, s := range result.SuggestedJobs {
		items = append(items, item{
			title: "Suggested Job",
			desc:  fmt.Sprintf("%s (%s, %s)", s.Job, filepath.Base(s.Workflow), s.Reason),
		})
	}
	for _, c := range result.Cycles {
		items = append(items, item{title: "Import Cycle", desc: strings.Join(c, " -> ")})
	}
	for _, p := range result.Unresolved {
		items = append(items, item{title: "Unresolved Change", desc: p})
	}
	return items
}

func (m model) View() string {
	var status, summary string

	if m.result == nil {
		status = statusStyle.Render("waiting for first analysis...")
		summary = ""
	} else {
		status = statusStyle.Render(fmt.Sprintf("Last run: %v | range %s | %d modules | %d edges",
			m.lastUpdate.Format("15:04:05"), m.result.Range,
			m.result.Stats.ModuleCount, m.result.Stats.EdgeCount))

		if len(m.result.ImpactedTests) == 0 && len(m.result.ImpactedModules) == 0 {
			summary = successStyle.Render("No impact")
		} else {
			summary = fmt.Sprintf("%s | %s",
				testStyle.Render(fmt.Sprintf("%d Tests", len(m.result.ImpactedTests))),
				jobStyle.Render(fmt.Sprintf("%d Jobs", len(m.result.JobNames()))))
		}
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Change Impact Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel() model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Impact Sets"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		lastUpdate: time.Now(),
	}
}
