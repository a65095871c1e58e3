// ABOUTME: Client detail view
// ABOUTME: Contact fields, commission potential per product line, analysis progress, tasks and meetings
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/viz"
	"github.com/harperreed/advisor-crm/workflow"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func field(label, value string) string {
	return fieldLabelStyle.Render(label) + fieldValueStyle.Render(value) + "\n"
}

func (m Model) renderDetailView() string {
	var s strings.Builder

	c, err := m.svc.Client(m.sess, m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: %v\n\n", err) + helpStyle.Render("esc: back")
	}

	s.WriteString(titleStyle.Render(c.FullName()))
	s.WriteString("\n")
	s.WriteString(field("Stage:", workflow.DisplayName(c.WorkflowStage)))
	s.WriteString(field("Email:", c.Email))
	s.WriteString(field("Phone:", c.Phone))
	s.WriteString(field("Address:", strings.TrimSpace(fmt.Sprintf("%s, %s %s", c.Address, c.PostalCode, c.City))))
	s.WriteString(field("Advisor:", c.AdvisorName))
	if c.Notes != "" {
		s.WriteString(field("Notes:", c.Notes))
	}

	if a, err := m.svc.Analysis(c.ID); err == nil {
		state := "in progress"
		if a.IsComplete {
			state = "complete"
		}
		s.WriteString(field("Needs analysis:", fmt.Sprintf("%d%% (%s)", a.CompletionPercentage(), state)))
	} else {
		s.WriteString(field("Needs analysis:", "not started"))
	}

	p := m.svc.Potential(c.ID)
	s.WriteString("\n")
	s.WriteString(field("Potential:", fmt.Sprintf("%s (%s)", viz.FormatCZK(p.TotalExpectedCommission), p.Priority)))

	columns := []table.Column{
		{Title: "Product", Width: 24},
		{Title: "Interested", Width: 10},
		{Title: "Commission", Width: 14},
		{Title: "Notes", Width: 30},
	}
	var rows []table.Row
	for _, cat := range potential.Categories {
		line := potential.Line(&p, cat)
		interested := "no"
		if line.Interested {
			interested = "yes"
		}
		rows = append(rows, table.Row{cat.Label(), interested, viz.FormatCZK(line.ExpectedCommission), line.Notes})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)
	s.WriteString(t.View())
	s.WriteString("\n\n")

	tasks := m.svc.Store().TasksForClient(c.ID)
	s.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Tasks (%d)", len(tasks))))
	s.WriteString("\n")
	for _, task := range tasks {
		mark := "[ ]"
		if task.Completed {
			mark = "[x]"
		}
		s.WriteString(fmt.Sprintf("  %s %s (%s)\n", mark, task.Title, task.Priority))
	}

	meetings := m.svc.Store().MeetingsForClient(c.ID)
	s.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Meetings (%d)", len(meetings))))
	s.WriteString("\n")
	for _, mt := range meetings {
		s.WriteString(fmt.Sprintf("  %s  %s\n", mt.StartTime.Format("2006-01-02 15:04"), mt.Title))
	}

	if m.status != "" {
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("</>: previous/next stage • esc: back • q: quit"))
	return s.String()
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "esc", "backspace":
		m.viewMode = m.returnTo
		m.refresh()
	case "<", "shift+left":
		m.stepSelected(-1)
	case ">", "shift+right":
		m.stepSelected(1)
	}
	return m, nil
}

func (m *Model) stepSelected(dir int) {
	var err error
	var changed bool
	if dir < 0 {
		_, changed, err = m.svc.Retreat(m.selectedID)
	} else {
		_, changed, err = m.svc.Advance(m.selectedID)
	}
	switch {
	case err != nil:
		m.status = fmt.Sprintf("Error: %v", err)
	case changed:
		m.status = "Stage updated"
	}
}
