// ABOUTME: Client search view
// ABOUTME: Live search over visible clients with a selectable result list
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/advisor-crm/workflow"
)

func (m Model) renderSearchView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("SEARCH CLIENTS"))
	s.WriteString("\n")
	s.WriteString(m.search.View())
	s.WriteString("\n\n")

	if strings.TrimSpace(m.search.Value()) != "" && len(m.results) == 0 {
		s.WriteString("  No matching clients\n")
	}
	for i, c := range m.results {
		line := fmt.Sprintf("%s  (%s)", c.FullName(), workflow.DisplayName(c.WorkflowStage))
		if i == m.result {
			s.WriteString(cursorStyle.Render("> " + line))
		} else {
			s.WriteString("  " + line)
		}
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("type to search • ↑/↓: select • enter: open • esc: back"))
	return s.String()
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.search.Blur()
		m.viewMode = ViewBoard
		return m, nil
	case "up":
		if m.result > 0 {
			m.result--
		}
		return m, nil
	case "down":
		if m.result < len(m.results)-1 {
			m.result++
		}
		return m, nil
	case "enter":
		if m.result < len(m.results) {
			m.selectedID = m.results[m.result].ID
			m.returnTo = ViewSearch
			m.viewMode = ViewDetail
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.results = nil
	m.result = 0
	if q := strings.TrimSpace(m.search.Value()); q != "" {
		m.results = m.svc.SearchClients(m.sess, q)
	}
	return m, cmd
}

// Run starts the board as a full-screen program.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
