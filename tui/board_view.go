// ABOUTME: Workflow board view
// ABOUTME: One column per stage; clients move between stages with the shift arrows
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/advisor-crm/viz"
	"github.com/harperreed/advisor-crm/workflow"
)

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("WORKFLOW BOARD"))
	s.WriteString("\n")

	colWidth := m.width/len(m.board) - 4
	if colWidth < 16 {
		colWidth = 16
	}

	var cols []string
	for i, col := range m.board {
		cols = append(cols, m.renderColumn(i, col, colWidth))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	s.WriteString("\n")

	if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
		s.WriteString("\n")
	}
	for _, n := range m.svc.Notifier().Recent() {
		s.WriteString(statusStyle.Render("! " + n.Message))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("←/→: stage • ↑/↓: client • shift+←/→: move client • enter: detail • /: search • r: refresh • q: quit"))
	return s.String()
}

func (m Model) renderColumn(i int, col workflow.Column, width int) string {
	var s strings.Builder
	s.WriteString(lipgloss.NewStyle().Bold(true).Render(col.Name))
	s.WriteString(fmt.Sprintf("\n%d · %s\n", col.Count, viz.FormatCZK(col.TotalPotential)))
	s.WriteString(strings.Repeat("─", width))
	s.WriteString("\n")

	for j, c := range col.Clients {
		name := c.FullName()
		if i == m.column && j == m.row {
			s.WriteString(cursorStyle.Render("> " + name))
		} else {
			s.WriteString("  " + name)
		}
		s.WriteString("\n")
	}

	style := columnStyle
	if i == m.column {
		style = activeColumnStyle
	}
	return style.Width(width).Render(s.String())
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.String() {
	case "left", "h":
		if m.column > 0 {
			m.column--
			m.clampRow()
		}
	case "right", "l":
		if m.column < len(m.board)-1 {
			m.column++
			m.clampRow()
		}
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		m.row++
		m.clampRow()
	case "shift+left", "<":
		m.moveSelected(-1)
	case "shift+right", ">":
		m.moveSelected(1)
	case "enter":
		if c, ok := m.selected(); ok {
			m.selectedID = c.ID
			m.returnTo = ViewBoard
			m.viewMode = ViewDetail
		}
	case "/":
		m.viewMode = ViewSearch
		m.search.SetValue("")
		m.results = nil
		m.result = 0
		m.search.Focus()
		return m, textinput.Blink
	case "r":
		m.refresh()
	}
	return m, nil
}

// moveSelected moves the client under the cursor one stage in dir and keeps
// the cursor on it.
func (m *Model) moveSelected(dir int) {
	c, ok := m.selected()
	if !ok {
		return
	}

	var err error
	var changed bool
	if dir < 0 {
		_, changed, err = m.svc.Retreat(c.ID)
	} else {
		_, changed, err = m.svc.Advance(c.ID)
	}
	if err != nil {
		m.status = fmt.Sprintf("Error: %v", err)
		return
	}
	if !changed {
		return
	}

	m.refresh()
	m.column += dir
	for j, moved := range m.board[m.column].Clients {
		if moved.ID == c.ID {
			m.row = j
		}
	}
	m.status = fmt.Sprintf("Moved %s to %s", c.FullName(), m.board[m.column].Name)
}
