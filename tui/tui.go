// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive workflow board with client detail and search views
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/workflow"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewDetail
	ViewSearch
)

// Model is the main bubbletea model
type Model struct {
	svc  *crm.Service
	sess store.Session

	viewMode ViewMode

	// Board state
	board  []workflow.Column
	column int
	row    int

	// Search state
	search  textinput.Model
	results []models.Client
	result  int

	// Detail view state
	selectedID int64
	returnTo   ViewMode

	status string

	// UI state
	width  int
	height int
}

// NewModel creates a new TUI model for the session user
func NewModel(svc *crm.Service, sess store.Session) Model {
	search := textinput.New()
	search.Placeholder = "name, email or phone"
	search.CharLimit = 100

	m := Model{
		svc:      svc,
		sess:     sess,
		viewMode: ViewBoard,
		search:   search,
		width:    120,
		height:   30,
	}
	m.refresh()
	return m
}

func (m *Model) refresh() {
	m.board = m.svc.Board(m.sess)
	if m.column >= len(m.board) {
		m.column = len(m.board) - 1
	}
	m.clampRow()
}

func (m *Model) clampRow() {
	if len(m.board) == 0 {
		m.row = 0
		return
	}
	n := len(m.board[m.column].Clients)
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

// selected returns the client under the cursor on the board.
func (m Model) selected() (models.Client, bool) {
	if len(m.board) == 0 {
		return models.Client{}, false
	}
	clients := m.board[m.column].Clients
	if m.row < 0 || m.row >= len(clients) {
		return models.Client{}, false
	}
	return clients[m.row], true
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewBoard:
		return m.renderBoardView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewSearch:
		return m.renderSearchView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// q would otherwise be typed into the search box
	if msg.String() == "q" && m.viewMode != ViewSearch {
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewSearch:
		return m.handleSearchKeys(msg)
	}
	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)
