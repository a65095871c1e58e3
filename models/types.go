// ABOUTME: Data models for advisor CRM entities
// ABOUTME: Defines User, Client, ClientPotential, Task, Meeting and their enumerations
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the organisational role of a CRM user.
type Role string

const (
	RoleLead      Role = "VEDOUCI"
	RoleAdvisor   Role = "PORADCE"
	RoleAssistant Role = "ASISTENT"
)

// WorkflowStage is one of the six fixed pipeline stages.
type WorkflowStage string

const (
	StageNavolani        WorkflowStage = "NAVOLANI"
	StageAnalyzaPotreb   WorkflowStage = "ANALYZA_POTREB"
	StageZpracovani      WorkflowStage = "ZPRACOVANI"
	StageProdejniSchuzka WorkflowStage = "PRODEJNI_SCHUZKA"
	StagePodpis          WorkflowStage = "PODPIS"
	StageServis          WorkflowStage = "SERVIS"
)

// Stages lists every pipeline stage in board display order.
var Stages = []WorkflowStage{
	StageNavolani,
	StageAnalyzaPotreb,
	StageZpracovani,
	StageProdejniSchuzka,
	StagePodpis,
	StageServis,
}

// Valid reports whether s is one of the enumerated stages.
func (s WorkflowStage) Valid() bool {
	for _, stage := range Stages {
		if stage == s {
			return true
		}
	}
	return false
}

// ParseStage accepts a stage name in any case, with dashes or underscores.
func ParseStage(raw string) (WorkflowStage, error) {
	s := WorkflowStage(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")))
	if !s.Valid() {
		return "", fmt.Errorf("invalid stage: %s (valid: %s)", raw, stageList())
	}
	return s, nil
}

func stageList() string {
	names := make([]string, len(Stages))
	for i, s := range Stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// TaskPriority is the four-level ordinal priority of a task.
type TaskPriority string

const (
	TaskLow    TaskPriority = "LOW"
	TaskMedium TaskPriority = "MEDIUM"
	TaskHigh   TaskPriority = "HIGH"
	TaskUrgent TaskPriority = "URGENT"
)

// Rank orders task priorities, higher is more pressing.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskUrgent:
		return 3
	case TaskHigh:
		return 2
	case TaskMedium:
		return 1
	default:
		return 0
	}
}

// ParseTaskPriority validates a task priority name.
func ParseTaskPriority(raw string) (TaskPriority, error) {
	p := TaskPriority(strings.ToUpper(strings.TrimSpace(raw)))
	switch p {
	case TaskLow, TaskMedium, TaskHigh, TaskUrgent:
		return p, nil
	}
	return "", fmt.Errorf("invalid task priority: %s (valid: LOW, MEDIUM, HIGH, URGENT)", raw)
}

// PotentialPriority is the tier derived from a client's expected commission.
type PotentialPriority string

const (
	PotentialLow    PotentialPriority = "NIZKY"
	PotentialMedium PotentialPriority = "STREDNI"
	PotentialHigh   PotentialPriority = "VYSOKY"
)

// ParsePotentialPriority accepts either the stored value or LOW/MEDIUM/HIGH.
func ParsePotentialPriority(raw string) (PotentialPriority, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "NIZKY", "LOW":
		return PotentialLow, nil
	case "STREDNI", "MEDIUM":
		return PotentialMedium, nil
	case "VYSOKY", "HIGH":
		return PotentialHigh, nil
	}
	return "", fmt.Errorf("invalid potential priority: %s (valid: LOW, MEDIUM, HIGH)", raw)
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

type Client struct {
	ID               int64         `json:"id"`
	FirstName        string        `json:"firstName"`
	LastName         string        `json:"lastName"`
	DateOfBirth      string        `json:"dateOfBirth,omitempty"` // YYYY-MM-DD
	Email            string        `json:"email"`
	Phone            string        `json:"phone,omitempty"`
	Address          string        `json:"address,omitempty"`
	City             string        `json:"city,omitempty"`
	PostalCode       string        `json:"postalCode,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	WorkflowStage    WorkflowStage `json:"workflowStage"`
	AdvisorID        int64         `json:"advisorId"`
	AdvisorName      string        `json:"advisorName"`
	HasNeedsAnalysis bool          `json:"hasNeedsAnalysis"`
	DocumentsCount   int           `json:"documentsCount"`
	MeetingsCount    int           `json:"meetingsCount"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// FullName joins first and last name.
func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// CommissionLine is a single product category of a client's potential.
type CommissionLine struct {
	Interested         bool    `json:"interested"`
	ExpectedCommission float64 `json:"expectedCommission"`
	Notes              string  `json:"notes,omitempty"`
}

// NonLifeInsurance groups the four non-life insurance sub-categories.
type NonLifeInsurance struct {
	Auto      CommissionLine `json:"auto"`
	Property  CommissionLine `json:"property"`
	Household CommissionLine `json:"household"`
	Liability CommissionLine `json:"liability"`
}

type ClientPotential struct {
	ID                      int64             `json:"id"`
	ClientID                int64             `json:"clientId"`
	LifeInsurance           CommissionLine    `json:"lifeInsurance"`
	Investments             CommissionLine    `json:"investments"`
	Mortgage                CommissionLine    `json:"mortgage"`
	NonLifeInsurance        NonLifeInsurance  `json:"nonLifeInsurance"`
	TotalExpectedCommission float64           `json:"totalExpectedCommission"`
	Priority                PotentialPriority `json:"priority"`
	CreatedAt               time.Time         `json:"createdAt"`
	UpdatedAt               time.Time         `json:"updatedAt"`
}

type Task struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Priority     TaskPriority `json:"priority"`
	DueDate      string       `json:"dueDate,omitempty"` // YYYY-MM-DD
	Completed    bool         `json:"completed"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
	CreatedByID  int64        `json:"createdById"`
	AssignedToID int64        `json:"assignedToId"`
	ClientID     *int64       `json:"clientId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// DueOn parses the due date. The second result is false when no date is set
// or the stored value is not a date.
func (t Task) DueOn() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	if d, err := time.ParseInLocation(DateLayout, t.DueDate, time.Local); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, t.DueDate); err == nil {
		return d, true
	}
	return time.Time{}, false
}

// Overdue reports whether an open task's due date lies before the day of now.
func (t Task) Overdue(now time.Time) bool {
	if t.Completed {
		return false
	}
	due, ok := t.DueOn()
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(today)
}

type Meeting struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Location      string    `json:"location,omitempty"`
	MeetingType   string    `json:"meetingType,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	UserID        int64     `json:"userId"`
	ClientID      *int64    `json:"clientId,omitempty"`
	GoogleEventID string    `json:"googleEventId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DateLayout is the calendar-date format used by date-only fields.
const DateLayout = "2006-01-02"
