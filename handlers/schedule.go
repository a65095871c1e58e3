// ABOUTME: Task and meeting MCP tool handlers
// ABOUTME: Implements add_task, list_tasks, complete_task, add_meeting and list_meetings
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

type ScheduleHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewScheduleHandlers(svc *crm.Service, sess store.Session) *ScheduleHandlers {
	return &ScheduleHandlers{svc: svc, sess: sess}
}

type TaskOutput struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Priority     string `json:"priority"`
	DueDate      string `json:"due_date,omitempty"`
	Completed    bool   `json:"completed"`
	Overdue      bool   `json:"overdue"`
	AssignedToID int64  `json:"assigned_to_id"`
	ClientID     *int64 `json:"client_id,omitempty"`
}

func (h *ScheduleHandlers) taskToOutput(t models.Task) TaskOutput {
	return TaskOutput{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Priority:     string(t.Priority),
		DueDate:      t.DueDate,
		Completed:    t.Completed,
		Overdue:      t.Overdue(h.svc.Store().Now()),
		AssignedToID: t.AssignedToID,
		ClientID:     t.ClientID,
	}
}

type AddTaskInput struct {
	Title        string `json:"title" jsonschema:"Task title (required)"`
	Description  string `json:"description,omitempty" jsonschema:"Task description"`
	Priority     string `json:"priority,omitempty" jsonschema:"LOW, MEDIUM, HIGH or URGENT (default MEDIUM)"`
	DueDate      string `json:"due_date,omitempty" jsonschema:"Due date (YYYY-MM-DD)"`
	ClientID     int64  `json:"client_id,omitempty" jsonschema:"Related client ID"`
	AssignedToID int64  `json:"assigned_to_id,omitempty" jsonschema:"Assignee user ID (default: you)"`
}

func (h *ScheduleHandlers) AddTask(_ context.Context, request *mcp.CallToolRequest, input AddTaskInput) (*mcp.CallToolResult, TaskOutput, error) {
	t := models.Task{
		Title:        input.Title,
		Description:  input.Description,
		Priority:     models.TaskPriority(input.Priority),
		DueDate:      input.DueDate,
		AssignedToID: input.AssignedToID,
	}
	if input.ClientID != 0 {
		id := input.ClientID
		t.ClientID = &id
	}
	created, err := h.svc.CreateTask(h.sess, t)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to create task: %w", err)
	}
	return nil, h.taskToOutput(created), nil
}

type ListTasksInput struct {
	Filter   string `json:"filter,omitempty" jsonschema:"pending, completed, overdue or all (default pending)"`
	ClientID int64  `json:"client_id,omitempty" jsonschema:"Only tasks of this client"`
}

type ListTasksOutput struct {
	Tasks []TaskOutput `json:"tasks"`
}

func (h *ScheduleHandlers) ListTasks(_ context.Context, request *mcp.CallToolRequest, input ListTasksInput) (*mcp.CallToolResult, ListTasksOutput, error) {
	st := h.svc.Store()
	var tasks []models.Task
	switch input.Filter {
	case "", "pending":
		tasks = st.PendingTasks(h.sess)
	case "completed":
		tasks = st.CompletedTasks(h.sess)
	case "overdue":
		tasks = st.OverdueTasks(h.sess)
	case "all":
		tasks = st.VisibleTasks(h.sess)
	default:
		return nil, ListTasksOutput{}, fmt.Errorf("invalid filter: %s (valid: pending, completed, overdue, all)", input.Filter)
	}

	out := ListTasksOutput{Tasks: []TaskOutput{}}
	for _, t := range tasks {
		if input.ClientID != 0 && (t.ClientID == nil || *t.ClientID != input.ClientID) {
			continue
		}
		out.Tasks = append(out.Tasks, h.taskToOutput(t))
	}
	return nil, out, nil
}

type TaskIDInput struct {
	ID int64 `json:"id" jsonschema:"Task ID (required)"`
}

func (h *ScheduleHandlers) CompleteTask(_ context.Context, request *mcp.CallToolRequest, input TaskIDInput) (*mcp.CallToolResult, TaskOutput, error) {
	t, err := h.svc.Store().Task(input.ID)
	if err != nil {
		return nil, TaskOutput{}, err
	}
	if !h.sess.CanSeeTask(t) {
		return nil, TaskOutput{}, fmt.Errorf("task %d: %w", input.ID, store.ErrNotFound)
	}
	done, _, err := h.svc.CompleteTask(input.ID)
	if err != nil {
		return nil, TaskOutput{}, fmt.Errorf("failed to complete task: %w", err)
	}
	return nil, h.taskToOutput(done), nil
}

type MeetingOutput struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location,omitempty"`
	MeetingType string `json:"meeting_type,omitempty"`
	ClientID    *int64 `json:"client_id,omitempty"`
}

func meetingToOutput(m models.Meeting) MeetingOutput {
	return MeetingOutput{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		StartTime:   m.StartTime.Format(time.RFC3339),
		EndTime:     m.EndTime.Format(time.RFC3339),
		Location:    m.Location,
		MeetingType: m.MeetingType,
		ClientID:    m.ClientID,
	}
}

type AddMeetingInput struct {
	Title       string `json:"title" jsonschema:"Meeting title (required)"`
	StartTime   string `json:"start_time" jsonschema:"Start time (RFC3339, required)"`
	EndTime     string `json:"end_time,omitempty" jsonschema:"End time (RFC3339, default start + 1h)"`
	Description string `json:"description,omitempty" jsonschema:"Meeting description"`
	Location    string `json:"location,omitempty" jsonschema:"Location"`
	MeetingType string `json:"meeting_type,omitempty" jsonschema:"Meeting type"`
	ClientID    int64  `json:"client_id,omitempty" jsonschema:"Related client ID"`
}

func (h *ScheduleHandlers) AddMeeting(_ context.Context, request *mcp.CallToolRequest, input AddMeetingInput) (*mcp.CallToolResult, MeetingOutput, error) {
	start, err := time.Parse(time.RFC3339, input.StartTime)
	if err != nil {
		return nil, MeetingOutput{}, fmt.Errorf("invalid start_time: %w", err)
	}
	end := start.Add(time.Hour)
	if input.EndTime != "" {
		end, err = time.Parse(time.RFC3339, input.EndTime)
		if err != nil {
			return nil, MeetingOutput{}, fmt.Errorf("invalid end_time: %w", err)
		}
	}

	m := models.Meeting{
		Title:       input.Title,
		Description: input.Description,
		StartTime:   start,
		EndTime:     end,
		Location:    input.Location,
		MeetingType: input.MeetingType,
	}
	if input.ClientID != 0 {
		id := input.ClientID
		m.ClientID = &id
	}
	created, err := h.svc.CreateMeeting(h.sess, m)
	if err != nil {
		return nil, MeetingOutput{}, fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil, meetingToOutput(created), nil
}

type ListMeetingsInput struct {
	Date string `json:"date,omitempty" jsonschema:"Day to list (YYYY-MM-DD, default today)"`
	Week bool   `json:"week,omitempty" jsonschema:"List the whole Monday-to-Sunday week containing date"`
}

type ListMeetingsOutput struct {
	Meetings []MeetingOutput `json:"meetings"`
}

func (h *ScheduleHandlers) ListMeetings(_ context.Context, request *mcp.CallToolRequest, input ListMeetingsInput) (*mcp.CallToolResult, ListMeetingsOutput, error) {
	st := h.svc.Store()
	day := st.Now()
	if input.Date != "" {
		d, err := time.ParseInLocation(models.DateLayout, input.Date, day.Location())
		if err != nil {
			return nil, ListMeetingsOutput{}, fmt.Errorf("invalid date: %w", err)
		}
		day = d
	}

	var meetings []models.Meeting
	if input.Week {
		for _, d := range st.Week(h.sess, day) {
			meetings = append(meetings, d.Meetings...)
		}
	} else {
		meetings = st.MeetingsOn(h.sess, day)
	}

	out := ListMeetingsOutput{Meetings: []MeetingOutput{}}
	for _, m := range meetings {
		out.Meetings = append(out.Meetings, meetingToOutput(m))
	}
	return nil, out, nil
}
