// ABOUTME: Task and meeting operations of the service
// ABOUTME: Edge validation of titles, priorities, due dates and meeting times before each commit
package crm

import (
	"strings"
	"time"

	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

func validDueDate(raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(models.DateLayout, raw); err != nil {
		return invalid("due date %q is not YYYY-MM-DD", raw)
	}
	return nil
}

// CreateTask validates and stores a task created by the session user.
func (s *Service) CreateTask(sess store.Session, t models.Task) (models.Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return models.Task{}, invalid("task title is required")
	}
	if t.Priority != "" {
		p, err := models.ParseTaskPriority(string(t.Priority))
		if err != nil {
			return models.Task{}, invalid("%v", err)
		}
		t.Priority = p
	}
	if err := validDueDate(t.DueDate); err != nil {
		return models.Task{}, err
	}
	created, err := s.store.CreateTask(sess, t)
	if err != nil {
		return models.Task{}, err
	}
	s.logger.Info("created task", "id", created.ID, "title", created.Title)
	push(s, mirror.Tasks, created)
	return created, nil
}

// UpdateTask merges patch into task id.
func (s *Service) UpdateTask(id int64, patch store.TaskPatch) (models.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Task{}, invalid("task title cannot be empty")
	}
	if patch.Priority != nil {
		p, err := models.ParseTaskPriority(string(*patch.Priority))
		if err != nil {
			return models.Task{}, invalid("%v", err)
		}
		patch.Priority = &p
	}
	if patch.DueDate != nil {
		if err := validDueDate(*patch.DueDate); err != nil {
			return models.Task{}, err
		}
	}
	t, err := s.store.UpdateTask(id, patch)
	if err != nil {
		return models.Task{}, err
	}
	push(s, mirror.Tasks, t)
	return t, nil
}

// CompleteTask marks task id completed. Tasks cannot be reopened; completing
// twice reports false and pushes nothing.
func (s *Service) CompleteTask(id int64) (models.Task, bool, error) {
	t, changed, err := s.store.CompleteTask(id)
	if err != nil || !changed {
		return t, changed, err
	}
	s.logger.Info("completed task", "id", id)
	push(s, mirror.Tasks, t)
	return t, true, nil
}

// DeleteTask removes task id.
func (s *Service) DeleteTask(id int64) (bool, error) {
	removed, err := s.store.DeleteTask(id)
	if err != nil || !removed {
		return removed, err
	}
	pushDelete(s, mirror.Tasks, id)
	return true, nil
}

// ValidateMeetingTimes rejects a meeting that does not end after it starts.
func ValidateMeetingTimes(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return invalid("meeting start and end time are required")
	}
	if !end.After(start) {
		return invalid("meeting must end after it starts")
	}
	return nil
}

// CreateMeeting validates and stores a meeting owned by the session user.
func (s *Service) CreateMeeting(sess store.Session, m models.Meeting) (models.Meeting, error) {
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		return models.Meeting{}, invalid("meeting title is required")
	}
	if err := ValidateMeetingTimes(m.StartTime, m.EndTime); err != nil {
		return models.Meeting{}, err
	}
	if m.ClientID != nil {
		if _, err := s.store.Client(*m.ClientID); err != nil {
			return models.Meeting{}, err
		}
	}
	created, err := s.store.CreateMeeting(sess, m)
	if err != nil {
		return models.Meeting{}, err
	}
	s.logger.Info("created meeting", "id", created.ID, "start", created.StartTime)
	push(s, mirror.Meetings, created)
	return created, nil
}

// UpdateMeeting merges patch into meeting id. The resulting times must
// still be ordered.
func (s *Service) UpdateMeeting(id int64, patch store.MeetingPatch) (models.Meeting, error) {
	cur, err := s.store.Meeting(id)
	if err != nil {
		return models.Meeting{}, err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Meeting{}, invalid("meeting title cannot be empty")
	}
	start, end := cur.StartTime, cur.EndTime
	if patch.StartTime != nil {
		start = *patch.StartTime
	}
	if patch.EndTime != nil {
		end = *patch.EndTime
	}
	if patch.StartTime != nil || patch.EndTime != nil {
		if err := ValidateMeetingTimes(start, end); err != nil {
			return models.Meeting{}, err
		}
	}
	m, err := s.store.UpdateMeeting(id, patch)
	if err != nil {
		return models.Meeting{}, err
	}
	push(s, mirror.Meetings, m)
	return m, nil
}

// DeleteMeeting removes meeting id.
func (s *Service) DeleteMeeting(id int64) (bool, error) {
	removed, err := s.store.DeleteMeeting(id)
	if err != nil || !removed {
		return removed, err
	}
	pushDelete(s, mirror.Meetings, id)
	return true, nil
}

// SaveImportedMeeting upserts a meeting keyed by its Google event id. The
// bool reports whether a new meeting was created.
func (s *Service) SaveImportedMeeting(sess store.Session, m models.Meeting) (models.Meeting, bool, error) {
	if existing, ok := s.store.MeetingByGoogleEventID(m.GoogleEventID); ok {
		patch := store.MeetingPatch{
			Title:       &m.Title,
			Description: &m.Description,
			StartTime:   &m.StartTime,
			EndTime:     &m.EndTime,
			Location:    &m.Location,
		}
		updated, err := s.store.UpdateMeeting(existing.ID, patch)
		if err != nil {
			return models.Meeting{}, false, err
		}
		push(s, mirror.Meetings, updated)
		return updated, false, nil
	}
	created, err := s.store.CreateMeeting(sess, m)
	if err != nil {
		return models.Meeting{}, false, err
	}
	push(s, mirror.Meetings, created)
	return created, true, nil
}
