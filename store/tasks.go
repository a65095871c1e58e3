// ABOUTME: Task operations of the entity store
// ABOUTME: Create with ownership defaults, one-way completion and pending/completed/overdue filters
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/advisor-crm/models"
)

// TaskPatch carries the task fields to change; nil fields are left alone.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	DueDate      *string
	AssignedToID *int64
	ClientID     *int64
}

// VisibleTasks lists the tasks assigned to or created by the session user,
// most pressing first.
func (s *Store) VisibleTasks(sess Session) []models.Task {
	tasks := s.Tasks.Filter(sess.CanSeeTask)
	sortTasks(tasks)
	return tasks
}

// PendingTasks lists visible open tasks.
func (s *Store) PendingTasks(sess Session) []models.Task {
	tasks := s.Tasks.Filter(func(t models.Task) bool { return sess.CanSeeTask(t) && !t.Completed })
	sortTasks(tasks)
	return tasks
}

// CompletedTasks lists visible completed tasks.
func (s *Store) CompletedTasks(sess Session) []models.Task {
	tasks := s.Tasks.Filter(func(t models.Task) bool { return sess.CanSeeTask(t) && t.Completed })
	sortTasks(tasks)
	return tasks
}

// OverdueTasks lists visible open tasks whose due date has passed.
func (s *Store) OverdueTasks(sess Session) []models.Task {
	now := s.now()
	tasks := s.Tasks.Filter(func(t models.Task) bool { return sess.CanSeeTask(t) && t.Overdue(now) })
	sortTasks(tasks)
	return tasks
}

// TasksForClient lists every task referencing clientID.
func (s *Store) TasksForClient(clientID int64) []models.Task {
	tasks := s.Tasks.Filter(func(t models.Task) bool { return t.ClientID != nil && *t.ClientID == clientID })
	sortTasks(tasks)
	return tasks
}

func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Completed != tasks[j].Completed {
			return !tasks[i].Completed
		}
		if ri, rj := tasks[i].Priority.Rank(), tasks[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// Task returns a task by id.
func (s *Store) Task(id int64) (models.Task, error) {
	t, ok := s.Tasks.Get(id)
	if !ok {
		return models.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return t, nil
}

// CreateTask stores an open task created by the session user. Priority
// defaults to MEDIUM and the assignee to the creator.
func (s *Store) CreateTask(sess Session, t models.Task) (models.Task, error) {
	if t.Priority == "" {
		t.Priority = models.TaskMedium
	}
	if _, err := models.ParseTaskPriority(string(t.Priority)); err != nil {
		return models.Task{}, err
	}
	t.CreatedByID = sess.UserID()
	if t.AssignedToID == 0 {
		t.AssignedToID = sess.UserID()
	}
	t.Completed = false
	t.CompletedAt = nil
	return s.Tasks.Insert(t)
}

// UpdateTask merges patch into the task.
func (s *Store) UpdateTask(id int64, patch TaskPatch) (models.Task, error) {
	if patch.Priority != nil {
		if _, err := models.ParseTaskPriority(string(*patch.Priority)); err != nil {
			return models.Task{}, err
		}
	}
	t, _, err := s.Tasks.Update(id, func(t *models.Task, _ time.Time) bool {
		setIf(&t.Title, patch.Title)
		setIf(&t.Description, patch.Description)
		setIf(&t.Priority, patch.Priority)
		setIf(&t.DueDate, patch.DueDate)
		setIf(&t.AssignedToID, patch.AssignedToID)
		if patch.ClientID != nil {
			id := *patch.ClientID
			t.ClientID = &id
		}
		return true
	})
	return t, err
}

// CompleteTask marks the task completed. Completing a completed task changes
// nothing and reports false.
func (s *Store) CompleteTask(id int64) (models.Task, bool, error) {
	return s.Tasks.Update(id, func(t *models.Task, now time.Time) bool {
		if t.Completed {
			return false
		}
		t.Completed = true
		t.CompletedAt = &now
		return true
	})
}

// DeleteTask removes the task and reports whether it existed.
func (s *Store) DeleteTask(id int64) (bool, error) {
	return s.Tasks.Delete(id)
}
