// ABOUTME: Meeting operations of the entity store
// ABOUTME: Owner-filtered listing, per-day and per-week calendar views, Google event lookup
package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/advisor-crm/models"
)

// MeetingPatch carries the meeting fields to change; nil fields are left alone.
type MeetingPatch struct {
	Title       *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Location    *string
	MeetingType *string
	Notes       *string
	ClientID    *int64
}

// CalendarDay is one day of a week view.
type CalendarDay struct {
	Date     time.Time        `json:"date"`
	Meetings []models.Meeting `json:"meetings"`
}

// VisibleMeetings lists the session user's meetings by start time.
func (s *Store) VisibleMeetings(sess Session) []models.Meeting {
	meetings := s.Meetings.Filter(sess.CanSeeMeeting)
	sortMeetings(meetings)
	return meetings
}

// MeetingsForClient lists every meeting referencing clientID.
func (s *Store) MeetingsForClient(clientID int64) []models.Meeting {
	meetings := s.Meetings.Filter(func(m models.Meeting) bool { return m.ClientID != nil && *m.ClientID == clientID })
	sortMeetings(meetings)
	return meetings
}

// MeetingsOn lists visible meetings starting on the calendar day of day.
func (s *Store) MeetingsOn(sess Session, day time.Time) []models.Meeting {
	start := startOfDay(day)
	end := start.AddDate(0, 0, 1)
	meetings := s.Meetings.Filter(func(m models.Meeting) bool {
		if !sess.CanSeeMeeting(m) {
			return false
		}
		st := m.StartTime.In(day.Location())
		return !st.Before(start) && st.Before(end)
	})
	sortMeetings(meetings)
	return meetings
}

// Week returns the Monday-to-Sunday week containing day.
func (s *Store) Week(sess Session, day time.Time) []CalendarDay {
	monday := StartOfWeek(day)
	week := make([]CalendarDay, 7)
	for i := range week {
		d := monday.AddDate(0, 0, i)
		meetings := s.MeetingsOn(sess, d)
		if meetings == nil {
			meetings = []models.Meeting{}
		}
		week[i] = CalendarDay{Date: d, Meetings: meetings}
	}
	return week
}

// StartOfWeek returns midnight of the Monday on or before t.
func StartOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sortMeetings(meetings []models.Meeting) {
	sort.SliceStable(meetings, func(i, j int) bool {
		if !meetings[i].StartTime.Equal(meetings[j].StartTime) {
			return meetings[i].StartTime.Before(meetings[j].StartTime)
		}
		return meetings[i].ID < meetings[j].ID
	})
}

// Meeting returns a meeting by id.
func (s *Store) Meeting(id int64) (models.Meeting, error) {
	m, ok := s.Meetings.Get(id)
	if !ok {
		return models.Meeting{}, fmt.Errorf("meeting %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// MeetingByGoogleEventID finds a meeting imported from Google Calendar.
func (s *Store) MeetingByGoogleEventID(eventID string) (models.Meeting, bool) {
	if eventID == "" {
		return models.Meeting{}, false
	}
	return s.Meetings.Find(func(m models.Meeting) bool { return m.GoogleEventID == eventID })
}

// CreateMeeting stores a meeting owned by the session user. A zero start or
// end time defaults to now.
func (s *Store) CreateMeeting(sess Session, m models.Meeting) (models.Meeting, error) {
	now := s.now()
	if m.StartTime.IsZero() {
		m.StartTime = now
	}
	if m.EndTime.IsZero() {
		m.EndTime = now
	}
	m.UserID = sess.UserID()
	return s.Meetings.Insert(m)
}

// UpdateMeeting merges patch into the meeting.
func (s *Store) UpdateMeeting(id int64, patch MeetingPatch) (models.Meeting, error) {
	m, _, err := s.Meetings.Update(id, func(m *models.Meeting, _ time.Time) bool {
		setIf(&m.Title, patch.Title)
		setIf(&m.Description, patch.Description)
		setIf(&m.StartTime, patch.StartTime)
		setIf(&m.EndTime, patch.EndTime)
		setIf(&m.Location, patch.Location)
		setIf(&m.MeetingType, patch.MeetingType)
		setIf(&m.Notes, patch.Notes)
		if patch.ClientID != nil {
			id := *patch.ClientID
			m.ClientID = &id
		}
		return true
	})
	return m, err
}

// DeleteMeeting removes the meeting and reports whether it existed.
func (s *Store) DeleteMeeting(id int64) (bool, error) {
	return s.Meetings.Delete(id)
}
