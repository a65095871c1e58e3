// ABOUTME: Session handling and role-based record visibility
// ABOUTME: Login, logout and current user persisted in the session slot
package store

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/harperreed/advisor-crm/models"
)

// Session identifies who is acting. The zero Session is anonymous and sees
// no owned records.
type Session struct {
	User *models.User
}

// IsLead reports whether the session belongs to a VEDOUCI user.
func (s Session) IsLead() bool {
	return s.User != nil && s.User.Role == models.RoleLead
}

// UserID is the session user's id, or 0 when anonymous.
func (s Session) UserID() int64 {
	if s.User == nil {
		return 0
	}
	return s.User.ID
}

// CanSeeClient applies the advisor ownership rule.
func (s Session) CanSeeClient(c models.Client) bool {
	if s.IsLead() {
		return true
	}
	return s.User != nil && c.AdvisorID == s.User.ID
}

// CanSeeMeeting applies the meeting owner rule.
func (s Session) CanSeeMeeting(m models.Meeting) bool {
	if s.IsLead() {
		return true
	}
	return s.User != nil && m.UserID == s.User.ID
}

// CanSeeTask shows tasks assigned to or created by the user.
func (s Session) CanSeeTask(t models.Task) bool {
	if s.IsLead() {
		return true
	}
	return s.User != nil && (t.AssignedToID == s.User.ID || t.CreatedByID == s.User.ID)
}

// Login checks the demo password for username and stores the session.
func (s *Store) Login(username, password string) (Session, error) {
	u, ok := s.Users.Find(func(u models.User) bool { return u.Username == username })
	if !ok || password != s.demoPassword {
		return Session{}, ErrInvalidCredentials
	}

	data, err := json.Marshal(u)
	if err != nil {
		return Session{}, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.backend.Set(sessionKey, data); err != nil {
		return Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	s.logger.Info("user logged in", "username", u.Username, "role", u.Role)
	return Session{User: &u}, nil
}

// Logout clears the stored session.
func (s *Store) Logout() error {
	if err := s.backend.Delete(sessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// CurrentSession returns the stored session, anonymous when nobody is logged in.
func (s *Store) CurrentSession() (Session, error) {
	data, ok, err := s.backend.Get(sessionKey)
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return Session{}, nil
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return Session{User: &u}, nil
}

// SessionFor builds a session for username without checking a password.
// Used by surfaces that authenticate on their own, like --user.
func (s *Store) SessionFor(username string) (Session, error) {
	u, ok := s.Users.Find(func(u models.User) bool { return u.Username == username })
	if !ok {
		return Session{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return Session{User: &u}, nil
}

// AllUsers lists every user ordered by id.
func (s *Store) AllUsers() []models.User {
	users := s.Users.All()
	slices.SortFunc(users, func(a, b models.User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users
}
