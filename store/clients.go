// ABOUTME: Client operations of the entity store
// ABOUTME: Visibility-filtered listing, search, create with defaults, patch updates and stage moves
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/workflow"
)

// ClientPatch carries the fields to change; nil fields are left alone.
type ClientPatch struct {
	FirstName        *string
	LastName         *string
	DateOfBirth      *string
	Email            *string
	Phone            *string
	Address          *string
	City             *string
	PostalCode       *string
	Notes            *string
	WorkflowStage    *models.WorkflowStage
	HasNeedsAnalysis *bool
	DocumentsCount   *int
	MeetingsCount    *int
}

func (p ClientPatch) apply(c *models.Client) {
	setIf(&c.FirstName, p.FirstName)
	setIf(&c.LastName, p.LastName)
	setIf(&c.DateOfBirth, p.DateOfBirth)
	setIf(&c.Email, p.Email)
	setIf(&c.Phone, p.Phone)
	setIf(&c.Address, p.Address)
	setIf(&c.City, p.City)
	setIf(&c.PostalCode, p.PostalCode)
	setIf(&c.Notes, p.Notes)
	setIf(&c.WorkflowStage, p.WorkflowStage)
	setIf(&c.HasNeedsAnalysis, p.HasNeedsAnalysis)
	setIf(&c.DocumentsCount, p.DocumentsCount)
	setIf(&c.MeetingsCount, p.MeetingsCount)
}

func setIf[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}

// VisibleClients lists the clients the session may see.
func (s *Store) VisibleClients(sess Session) []models.Client {
	return s.Clients.Filter(sess.CanSeeClient)
}

// Client returns a client by id regardless of visibility.
func (s *Store) Client(id int64) (models.Client, error) {
	c, ok := s.Clients.Get(id)
	if !ok {
		return models.Client{}, fmt.Errorf("client %d: %w", id, ErrNotFound)
	}
	return c, nil
}

// SearchClients matches query case-insensitively against name, email and phone.
func (s *Store) SearchClients(sess Session, query string) []models.Client {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.Clients.Filter(func(c models.Client) bool {
		if !sess.CanSeeClient(c) {
			return false
		}
		for _, field := range []string{c.FirstName, c.LastName, c.Email, c.Phone} {
			if strings.Contains(strings.ToLower(field), q) {
				return true
			}
		}
		return false
	})
}

// CreateClient stores a new client owned by the session user. An empty stage
// defaults to NAVOLANI; counters start at zero.
func (s *Store) CreateClient(sess Session, c models.Client) (models.Client, error) {
	if c.WorkflowStage == "" {
		c.WorkflowStage = models.StageNavolani
	}
	if !c.WorkflowStage.Valid() {
		return models.Client{}, fmt.Errorf("invalid stage: %s", c.WorkflowStage)
	}
	c.AdvisorID = sess.UserID()
	c.AdvisorName = ""
	if sess.User != nil {
		c.AdvisorName = sess.User.FullName()
	}
	c.HasNeedsAnalysis = false
	c.DocumentsCount = 0
	c.MeetingsCount = 0
	return s.Clients.Insert(c)
}

// UpdateClient merges patch into the client and bumps UpdatedAt.
func (s *Store) UpdateClient(id int64, patch ClientPatch) (models.Client, error) {
	if patch.WorkflowStage != nil && !patch.WorkflowStage.Valid() {
		return models.Client{}, fmt.Errorf("invalid stage: %s", *patch.WorkflowStage)
	}
	c, _, err := s.Clients.Update(id, func(c *models.Client, _ time.Time) bool {
		patch.apply(c)
		return true
	})
	return c, err
}

// TransitionClient moves a client to stage. The bool is false when the client
// already was in that stage, in which case nothing is written.
func (s *Store) TransitionClient(id int64, stage models.WorkflowStage) (models.Client, bool, error) {
	if !stage.Valid() {
		return models.Client{}, false, fmt.Errorf("invalid stage: %s", stage)
	}
	return s.Clients.Update(id, func(c *models.Client, now time.Time) bool {
		return workflow.Transition(c, stage, now)
	})
}

// DeleteClient removes the client and reports whether it existed.
func (s *Store) DeleteClient(id int64) (bool, error) {
	return s.Clients.Delete(id)
}
