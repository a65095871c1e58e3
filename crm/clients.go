// ABOUTME: Client and workflow operations of the service
// ABOUTME: Validates input, commits to the store, pushes to the mirror and emits board events
package crm

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/workflow"
)

// ErrValidation marks input rejected before it reaches the store.
var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Clients lists the clients the session may see, sorted by name.
func (s *Service) Clients(sess store.Session) []models.Client {
	clients := s.store.VisibleClients(sess)
	sortByName(clients)
	return clients
}

// Client returns a client the session may see.
func (s *Service) Client(sess store.Session, id int64) (models.Client, error) {
	c, err := s.store.Client(id)
	if err != nil {
		return models.Client{}, err
	}
	if !sess.CanSeeClient(c) {
		return models.Client{}, fmt.Errorf("client %d: %w", id, store.ErrNotFound)
	}
	return c, nil
}

// SearchClients matches query against visible clients.
func (s *Service) SearchClients(sess store.Session, query string) []models.Client {
	clients := s.store.SearchClients(sess, query)
	sortByName(clients)
	return clients
}

func sortByName(clients []models.Client) {
	slices.SortFunc(clients, func(a, b models.Client) int {
		if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// CreateClient validates and stores a new client owned by the session user.
func (s *Service) CreateClient(sess store.Session, c models.Client) (models.Client, error) {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	if c.FirstName == "" || c.LastName == "" {
		return models.Client{}, invalid("first and last name are required")
	}
	if c.WorkflowStage != "" && !c.WorkflowStage.Valid() {
		return models.Client{}, invalid("unknown workflow stage %q", c.WorkflowStage)
	}
	created, err := s.store.CreateClient(sess, c)
	if err != nil {
		return models.Client{}, err
	}
	s.logger.Info("created client", "id", created.ID, "name", created.FullName())
	push(s, mirror.Clients, created)
	s.emit(Event{Type: EventClientSaved, ClientID: created.ID, To: created.WorkflowStage, Client: &created})
	return created, nil
}

// UpdateClient merges patch into client id.
func (s *Service) UpdateClient(id int64, patch store.ClientPatch) (models.Client, error) {
	if patch.FirstName != nil && strings.TrimSpace(*patch.FirstName) == "" {
		return models.Client{}, invalid("first name cannot be empty")
	}
	if patch.LastName != nil && strings.TrimSpace(*patch.LastName) == "" {
		return models.Client{}, invalid("last name cannot be empty")
	}
	if patch.WorkflowStage != nil && !patch.WorkflowStage.Valid() {
		return models.Client{}, invalid("unknown workflow stage %q", *patch.WorkflowStage)
	}
	before, err := s.store.Client(id)
	if err != nil {
		return models.Client{}, err
	}
	updated, err := s.store.UpdateClient(id, patch)
	if err != nil {
		return models.Client{}, err
	}
	push(s, mirror.Clients, updated)
	ev := Event{Type: EventClientSaved, ClientID: id, To: updated.WorkflowStage, Client: &updated}
	if before.WorkflowStage != updated.WorkflowStage {
		ev.Type = EventStageChanged
		ev.From = before.WorkflowStage
	}
	s.emit(ev)
	return updated, nil
}

// MoveClient moves a client to stage. Moving to the current stage changes
// nothing: no timestamp bump, no push and no event.
func (s *Service) MoveClient(id int64, stage models.WorkflowStage) (models.Client, bool, error) {
	if !stage.Valid() {
		return models.Client{}, false, invalid("unknown workflow stage %q", stage)
	}
	before, err := s.store.Client(id)
	if err != nil {
		return models.Client{}, false, err
	}
	moved, changed, err := s.store.TransitionClient(id, stage)
	if err != nil || !changed {
		return moved, false, err
	}
	s.logger.Info("moved client", "id", id, "from", before.WorkflowStage, "to", stage)
	push(s, mirror.Clients, moved)
	s.emit(Event{Type: EventStageChanged, ClientID: id, From: before.WorkflowStage, To: stage, Client: &moved})
	return moved, true, nil
}

// Advance moves a client one stage forward; at the last stage it is a no-op.
func (s *Service) Advance(id int64) (models.Client, bool, error) {
	c, err := s.store.Client(id)
	if err != nil {
		return models.Client{}, false, err
	}
	next, ok := workflow.Next(c.WorkflowStage)
	if !ok {
		return c, false, nil
	}
	return s.MoveClient(id, next)
}

// Retreat moves a client one stage back; at the first stage it is a no-op.
func (s *Service) Retreat(id int64) (models.Client, bool, error) {
	c, err := s.store.Client(id)
	if err != nil {
		return models.Client{}, false, err
	}
	prev, ok := workflow.Previous(c.WorkflowStage)
	if !ok {
		return c, false, nil
	}
	return s.MoveClient(id, prev)
}

// DeleteClient removes a client together with its potential and needs
// analysis. Tasks and meetings keep their weak reference.
func (s *Service) DeleteClient(id int64) (bool, error) {
	removed, err := s.store.DeleteClient(id)
	if err != nil || !removed {
		return removed, err
	}
	pushDelete(s, mirror.Clients, id)
	if p, ok := s.store.PotentialForClient(id); ok {
		if _, err := s.DeletePotential(p.ID); err != nil {
			return true, err
		}
	}
	if a, ok := s.store.AnalysisForClient(id); ok {
		if _, err := s.DeleteAnalysis(a.ID); err != nil {
			return true, err
		}
	}
	s.logger.Info("deleted client", "id", id)
	s.emit(Event{Type: EventClientDeleted, ClientID: id})
	return true, nil
}

// Board returns every stage with its visible clients and summed potential.
func (s *Service) Board(sess store.Session) []workflow.Column {
	return workflow.Board(s.store.VisibleClients(sess), workflow.NewPotentialIndex(s.store.Potentials.All()))
}

// ClientsInStage lists the visible clients in stage.
func (s *Service) ClientsInStage(sess store.Session, stage models.WorkflowStage) []models.Client {
	return workflow.ClientsInStage(s.store.VisibleClients(sess), stage)
}

// StageTotalPotential sums the potential of the visible clients in stage.
func (s *Service) StageTotalPotential(sess store.Session, stage models.WorkflowStage) float64 {
	return workflow.StageTotalPotential(
		s.store.VisibleClients(sess),
		stage,
		workflow.NewPotentialIndex(s.store.Potentials.All()),
	)
}
