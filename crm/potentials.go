// ABOUTME: Commission potential and needs analysis operations of the service
// ABOUTME: Edit, recompute, persist, then push the same record to the mirror
package crm

import (
	"fmt"

	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/store"
)

// Potential returns the client's potential, or an empty recomputed one that
// is not stored when the client has none yet.
func (s *Service) Potential(clientID int64) models.ClientPotential {
	if p, ok := s.store.PotentialForClient(clientID); ok {
		return p
	}
	p := models.ClientPotential{ClientID: clientID}
	potential.Recompute(&p)
	return p
}

// EditPotential applies edits to the client's potential, creating it first
// if needed. Total and priority are recomputed before the write.
func (s *Service) EditPotential(clientID int64, edits ...potential.Edit) (models.ClientPotential, error) {
	if _, err := s.store.Client(clientID); err != nil {
		return models.ClientPotential{}, err
	}
	for _, e := range edits {
		if c, ok := e.(potential.SetCommission); ok && c.Amount < 0 {
			return models.ClientPotential{}, invalid("commission for %s cannot be negative", c.Category)
		}
	}
	p, err := s.store.CreatePotential(clientID)
	if err != nil {
		return models.ClientPotential{}, err
	}
	p, err = s.store.EditPotential(p.ID, edits...)
	if err != nil {
		return models.ClientPotential{}, err
	}
	s.logger.Info("updated potential", "client", clientID, "total", p.TotalExpectedCommission, "priority", p.Priority)
	push(s, mirror.Potentials, p)
	s.emit(Event{Type: EventPotentialSet, ClientID: clientID})
	return p, nil
}

// ReplacePotential overwrites every category line of the client's potential.
func (s *Service) ReplacePotential(clientID int64, p models.ClientPotential) (models.ClientPotential, error) {
	if _, err := s.store.Client(clientID); err != nil {
		return models.ClientPotential{}, err
	}
	cur, err := s.store.CreatePotential(clientID)
	if err != nil {
		return models.ClientPotential{}, err
	}
	out, err := s.store.ReplacePotential(cur.ID, p)
	if err != nil {
		return models.ClientPotential{}, err
	}
	push(s, mirror.Potentials, out)
	s.emit(Event{Type: EventPotentialSet, ClientID: clientID})
	return out, nil
}

// DeletePotential removes potential id.
func (s *Service) DeletePotential(id int64) (bool, error) {
	removed, err := s.store.DeletePotential(id)
	if err != nil || !removed {
		return removed, err
	}
	pushDelete(s, mirror.Potentials, id)
	return true, nil
}

// TopPotentials lists up to limit potentials by descending total.
func (s *Service) TopPotentials(limit int) []models.ClientPotential {
	return s.store.TopPotentials(limit)
}

// PotentialsByPriority lists the potentials in tier.
func (s *Service) PotentialsByPriority(tier models.PotentialPriority) []models.ClientPotential {
	return s.store.PotentialsByPriority(tier)
}

// Analysis returns the client's needs analysis.
func (s *Service) Analysis(clientID int64) (models.NeedsAnalysis, error) {
	a, ok := s.store.AnalysisForClient(clientID)
	if !ok {
		return models.NeedsAnalysis{}, fmt.Errorf("needs analysis for client %d: %w", clientID, store.ErrNotFound)
	}
	return a, nil
}

// StartAnalysis returns the client's needs analysis, creating it if needed.
func (s *Service) StartAnalysis(clientID int64) (models.NeedsAnalysis, error) {
	if _, ok := s.store.AnalysisForClient(clientID); ok {
		return s.Analysis(clientID)
	}
	if _, err := s.store.Client(clientID); err != nil {
		return models.NeedsAnalysis{}, err
	}
	a, err := s.store.CreateAnalysis(clientID)
	if err != nil {
		return models.NeedsAnalysis{}, err
	}
	push(s, mirror.Analyses, a)
	if c, err := s.store.Client(clientID); err == nil {
		push(s, mirror.Clients, c)
	}
	return a, nil
}

// UpdateSection replaces one section of the client's analysis and marks it
// completed, starting the analysis if there is none.
func (s *Service) UpdateSection(clientID int64, upd models.SectionUpdate) (models.NeedsAnalysis, error) {
	a, err := s.StartAnalysis(clientID)
	if err != nil {
		return models.NeedsAnalysis{}, err
	}
	a, err = s.store.UpdateSection(a.ID, upd)
	if err != nil {
		return models.NeedsAnalysis{}, err
	}
	s.logger.Info("updated needs analysis", "client", clientID, "section", upd.Section(), "complete", a.IsComplete)
	push(s, mirror.Analyses, a)
	return a, nil
}

// DeleteAnalysis removes analysis id and clears the client's flag.
func (s *Service) DeleteAnalysis(id int64) (bool, error) {
	a, err := s.store.Analysis(id)
	if err != nil {
		return false, nil
	}
	removed, err := s.store.DeleteAnalysis(id)
	if err != nil || !removed {
		return removed, err
	}
	pushDelete(s, mirror.Analyses, id)

	flag := false
	if c, err := s.store.UpdateClient(a.ClientID, store.ClientPatch{HasNeedsAnalysis: &flag}); err == nil {
		push(s, mirror.Clients, c)
	}
	return true, nil
}
