// ABOUTME: Client potential and needs analysis operations of the entity store
// ABOUTME: One record per client, created on demand, derived fields recomputed on every write
package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
)

// PotentialForClient returns the client's potential, if any.
func (s *Store) PotentialForClient(clientID int64) (models.ClientPotential, bool) {
	return s.Potentials.Find(func(p models.ClientPotential) bool { return p.ClientID == clientID })
}

// CreatePotential returns the client's potential, creating an empty one
// first when the client has none.
func (s *Store) CreatePotential(clientID int64) (models.ClientPotential, error) {
	p := models.ClientPotential{ClientID: clientID}
	potential.Recompute(&p)
	out, _, err := s.Potentials.FindOrInsert(func(cur models.ClientPotential) bool { return cur.ClientID == clientID }, p)
	return out, err
}

// EditPotential applies category edits to potential id and recomputes its
// total and priority.
func (s *Store) EditPotential(id int64, edits ...potential.Edit) (models.ClientPotential, error) {
	var editErr error
	p, _, err := s.Potentials.Update(id, func(p *models.ClientPotential, _ time.Time) bool {
		editErr = potential.Apply(p, edits...)
		return editErr == nil
	})
	if err != nil {
		return models.ClientPotential{}, err
	}
	if editErr != nil {
		return models.ClientPotential{}, editErr
	}
	return p, nil
}

// ReplacePotential overwrites the editable lines of potential id with those of
// p and recomputes the derived fields.
func (s *Store) ReplacePotential(id int64, p models.ClientPotential) (models.ClientPotential, error) {
	out, _, err := s.Potentials.Update(id, func(cur *models.ClientPotential, _ time.Time) bool {
		cur.LifeInsurance = p.LifeInsurance
		cur.Investments = p.Investments
		cur.Mortgage = p.Mortgage
		cur.NonLifeInsurance = p.NonLifeInsurance
		potential.Recompute(cur)
		return true
	})
	return out, err
}

// DeletePotential removes the potential and reports whether it existed.
func (s *Store) DeletePotential(id int64) (bool, error) {
	return s.Potentials.Delete(id)
}

// PotentialsByPriority lists the potentials in tier.
func (s *Store) PotentialsByPriority(tier models.PotentialPriority) []models.ClientPotential {
	return potential.ByPriority(s.Potentials.All(), tier)
}

// TopPotentials lists up to limit potentials by descending total.
func (s *Store) TopPotentials(limit int) []models.ClientPotential {
	return potential.Top(s.Potentials.All(), limit)
}

// AnalysisForClient returns the client's needs analysis, if any.
func (s *Store) AnalysisForClient(clientID int64) (models.NeedsAnalysis, bool) {
	return s.Analyses.Find(func(a models.NeedsAnalysis) bool { return a.ClientID == clientID })
}

// Analysis returns a needs analysis by id.
func (s *Store) Analysis(id int64) (models.NeedsAnalysis, error) {
	a, ok := s.Analyses.Get(id)
	if !ok {
		return models.NeedsAnalysis{}, fmt.Errorf("needs analysis %d: %w", id, ErrNotFound)
	}
	return a, nil
}

// CreateAnalysis returns the client's analysis, creating an empty one first
// when the client has none. The client is flagged as having an analysis.
func (s *Store) CreateAnalysis(clientID int64) (models.NeedsAnalysis, error) {
	a, created, err := s.Analyses.FindOrInsert(func(cur models.NeedsAnalysis) bool { return cur.ClientID == clientID }, models.NewNeedsAnalysis(clientID))
	if err != nil {
		return models.NeedsAnalysis{}, err
	}
	if !created {
		return a, nil
	}
	_, _, err = s.Clients.Update(clientID, func(c *models.Client, _ time.Time) bool {
		if c.HasNeedsAnalysis {
			return false
		}
		c.HasNeedsAnalysis = true
		return true
	})
	if err != nil && !isNotFound(err) {
		return a, err
	}
	return a, nil
}

// UpdateSection replaces one section of analysis id and marks it completed.
// Existing products without an id get a fresh UUID.
func (s *Store) UpdateSection(id int64, upd models.SectionUpdate) (models.NeedsAnalysis, error) {
	if products, ok := upd.(models.ExistingProductsUpdate); ok {
		products.Products = append([]models.ExistingProduct{}, products.Products...)
		for i := range products.Products {
			if products.Products[i].ID == "" {
				products.Products[i].ID = uuid.New().String()
			}
		}
		upd = products
	}
	a, _, err := s.Analyses.Update(id, func(a *models.NeedsAnalysis, _ time.Time) bool {
		upd.Apply(a)
		a.MarkCompleted(upd.Section())
		return true
	})
	return a, err
}

// DeleteAnalysis removes the analysis and reports whether it existed.
func (s *Store) DeleteAnalysis(id int64) (bool, error) {
	return s.Analyses.Delete(id)
}
