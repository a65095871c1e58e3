// ABOUTME: Commission potential calculator for clients
// ABOUTME: Sums interested product lines into a total and derives the priority tier
package potential

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/advisor-crm/models"
)

// Priority thresholds in CZK of expected commission.
const (
	HighThreshold   = 50000.0
	MediumThreshold = 20000.0
)

// Category identifies one leaf product line of a potential.
type Category string

const (
	LifeInsurance Category = "lifeInsurance"
	Investments   Category = "investments"
	Mortgage      Category = "mortgage"
	Auto          Category = "nonLifeInsurance.auto"
	Property      Category = "nonLifeInsurance.property"
	Household     Category = "nonLifeInsurance.household"
	Liability     Category = "nonLifeInsurance.liability"
)

// Categories lists all seven leaf categories.
var Categories = []Category{LifeInsurance, Investments, Mortgage, Auto, Property, Household, Liability}

var categoryLabels = map[Category]string{
	LifeInsurance: "Životní pojištění",
	Investments:   "Investice",
	Mortgage:      "Hypotéka",
	Auto:          "Autopojištění",
	Property:      "Pojištění majetku",
	Household:     "Pojištění domácnosti",
	Liability:     "Pojištění odpovědnosti",
}

// Label returns the display name of the category.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// ParseCategory accepts the canonical name or its short form (auto, property, ...).
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	for _, c := range Categories {
		if strings.EqualFold(raw, string(c)) || strings.EqualFold("nonLifeInsurance."+raw, string(c)) {
			return c, nil
		}
	}
	switch strings.ToLower(strings.ReplaceAll(raw, "-", "_")) {
	case "life", "life_insurance":
		return LifeInsurance, nil
	}
	return "", fmt.Errorf("unknown category: %s", raw)
}

// Line returns a pointer to the leaf for c, or nil for an unknown category.
func Line(p *models.ClientPotential, c Category) *models.CommissionLine {
	switch c {
	case LifeInsurance:
		return &p.LifeInsurance
	case Investments:
		return &p.Investments
	case Mortgage:
		return &p.Mortgage
	case Auto:
		return &p.NonLifeInsurance.Auto
	case Property:
		return &p.NonLifeInsurance.Property
	case Household:
		return &p.NonLifeInsurance.Household
	case Liability:
		return &p.NonLifeInsurance.Liability
	}
	return nil
}

// Total sums the expected commission of every line the client is interested in.
func Total(p models.ClientPotential) float64 {
	total := 0.0
	for _, c := range Categories {
		line := Line(&p, c)
		if line.Interested {
			total += line.ExpectedCommission
		}
	}
	return total
}

// PriorityFor maps a total commission onto its tier.
func PriorityFor(total float64) models.PotentialPriority {
	switch {
	case total >= HighThreshold:
		return models.PotentialHigh
	case total >= MediumThreshold:
		return models.PotentialMedium
	default:
		return models.PotentialLow
	}
}

// Recompute refreshes the derived total and priority.
func Recompute(p *models.ClientPotential) {
	p.TotalExpectedCommission = Total(*p)
	p.Priority = PriorityFor(p.TotalExpectedCommission)
}

// Edit is a single change to one category of a potential.
type Edit interface {
	Target() Category
	apply(line *models.CommissionLine)
}

// SetInterest marks whether the client wants the product in Category.
type SetInterest struct {
	Category   Category
	Interested bool
}

// Target returns the edited category.
func (e SetInterest) Target() Category { return e.Category }
func (e SetInterest) apply(line *models.CommissionLine) { line.Interested = e.Interested }

// SetCommission sets the expected commission of Category in CZK.
type SetCommission struct {
	Category Category
	Amount   float64
}

// Target returns the edited category.
func (e SetCommission) Target() Category { return e.Category }
func (e SetCommission) apply(line *models.CommissionLine) { line.ExpectedCommission = e.Amount }

// SetNotes replaces the free-text notes of Category.
type SetNotes struct {
	Category Category
	Text     string
}

// Target returns the edited category.
func (e SetNotes) Target() Category { return e.Category }
func (e SetNotes) apply(line *models.CommissionLine) { line.Notes = e.Text }

// Apply performs edits in order and recomputes the derived fields. Nothing is
// changed when any edit names an unknown category.
func Apply(p *models.ClientPotential, edits ...Edit) error {
	for _, e := range edits {
		if Line(p, e.Target()) == nil {
			return fmt.Errorf("unknown category: %s", e.Target())
		}
	}
	for _, e := range edits {
		e.apply(Line(p, e.Target()))
	}
	Recompute(p)
	return nil
}

// ByPriority filters potentials by tier.
func ByPriority(potentials []models.ClientPotential, tier models.PotentialPriority) []models.ClientPotential {
	var out []models.ClientPotential
	for _, p := range potentials {
		if p.Priority == tier {
			out = append(out, p)
		}
	}
	return out
}

// Top returns up to limit potentials with the highest totals first. A
// negative limit returns all of them.
func Top(potentials []models.ClientPotential, limit int) []models.ClientPotential {
	sorted := make([]models.ClientPotential, len(potentials))
	copy(sorted, potentials)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TotalExpectedCommission > sorted[j].TotalExpectedCommission
	})
	if limit >= 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}
