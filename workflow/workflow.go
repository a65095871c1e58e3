// ABOUTME: Sales pipeline stage model
// ABOUTME: Stage display names, transitions, stage membership and per-stage potential totals
package workflow

import (
	"sort"
	"strings"
	"time"

	"github.com/harperreed/advisor-crm/models"
)

var displayNames = map[models.WorkflowStage]string{
	models.StageNavolani:        "Navolání",
	models.StageAnalyzaPotreb:   "Analýza potřeb",
	models.StageZpracovani:      "Zpracování",
	models.StageProdejniSchuzka: "Prodejní schůzka",
	models.StagePodpis:          "Podpis",
	models.StageServis:          "Servis",
}

// DisplayName returns the human label of a stage.
func DisplayName(s models.WorkflowStage) string {
	if name, ok := displayNames[s]; ok {
		return name
	}
	return string(s)
}

// Index returns the board position of a stage, or -1.
func Index(s models.WorkflowStage) int {
	for i, stage := range models.Stages {
		if stage == s {
			return i
		}
	}
	return -1
}

// Next returns the stage after s, and false at the end of the pipeline.
func Next(s models.WorkflowStage) (models.WorkflowStage, bool) {
	i := Index(s)
	if i < 0 || i == len(models.Stages)-1 {
		return s, false
	}
	return models.Stages[i+1], true
}

// Previous returns the stage before s, and false at the start of the pipeline.
func Previous(s models.WorkflowStage) (models.WorkflowStage, bool) {
	i := Index(s)
	if i <= 0 {
		return s, false
	}
	return models.Stages[i-1], true
}

// Transition moves c to stage. It returns false and leaves c untouched when
// the client is already there.
func Transition(c *models.Client, stage models.WorkflowStage, now time.Time) bool {
	if c.WorkflowStage == stage {
		return false
	}
	c.WorkflowStage = stage
	c.UpdatedAt = now
	return true
}

// ClientsInStage returns the clients in stage ordered by last name, then id.
func ClientsInStage(clients []models.Client, stage models.WorkflowStage) []models.Client {
	var out []models.Client
	for _, c := range clients {
		if c.WorkflowStage == stage {
			out = append(out, c)
		}
	}
	sortClients(out)
	return out
}

func sortClients(clients []models.Client) {
	sort.SliceStable(clients, func(i, j int) bool {
		li, lj := strings.ToLower(clients[i].LastName), strings.ToLower(clients[j].LastName)
		if li != lj {
			return li < lj
		}
		return clients[i].ID < clients[j].ID
	})
}

// PotentialIndex maps client id to that client's potential.
type PotentialIndex map[int64]models.ClientPotential

// NewPotentialIndex indexes potentials by client id.
func NewPotentialIndex(potentials []models.ClientPotential) PotentialIndex {
	idx := make(PotentialIndex, len(potentials))
	for _, p := range potentials {
		idx[p.ClientID] = p
	}
	return idx
}

// TotalFor is the client's total expected commission, 0 without a potential.
func (idx PotentialIndex) TotalFor(clientID int64) float64 {
	if p, ok := idx[clientID]; ok {
		return p.TotalExpectedCommission
	}
	return 0
}

// StageTotalPotential sums the potentials of the clients in stage.
func StageTotalPotential(clients []models.Client, stage models.WorkflowStage, idx PotentialIndex) float64 {
	total := 0.0
	for _, c := range ClientsInStage(clients, stage) {
		total += idx.TotalFor(c.ID)
	}
	return total
}

// Column is one stage of the pipeline board.
type Column struct {
	Stage          models.WorkflowStage `json:"stage"`
	Name           string               `json:"name"`
	Count          int                  `json:"count"`
	TotalPotential float64              `json:"totalPotential"`
	Clients        []models.Client      `json:"clients"`
}

// Board groups clients into all six stages in pipeline order.
func Board(clients []models.Client, idx PotentialIndex) []Column {
	cols := make([]Column, 0, len(models.Stages))
	for _, stage := range models.Stages {
		members := ClientsInStage(clients, stage)
		total := 0.0
		for _, c := range members {
			total += idx.TotalFor(c.ID)
		}
		if members == nil {
			members = []models.Client{}
		}
		cols = append(cols, Column{
			Stage:          stage,
			Name:           DisplayName(stage),
			Count:          len(members),
			TotalPotential: total,
			Clients:        members,
		})
	}
	return cols
}
