// ABOUTME: Workflow and potential MCP tool handlers
// ABOUTME: Implements get_board, set_potential, get_potential and top_potentials
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/store"
)

type PipelineHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewPipelineHandlers(svc *crm.Service, sess store.Session) *PipelineHandlers {
	return &PipelineHandlers{svc: svc, sess: sess}
}

type GetBoardInput struct {
	Stage string `json:"stage,omitempty" jsonschema:"Only return this stage"`
}

type StageOutput struct {
	Stage          string        `json:"stage"`
	Name           string        `json:"name"`
	Count          int           `json:"count"`
	TotalPotential float64       `json:"total_potential"`
	Clients        []BoardClient `json:"clients"`
}

type BoardClient struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Potential float64 `json:"potential"`
}

type GetBoardOutput struct {
	Stages []StageOutput `json:"stages"`
}

func (h *PipelineHandlers) GetBoard(_ context.Context, request *mcp.CallToolRequest, input GetBoardInput) (*mcp.CallToolResult, GetBoardOutput, error) {
	var only models.WorkflowStage
	if input.Stage != "" {
		s, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, GetBoardOutput{}, err
		}
		only = s
	}

	out := GetBoardOutput{Stages: []StageOutput{}}
	for _, col := range h.svc.Board(h.sess) {
		if only != "" && col.Stage != only {
			continue
		}
		stage := StageOutput{
			Stage:          string(col.Stage),
			Name:           col.Name,
			Count:          col.Count,
			TotalPotential: col.TotalPotential,
			Clients:        []BoardClient{},
		}
		for _, c := range col.Clients {
			stage.Clients = append(stage.Clients, BoardClient{
				ID:        c.ID,
				Name:      c.FullName(),
				Potential: h.svc.Potential(c.ID).TotalExpectedCommission,
			})
		}
		out.Stages = append(out.Stages, stage)
	}
	return nil, out, nil
}

type PotentialLineInput struct {
	Category   string   `json:"category" jsonschema:"lifeInsurance, investments, mortgage, nonLifeInsurance.auto, nonLifeInsurance.property, nonLifeInsurance.household or nonLifeInsurance.liability"`
	Interested *bool    `json:"interested,omitempty" jsonschema:"Whether the client is interested"`
	Commission *float64 `json:"commission,omitempty" jsonschema:"Expected commission in CZK"`
	Notes      *string  `json:"notes,omitempty" jsonschema:"Notes for this product line"`
}

type SetPotentialInput struct {
	ClientID int64                `json:"client_id" jsonschema:"Client ID (required)"`
	Lines    []PotentialLineInput `json:"lines" jsonschema:"Product lines to change"`
}

type PotentialLineOutput struct {
	Category   string  `json:"category"`
	Label      string  `json:"label"`
	Interested bool    `json:"interested"`
	Commission float64 `json:"commission"`
	Notes      string  `json:"notes,omitempty"`
}

type PotentialOutput struct {
	ClientID int64                 `json:"client_id"`
	Total    float64               `json:"total"`
	Priority string                `json:"priority"`
	Lines    []PotentialLineOutput `json:"lines"`
}

func potentialToOutput(p models.ClientPotential) PotentialOutput {
	out := PotentialOutput{
		ClientID: p.ClientID,
		Total:    p.TotalExpectedCommission,
		Priority: string(p.Priority),
	}
	for _, c := range potential.Categories {
		line := potential.Line(&p, c)
		out.Lines = append(out.Lines, PotentialLineOutput{
			Category:   string(c),
			Label:      c.Label(),
			Interested: line.Interested,
			Commission: line.ExpectedCommission,
			Notes:      line.Notes,
		})
	}
	return out
}

// editsFromLines turns tool input into typed category edits.
func editsFromLines(lines []PotentialLineInput) ([]potential.Edit, error) {
	var edits []potential.Edit
	for _, l := range lines {
		c, err := potential.ParseCategory(l.Category)
		if err != nil {
			return nil, err
		}
		if l.Interested != nil {
			edits = append(edits, potential.SetInterest{Category: c, Interested: *l.Interested})
		}
		if l.Commission != nil {
			edits = append(edits, potential.SetCommission{Category: c, Amount: *l.Commission})
		}
		if l.Notes != nil {
			edits = append(edits, potential.SetNotes{Category: c, Text: *l.Notes})
		}
	}
	return edits, nil
}

func (h *PipelineHandlers) SetPotential(_ context.Context, request *mcp.CallToolRequest, input SetPotentialInput) (*mcp.CallToolResult, PotentialOutput, error) {
	if _, err := h.svc.Client(h.sess, input.ClientID); err != nil {
		return nil, PotentialOutput{}, err
	}
	edits, err := editsFromLines(input.Lines)
	if err != nil {
		return nil, PotentialOutput{}, err
	}
	if len(edits) == 0 {
		return nil, PotentialOutput{}, fmt.Errorf("at least one change is required")
	}
	p, err := h.svc.EditPotential(input.ClientID, edits...)
	if err != nil {
		return nil, PotentialOutput{}, fmt.Errorf("failed to update potential: %w", err)
	}
	return nil, potentialToOutput(p), nil
}

func (h *PipelineHandlers) GetPotential(_ context.Context, request *mcp.CallToolRequest, input ClientIDInput) (*mcp.CallToolResult, PotentialOutput, error) {
	if _, err := h.svc.Client(h.sess, input.ID); err != nil {
		return nil, PotentialOutput{}, err
	}
	return nil, potentialToOutput(h.svc.Potential(input.ID)), nil
}

type TopPotentialsInput struct {
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 10)"`
	Priority string `json:"priority,omitempty" jsonschema:"Only this tier: NIZKY, STREDNI or VYSOKY"`
}

type TopPotentialsOutput struct {
	Potentials []PotentialOutput `json:"potentials"`
}

func (h *PipelineHandlers) TopPotentials(_ context.Context, request *mcp.CallToolRequest, input TopPotentialsInput) (*mcp.CallToolResult, TopPotentialsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}

	var candidates []models.ClientPotential
	if input.Priority != "" {
		tier, err := models.ParsePotentialPriority(input.Priority)
		if err != nil {
			return nil, TopPotentialsOutput{}, err
		}
		candidates = potential.Top(h.svc.PotentialsByPriority(tier), -1)
	} else {
		candidates = h.svc.TopPotentials(-1)
	}

	out := TopPotentialsOutput{Potentials: []PotentialOutput{}}
	for _, p := range candidates {
		if _, err := h.svc.Client(h.sess, p.ClientID); err != nil {
			continue
		}
		out.Potentials = append(out.Potentials, potentialToOutput(p))
		if len(out.Potentials) == limit {
			break
		}
	}
	return nil, out, nil
}
