// ABOUTME: Needs analysis MCP tool handlers
// ABOUTME: Implements get_needs_analysis and update_needs_analysis
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

type AnalysisHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewAnalysisHandlers(svc *crm.Service, sess store.Session) *AnalysisHandlers {
	return &AnalysisHandlers{svc: svc, sess: sess}
}

type AnalysisOutput struct {
	ClientID             int64          `json:"client_id"`
	CompletedSections    []string       `json:"completed_sections"`
	IsComplete           bool           `json:"is_complete"`
	CompletionPercentage int            `json:"completion_percentage"`
	Analysis             map[string]any `json:"analysis"`
}

func analysisToOutput(a models.NeedsAnalysis) AnalysisOutput {
	out := AnalysisOutput{
		ClientID:             a.ClientID,
		CompletedSections:    []string{},
		IsComplete:           a.IsComplete,
		CompletionPercentage: a.CompletionPercentage(),
	}
	if data, err := json.Marshal(a); err == nil {
		_ = json.Unmarshal(data, &out.Analysis)
	}
	for _, s := range a.CompletedSections {
		out.CompletedSections = append(out.CompletedSections, string(s))
	}
	return out
}

func (h *AnalysisHandlers) GetAnalysis(_ context.Context, request *mcp.CallToolRequest, input ClientIDInput) (*mcp.CallToolResult, AnalysisOutput, error) {
	if _, err := h.svc.Client(h.sess, input.ID); err != nil {
		return nil, AnalysisOutput{}, err
	}
	a, err := h.svc.Analysis(input.ID)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}
	return nil, analysisToOutput(a), nil
}

type UpdateAnalysisInput struct {
	ClientID int64  `json:"client_id" jsonschema:"Client ID (required)"`
	Section  string `json:"section" jsonschema:"goals, existingProducts, cashFlow, insuranceDetails, housingDetails or investmentDetails"`
	Data     any    `json:"data" jsonschema:"Section contents; an array of products for existingProducts, an object otherwise"`
}

func (h *AnalysisHandlers) UpdateAnalysis(_ context.Context, request *mcp.CallToolRequest, input UpdateAnalysisInput) (*mcp.CallToolResult, AnalysisOutput, error) {
	if _, err := h.svc.Client(h.sess, input.ClientID); err != nil {
		return nil, AnalysisOutput{}, err
	}
	section, err := models.ParseSection(input.Section)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}
	raw, err := json.Marshal(input.Data)
	if err != nil {
		return nil, AnalysisOutput{}, fmt.Errorf("invalid data: %w", err)
	}
	upd, err := models.DecodeSection(section, raw)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}
	a, err := h.svc.UpdateSection(input.ClientID, upd)
	if err != nil {
		return nil, AnalysisOutput{}, fmt.Errorf("failed to update needs analysis: %w", err)
	}
	return nil, analysisToOutput(a), nil
}
