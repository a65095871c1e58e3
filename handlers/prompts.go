// ABOUTME: MCP prompt handlers for reusable advisor workflows
// ABOUTME: Client summary and pipeline review prompts built from live CRM data
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/viz"
	"github.com/harperreed/advisor-crm/workflow"
)

type PromptHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewPromptHandlers(svc *crm.Service, sess store.Session) *PromptHandlers {
	return &PromptHandlers{svc: svc, sess: sess}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "client-summary":
		return h.getClientSummaryPrompt(request.Params.Arguments)
	case "pipeline-review":
		return h.getPipelineReviewPrompt()
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) getClientSummaryPrompt(args map[string]string) (*mcp.GetPromptResult, error) {
	idStr, ok := args["client_id"]
	if !ok {
		return nil, fmt.Errorf("client_id is required")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid client_id: %w", err)
	}
	c, err := h.svc.Client(h.sess, id)
	if err != nil {
		return nil, err
	}
	p := h.svc.Potential(id)

	var promptText strings.Builder
	promptText.WriteString(fmt.Sprintf("Please summarize the client %s.\n\n", c.FullName()))
	promptText.WriteString(fmt.Sprintf("Stage: %s\n", workflow.DisplayName(c.WorkflowStage)))
	promptText.WriteString(fmt.Sprintf("Total potential: %s (%s)\n", viz.FormatCZK(p.TotalExpectedCommission), p.Priority))
	for _, cat := range potential.Categories {
		line := potential.Line(&p, cat)
		if line.Interested {
			promptText.WriteString(fmt.Sprintf("  - %s: %s\n", cat.Label(), viz.FormatCZK(line.ExpectedCommission)))
		}
	}
	if a, err := h.svc.Analysis(id); err == nil {
		promptText.WriteString(fmt.Sprintf("Needs analysis: %d%% complete\n", a.CompletionPercentage()))
	} else {
		promptText.WriteString("Needs analysis: not started\n")
	}
	if c.Notes != "" {
		promptText.WriteString(fmt.Sprintf("Notes: %s\n", c.Notes))
	}

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. A short profile of the client")
	promptText.WriteString("\n2. The most promising products to pursue")
	promptText.WriteString("\n3. The next step to move the client forward in the pipeline")

	return &mcp.GetPromptResult{
		Description: "Client summary",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}

func (h *PromptHandlers) getPipelineReviewPrompt() (*mcp.GetPromptResult, error) {
	var promptText strings.Builder
	promptText.WriteString("Please review the current sales pipeline:\n\n")
	for _, col := range h.svc.Board(h.sess) {
		promptText.WriteString(fmt.Sprintf("  - %s: %d clients, %s\n", col.Name, col.Count, viz.FormatCZK(col.TotalPotential)))
	}
	overdue := h.svc.Store().OverdueTasks(h.sess)
	promptText.WriteString(fmt.Sprintf("\nOverdue tasks: %d\n", len(overdue)))

	promptText.WriteString("\nPlease provide:")
	promptText.WriteString("\n1. Where clients are getting stuck")
	promptText.WriteString("\n2. Which high-potential clients need attention first")

	return &mcp.GetPromptResult{
		Description: "Pipeline review",
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: promptText.String()},
			},
		},
	}, nil
}
