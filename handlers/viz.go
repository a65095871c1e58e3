// ABOUTME: Visualization MCP handlers
// ABOUTME: Provides the pipeline_graph and dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/viz"
)

type VizHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewVizHandlers(svc *crm.Service, sess store.Session) *VizHandlers {
	return &VizHandlers{svc: svc, sess: sess}
}

type PipelineGraphInput struct{}

type PipelineGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) PipelineGraph(ctx context.Context, request *mcp.CallToolRequest, input PipelineGraphInput) (*mcp.CallToolResult, PipelineGraphOutput, error) {
	dot, err := viz.GeneratePipelineGraph(ctx, h.svc.Board(h.sess))
	if err != nil {
		return nil, PipelineGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	// Rough counts from the DOT source
	nodeCount := strings.Count(dot, "[label=")
	edgeCount := strings.Count(dot, "->")

	return nil, PipelineGraphOutput{
		DOTSource: dot,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text string `json:"text"`
}

func (h *VizHandlers) Dashboard(_ context.Context, request *mcp.CallToolRequest, input DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	st := h.svc.Store()
	stats := viz.GenerateDashboardStats(st, h.sess, st.Now())
	return nil, DashboardOutput{Text: viz.RenderDashboard(stats)}, nil
}
