// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Read-only JSON views of clients, the pipeline board and tasks via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/store"
)

type ResourceHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewResourceHandlers(svc *crm.Service, sess store.Session) *ResourceHandlers {
	return &ResourceHandlers{svc: svc, sess: sess}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, "crm://") {
		return nil, fmt.Errorf("invalid URI scheme: expected crm://")
	}

	path := strings.TrimPrefix(uri, "crm://")
	parts := strings.Split(path, "/")

	switch parts[0] {
	case "clients":
		if len(parts) == 1 {
			return jsonResource(uri, h.svc.Clients(h.sess))
		}
		return h.readClient(uri, parts[1])
	case "pipeline":
		return jsonResource(uri, h.svc.Board(h.sess))
	case "tasks":
		return jsonResource(uri, h.svc.Store().PendingTasks(h.sess))
	default:
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
}

func (h *ResourceHandlers) readClient(uri, idStr string) (*mcp.ReadResourceResult, error) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid client ID: %w", err)
	}
	c, err := h.svc.Client(h.sess, id)
	if err != nil {
		return nil, err
	}

	detail := struct {
		Client    any `json:"client"`
		Potential any `json:"potential"`
		Analysis  any `json:"needsAnalysis,omitempty"`
		Tasks     any `json:"tasks"`
		Meetings  any `json:"meetings"`
	}{
		Client:    c,
		Potential: h.svc.Potential(id),
		Tasks:     h.svc.Store().TasksForClient(id),
		Meetings:  h.svc.Store().MeetingsForClient(id),
	}
	if a, err := h.svc.Analysis(id); err == nil {
		detail.Analysis = a
	}
	return jsonResource(uri, detail)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
