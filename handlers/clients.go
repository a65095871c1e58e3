// ABOUTME: Client MCP tool handlers
// ABOUTME: Implements add_client, find_clients, get_client, update_client, move_client and delete_client
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

type ClientHandlers struct {
	svc  *crm.Service
	sess store.Session
}

func NewClientHandlers(svc *crm.Service, sess store.Session) *ClientHandlers {
	return &ClientHandlers{svc: svc, sess: sess}
}

type ClientOutput struct {
	ID               int64   `json:"id"`
	FirstName        string  `json:"first_name"`
	LastName         string  `json:"last_name"`
	Email            string  `json:"email,omitempty"`
	Phone            string  `json:"phone,omitempty"`
	DateOfBirth      string  `json:"date_of_birth,omitempty"`
	Address          string  `json:"address,omitempty"`
	City             string  `json:"city,omitempty"`
	PostalCode       string  `json:"postal_code,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	WorkflowStage    string  `json:"workflow_stage"`
	AdvisorName      string  `json:"advisor_name,omitempty"`
	HasNeedsAnalysis bool    `json:"has_needs_analysis"`
	TotalPotential   float64 `json:"total_potential"`
	UpdatedAt        string  `json:"updated_at"`
}

func (h *ClientHandlers) clientToOutput(c models.Client) ClientOutput {
	return ClientOutput{
		ID:               c.ID,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Email:            c.Email,
		Phone:            c.Phone,
		DateOfBirth:      c.DateOfBirth,
		Address:          c.Address,
		City:             c.City,
		PostalCode:       c.PostalCode,
		Notes:            c.Notes,
		WorkflowStage:    string(c.WorkflowStage),
		AdvisorName:      c.AdvisorName,
		HasNeedsAnalysis: c.HasNeedsAnalysis,
		TotalPotential:   h.svc.Potential(c.ID).TotalExpectedCommission,
		UpdatedAt:        c.UpdatedAt.Format(time.RFC3339),
	}
}

type AddClientInput struct {
	FirstName     string `json:"first_name" jsonschema:"Client first name (required)"`
	LastName      string `json:"last_name" jsonschema:"Client last name (required)"`
	Email         string `json:"email,omitempty" jsonschema:"Email address"`
	Phone         string `json:"phone,omitempty" jsonschema:"Phone number"`
	DateOfBirth   string `json:"date_of_birth,omitempty" jsonschema:"Date of birth (YYYY-MM-DD)"`
	Address       string `json:"address,omitempty" jsonschema:"Street address"`
	City          string `json:"city,omitempty" jsonschema:"City"`
	PostalCode    string `json:"postal_code,omitempty" jsonschema:"Postal code"`
	Notes         string `json:"notes,omitempty" jsonschema:"Free-form notes"`
	WorkflowStage string `json:"workflow_stage,omitempty" jsonschema:"Initial workflow stage (default NAVOLANI)"`
}

func (h *ClientHandlers) AddClient(_ context.Context, request *mcp.CallToolRequest, input AddClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	c := models.Client{
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		Phone:       input.Phone,
		DateOfBirth: input.DateOfBirth,
		Address:     input.Address,
		City:        input.City,
		PostalCode:  input.PostalCode,
		Notes:       input.Notes,
	}
	if input.WorkflowStage != "" {
		stage, err := models.ParseStage(input.WorkflowStage)
		if err != nil {
			return nil, ClientOutput{}, err
		}
		c.WorkflowStage = stage
	}

	created, err := h.svc.CreateClient(h.sess, c)
	if err != nil {
		return nil, ClientOutput{}, fmt.Errorf("failed to create client: %w", err)
	}
	return nil, h.clientToOutput(created), nil
}

type FindClientsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Search query (name, email or phone)"`
	Stage string `json:"stage,omitempty" jsonschema:"Filter by workflow stage"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 20)"`
}

type FindClientsOutput struct {
	Clients []ClientOutput `json:"clients"`
}

func (h *ClientHandlers) FindClients(_ context.Context, request *mcp.CallToolRequest, input FindClientsInput) (*mcp.CallToolResult, FindClientsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 20
	}

	var clients []models.Client
	if input.Query != "" {
		clients = h.svc.SearchClients(h.sess, input.Query)
	} else {
		clients = h.svc.Clients(h.sess)
	}

	var stage models.WorkflowStage
	if input.Stage != "" {
		s, err := models.ParseStage(input.Stage)
		if err != nil {
			return nil, FindClientsOutput{}, err
		}
		stage = s
	}

	result := []ClientOutput{}
	for _, c := range clients {
		if stage != "" && c.WorkflowStage != stage {
			continue
		}
		result = append(result, h.clientToOutput(c))
		if len(result) == limit {
			break
		}
	}
	return nil, FindClientsOutput{Clients: result}, nil
}

type ClientIDInput struct {
	ID int64 `json:"id" jsonschema:"Client ID (required)"`
}

func (h *ClientHandlers) GetClient(_ context.Context, request *mcp.CallToolRequest, input ClientIDInput) (*mcp.CallToolResult, ClientOutput, error) {
	c, err := h.svc.Client(h.sess, input.ID)
	if err != nil {
		return nil, ClientOutput{}, err
	}
	return nil, h.clientToOutput(c), nil
}

type UpdateClientInput struct {
	ID          int64  `json:"id" jsonschema:"Client ID (required)"`
	FirstName   string `json:"first_name,omitempty" jsonschema:"Updated first name"`
	LastName    string `json:"last_name,omitempty" jsonschema:"Updated last name"`
	Email       string `json:"email,omitempty" jsonschema:"Updated email address"`
	Phone       string `json:"phone,omitempty" jsonschema:"Updated phone number"`
	Address     string `json:"address,omitempty" jsonschema:"Updated street address"`
	City        string `json:"city,omitempty" jsonschema:"Updated city"`
	PostalCode  string `json:"postal_code,omitempty" jsonschema:"Updated postal code"`
	Notes       string `json:"notes,omitempty" jsonschema:"Updated notes"`
	DateOfBirth string `json:"date_of_birth,omitempty" jsonschema:"Updated date of birth"`
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (h *ClientHandlers) UpdateClient(_ context.Context, request *mcp.CallToolRequest, input UpdateClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if input.ID == 0 {
		return nil, ClientOutput{}, fmt.Errorf("id is required")
	}
	if _, err := h.svc.Client(h.sess, input.ID); err != nil {
		return nil, ClientOutput{}, err
	}

	patch := store.ClientPatch{
		FirstName:   nonEmpty(input.FirstName),
		LastName:    nonEmpty(input.LastName),
		Email:       nonEmpty(input.Email),
		Phone:       nonEmpty(input.Phone),
		Address:     nonEmpty(input.Address),
		City:        nonEmpty(input.City),
		PostalCode:  nonEmpty(input.PostalCode),
		Notes:       nonEmpty(input.Notes),
		DateOfBirth: nonEmpty(input.DateOfBirth),
	}
	updated, err := h.svc.UpdateClient(input.ID, patch)
	if err != nil {
		return nil, ClientOutput{}, fmt.Errorf("failed to update client: %w", err)
	}
	return nil, h.clientToOutput(updated), nil
}

type MoveClientInput struct {
	ID    int64  `json:"id" jsonschema:"Client ID (required)"`
	Stage string `json:"stage" jsonschema:"Target stage: NAVOLANI, ANALYZA_POTREB, ZPRACOVANI, PRODEJNI_SCHUZKA, PODPIS or SERVIS"`
}

type MoveClientOutput struct {
	Client  ClientOutput `json:"client"`
	Changed bool         `json:"changed"`
}

func (h *ClientHandlers) MoveClient(_ context.Context, request *mcp.CallToolRequest, input MoveClientInput) (*mcp.CallToolResult, MoveClientOutput, error) {
	stage, err := models.ParseStage(input.Stage)
	if err != nil {
		return nil, MoveClientOutput{}, err
	}
	if _, err := h.svc.Client(h.sess, input.ID); err != nil {
		return nil, MoveClientOutput{}, err
	}
	c, changed, err := h.svc.MoveClient(input.ID, stage)
	if err != nil {
		return nil, MoveClientOutput{}, fmt.Errorf("failed to move client: %w", err)
	}
	return nil, MoveClientOutput{Client: h.clientToOutput(c), Changed: changed}, nil
}

type DeleteOutput struct {
	Deleted bool `json:"deleted"`
}

func (h *ClientHandlers) DeleteClient(_ context.Context, request *mcp.CallToolRequest, input ClientIDInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if _, err := h.svc.Client(h.sess, input.ID); err != nil {
		return nil, DeleteOutput{}, err
	}
	removed, err := h.svc.DeleteClient(input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete client: %w", err)
	}
	return nil, DeleteOutput{Deleted: removed}, nil
}
