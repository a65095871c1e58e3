// ABOUTME: Tests for the MCP tool, resource and prompt handlers
// ABOUTME: Handlers are called directly against a temp store and in-memory mirror
package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/advisor-crm/charm"
	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/logging"
	"github.com/harperreed/advisor-crm/mirror"
	"github.com/harperreed/advisor-crm/store"
)

func setupTestService(t *testing.T, username string) (*crm.Service, store.Session) {
	t.Helper()
	st, err := store.Open(charm.NewTestBackend(t), store.WithLogger(logging.Discard()))
	require.NoError(t, err)
	svc := crm.New(st, mirror.New(mirror.NewMemoryRemote(), logging.Discard()), crm.WithLogger(logging.Discard()))
	t.Cleanup(svc.Wait)
	sess, err := st.SessionFor(username)
	require.NoError(t, err)
	return svc, sess
}

func ptr[T any](v T) *T { return &v }

func TestAddAndFindClients(t *testing.T) {
	svc, sess := setupTestService(t, "poradce")
	h := NewClientHandlers(svc, sess)
	ctx := context.Background()

	_, _, err := h.AddClient(ctx, nil, AddClientInput{FirstName: "Karel"})
	assert.ErrorIs(t, err, crm.ErrValidation)

	_, out, err := h.AddClient(ctx, nil, AddClientInput{FirstName: "Karel", LastName: "Malý", Email: "karel@example.cz", WorkflowStage: "podpis"})
	require.NoError(t, err)
	assert.Equal(t, "PODPIS", out.WorkflowStage)
	assert.Equal(t, "Petr Svoboda", out.AdvisorName)

	_, found, err := h.FindClients(ctx, nil, FindClientsInput{Query: "karel@"})
	require.NoError(t, err)
	require.Len(t, found.Clients, 1)
	assert.Equal(t, out.ID, found.Clients[0].ID)

	_, byStage, err := h.FindClients(ctx, nil, FindClientsInput{Stage: "PODPIS"})
	require.NoError(t, err)
	assert.Len(t, byStage.Clients, 1)

	_, _, err = h.FindClients(ctx, nil, FindClientsInput{Stage: "nope"})
	assert.Error(t, err)
}

func TestMoveClientHandler(t *testing.T) {
	svc, sess := setupTestService(t, "poradce")
	h := NewClientHandlers(svc, sess)
	ctx := context.Background()

	_, out, err := h.MoveClient(ctx, nil, MoveClientInput{ID: 1, Stage: "ANALYZA_POTREB"})
	require.NoError(t, err)
	assert.False(t, out.Changed)

	_, out, err = h.MoveClient(ctx, nil, MoveClientInput{ID: 1, Stage: "SERVIS"})
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, "SERVIS", out.Client.WorkflowStage)
}

func TestHandlersHideOtherAdvisorsClients(t *testing.T) {
	svc, sess := setupTestService(t, "asistent")
	h := NewClientHandlers(svc, sess)
	ctx := context.Background()

	_, _, err := h.GetClient(ctx, nil, ClientIDInput{ID: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = h.MoveClient(ctx, nil, MoveClientInput{ID: 1, Stage: "SERVIS"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	c, err := svc.Store().Client(1)
	require.NoError(t, err)
	assert.NotEqual(t, "SERVIS", string(c.WorkflowStage))
}

func TestSetPotentialAndBoard(t *testing.T) {
	svc, sess := setupTestService(t, "poradce")
	h := NewPipelineHandlers(svc, sess)
	ctx := context.Background()

	_, _, err := h.SetPotential(ctx, nil, SetPotentialInput{ClientID: 2})
	assert.Error(t, err)

	_, _, err = h.SetPotential(ctx, nil, SetPotentialInput{ClientID: 2, Lines: []PotentialLineInput{{Category: "bogus", Interested: ptr(true)}}})
	assert.Error(t, err)

	_, p, err := h.SetPotential(ctx, nil, SetPotentialInput{
		ClientID: 2,
		Lines: []PotentialLineInput{
			{Category: "lifeInsurance", Interested: ptr(true), Commission: ptr(15000.0)},
			{Category: "nonLifeInsurance.auto", Interested: ptr(true), Commission: ptr(6000.0), Notes: ptr("Škoda Octavia")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 21000.0, p.Total)
	assert.Equal(t, "STREDNI", p.Priority)
	assert.Len(t, p.Lines, 7)

	_, board, err := h.GetBoard(ctx, nil, GetBoardInput{Stage: "PRODEJNI_SCHUZKA"})
	require.NoError(t, err)
	require.Len(t, board.Stages, 1)
	assert.Equal(t, 21000.0, board.Stages[0].TotalPotential)
	require.Len(t, board.Stages[0].Clients, 1)
	assert.Equal(t, "Eva Nováková", board.Stages[0].Clients[0].Name)

	_, top, err := h.TopPotentials(ctx, nil, TopPotentialsInput{Priority: "MEDIUM"})
	require.NoError(t, err)
	require.Len(t, top.Potentials, 1)
	assert.Equal(t, int64(2), top.Potentials[0].ClientID)

	_, top, err = h.TopPotentials(ctx, nil, TopPotentialsInput{Priority: "VYSOKY"})
	require.NoError(t, err)
	assert.Empty(t, top.Potentials)
}

func TestTaskAndMeetingHandlers(t *testing.T) {
	svc, sess := setupTestService(t, "poradce")
	h := NewScheduleHandlers(svc, sess)
	ctx := context.Background()

	_, task, err := h.AddTask(ctx, nil, AddTaskInput{Title: "Poslat smlouvu", Priority: "urgent", ClientID: 2})
	require.NoError(t, err)
	assert.Equal(t, "URGENT", task.Priority)

	_, list, err := h.ListTasks(ctx, nil, ListTasksInput{ClientID: 2})
	require.NoError(t, err)
	assert.Len(t, list.Tasks, 1)

	_, done, err := h.CompleteTask(ctx, nil, TaskIDInput{ID: task.ID})
	require.NoError(t, err)
	assert.True(t, done.Completed)

	_, list, err = h.ListTasks(ctx, nil, ListTasksInput{Filter: "completed"})
	require.NoError(t, err)
	assert.Len(t, list.Tasks, 1)

	_, _, err = h.ListTasks(ctx, nil, ListTasksInput{Filter: "someday"})
	assert.Error(t, err)

	start := time.Date(2024, 5, 22, 14, 0, 0, 0, time.UTC)
	_, m, err := h.AddMeeting(ctx, nil, AddMeetingInput{Title: "Podpis smlouvy", StartTime: start.Format(time.RFC3339), ClientID: 2})
	require.NoError(t, err)
	assert.Equal(t, start.Add(time.Hour).Format(time.RFC3339), m.EndTime)

	_, _, err = h.AddMeeting(ctx, nil, AddMeetingInput{Title: "Bad", StartTime: start.Format(time.RFC3339), EndTime: start.Add(-time.Hour).Format(time.RFC3339)})
	assert.ErrorIs(t, err, crm.ErrValidation)

	_, week, err := h.ListMeetings(ctx, nil, ListMeetingsInput{Date: "2024-05-20", Week: true})
	require.NoError(t, err)
	assert.Len(t, week.Meetings, 1)

	_, day, err := h.ListMeetings(ctx, nil, ListMeetingsInput{Date: "2024-05-20"})
	require.NoError(t, err)
	assert.Empty(t, day.Meetings)
}

func TestUpdateAnalysisHandler(t *testing.T) {
	svc, sess := setupTestService(t, "poradce")
	h := NewAnalysisHandlers(svc, sess)
	ctx := context.Background()

	_, _, err := h.GetAnalysis(ctx, nil, ClientIDInput{ID: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, out, err := h.UpdateAnalysis(ctx, nil, UpdateAnalysisInput{
		ClientID: 1,
		Section:  "existingProducts",
		Data:     []any{map[string]any{"type": "Stavební spoření", "company": "MP"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"existingProducts"}, out.CompletedSections)
	assert.Equal(t, 17, out.CompletionPercentage)
	assert.False(t, out.IsComplete)

	products, ok := out.Analysis["existingProducts"].([]any)
	require.True(t, ok)
	require.Len(t, products, 1)
	assert.NotEmpty(t, products[0].(map[string]any)["id"])

	_, _, err = h.UpdateAnalysis(ctx, nil, UpdateAnalysisInput{ClientID: 1, Section: "hobbies", Data: map[string]any{}})
	assert.Error(t, err)
}

func TestResourcesAndPrompts(t *testing.T) {
	svc, sess := setupTestService(t, "poradce")
	ctx := context.Background()

	r := NewResourceHandlers(svc, sess)
	res, err := r.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://clients/2"}})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &detail))
	assert.Contains(t, detail, "potential")

	_, err = r.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "http://clients"}})
	assert.Error(t, err)
	_, err = r.ReadResource(ctx, &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: "crm://deals"}})
	assert.Error(t, err)

	p := NewPromptHandlers(svc, sess)
	prompt, err := p.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{
		Name:      "client-summary",
		Arguments: map[string]string{"client_id": "2"},
	}})
	require.NoError(t, err)
	require.Len(t, prompt.Messages, 1)
	text := prompt.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Eva Nováková")
	assert.Contains(t, text, "Prodejní schůzka")

	_, err = p.GetPrompt(ctx, &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: "client-summary"}})
	assert.Error(t, err)
}

func TestNewServerRegisters(t *testing.T) {
	svc, sess := setupTestService(t, "vedouci")
	assert.NotNil(t, NewServer(svc, sess, "test"))
}
