// ABOUTME: MCP server assembly
// ABOUTME: Registers every advisor CRM tool, resource and prompt for one session user
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/advisor-crm/crm"
	"github.com/harperreed/advisor-crm/store"
)

// NewServer builds an MCP server acting as the session user.
func NewServer(svc *crm.Service, sess store.Session, version string) *mcp.Server {
	clientHandlers := NewClientHandlers(svc, sess)
	pipelineHandlers := NewPipelineHandlers(svc, sess)
	scheduleHandlers := NewScheduleHandlers(svc, sess)
	analysisHandlers := NewAnalysisHandlers(svc, sess)
	vizHandlers := NewVizHandlers(svc, sess)
	resourceHandlers := NewResourceHandlers(svc, sess)
	promptHandlers := NewPromptHandlers(svc, sess)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "advisor-crm",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new client; the current user becomes their advisor",
	}, clientHandlers.AddClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_clients",
		Description: "Search clients by name, email or phone, optionally filtered by workflow stage",
	}, clientHandlers.FindClients)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_client",
		Description: "Get a client by ID",
	}, clientHandlers.GetClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_client",
		Description: "Update an existing client's contact details and notes",
	}, clientHandlers.UpdateClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_client",
		Description: "Move a client to another workflow stage",
	}, clientHandlers.MoveClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_client",
		Description: "Delete a client together with their potential and needs analysis",
	}, clientHandlers.DeleteClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_board",
		Description: "Show the workflow board: clients and summed potential per stage",
	}, pipelineHandlers.GetBoard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_potential",
		Description: "Set interest, expected commission or notes per product line; total and priority are recomputed",
	}, pipelineHandlers.SetPotential)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_potential",
		Description: "Get a client's commission potential",
	}, pipelineHandlers.GetPotential)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "top_potentials",
		Description: "List client potentials by descending total, optionally within one priority tier",
	}, pipelineHandlers.TopPotentials)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_task",
		Description: "Create a task, assigned to yourself unless another user is given",
	}, scheduleHandlers.AddTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List pending, completed, overdue or all tasks",
	}, scheduleHandlers.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task completed",
	}, scheduleHandlers.CompleteTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_meeting",
		Description: "Schedule a meeting, optionally with a client",
	}, scheduleHandlers.AddMeeting)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_meetings",
		Description: "List meetings of a day or of its week",
	}, scheduleHandlers.ListMeetings)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_needs_analysis",
		Description: "Get a client's needs analysis and its completion",
	}, analysisHandlers.GetAnalysis)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_needs_analysis",
		Description: "Replace one section of a client's needs analysis and mark it completed",
	}, analysisHandlers.UpdateAnalysis)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_graph",
		Description: "Generate a GraphViz DOT graph of the workflow pipeline",
	}, vizHandlers.PipelineGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Render the text dashboard",
	}, vizHandlers.Dashboard)

	server.AddResource(&mcp.Resource{
		URI:      "crm://clients",
		Name:     "clients",
		MIMEType: "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "crm://clients/{id}",
		Name:        "client",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:      "crm://pipeline",
		Name:     "pipeline",
		MIMEType: "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:      "crm://tasks",
		Name:     "tasks",
		MIMEType: "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "client-summary",
		Description: "Summarize a client and suggest the next step",
		Arguments: []*mcp.PromptArgument{
			{Name: "client_id", Description: "Client ID", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-review",
		Description: "Review the pipeline and find stuck clients",
	}, promptHandlers.GetPrompt)

	return server
}
