// ABOUTME: Graphviz rendering of the workflow pipeline
// ABOUTME: Stage nodes chained in order with each client attached to its stage
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/advisor-crm/workflow"
)

// GeneratePipelineGraph renders the board as DOT source.
func GeneratePipelineGraph(ctx context.Context, board []workflow.Column) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			log.Warn("failed to close graphviz", "err", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			log.Warn("failed to close graph", "err", err)
		}
	}()

	graph.SetLabel("Workflow Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	var prev *cgraph.Node
	for _, col := range board {
		stage, err := graph.CreateNodeByName("stage_" + string(col.Stage))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		stage.SetLabel(fmt.Sprintf("%s\n%d clients\n%s", col.Name, col.Count, FormatCZK(col.TotalPotential)))
		stage.SetShape("box")
		stage.SetStyle("filled")
		stage.SetFillColor("lightblue")

		if prev != nil {
			if _, err := graph.CreateEdgeByName("", prev, stage); err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
		}
		prev = stage

		for _, c := range col.Clients {
			node, err := graph.CreateNodeByName(fmt.Sprintf("client_%d", c.ID))
			if err != nil {
				return "", fmt.Errorf("failed to create client node: %w", err)
			}
			node.SetLabel(c.FullName())
			node.SetShape("ellipse")
			node.SetStyle("filled")
			node.SetFillColor("lightgreen")

			edge, err := graph.CreateEdgeByName("", node, stage)
			if err != nil {
				return "", fmt.Errorf("failed to create client edge: %w", err)
			}
			edge.SetStyle("dashed")
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
