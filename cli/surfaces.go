// ABOUTME: Commands that open a user surface: dashboard, graph, terminal board, web and MCP servers
// ABOUTME: Each runs against the same service so mirror pushes and events behave alike
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/harperreed/advisor-crm/handlers"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/tui"
	"github.com/harperreed/advisor-crm/viz"
	"github.com/harperreed/advisor-crm/web"
)

func NewVizCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Dashboard and pipeline graph",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "dashboard",
		Short: "Print the text dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				stats := viz.GenerateDashboardStats(app.Store, sess, app.Store.Now())
				_, _ = fmt.Fprint(cmd.OutOrStdout(), viz.RenderDashboard(stats))
				return nil
			})
		},
	})

	var output string
	graph := &cobra.Command{
		Use:   "graph",
		Short: "Render the workflow board as a graphviz graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				dot, err := viz.GeneratePipelineGraph(cmd.Context(), app.Service.Board(sess))
				if err != nil {
					return err
				}
				if output != "" {
					return os.WriteFile(output, []byte(dot), 0644)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), dot)
				return nil
			})
		},
	}
	graph.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.AddCommand(graph)
	return cmd
}

func NewBoardCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Interactive terminal workflow board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				return tui.Run(tui.NewModel(app.Service, sess))
			})
		},
	}
}

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and live board websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withSession(ctx, opts, func(app *App, sess store.Session) error {
				if addr == "" {
					addr = app.Config.Server.Addr
				}
				srv := web.NewServer(app.Service, sess, app.Logger)
				return srv.Start(ctx, addr)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func NewMCPCommand(opts *RootOptions, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withSession(ctx, opts, func(app *App, sess store.Session) error {
				app.Logger.Info("starting MCP server", "user", sess.User.Username)
				return handlers.NewServer(app.Service, sess, version).Run(ctx, &mcp.StdioTransport{})
			})
		},
	}
}
