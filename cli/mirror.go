// ABOUTME: Remote mirror commands
// ABOUTME: Initialise the mirror repository, push everything, pull everything, show status
package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/harperreed/advisor-crm/mirror"
)

func NewMirrorCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "GitHub repository mirror of the CRM data",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show mirror configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				w := cmd.OutOrStdout()
				m := app.Config.Mirror
				if !app.Service.MirrorEnabled() {
					_, _ = fmt.Fprintln(w, "Mirror: disabled (local-only mode; set ADVISOR_MIRROR_TOKEN to enable)")
					return nil
				}
				_, _ = fmt.Fprintf(w, "Mirror:  enabled\nRepo:    %s/%s\nBranch:  %s\nAPI:     %s\n", m.Owner, m.Repo, m.Branch, m.APIBaseURL)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the mirror directory layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				created, err := app.Service.InitMirror(cmd.Context())
				if err != nil {
					return err
				}
				if len(created) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Mirror already initialised")
					return nil
				}
				for _, p := range created {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", p)
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "push",
		Short: "Push every local record to the mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				n, err := app.Service.PushAll(cmd.Context())
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d record(s)\n", n)
				return err
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "pull",
		Short: "Replace local collections with the mirror's records",
		Long: `Replace each local collection with the records found in the mirror.
Collections with no remote records are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				res, err := app.Service.Pull(cmd.Context())
				if err != nil {
					return err
				}
				dirs := make([]string, 0, len(res))
				for d := range res {
					dirs = append(dirs, d)
				}
				sort.Strings(dirs)
				for _, d := range dirs {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d\n", d, res[d])
				}
				if len(dirs) == 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Nothing pulled (%d directories checked)\n", len(mirror.Dirs))
				}
				return nil
			})
		},
	})
	return cmd
}
