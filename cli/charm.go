// ABOUTME: Charm Cloud commands for the charm storage driver
// ABOUTME: Shows link status and forces a sync with the charm server
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNotCharm = errors.New("storage driver is not charm (use --driver charm)")

func NewCharmCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charm",
		Short: "Charm Cloud storage link",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the charm link of this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				if app.charm == nil {
					return errNotCharm
				}
				st := app.charm.Status()
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "Server:    %s\n", st.Host)
				_, _ = fmt.Fprintf(w, "Auto-sync: %t\n", st.AutoSync)
				if st.Connected {
					_, _ = fmt.Fprintf(w, "Account:   %s\n", st.ID)
				} else {
					_, _ = fmt.Fprintln(w, "Account:   not linked")
				}
				_, _ = fmt.Fprintf(w, "Keys:      %d\n", st.Keys)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Sync the local charm database with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				if app.charm == nil {
					return errNotCharm
				}
				if err := app.charm.Sync(); err != nil {
					return fmt.Errorf("failed to sync with charm: %w", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Synced")
				return nil
			})
		},
	})
	return cmd
}
