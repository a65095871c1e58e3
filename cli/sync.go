// ABOUTME: Google Calendar sync commands
// ABOUTME: One-time OAuth consent and meeting import with sync-state reporting
package cli

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/sync"
)

func NewSyncCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Import meetings from Google Calendar",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Authorise calendar access in the browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			conf, err := sync.NewOAuthConfig(cfg.Google)
			if err != nil {
				return err
			}
			token, err := sync.Authorize(cmd.Context(), conf, func(url string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Opening browser for Google OAuth...\n\nIf the browser doesn't open, visit:\n%s\n\n", url)
				_ = openBrowser(url)
			})
			if err != nil {
				return err
			}
			if err := sync.SaveToken(sync.TokenPath(), token); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Authenticated, token saved to %s\n", sync.TokenPath())
			return nil
		},
	})

	var initial bool
	calendarCmd := &cobra.Command{
		Use:   "calendar",
		Short: "Import timed calendar events as meetings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				conf, err := sync.NewOAuthConfig(app.Config.Google)
				if err != nil {
					return err
				}
				token, err := sync.LoadToken(sync.TokenPath())
				if err != nil {
					return fmt.Errorf("%w (run 'advisor sync init' first)", err)
				}
				source, err := sync.NewGoogleSource(cmd.Context(), conf, token, app.Config.Google.CalendarID)
				if err != nil {
					return err
				}
				res, err := sync.NewImporter(app.Service, sess, source, app.Logger).Import(cmd.Context(), initial)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "✓ Fetched %d events: %d new, %d updated meetings\n", res.Fetched, res.Created, res.Updated)
				reasons := make([]string, 0, len(res.Skipped))
				for r := range res.Skipped {
					reasons = append(reasons, r)
				}
				sort.Strings(reasons)
				for _, r := range reasons {
					_, _ = fmt.Fprintf(w, "  skipped %d %s\n", res.Skipped[r], r)
				}
				return nil
			})
		},
	}
	calendarCmd.Flags().BoolVar(&initial, "initial", false, "ignore the sync token and fetch the last six months")
	cmd.AddCommand(calendarCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the last calendar import",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(app *App) error {
				st, err := app.Store.SyncState(sync.CalendarService)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if st == nil {
					_, _ = fmt.Fprintln(w, "Calendar: never synced")
					return nil
				}
				_, _ = fmt.Fprintf(w, "Calendar: %s\n", st.Status)
				if st.LastSyncTime != nil {
					_, _ = fmt.Fprintf(w, "Last sync: %s\n", st.LastSyncTime.Format("2006-01-02 15:04"))
				}
				if st.ErrorMessage != "" {
					_, _ = fmt.Fprintf(w, "Error: %s\n", st.ErrorMessage)
				}
				return nil
			})
		},
	})
	return cmd
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
