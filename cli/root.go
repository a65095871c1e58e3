// ABOUTME: Root command and global flags of the advisor CLI
// ABOUTME: Assembles the command tree for clients, schedule, mirror, surfaces and sync
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DataDir    string
	Driver     string
	User       string
	Verbose    bool
}

// NewRootCommand creates the root command for the advisor CLI.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "advisor",
		Short:         "CRM for financial advisors",
		Long:          "Clients, workflow board, commission potentials, needs analyses, tasks and meetings, mirrored to a GitHub repository.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/advisor-crm/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory override")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "storage driver (sqlite|badger|charm)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "act as this username instead of the logged-in user")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewClientsCommand(opts))
	cmd.AddCommand(NewPotentialCommand(opts))
	cmd.AddCommand(NewAnalysisCommand(opts))
	cmd.AddCommand(NewTasksCommand(opts))
	cmd.AddCommand(NewMeetingsCommand(opts))
	cmd.AddCommand(NewMirrorCommand(opts))
	cmd.AddCommand(NewVizCommand(opts))
	cmd.AddCommand(NewBoardCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMCPCommand(opts, version))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewCharmCommand(opts))

	return cmd
}
