// ABOUTME: Commission potential and needs analysis commands
// ABOUTME: Edits potential lines by category and prints analysis completion
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/potential"
	"github.com/harperreed/advisor-crm/store"
)

func NewPotentialCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "potential",
		Short: "Client commission potentials",
	}
	cmd.AddCommand(newPotentialShowCommand(opts))
	cmd.AddCommand(newPotentialSetCommand(opts))
	cmd.AddCommand(newPotentialTopCommand(opts))
	return cmd
}

func printPotentialLines(w io.Writer, p models.ClientPotential) {
	for _, c := range potential.Categories {
		line := potential.Line(&p, c)
		mark := " "
		if line.Interested {
			mark = "x"
		}
		_, _ = fmt.Fprintf(w, "  [%s] %-24s %12s", mark, c.Label(), money(line.ExpectedCommission))
		if line.Notes != "" {
			_, _ = fmt.Fprintf(w, "  %s", line.Notes)
		}
		_, _ = fmt.Fprintln(w)
	}
}

func newPotentialShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client's potential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				c, err := app.Service.Client(sess, id)
				if err != nil {
					return err
				}
				p := app.Service.Potential(c.ID)
				w := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(w, "%s: %s (%s)\n", c.FullName(), money(p.TotalExpectedCommission), p.Priority)
				printPotentialLines(w, p)
				return nil
			})
		},
	}
}

func newPotentialSetCommand(opts *RootOptions) *cobra.Command {
	var (
		interested bool
		commission float64
		notes      string
	)
	cmd := &cobra.Command{
		Use:   "set <client-id> <category>",
		Short: "Set interest, expected commission or notes of one category",
		Long: `Set fields of one potential category. Categories: lifeInsurance, investments,
mortgage, auto, property, household, liability. Only the given flags change;
the total and priority are recomputed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cat, err := potential.ParseCategory(args[1])
			if err != nil {
				return err
			}
			var edits []potential.Edit
			if cmd.Flags().Changed("interested") {
				edits = append(edits, potential.SetInterest{Category: cat, Interested: interested})
			}
			if cmd.Flags().Changed("commission") {
				edits = append(edits, potential.SetCommission{Category: cat, Amount: commission})
			}
			if cmd.Flags().Changed("notes") {
				edits = append(edits, potential.SetNotes{Category: cat, Text: notes})
			}
			if len(edits) == 0 {
				return fmt.Errorf("nothing to set; use --interested, --commission or --notes")
			}

			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				c, err := app.Service.Client(sess, id)
				if err != nil {
					return err
				}
				p, err := app.Service.EditPotential(c.ID, edits...)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s (%s)\n", c.FullName(), money(p.TotalExpectedCommission), p.Priority)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&interested, "interested", false, "client is interested in the category")
	cmd.Flags().Float64Var(&commission, "commission", 0, "expected commission in CZK")
	cmd.Flags().StringVar(&notes, "notes", "", "notes for the category")
	return cmd
}

func newPotentialTopCommand(opts *RootOptions) *cobra.Command {
	var (
		limit    int
		priority string
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List potentials by total, highest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				var list []models.ClientPotential
				if priority != "" {
					tier, err := models.ParsePotentialPriority(priority)
					if err != nil {
						return err
					}
					list = potential.Top(app.Service.PotentialsByPriority(tier), -1)
				} else {
					list = app.Service.TopPotentials(-1)
				}

				var rows [][]string
				for _, p := range list {
					if len(rows) == limit {
						break
					}
					c, err := app.Service.Client(sess, p.ClientID)
					if err != nil {
						continue
					}
					rows = append(rows, []string{fmt.Sprint(c.ID), c.FullName(), money(p.TotalExpectedCommission), string(p.Priority)})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "Client", "Potential", "Priority"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "max rows")
	cmd.Flags().StringVar(&priority, "priority", "", "only this tier (NIZKY|STREDNI|VYSOKY)")
	return cmd
}

func NewAnalysisCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analysis",
		Short: "Client needs analyses",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a needs analysis as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				if _, err := app.Service.Client(sess, id); err != nil {
					return err
				}
				a, err := app.Service.Analysis(id)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Completion: %d%%\n", a.CompletionPercentage())
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			})
		},
	})

	var file string
	set := &cobra.Command{
		Use:   "set <client-id> <section>",
		Short: "Replace one questionnaire section from a JSON file or stdin",
		Long: `Replace one section of the needs analysis, starting the analysis if needed.
Sections: goals, existingProducts, cashFlow, insuranceDetails, housingDetails,
investmentDetails.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			section, err := models.ParseSection(args[1])
			if err != nil {
				return err
			}
			var data []byte
			if file == "" || file == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(file)
			}
			if err != nil {
				return fmt.Errorf("failed to read section data: %w", err)
			}
			upd, err := models.DecodeSection(section, data)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				if _, err := app.Service.Client(sess, id); err != nil {
					return err
				}
				a, err := app.Service.UpdateSection(id, upd)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated %s (%d%% complete)\n", section, a.CompletionPercentage())
				return nil
			})
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "JSON file (default: stdin)")
	cmd.AddCommand(set)
	return cmd
}
