// ABOUTME: Client commands: list, add, show, update, move along the workflow, delete
// ABOUTME: All changes go through the service so they reach the remote mirror
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
	"github.com/harperreed/advisor-crm/workflow"
)

func NewClientsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clients",
		Aliases: []string{"client"},
		Short:   "Manage clients",
	}
	cmd.AddCommand(newClientsListCommand(opts))
	cmd.AddCommand(newClientsAddCommand(opts))
	cmd.AddCommand(newClientsShowCommand(opts))
	cmd.AddCommand(newClientsUpdateCommand(opts))
	cmd.AddCommand(newClientsMoveCommand(opts))
	cmd.AddCommand(newClientsStepCommand(opts, "advance", "Move a client to the next stage", 1))
	cmd.AddCommand(newClientsStepCommand(opts, "retreat", "Move a client to the previous stage", -1))
	cmd.AddCommand(newClientsDeleteCommand(opts))
	return cmd
}

func newClientsListCommand(opts *RootOptions) *cobra.Command {
	var query, stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visible clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				var clients []models.Client
				switch {
				case stage != "":
					s, err := models.ParseStage(stage)
					if err != nil {
						return err
					}
					clients = app.Service.ClientsInStage(sess, s)
				case query != "":
					clients = app.Service.SearchClients(sess, query)
				default:
					clients = app.Service.Clients(sess)
				}

				rows := make([][]string, 0, len(clients))
				for _, c := range clients {
					p := app.Service.Potential(c.ID)
					rows = append(rows, []string{
						fmt.Sprint(c.ID), c.FullName(), c.Email, workflow.DisplayName(c.WorkflowStage),
						money(p.TotalExpectedCommission), c.AdvisorName,
					})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Email", "Stage", "Potential", "Advisor"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search name, email or phone")
	cmd.Flags().StringVar(&stage, "stage", "", "only clients in this stage")
	return cmd
}

type clientFlags struct {
	first, last, dob, email, phone, address, city, postal, notes, stage string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.first, "first", "", "first name")
	cmd.Flags().StringVar(&f.last, "last", "", "last name")
	cmd.Flags().StringVar(&f.dob, "dob", "", "date of birth (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.email, "email", "", "email")
	cmd.Flags().StringVar(&f.phone, "phone", "", "phone")
	cmd.Flags().StringVar(&f.address, "address", "", "street address")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.postal, "postal", "", "postal code")
	cmd.Flags().StringVar(&f.notes, "notes", "", "notes")
}

func newClientsAddCommand(opts *RootOptions) *cobra.Command {
	f := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a client owned by the acting user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				c := models.Client{
					FirstName: f.first, LastName: f.last, DateOfBirth: f.dob,
					Email: f.email, Phone: f.phone, Address: f.address,
					City: f.city, PostalCode: f.postal, Notes: f.notes,
				}
				if f.stage != "" {
					s, err := models.ParseStage(f.stage)
					if err != nil {
						return err
					}
					c.WorkflowStage = s
				}
				created, err := app.Service.CreateClient(sess, c)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created client %d: %s (%s)\n", created.ID, created.FullName(), workflow.DisplayName(created.WorkflowStage))
				return nil
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.stage, "stage", "", "initial stage (default NAVOLANI)")
	return cmd
}

func newClientsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a client with potential, analysis, tasks and meetings",
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
				printClient(cmd.OutOrStdout(), app, c)
				return nil
			})
		},
	}
}

func printClient(w io.Writer, app *App, c models.Client) {
	_, _ = fmt.Fprintf(w, "%s (#%d)\n", c.FullName(), c.ID)
	_, _ = fmt.Fprintf(w, "  Stage:    %s\n", workflow.DisplayName(c.WorkflowStage))
	_, _ = fmt.Fprintf(w, "  Advisor:  %s\n", c.AdvisorName)
	for _, kv := range [][2]string{
		{"Email", c.Email}, {"Phone", c.Phone}, {"Born", c.DateOfBirth},
		{"Address", c.Address}, {"City", c.City}, {"Postal", c.PostalCode}, {"Notes", c.Notes},
	} {
		if kv[1] != "" {
			_, _ = fmt.Fprintf(w, "  %-9s %s\n", kv[0]+":", kv[1])
		}
	}

	p := app.Service.Potential(c.ID)
	_, _ = fmt.Fprintf(w, "\nPotential: %s (%s)\n", money(p.TotalExpectedCommission), p.Priority)
	printPotentialLines(w, p)

	if a, err := app.Service.Analysis(c.ID); err == nil {
		_, _ = fmt.Fprintf(w, "\nNeeds analysis: %d%% complete\n", a.CompletionPercentage())
	}

	tasks := app.Store.TasksForClient(c.ID)
	if len(tasks) > 0 {
		_, _ = fmt.Fprintf(w, "\nTasks (%d):\n", len(tasks))
		for _, t := range tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			_, _ = fmt.Fprintf(w, "  [%s] #%d %s %s\n", mark, t.ID, t.Title, t.DueDate)
		}
	}
	meetings := app.Store.MeetingsForClient(c.ID)
	if len(meetings) > 0 {
		_, _ = fmt.Fprintf(w, "\nMeetings (%d):\n", len(meetings))
		for _, m := range meetings {
			_, _ = fmt.Fprintf(w, "  #%d %s %s\n", m.ID, m.StartTime.Format("2006-01-02 15:04"), m.Title)
		}
	}
}

func newClientsUpdateCommand(opts *RootOptions) *cobra.Command {
	f := &clientFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update client fields; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch store.ClientPatch
			set := func(name string, v string, dst **string) {
				if cmd.Flags().Changed(name) {
					*dst = &v
				}
			}
			set("first", f.first, &patch.FirstName)
			set("last", f.last, &patch.LastName)
			set("dob", f.dob, &patch.DateOfBirth)
			set("email", f.email, &patch.Email)
			set("phone", f.phone, &patch.Phone)
			set("address", f.address, &patch.Address)
			set("city", f.city, &patch.City)
			set("postal", f.postal, &patch.PostalCode)
			set("notes", f.notes, &patch.Notes)

			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				if _, err := app.Service.Client(sess, id); err != nil {
					return err
				}
				c, err := app.Service.UpdateClient(id, patch)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated client %d: %s\n", c.ID, c.FullName())
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newClientsMoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a client to a workflow stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stage, err := models.ParseStage(args[1])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				if _, err := app.Service.Client(sess, id); err != nil {
					return err
				}
				c, changed, err := app.Service.MoveClient(id, stage)
				if err != nil {
					return err
				}
				reportMove(cmd.OutOrStdout(), c, changed)
				return nil
			})
		},
	}
}

func newClientsStepCommand(opts *RootOptions, use, short string, dir int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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
				step := app.Service.Advance
				if dir < 0 {
					step = app.Service.Retreat
				}
				c, changed, err := step(id)
				if err != nil {
					return err
				}
				reportMove(cmd.OutOrStdout(), c, changed)
				return nil
			})
		},
	}
}

func reportMove(w io.Writer, c models.Client, changed bool) {
	if !changed {
		_, _ = fmt.Fprintf(w, "%s is already in %s\n", c.FullName(), workflow.DisplayName(c.WorkflowStage))
		return
	}
	_, _ = fmt.Fprintf(w, "✓ Moved %s to %s\n", c.FullName(), workflow.DisplayName(c.WorkflowStage))
}

func newClientsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a client with its potential and needs analysis",
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
				if _, err := app.Service.DeleteClient(id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted client %d: %s\n", id, c.FullName())
				return nil
			})
		},
	}
}
