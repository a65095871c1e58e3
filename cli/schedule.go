// ABOUTME: Task and meeting commands
// ABOUTME: Pending/completed/overdue task lists, completion, daily and weekly calendar
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harperreed/advisor-crm/models"
	"github.com/harperreed/advisor-crm/store"
)

func NewTasksCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage tasks",
	}

	var filter string
	var clientID int64
	list := &cobra.Command{
		Use:   "list",
		Short: "List visible tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				var tasks []models.Task
				switch filter {
				case "pending":
					tasks = app.Store.PendingTasks(sess)
				case "completed":
					tasks = app.Store.CompletedTasks(sess)
				case "overdue":
					tasks = app.Store.OverdueTasks(sess)
				case "all":
					tasks = app.Store.VisibleTasks(sess)
				default:
					return fmt.Errorf("invalid filter %q (valid: pending, completed, overdue, all)", filter)
				}
				now := app.Store.Now()
				var rows [][]string
				for _, t := range tasks {
					if clientID != 0 && (t.ClientID == nil || *t.ClientID != clientID) {
						continue
					}
					state := "open"
					switch {
					case t.Completed:
						state = "done"
					case t.Overdue(now):
						state = "overdue"
					}
					rows = append(rows, []string{fmt.Sprint(t.ID), t.Title, string(t.Priority), t.DueDate, state})
				}
				printTable(cmd.OutOrStdout(), []string{"ID", "Title", "Priority", "Due", "State"}, rows)
				return nil
			})
		},
	}
	list.Flags().StringVar(&filter, "filter", "pending", "pending|completed|overdue|all")
	list.Flags().Int64Var(&clientID, "client", 0, "only tasks of this client")
	cmd.AddCommand(list)

	var (
		description, priority, due string
		forClient                  int64
	)
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task assigned to the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				t := models.Task{
					Title:       args[0],
					Description: description,
					Priority:    models.TaskPriority(priority),
					DueDate:     due,
				}
				if forClient != 0 {
					if _, err := app.Service.Client(sess, forClient); err != nil {
						return err
					}
					t.ClientID = &forClient
				}
				created, err := app.Service.CreateTask(sess, t)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created task %d: %s\n", created.ID, created.Title)
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "description")
	add.Flags().StringVar(&priority, "priority", "", "LOW|MEDIUM|HIGH|URGENT (default MEDIUM)")
	add.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD)")
	add.Flags().Int64Var(&forClient, "client", 0, "related client id")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				t, err := app.Store.Task(id)
				if err != nil {
					return err
				}
				if !sess.CanSeeTask(t) {
					return fmt.Errorf("task %d: %w", id, store.ErrNotFound)
				}
				t, changed, err := app.Service.CompleteTask(id)
				if err != nil {
					return err
				}
				if !changed {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %d was already completed\n", t.ID)
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Completed task %d: %s\n", t.ID, t.Title)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				t, err := app.Store.Task(id)
				if err != nil {
					return err
				}
				if !sess.CanSeeTask(t) {
					return fmt.Errorf("task %d: %w", id, store.ErrNotFound)
				}
				if _, err := app.Service.DeleteTask(id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted task %d\n", id)
				return nil
			})
		},
	})
	return cmd
}

func NewMeetingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meetings",
		Aliases: []string{"meeting"},
		Short:   "Manage meetings",
	}

	var (
		date string
		week bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List meetings of a day or its Monday-start week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				day := app.Store.Now()
				if date != "" {
					d, err := time.ParseInLocation(models.DateLayout, date, day.Location())
					if err != nil {
						return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", date)
					}
					day = d
				}
				w := cmd.OutOrStdout()
				if !week {
					printMeetings(cmd, app.Store.MeetingsOn(sess, day))
					return nil
				}
				for _, d := range app.Store.Week(sess, day) {
					_, _ = fmt.Fprintf(w, "%s %s\n", d.Date.Format("Mon"), d.Date.Format(models.DateLayout))
					for _, m := range d.Meetings {
						_, _ = fmt.Fprintf(w, "  %s-%s  %s\n", m.StartTime.Format("15:04"), m.EndTime.Format("15:04"), m.Title)
					}
				}
				return nil
			})
		},
	}
	list.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD, default today)")
	list.Flags().BoolVar(&week, "week", false, "show the whole week")
	cmd.AddCommand(list)

	var (
		start, location, meetingType, notes string
		duration                            time.Duration
		forClient                           int64
	)
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a meeting owned by the acting user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), opts, func(app *App, sess store.Session) error {
				begin, err := time.ParseInLocation("2006-01-02 15:04", start, app.Store.Now().Location())
				if err != nil {
					return fmt.Errorf("invalid --start %q (want \"YYYY-MM-DD HH:MM\")", start)
				}
				m := models.Meeting{
					Title:       args[0],
					StartTime:   begin,
					EndTime:     begin.Add(duration),
					Location:    location,
					MeetingType: meetingType,
					Notes:       notes,
				}
				if forClient != 0 {
					if _, err := app.Service.Client(sess, forClient); err != nil {
						return err
					}
					m.ClientID = &forClient
				}
				created, err := app.Service.CreateMeeting(sess, m)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created meeting %d: %s at %s\n", created.ID, created.Title, created.StartTime.Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
	add.Flags().StringVar(&start, "start", "", "start time \"YYYY-MM-DD HH:MM\" (required)")
	add.Flags().DurationVar(&duration, "duration", time.Hour, "length")
	add.Flags().StringVar(&location, "location", "", "location")
	add.Flags().StringVar(&meetingType, "type", "", "meeting type")
	add.Flags().StringVar(&notes, "notes", "", "notes")
	add.Flags().Int64Var(&forClient, "client", 0, "related client id")
	_ = add.MarkFlagRequired("start")
	cmd.AddCommand(add)

	return cmd
}

func printMeetings(cmd *cobra.Command, meetings []models.Meeting) {
	var rows [][]string
	for _, m := range meetings {
		rows = append(rows, []string{
			fmt.Sprint(m.ID),
			m.StartTime.Format("15:04") + "-" + m.EndTime.Format("15:04"),
			m.Title,
			m.Location,
		})
	}
	printTable(cmd.OutOrStdout(), []string{"ID", "Time", "Title", "Location"}, rows)
}
