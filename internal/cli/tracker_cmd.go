package cli

import (
	"fmt"
	"strconv"

	"github.com/alexanderramin/hourglass/internal/cli/formatter"
	"github.com/alexanderramin/hourglass/internal/service"
	"github.com/spf13/cobra"
)

func newTrackerCmd(app *App) *cobra.Command {
	var login string

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Manage running time trackers",
	}
	cmd.PersistentFlags().StringVar(&login, "user", "", "Login of the acting user")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(
		newTrackerStartCmd(app, &login),
		newTrackerStopCmd(app, &login),
		newTrackerListCmd(app, &login),
		newTrackerShowCmd(app, &login),
		newTrackerDestroyCmd(app, &login),
	)
	return cmd
}

// startInput holds start parameters as typed, before parsing.
type startInput struct {
	Project  string
	Issue    string
	Activity string
	Comments string
	Round    bool
}

func (in *startInput) params() (*service.TrackerParams, error) {
	p := &service.TrackerParams{Round: &in.Round}
	var err error
	if p.ProjectID, err = parseOptionalID("project", in.Project); err != nil {
		return nil, err
	}
	if p.IssueID, err = parseOptionalID("issue", in.Issue); err != nil {
		return nil, err
	}
	if p.ActivityID, err = parseOptionalID("activity", in.Activity); err != nil {
		return nil, err
	}
	if in.Comments != "" {
		comments := in.Comments
		p.Comments = &comments
	}
	return p, nil
}

func parseOptionalID(name, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%s must be a positive number, got %q", name, s)
	}
	return &id, nil
}

func newTrackerStartCmd(app *App, login *string) *cobra.Command {
	var in startInput
	var interactive bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a time tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := resolveActor(ctx, app, *login)
			if err != nil {
				return err
			}
			if interactive {
				if app.IsInteractive != nil && !app.IsInteractive() {
					return fmt.Errorf("--interactive requires a terminal")
				}
				prompt := app.PromptStart
				if prompt == nil {
					prompt = runStartForm
				}
				if err := prompt(&in); err != nil {
					return err
				}
			}
			params, err := in.params()
			if err != nil {
				return err
			}

			t, err := app.Trackers.Start(ctx, actor, params)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTracker(t, app.Labels, app.now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Project, "project", "", "Project ID")
	cmd.Flags().StringVar(&in.Issue, "issue", "", "Issue ID; the project is taken from the issue when omitted")
	cmd.Flags().StringVar(&in.Activity, "activity", "", "Activity ID")
	cmd.Flags().StringVar(&in.Comments, "comments", "", "Comments")
	cmd.Flags().BoolVar(&in.Round, "round", false, "Round the booked duration")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Fill in the tracker with a form")
	return cmd
}

func newTrackerStopCmd(app *App, login *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop [id|current]",
		Short: "Stop a tracker and log its time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := resolveActor(ctx, app, *login)
			if err != nil {
				return err
			}
			result, err := app.Trackers.Stop(ctx, actor, refArg(args))
			if err != nil {
				return describeError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStopResult(result.TimeLog, result.TimeBooking))
			return nil
		},
	}
}

func newTrackerListCmd(app *App, login *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the trackers you may see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := resolveActor(ctx, app, *login)
			if err != nil {
				return err
			}
			trackers, err := app.Trackers.List(ctx, actor)
			if err != nil {
				return describeError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTrackerList(trackers, app.Labels, app.now()))
			return nil
		},
	}
}

func newTrackerShowCmd(app *App, login *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id|current]",
		Short: "Show a tracker",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := resolveActor(ctx, app, *login)
			if err != nil {
				return err
			}
			t, err := app.Trackers.Get(ctx, actor, refArg(args))
			if err != nil {
				return describeError(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTracker(t, app.Labels, app.now()))
			return nil
		},
	}
}

// newTrackerDestroyCmd discards one tracker, or several at once through the
// bulk path, which reports each id separately.
func newTrackerDestroyCmd(app *App, login *string) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy [id|current]...",
		Short: "Discard trackers without logging time",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			actor, err := resolveActor(ctx, app, *login)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) <= 1 {
				ref := refArg(args)
				if err := app.Trackers.Destroy(ctx, actor, ref); err != nil {
					return describeError(err)
				}
				fmt.Fprintf(out, "Destroyed time tracker %s\n", ref)
				return nil
			}

			result, err := app.Trackers.BulkDestroy(ctx, actor, args)
			if err != nil {
				return describeError(err)
			}
			for _, o := range result.Outcomes {
				if o.OK() {
					fmt.Fprintf(out, "%s %s\n", formatter.StyleGreen.Render("✔"), o.ID)
					continue
				}
				fmt.Fprintf(out, "%s %s: %s\n", formatter.StyleRed.Render("✖"), o.ID, service.ToSentence(o.Errors))
			}
			if result.Status() != service.BulkSucceeded {
				return fmt.Errorf("%d of %d trackers could not be destroyed", len(result.Failed()), len(result.Outcomes))
			}
			return nil
		},
	}
}
