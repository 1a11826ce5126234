package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/dept-slot-api/internal/plan"
)

// ApplyCmd creates the apply command, which plays a YAML plan onto the board.
func ApplyCmd(app *AppContext) *cobra.Command {
	var dryRun, strict bool

	cmd := &cobra.Command{
		Use:   "apply <plan.yaml>",
		Short: "Apply a placement plan day by day",
		Long: `Apply reads a plan of per-day placements and saves each day in turn.
Placements that break a slot rule are reported and skipped unless --strict is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			switch {
			case app.DeptID == "":
				app.DeptID = p.DeptID
			case p.DeptID != "" && p.DeptID != app.DeptID:
				return fmt.Errorf("plan is for department %s, not %s", p.DeptID, app.DeptID)
			}
			return runPlan(cmd, app, p, plan.Options{DryRun: dryRun, Strict: strict})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the operations without saving")
	cmd.Flags().BoolVar(&strict, "strict", false, "Stop at the first rejected placement")
	return cmd
}

// AssignCmd creates the assign command for a single placement.
func AssignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <day> <teacher> <slot>",
		Short: "Put a teacher into a slot on one day and save",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &plan.Plan{Days: []plan.DayPlan{{
				Day:    args[0],
				Assign: []plan.Placement{{Teacher: args[1], Slot: args[2]}},
			}}}
			return runPlan(cmd, app, p, plan.Options{Strict: true})
		},
	}
}

// UnassignCmd creates the unassign command.
func UnassignCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <day> <teacher>...",
		Short: "Take teachers off a day and save",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &plan.Plan{Days: []plan.DayPlan{{Day: args[0], Remove: args[1:]}}}
			return runPlan(cmd, app, p, plan.Options{Strict: true})
		},
	}
}

func runPlan(cmd *cobra.Command, app *AppContext, p *plan.Plan, opts plan.Options) error {
	b, err := app.OpenBoard(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to open board: %w", err)
	}
	opts.Logger = app.Logger

	outcomes, err := plan.Apply(cmd.Context(), b, p, opts)
	printOutcomes(cmd.OutOrStdout(), outcomes, opts.DryRun)
	return err
}

func printOutcomes(out io.Writer, outcomes []plan.Outcome, dryRun bool) {
	for _, o := range outcomes {
		fmt.Fprintf(out, "%s:", o.Day)
		switch {
		case dryRun:
			fmt.Fprintf(out, " %d operations (dry run)\n", len(o.Operations))
		case o.Saved && o.Result != nil:
			fmt.Fprintf(out, " %d of %d operations saved\n", o.Result.SuccessCount, o.Result.TotalOperations)
		default:
			fmt.Fprintln(out, " not saved")
		}
		for _, op := range o.Operations {
			fmt.Fprintf(out, "  %-6s %s -> %s\n", op.Action, op.TeacherID, op.SlotID)
		}
		for _, r := range o.Rejected {
			fmt.Fprintf(out, "  rejected %s into %s: %s\n", r.Teacher, r.Slot, r.Err)
		}
		if o.Result != nil {
			for _, f := range o.Result.Failed() {
				msg := f.Error
				if msg == "" {
					msg = f.Reason
				}
				fmt.Fprintf(out, "  failed %s %s: %s\n", f.Action, f.TeacherID, msg)
			}
		}
	}
}
