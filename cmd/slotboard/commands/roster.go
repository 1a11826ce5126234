package commands

import (
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/dept-slot-api/internal/dto"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// TeachersCmd creates the teachers command.
func TeachersCmd(app *AppContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "teachers",
		Short: "List the teachers on the roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if !all {
				query.Set("active", "true")
			}
			if app.DeptID != "" {
				query.Set("dept_id", app.DeptID)
			}
			teachers, err := app.API.Teachers.List(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("failed to list teachers: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tNAME\tDEPARTMENT\tACTIVE\tID")
			for _, t := range teachers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", t.StaffCode, t.FullName, t.DeptID, t.Active, t.ID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include inactive teachers")
	return cmd
}

// DepartmentsCmd creates the departments command.
func DepartmentsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "departments",
		Short: "List departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			departments, err := app.API.Departments.List(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("failed to list departments: %w", err)
			}
			for _, d := range departments {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name)
			}
			return nil
		},
	}
}

// AssignmentsCmd creates the assignments command, a filtered listing of the
// persisted week with optional aggregate stats.
func AssignmentsCmd(app *AppContext) *cobra.Command {
	var day, teacherID, slotType string
	var stats bool

	cmd := &cobra.Command{
		Use:   "assignments",
		Short: "List saved assignments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := dto.TeacherSlotQuery{DeptID: app.DeptID, TeacherID: teacherID, IncludeStats: stats}
			if day != "" {
				d, err := models.ParseDay(day)
				if err != nil {
					return err
				}
				q.DayOfWeek = &d
			}
			if slotType != "" {
				q.SlotType = models.SlotType(slotType)
				if !q.SlotType.Valid() {
					return fmt.Errorf("unknown slot type %q", slotType)
				}
			}

			res, err := app.API.Slots.TeacherSlots(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("failed to list assignments: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DAY\tSLOT\tTEACHER")
			for _, a := range res.Assignments {
				fmt.Fprintf(w, "%s\t%s\t%s\n", a.DayOfWeek, a.SlotName, a.TeacherName)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if res.Stats != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nper slot: %v\nper day: %v\ndays held: %v\n",
					res.Stats.SlotCounts, res.Stats.DayCounts, res.Stats.DaysAssignedDistribution)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day name or number (0 is Monday)")
	cmd.Flags().StringVar(&teacherID, "teacher", "", "Teacher id")
	cmd.Flags().StringVar(&slotType, "slot-type", "", "Slot type: A, B or C")
	cmd.Flags().BoolVar(&stats, "stats", false, "Include aggregate counts")
	return cmd
}
