package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/noah-isme/dept-slot-api/internal/models"
)

// SummaryCmd creates the summary command and its export subcommand.
func SummaryCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the slot coverage and compliance of a department",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deptID, err := app.requireDept()
			if err != nil {
				return err
			}
			summary, err := app.API.Slots.DepartmentSummary(cmd.Context(), deptID)
			if err != nil {
				return fmt.Errorf("failed to load summary: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d of %d teachers assigned, at most %d per slot\n",
				summary.DeptName, summary.TeachersWithAssignments, summary.TotalTeachers, summary.MaxTeachersPerSlot)

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprint(w, "SLOT")
			for _, d := range models.Days() {
				fmt.Fprintf(w, "\t%.3s", d)
			}
			fmt.Fprintln(w, "\tTEACHERS\tSHARE")
			for _, t := range models.SlotTypes {
				ts, ok := summary.SlotDistribution[string(t)]
				if !ok {
					continue
				}
				fmt.Fprint(w, ts.Name)
				for _, d := range models.Days() {
					fmt.Fprintf(w, "\t%d", ts.Days[d.String()].Count)
				}
				fmt.Fprintf(w, "\t%d\t%d%%\n", ts.TeacherCount, ts.Percentage)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\nStatus: %s\n", summary.Compliance.Status)
			for _, issue := range summary.Compliance.Issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			return nil
		},
	}
	cmd.AddCommand(exportSummaryCmd(app))
	return cmd
}

func exportSummaryCmd(app *AppContext) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the summary as CSV or PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deptID, err := app.requireDept()
			if err != nil {
				return err
			}
			body, _, err := app.API.Slots.ExportSummary(cmd.Context(), deptID, format)
			if err != nil {
				return fmt.Errorf("failed to export summary: %w", err)
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(body), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(models.ExportCSV), "Export format: csv or pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write; stdout when empty")
	return cmd
}
