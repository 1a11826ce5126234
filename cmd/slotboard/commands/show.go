package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/noah-isme/dept-slot-api/internal/allocation"
	"github.com/noah-isme/dept-slot-api/internal/board"
	"github.com/noah-isme/dept-slot-api/internal/models"
)

// ShowCmd creates the show command, which prints the board for one day or
// the whole week.
func ShowCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [day]",
		Short: "Show who holds which slot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			days := models.Days()
			if len(args) == 1 {
				day, err := models.ParseDay(args[0])
				if err != nil {
					return err
				}
				days = []models.DayOfWeek{day}
			}

			b, err := app.OpenBoard(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to open board: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d teachers, at most %d per slot per day\n", len(b.Teachers()), b.Capacity())
			week := b.Week()
			for _, day := range days {
				printDay(out, b, day, week[day])
			}
			return nil
		},
	}
}

func printDay(out io.Writer, b *board.Board, day models.DayOfWeek, placements []allocation.Placement) {
	names := make(map[string]string)
	for _, t := range b.Teachers() {
		names[t.ID] = t.FullName
	}
	bySlot := make(map[string][]string)
	for _, p := range placements {
		name, ok := names[p.TeacherID]
		if !ok {
			name = p.TeacherID
		}
		bySlot[p.SlotID] = append(bySlot[p.SlotID], name)
	}

	fmt.Fprintf(out, "\n%s\n", day)
	for _, s := range b.Slots() {
		held := bySlot[s.ID]
		list := "-"
		if len(held) > 0 {
			list = strings.Join(held, ", ")
		}
		fmt.Fprintf(out, "  %-8s %d/%d  %s\n", s.Name, b.Occupancy(day, s.ID), b.Capacity(), list)
	}
}
