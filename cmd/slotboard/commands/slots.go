package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// SlotsCmd creates the slots command group.
func SlotsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List or seed the fixed teaching slots",
	}
	cmd.AddCommand(listSlotsCmd(app), initSlotsCmd(app))
	return cmd
}

func listSlotsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slots, err := app.API.Slots.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list slots: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tSTART\tEND\tID")
			for _, s := range slots {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Type, s.Name, s.StartTime, s.EndTime, s.ID)
			}
			return w.Flush()
		},
	}
}

func initSlotsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the default slots if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.API.Slots.InitializeDefaults(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize slots: %w", err)
			}
			if res.Created == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Default slots already exist.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d default slots.\n", res.Created)
			return nil
		},
	}
}
