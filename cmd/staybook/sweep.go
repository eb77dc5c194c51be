package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"staybook/internal/app/commands"
	remindersapp "staybook/internal/app/handlers/reminders"
)

func newSweepCommand(load configLoader) *cobra.Command {
	var day string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Send the arrival, departure and parking reminders due today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(load)
			if err != nil {
				return err
			}
			s, err := assemble(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := commands.Dispatch[remindersapp.RunSweepCommand, *remindersapp.SweepResult](systemContext(cmd.Context()), s.app.Commands, remindersapp.RunSweepCommand{Day: day})
			if err != nil {
				logger.Error("reminder sweep failed", "error", err)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringVar(&day, "day", "", "business day to sweep as YYYY-MM-DD (default today)")
	return cmd
}
