package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompleteCommand creates the complete command.
func NewCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <day>",
		Short: "Toggle a day's completion state",
		Long: `Toggle completion for a day (1-based).

Completing a day records the completion instant and fires the watched
webhook if one is configured. Toggling an already-completed day clears
the completion silently; a previously fired expiry notification is
never retracted.

Example:
  fluisterweek complete 3 --db ./fluisterweek.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggleComplete(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func toggleComplete(opts *RootOptions, dayArg string, cmd *cobra.Command) error {
	ctx := commandContext(cmd.Context())
	eng, store, err := openEngine(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	dayIndex, err := parseDayArg(dayArg, len(eng.Snapshot()))
	if err != nil {
		return err
	}

	done, err := eng.ToggleCompleted(ctx, dayIndex)
	if err != nil {
		return WrapExitError(ExitFailure, "toggle completion", err)
	}
	eng.WaitDispatches()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if done {
		return formatter.Success(fmt.Sprintf("Day %d marked completed.", dayIndex+1))
	}
	return formatter.Success(fmt.Sprintf("Day %d completion cleared.", dayIndex+1))
}
