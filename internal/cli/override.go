package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/annvangeert/fluisterweek/internal/course"
)

// NewOverrideCommand creates the override command group.
func NewOverrideCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Edit or reset per-day content overrides",
	}
	cmd.AddCommand(newOverrideSetCommand(rootOpts))
	cmd.AddCommand(newOverrideResetCommand(rootOpts))
	return cmd
}

func newOverrideSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <day> <override.json>",
		Short: "Apply a content override to one day",
		Long: `Apply a JSON override file to a day (1-based).

The file holds a partial patch: present fields replace the base content
wholesale, absent fields leave it untouched. Extra exercises are
sanitized on save; corrections are reported but never rejected.

Example:
  fluisterweek override set 2 ./day2.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setOverride(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func setOverride(opts *RootOptions, dayArg, path string, cmd *cobra.Command) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "read override file", err)
	}
	var ov course.Override
	if err := json.Unmarshal(raw, &ov); err != nil {
		return WrapExitError(ExitCommandError, "parse override file", err)
	}

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

	diags, err := eng.SaveOverride(ctx, dayIndex, ov)
	if err != nil {
		return WrapExitError(ExitFailure, "save override", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		details := make([]string, 0, len(diags))
		for _, d := range diags {
			details = append(details, d.String())
		}
		return json.NewEncoder(out).Encode(Response{Status: "ok", Data: map[string]interface{}{
			"day":         dayIndex + 1,
			"diagnostics": details,
		}})
	}

	fmt.Fprintf(out, "Override saved for day %d.\n", dayIndex+1)
	for _, d := range diags {
		fmt.Fprintf(out, "  corrected: %s\n", d)
	}
	return nil
}

func newOverrideResetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset <day>",
		Short: "Remove a day's override, restoring base content",
		Long: `Remove the stored override for a day (1-based). Completion and
notification history are left untouched.

Example:
  fluisterweek override reset 2`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd.Context())
			eng, store, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			dayIndex, err := parseDayArg(args[0], len(eng.Snapshot()))
			if err != nil {
				return err
			}
			if err := eng.ResetDay(ctx, dayIndex); err != nil {
				return WrapExitError(ExitFailure, "reset day", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success(fmt.Sprintf("Day %d restored to base content.", dayIndex+1))
		},
	}
	return cmd
}
