package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/annvangeert/fluisterweek/internal/webhook"
)

// NewWebhookCommand creates the webhook command group.
func NewWebhookCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Configure and test notification webhooks",
	}
	cmd.AddCommand(newWebhookSetCommand(rootOpts))
	cmd.AddCommand(newWebhookShowCommand(rootOpts))
	cmd.AddCommand(newWebhookTestCommand(rootOpts))
	return cmd
}

func newWebhookSetCommand(rootOpts *RootOptions) *cobra.Command {
	var watched, notWatched string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the notification endpoints",
		Long: `Set the webhook endpoints for completion and expiry events.

An empty endpoint disables notifications of that kind. Both flags
replace the stored value; omitting a flag clears its endpoint.

Example:
  fluisterweek webhook set --watched https://hooks.example.com/done \
    --not-watched https://hooks.example.com/missed`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd.Context())
			eng, store, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := webhook.Config{Watched: watched, NotWatched: notWatched}
			if err := eng.SetWebhooks(ctx, cfg); err != nil {
				return WrapExitError(ExitFailure, "save webhook config", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Success("Webhook configuration saved.")
		},
	}

	cmd.Flags().StringVar(&watched, "watched", "", "endpoint for completion events")
	cmd.Flags().StringVar(&notWatched, "not-watched", "", "endpoint for expiry events")
	return cmd
}

func newWebhookShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the configured endpoints",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd.Context())
			eng, store, err := openEngine(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer store.Close()

			cfg := eng.Webhooks()
			if rootOpts.Format == "json" {
				formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return formatter.Success(cfg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "watched:     %s\n", orUnset(cfg.Watched))
			fmt.Fprintf(cmd.OutOrStdout(), "not-watched: %s\n", orUnset(cfg.NotWatched))
			return nil
		},
	}
}

func newWebhookTestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <day> <kind>",
		Short: "Fire one test notification synchronously",
		Long: `Send a single test notification with the same payload a real
transition would produce. Kind is "watched" or "not-watched".

Example:
  fluisterweek webhook test 1 watched`,
		Args:          cobra.ExactArgs(2),
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
			kind, err := parseKindArg(args[1])
			if err != nil {
				return err
			}

			outcome, err := eng.TestWebhook(ctx, dayIndex, kind)
			if err != nil {
				return WrapExitError(ExitFailure, "test webhook", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			switch outcome {
			case webhook.OutcomeSent:
				return formatter.Success("Notification sent.")
			case webhook.OutcomeSkippedNoEndpoint:
				return NewExitError(ExitFailure, "no endpoint configured for kind "+args[1])
			default:
				return NewExitError(ExitFailure, "notification attempt failed")
			}
		},
	}
	return cmd
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
