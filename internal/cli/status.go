package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/annvangeert/fluisterweek/internal/engine"
)

// statusRow is the JSON projection of one day's status.
type statusRow struct {
	Day              int    `json:"day"` // 1-based
	State            string `json:"state"`
	Title            string `json:"title"`
	UnlocksAt        string `json:"unlocksAt,omitempty"`
	CompletedAt      string `json:"completedAt,omitempty"`
	ExpiryNotifiedAt string `json:"expiryNotifiedAt,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show each day's unlock and completion state",
		Long: `Show the current state of every course day.

Each day is one of: locked (unlock threshold not reached),
unlocked-pending (selectable, awaiting completion), completed, or
expired-notified (expired uncompleted; the not-watched webhook was
attempted).

Example:
  fluisterweek status --db ./fluisterweek.db
  fluisterweek status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func showStatus(opts *RootOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd.Context())
	eng, store, err := openEngine(ctx, opts)
	if err != nil {
		return err
	}
	defer store.Close()

	// One scan so the expiry flags shown match what a running engine
	// would have recorded by now.
	eng.Tick(ctx)
	eng.WaitDispatches()

	rows := make([]statusRow, 0, len(eng.Snapshot()))
	for _, st := range eng.Snapshot() {
		row := statusRow{
			Day:   st.Index + 1,
			State: string(st.State),
			Title: st.Content.Title,
		}
		if st.State == engine.StateLocked {
			row.UnlocksAt = st.UnlocksAt.Format(time.RFC3339)
		}
		if !st.CompletedAt.IsZero() {
			row.CompletedAt = st.CompletedAt.Format(time.RFC3339)
		}
		if !st.ExpiryNotifiedAt.IsZero() {
			row.ExpiryNotifiedAt = st.ExpiryNotifiedAt.Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	if opts.Format == "json" {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(Response{Status: "ok", Data: rows})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tSTATE\tTITLE\tDETAIL")
	for _, row := range rows {
		detail := ""
		switch {
		case row.CompletedAt != "":
			detail = "completed " + row.CompletedAt
		case row.UnlocksAt != "":
			detail = "unlocks " + row.UnlocksAt
		case row.ExpiryNotifiedAt != "":
			detail = "notified " + row.ExpiryNotifiedAt
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.Day, row.State, row.Title, detail)
	}
	return w.Flush()
}
