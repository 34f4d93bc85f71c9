package commands

import (
	"fmt"
	"log/slog"
	"os"

	"changelog-bot/internal/pipeline"
	"changelog-bot/lib/notify"
	"changelog-bot/lib/serviceutil"

	"github.com/spf13/cobra"
)

// exit_undelivered is the status of a run that stored the snapshot but
// failed to deliver some posts, those entries will not be posted again.
const exit_undelivered = 2

var (
	runDryRun  bool
	runConfirm bool
)

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the posts instead of sending them and do not persist anything.")
	runCmd.Flags().BoolVar(&runConfirm, "confirm", false, "Ask for confirmation before every post.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--dry-run] [--confirm]",
	Short: "Scrapes the changelog, persists it and posts the new entries.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		opts, cleanup, err := pipelineOptions(g.Config)
		if err != nil {
			return fmt.Errorf("setup run: %w", err)
		}
		defer cleanup()

		if runDryRun {
			opts.DryRun = true
			opts.Notifier = notify.Console{Out: os.Stdout}
			opts.ChatID = "dry run"
		} else {
			opts.Notifier, opts.ChatID, err = newNotifier(g.Config)
			if err != nil {
				return fmt.Errorf("setup notifier: %w", err)
			}
		}
		if runConfirm {
			opts.Confirm = promptConfirm(os.Stdin, os.Stdout)
		}

		result, err := pipeline.Run(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		return reportResult(result)
	},
}

// reportResult logs every publication and returns an error with the
// exit_undelivered status when some were not delivered.
func reportResult(result pipeline.Result) error {
	if len(result.Publications) == 0 {
		slog.Info("no new entries")
	}
	for _, p := range result.Publications {
		switch {
		case p.Declined:
			slog.Info("declined", "build", p.Build)
		case p.Err != nil:
			slog.Error("failed to post", "build", p.Build, "err", p.Err)
		default:
			slog.Info("posted", "build", p.Build, "entries", p.Delta.Len(), "outcome", p.Outcome.String())
		}
	}

	failed := result.Failed()
	if len(failed) == 0 {
		return nil
	}
	return &serviceutil.ExitError{
		Code: exit_undelivered,
		Err:  fmt.Errorf("snapshot stored but %d of %d posts were not delivered", len(failed), len(result.Publications)),
	}
}
