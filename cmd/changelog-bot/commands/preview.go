package commands

import (
	"fmt"
	"os"

	"changelog-bot/internal/pipeline"
	"changelog-bot/lib/notify"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(previewCmd)
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Prints what the next run would post without sending or persisting anything.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		opts, cleanup, err := pipelineOptions(g.Config)
		if err != nil {
			return fmt.Errorf("setup preview: %w", err)
		}
		defer cleanup()
		opts.DryRun = true
		opts.Ledger = nil
		opts.Notifier = notify.Console{Out: os.Stdout}
		opts.ChatID = "preview"

		result, err := pipeline.Run(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("preview: %w", err)
		}
		if len(result.Publications) == 0 {
			fmt.Println("nothing new")
		}
		return nil
	},
}
