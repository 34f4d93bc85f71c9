package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"changelog-bot/lib/serviceutil"
	"changelog-bot/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

// active is shut down once the command returns, failed or not.
var active telemetry.Telemetry

type globalsKey struct{}

type globals struct {
	Config    Config
	Telemetry telemetry.Telemetry
}

func getGlobals(ctx context.Context) *globals {
	return ctx.Value(globalsKey{}).(*globals)
}

var rootCmd = &cobra.Command{
	Use:   "changelog-bot",
	Short: "changelog-bot announces new entries of the SideFX daily build changelog.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		cfg, err := LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		tel, err := telemetry.SetupFromEnv(cmd.Context(), "changelog-bot")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		if tel.Enabled() {
			telemetry.InstrumentPerfStats(cmd.Context(), 5*time.Second)
		}

		active = tel

		ctx := context.WithValue(cmd.Context(), globalsKey{}, &globals{
			Config:    cfg,
			Telemetry: tel,
		})
		cmd.SetContext(ctx)
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file to read, <name>.local.json5 is merged on top of it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and HTTP dumps.")
}

func ExecuteContext(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)

	shutdownErr := active.Shutdown(context.Background())
	if shutdownErr != nil {
		slog.Warn("failed to shutdown telemetry", "err", shutdownErr)
	}
	if err != nil {
		serviceutil.Fatal("changelog-bot failed", err)
	}
}
