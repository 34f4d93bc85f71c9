package commands

import (
	"errors"
	"fmt"
	"log/slog"

	"changelog-bot/lib/notify"

	"github.com/spf13/cobra"
)

var forwardMessageID int64

func init() {
	forwardCmd.Flags().Int64Var(&forwardMessageID, "message-id", 0, "The message to forward, defaults to the last delivered post in the ledger.")
	rootCmd.AddCommand(forwardCmd)
}

var forwardCmd = &cobra.Command{
	Use:   "forward <chat id> [--message-id <id>]",
	Short: "Forwards a changelog post from the configured chat to another chat.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())
		fromChat := g.Config.Telegram.ChatID
		if fromChat == "" {
			return errors.New("telegram chat id is not set")
		}

		messageID := forwardMessageID
		if messageID == 0 {
			l, err := openLedger(g.Config)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			if l == nil {
				return errors.New("pass --message-id or configure ledger.file")
			}
			rec, err := l.LastDelivered(cmd.Context(), fromChat)
			l.Close()
			if err != nil {
				return fmt.Errorf("find a post to forward: %w", err)
			}
			messageID = rec.MessageID
		}

		bot, err := newTelegram(g.Config)
		if err != nil {
			return fmt.Errorf("setup telegram: %w", err)
		}
		outcome, err := bot.ForwardMessage(cmd.Context(), fromChat, args[0], messageID)
		if err != nil {
			return fmt.Errorf("forward: %w", err)
		}
		if !notify.IsDelivered(outcome) {
			return fmt.Errorf("forward: %s", outcome.String())
		}
		slog.Info("forwarded", "message_id", messageID, "to", args[0], "outcome", outcome.String())
		return nil
	},
}
