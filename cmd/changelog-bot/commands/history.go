package commands

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"changelog-bot/lib/ledger"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "The amount of posts to list.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [-n <limit>]",
	Short: "Lists the most recent post attempts recorded in the ledger.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		l, err := openLedger(g.Config)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		if l == nil {
			return errors.New("ledger.file is not configured")
		}
		defer l.Close()

		records, err := l.List(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Time", "Build", "Chat", "Status", "Message", "Entries", "Reason"})
		t.AppendRows(historyRows(records))
		t.Render()
		return nil
	},
}

func historyRows(records []ledger.Record) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		messageID := ""
		if r.MessageID != 0 {
			messageID = strconv.FormatInt(r.MessageID, 10)
		}
		rows = append(rows, table.Row{
			r.CreatedAt.Format(time.DateTime),
			r.Build,
			r.ChatID,
			string(r.Status),
			messageID,
			r.Entries.Len(),
			r.Reason,
		})
	}
	return rows
}
