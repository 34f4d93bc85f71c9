package commands

import (
	"testing"
	"time"

	"changelog-bot/lib/changelog"
	"changelog-bot/lib/ledger"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRows(t *testing.T) {
	snap := changelog.New()
	snap.Fill("19.5.99", "sop", "Old fix")
	snap.Fill("19.5.501", "sop", "Fix crash")
	snap.Fill("19.5.501", "karma", "Faster")
	snap.Fill("20.0.100", "lop", "Fix usd")

	require.Equal(t, []table.Row{
		{"20.0.100", "lop", "Fix usd"},
		{"19.5.501", "karma", "Faster"},
		{"19.5.501", "sop", "Fix crash"},
		{"19.5.99", "sop", "Old fix"},
	}, snapshotRows(snap, "", false))

	require.Equal(t, []table.Row{
		{"19.5.501", "karma", "Faster"},
		{"19.5.501", "sop", "Fix crash"},
	}, snapshotRows(snap, "19.5", true))

	require.Empty(t, snapshotRows(changelog.New(), "", false))
}

func TestHistoryRows(t *testing.T) {
	at := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	entries := changelog.NewCategorySet()
	entries.Add("sop", "Fix crash")

	rows := historyRows([]ledger.Record{
		{Build: "19.5.501", ChatID: "-100", Status: ledger.StatusDelivered, MessageID: 42, CreatedAt: at, Entries: entries},
		{Build: "19.5.502", ChatID: "-100", Status: ledger.StatusRejected, Reason: "chat not found", CreatedAt: at},
	})
	require.Equal(t, []table.Row{
		{"2024-07-01 09:30:00", "19.5.501", "-100", "delivered", "42", 1, ""},
		{"2024-07-01 09:30:00", "19.5.502", "-100", "rejected", "", 0, "chat not found"},
	}, rows)
}
