package commands

import (
	"fmt"

	"changelog-bot/lib/changelog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	showLine   string
	showLatest bool
)

func init() {
	showCmd.Flags().StringVar(&showLine, "line", "", "Only show builds of a release line, ex. 19.5.")
	showCmd.Flags().BoolVar(&showLatest, "latest", false, "Only show the most recent build.")
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show [--line <line>] [--latest]",
	Short: "Prints the persisted snapshot as a table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		g := getGlobals(cmd.Context())

		snap, _, err := newStore(g.Config).LoadOrEmpty(cmd.Context())
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Build", "Category", "Description"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 1, AutoMerge: true},
			{Number: 2, AutoMerge: true},
		})
		t.AppendRows(snapshotRows(snap, showLine, showLatest))
		t.Render()
		return nil
	},
}

// snapshotRows lists every entry of the builds in line, newest build first.
func snapshotRows(snap *changelog.Snapshot, line string, latest bool) []table.Row {
	builds := snap.Builds()
	var rows []table.Row
	for i := len(builds) - 1; i >= 0; i-- {
		build := builds[i]
		if !changelog.InLine(build, line) {
			continue
		}
		set, _ := snap.Get(build)
		for _, category := range set.Categories() {
			for _, description := range set.EntriesFor(category) {
				rows = append(rows, table.Row{build, category, description})
			}
		}
		if latest {
			break
		}
	}
	return rows
}
