package store

import (
	"fmt"

	"changelog-bot/lib/changelog"
)

// Retention decides what is written back after a run.
type Retention string

const (
	// RetainFull keeps every build ever seen, merged with the current scrape.
	RetainFull Retention = "full"
	// RetainWindow is RetainFull limited to the most recent build of every
	// tracked release line, stored or scraped.
	RetainWindow Retention = "window"
	// RetainDelta keeps only the entries that were new in this run. The next
	// run will consider already published entries new again unless the page
	// drops them.
	RetainDelta Retention = "delta"
)

func ParseRetention(s string) (Retention, error) {
	switch Retention(s) {
	case "":
		return RetainFull, nil
	case RetainFull, RetainWindow, RetainDelta:
		return Retention(s), nil
	}
	return "", fmt.Errorf("unknown retention policy %q (expected full, window or delta)", s)
}

// Apply computes the document to persist from the previously stored
// snapshot, the snapshot scraped this run and the per-line deltas
// (fresh) computed from them.
func (r Retention) Apply(prev, scraped, fresh *changelog.Snapshot, lines []string) *changelog.Snapshot {
	switch r {
	case RetainDelta:
		return fresh.Clone()
	case RetainWindow:
		out := prev.Clone()
		out.Merge(scraped)
		if len(lines) == 0 {
			lines = []string{""}
		}
		// the page's latest build is kept even when an older one than what
		// was stored, otherwise it would be new again on the next run
		var latest []string
		for _, line := range lines {
			for _, snap := range []*changelog.Snapshot{out, scraped} {
				build, _, ok := snap.LastIn(line)
				if ok {
					latest = append(latest, build)
				}
			}
		}
		out.Retain(latest...)
		out.Prune()
		return out
	default:
		out := prev.Clone()
		out.Merge(scraped)
		out.Prune()
		return out
	}
}
