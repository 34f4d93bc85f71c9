package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"changelog-bot/internal/components/chrono"
	"changelog-bot/internal/components/telemetry"
	"changelog-bot/lib/changelog"
	"changelog-bot/lib/changelog/store"
	"changelog-bot/lib/ledger"
	"changelog-bot/lib/notify"
	"changelog-bot/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type staticExtractor struct {
	snap *changelog.Snapshot
	err  error
}

func (e staticExtractor) Extract(context.Context) (*changelog.Snapshot, error) {
	return e.snap.Clone(), e.err
}

type sent struct {
	chatID string
	text   string
}

type fakeNotifier struct {
	sent    []sent
	outcome notify.Outcome
	err     error
}

func (n *fakeNotifier) Notify(_ context.Context, chatID, text string) (notify.Outcome, error) {
	n.sent = append(n.sent, sent{chatID: chatID, text: text})
	if n.err != nil {
		return nil, n.err
	}
	if n.outcome != nil {
		return n.outcome, nil
	}
	return notify.Delivered{MessageIDs: []int64{int64(len(n.sent))}}, nil
}

type fakeLedger struct {
	records []ledger.Record
}

func (l *fakeLedger) Record(_ context.Context, rec ledger.Record) (int64, error) {
	l.records = append(l.records, rec)
	return int64(len(l.records)), nil
}

type harness struct {
	store    store.FileStore
	notifier *fakeNotifier
	ledger   *fakeLedger
	tel      *telemetry.Recorder
}

func newHarness(t *testing.T, prev *changelog.Snapshot) *harness {
	t.Helper()
	h := &harness{
		store:    store.NewFileStore(filepath.Join(t.TempDir(), "log", "changelog.json")),
		notifier: &fakeNotifier{},
		ledger:   &fakeLedger{},
		tel:      &telemetry.Recorder{},
	}
	if prev != nil {
		require.NoError(t, h.store.Store(context.Background(), prev))
	}
	return h
}

func (h *harness) options(next *changelog.Snapshot) Options {
	return Options{
		Extractor: staticExtractor{snap: next},
		Store:     h.store,
		Notifier:  h.notifier,
		ChatID:    "-100",
		Ledger:    h.ledger,
		Telemetry: h.tel,
		Clock:     chrono.Fixed(time.Unix(1_700_000_000, 0)),
	}
}

func (h *harness) stored(t *testing.T) map[string]map[string][]string {
	t.Helper()
	snap, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return testutil.Dump(snap)
}

func header(category string) string {
	return changelog.DefaultIcons().Icon(category) + "#<b>" + strings.ToUpper(category) + "</b>:\n"
}

func writeFile(path, contents string) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func TestRunSameBuild(t *testing.T) {
	h := newHarness(t, testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	}))
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs", "Fix crash"}},
	}))
	opts.Retention = store.RetainDelta

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.False(t, result.FirstRun)

	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, sent{
		chatID: "-100",
		text:   "<b>Daily Build: 19.5.501</b>\n\n" + header("sop") + "- Fix crash\n\n",
	}, h.notifier.sent[0])

	require.Empty(t, cmp.Diff(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix crash"}},
	}, h.stored(t)))

	require.Len(t, result.Publications, 1)
	require.Equal(t, notify.Delivered{MessageIDs: []int64{1}}, result.Publications[0].Outcome)
	require.Empty(t, result.Failed())
}

func TestRunNewBuild(t *testing.T) {
	h := newHarness(t, testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	}))
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.510": {"sop": {"New feature"}},
	}))
	opts.Retention = store.RetainDelta

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, h.notifier.sent, 1)
	require.Contains(t, h.notifier.sent[0].text, "<b>Daily Build: 19.5.510</b>")
	require.Contains(t, h.notifier.sent[0].text, "- New feature\n")
	require.Empty(t, cmp.Diff(map[string]map[string][]string{
		"19.5.510": {"sop": {"New feature"}},
	}, h.stored(t)))
}

func TestRunNothingNew(t *testing.T) {
	prev := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})
	h := newHarness(t, prev)

	result, err := Run(context.Background(), h.options(prev))
	require.NoError(t, err)
	require.Empty(t, h.notifier.sent)
	require.Empty(t, result.Publications)
	require.Empty(t, h.ledger.records)
	require.Empty(t, cmp.Diff(testutil.Dump(prev), h.stored(t)))
}

func TestRunFirstRun(t *testing.T) {
	h := newHarness(t, nil)
	next := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.499": {"sop": {"Old fix"}},
		"19.5.501": {"sop": {"Fix bugs"}, "karma": {"Faster"}},
	})

	result, err := Run(context.Background(), h.options(next))
	require.NoError(t, err)
	require.True(t, result.FirstRun)

	require.Len(t, h.notifier.sent, 1)
	text := h.notifier.sent[0].text
	require.Contains(t, text, "<b>Daily Build: 19.5.501</b>")
	require.Contains(t, text, header("karma")+"- Faster\n\n")
	require.Contains(t, text, "- Fix bugs\n\n")
	require.NotContains(t, text, "Old fix")

	// full retention keeps every scraped build
	require.Empty(t, cmp.Diff(testutil.Dump(next), h.stored(t)))

	require.Len(t, h.ledger.records, 1)
	rec := h.ledger.records[0]
	require.Equal(t, "19.5.501", rec.Build)
	require.Equal(t, ledger.StatusDelivered, rec.Status)
	require.Equal(t, int64(1), rec.MessageID)
	require.Equal(t, time.Unix(1_700_000_000, 0), rec.CreatedAt)
	require.Equal(t, 2, rec.Entries.Len())
}

func TestRunIsIdempotentWithFullRetention(t *testing.T) {
	h := newHarness(t, nil)
	next := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs", "Fix crash"}},
	})

	_, err := Run(context.Background(), h.options(next))
	require.NoError(t, err)
	_, err = Run(context.Background(), h.options(next))
	require.NoError(t, err)

	require.Len(t, h.notifier.sent, 1)
}

func TestRunPageWentBackToSeenBuild(t *testing.T) {
	for _, retention := range []store.Retention{store.RetainFull, store.RetainWindow} {
		t.Run(string(retention), func(t *testing.T) {
			h := newHarness(t, testutil.SnapshotOf(map[string]map[string][]string{
				"19.5.501": {"sop": {"Fix bugs"}},
				"19.5.510": {"sop": {"New feature"}},
			}))
			opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
				"19.5.501": {"sop": {"Fix bugs"}},
			}))
			opts.Retention = retention

			for i := 0; i < 3; i++ {
				result, err := Run(context.Background(), opts)
				require.NoError(t, err)
				require.Empty(t, result.Publications)
			}
			require.Empty(t, h.notifier.sent)
			require.Contains(t, h.tel.IDs("warning"), "pipeline: delta.line")
		})
	}
}

func TestRunPageWentBackToUnseenBuild(t *testing.T) {
	h := newHarness(t, testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.510": {"sop": {"New feature"}},
	}))
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	}))

	for i := 0; i < 3; i++ {
		_, err := Run(context.Background(), opts)
		require.NoError(t, err)
	}
	require.Len(t, h.notifier.sent, 1)
	require.Equal(t, "<b>Daily Build: 19.5.501</b>\n\n"+header("sop")+"- Fix bugs\n\n", h.notifier.sent[0].text)
}

func TestRunLines(t *testing.T) {
	h := newHarness(t, testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
		"20.0.100": {"lop": {"Fix usd"}},
	}))
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
		"19.5.502": {"sop": {"Fix crash"}},
		"20.0.100": {"lop": {"Fix usd", "Fix layers"}},
	}))
	opts.Lines = []string{"19.5", "20.0", "21.0"}
	opts.Retention = store.RetainWindow

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)

	require.Len(t, result.Publications, 2)
	require.Equal(t, "19.5.502", result.Publications[0].Build)
	require.Equal(t, []string{"Fix crash"}, result.Publications[0].Delta.EntriesFor("sop"))
	require.Equal(t, "20.0.100", result.Publications[1].Build)
	require.Equal(t, []string{"Fix layers"}, result.Publications[1].Delta.EntriesFor("lop"))
	require.Len(t, h.notifier.sent, 2)

	// 21.0 is not on the page yet
	require.Equal(t, []string{"pipeline: delta.line"}, h.tel.IDs("warning"))

	require.Empty(t, cmp.Diff(map[string]map[string][]string{
		"19.5.502": {"sop": {"Fix crash"}},
		"20.0.100": {"lop": {"Fix layers", "Fix usd"}},
	}, h.stored(t)))
}

func TestRunEmptyPage(t *testing.T) {
	prev := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})
	h := newHarness(t, prev)

	_, err := Run(context.Background(), h.options(changelog.New()))
	require.ErrorIs(t, err, changelog.ErrPrecondition)
	require.Empty(t, h.notifier.sent)
	require.Empty(t, cmp.Diff(testutil.Dump(prev), h.stored(t)))
	require.Equal(t, []string{"pipeline: extract"}, h.tel.IDs("broken"))
}

func TestRunExtractionFails(t *testing.T) {
	prev := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})
	h := newHarness(t, prev)
	opts := h.options(nil)
	boom := errors.New("connection refused")
	opts.Extractor = staticExtractor{err: boom}

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, boom)
	require.Empty(t, h.notifier.sent)
	require.Empty(t, cmp.Diff(testutil.Dump(prev), h.stored(t)))
}

func TestRunMalformedStore(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, writeFile(h.store.Path, "{not json"))

	_, err := Run(context.Background(), h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})))
	require.ErrorIs(t, err, store.ErrMalformed)
	require.Empty(t, h.notifier.sent)

	_, err = h.store.Load(context.Background())
	require.ErrorIs(t, err, store.ErrMalformed)
}

func TestRunNotifyFailureAfterStore(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.err = errors.New("telegram unreachable")
	next := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})

	result, err := Run(context.Background(), h.options(next))
	require.NoError(t, err)
	require.Len(t, result.Failed(), 1)
	require.ErrorIs(t, result.Failed()[0].Err, h.notifier.err)

	// the snapshot was persisted before delivery was attempted
	require.Empty(t, cmp.Diff(testutil.Dump(next), h.stored(t)))
	require.Equal(t, []string{"pipeline: notify"}, h.tel.IDs("broken"))

	require.Len(t, h.ledger.records, 1)
	require.Equal(t, ledger.StatusFailed, h.ledger.records[0].Status)
	require.Equal(t, "telegram unreachable", h.ledger.records[0].Reason)
}

func TestRunRejected(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.outcome = notify.Rejected{Reason: "Bad Request: chat not found"}

	result, err := Run(context.Background(), h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})))
	require.NoError(t, err)
	require.Len(t, result.Failed(), 1)
	require.Equal(t, []string{"pipeline: notify"}, h.tel.IDs("warning"))
	require.Equal(t, ledger.StatusRejected, h.ledger.records[0].Status)
}

func TestRunDryRun(t *testing.T) {
	prev := testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})
	h := newHarness(t, prev)
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs", "Fix crash"}},
	}))
	opts.DryRun = true

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, h.notifier.sent, 1)
	require.Empty(t, h.ledger.records)
	require.Empty(t, cmp.Diff(testutil.Dump(prev), h.stored(t)))
	require.Equal(t, map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs", "Fix crash"}},
	}, testutil.Dump(result.Stored))
}

func TestRunConfirm(t *testing.T) {
	h := newHarness(t, nil)
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
		"20.0.100": {"lop": {"Fix usd"}},
	}))
	opts.Lines = []string{"19.5", "20.0"}

	var asked []string
	opts.Confirm = func(_ context.Context, p Publication) (bool, error) {
		require.Contains(t, p.Message, "<b>Daily Build: "+p.Build+"</b>")
		asked = append(asked, p.Build)
		return p.Build == "20.0.100", nil
	}

	result, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, []string{"19.5.501", "20.0.100"}, asked)
	require.Len(t, h.notifier.sent, 1)
	require.Contains(t, h.notifier.sent[0].text, "20.0.100")

	require.Len(t, result.Publications, 2)
	require.True(t, result.Publications[0].Declined)
	require.Nil(t, result.Publications[0].Outcome)
	require.Empty(t, result.Failed())

	// declined entries still count as seen
	require.Len(t, h.stored(t), 2)
}

func TestRunConfirmError(t *testing.T) {
	h := newHarness(t, nil)
	opts := h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	}))
	opts.Confirm = func(context.Context, Publication) (bool, error) {
		return false, context.Canceled
	}

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, context.Canceled)
	_, err = h.store.Load(context.Background())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunLockHeld(t *testing.T) {
	h := newHarness(t, nil)
	unlock, err := h.store.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()

	h.store.LockPoll = 5 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = Run(ctx, h.options(testutil.SnapshotOf(map[string]map[string][]string{
		"19.5.501": {"sop": {"Fix bugs"}},
	})))
	require.ErrorIs(t, err, store.ErrIO)
	require.Empty(t, h.notifier.sent)
}
