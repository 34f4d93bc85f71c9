// Package pipeline runs a single scrape, diff, persist and announce cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"changelog-bot/internal/assert"
	"changelog-bot/internal/components/chrono"
	"changelog-bot/internal/components/telemetry"
	"changelog-bot/lib/changelog"
	"changelog-bot/lib/changelog/store"
	"changelog-bot/lib/ledger"
	"changelog-bot/lib/notify"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("changelog-bot/internal/pipeline")

const (
	report_lock    = "store.lock"
	report_extract = "extract"
	report_load    = "store.load"
	report_store   = "store.store"
	report_line    = "delta.line"
	report_entries = "delta.entries"
	report_confirm = "confirm"
	report_notify  = "notify"
	report_ledger  = "ledger.record"
)

type Extractor interface {
	Extract(ctx context.Context) (*changelog.Snapshot, error)
}

// Store is implemented by store.FileStore.
type Store interface {
	Lock(ctx context.Context) (unlock func() error, err error)
	LoadOrEmpty(ctx context.Context) (snap *changelog.Snapshot, found bool, err error)
	Store(ctx context.Context, snap *changelog.Snapshot) error
}

// Ledger is implemented by ledger.Ledger.
type Ledger interface {
	Record(ctx context.Context, rec ledger.Record) (int64, error)
}

// Confirmer decides whether a rendered publication should be sent, it is
// asked before anything is persisted.
type Confirmer func(ctx context.Context, p Publication) (bool, error)

type Options struct {
	Extractor Extractor
	Store     Store
	Retention store.Retention
	// Lines are the release lines to announce, none means the most recent
	// build of the page.
	Lines    []string
	Renderer changelog.Renderer
	Notifier notify.Notifier
	ChatID   string
	// Ledger and Confirm are optional.
	Ledger  Ledger
	Confirm Confirmer
	// DryRun computes and announces without persisting the snapshot or
	// recording to the ledger.
	DryRun    bool
	Telemetry telemetry.API
	Clock     chrono.API
}

// Publication is the announcement of the new entries of one build.
type Publication struct {
	Line    string
	Build   string
	Delta   *changelog.CategorySet
	Message string
	// Outcome and Err are the result of the Notifier, both are nil when the
	// publication was declined.
	Outcome  notify.Outcome
	Err      error
	Declined bool
}

type Result struct {
	Publications []Publication
	// Stored is what was (or in a dry run, would have been) persisted.
	Stored *changelog.Snapshot
	// FirstRun is true when no snapshot was persisted before.
	FirstRun bool
}

// Failed lists the publications that were attempted but not delivered.
func (r Result) Failed() []Publication {
	var out []Publication
	for _, p := range r.Publications {
		if p.Declined {
			continue
		}
		if p.Err != nil || !notify.IsDelivered(p.Outcome) {
			out = append(out, p)
		}
	}
	return out
}

func (o *Options) defaults() {
	assert.NotNil("extractor", o.Extractor)
	assert.NotNil("store", o.Store)
	assert.NotNil("notifier", o.Notifier)

	if o.Retention == "" {
		o.Retention = store.RetainFull
	}
	if o.Renderer.Icons == nil {
		o.Renderer = changelog.NewRenderer(changelog.DefaultIcons())
	}
	if o.Telemetry == nil {
		o.Telemetry = telemetry.SlogAPI{}
	}
	o.Telemetry = telemetry.NewScopedAPI("pipeline", o.Telemetry)
	if o.Clock == nil {
		o.Clock, _ = chrono.NewStandardImpl("")
	}
}

// Run performs one cycle. The snapshot is persisted before anything is
// announced, so a failed delivery is reported in the result and never
// retried by a later run. Errors returned leave the persisted snapshot
// untouched.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts.defaults()
	tel := opts.Telemetry

	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("dry_run", opts.DryRun),
		attribute.String("retention", string(opts.Retention)),
	)

	fail := func(id string, err error) (Result, error) {
		tel.ReportBroken(id, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, id)
		return Result{}, err
	}

	unlock, err := opts.Store.Lock(ctx)
	if err != nil {
		return fail(report_lock, err)
	}
	defer func() {
		err := unlock()
		if err != nil {
			tel.ReportWarning(report_lock, err)
		}
	}()

	scraped, err := opts.Extractor.Extract(ctx)
	if err != nil {
		return fail(report_extract, fmt.Errorf("extract: %w", err))
	}
	if scraped.IsEmpty() {
		return fail(report_extract, fmt.Errorf("extract: %w", &changelog.PreconditionError{}))
	}

	prev, found, err := opts.Store.LoadOrEmpty(ctx)
	if err != nil {
		return fail(report_load, fmt.Errorf("load: %w", err))
	}
	if !found {
		tel.ReportDebug("no previous snapshot, every entry is new")
	}

	pending, fresh := deltas(tel, prev, scraped, opts.Lines)

	if opts.Confirm != nil {
		for i := range pending {
			if pending[i].Delta.IsEmpty() {
				continue
			}
			pending[i].Message = opts.Renderer.Message(pending[i].Build, pending[i].Delta)
			ok, err := opts.Confirm(ctx, pending[i])
			if err != nil {
				return fail(report_confirm, fmt.Errorf("confirm: %w", err))
			}
			pending[i].Declined = !ok
		}
	}

	next := opts.Retention.Apply(prev, scraped, fresh, opts.Lines)
	if !opts.DryRun {
		err = opts.Store.Store(ctx, next)
		if err != nil {
			return fail(report_store, fmt.Errorf("store: %w", err))
		}
	}

	result := Result{Stored: next, FirstRun: !found}
	for _, p := range pending {
		tel.ReportCount(report_entries, int64(p.Delta.Len()))
		if p.Delta.IsEmpty() {
			tel.ReportDebug("no new entries", p.Line, p.Build)
			continue
		}
		if p.Declined {
			tel.ReportDebug("publication declined", p.Line, p.Build)
			result.Publications = append(result.Publications, p)
			continue
		}
		if p.Message == "" {
			p.Message = opts.Renderer.Message(p.Build, p.Delta)
		}

		p.Outcome, p.Err = opts.Notifier.Notify(ctx, opts.ChatID, p.Message)
		switch {
		case p.Err != nil:
			tel.ReportBroken(report_notify, p.Err, p.Build)
		case !notify.IsDelivered(p.Outcome):
			tel.ReportWarning(report_notify, p.Build, p.Outcome.String())
		default:
			tel.ReportDebug("published", p.Build, p.Outcome.String())
		}
		result.Publications = append(result.Publications, p)

		if opts.Ledger == nil || opts.DryRun {
			continue
		}
		status, messageID, reason := ledger.StatusOf(p.Outcome, p.Err)
		_, err := opts.Ledger.Record(ctx, ledger.Record{
			Build:     p.Build,
			Line:      p.Line,
			ChatID:    opts.ChatID,
			Message:   p.Message,
			Status:    status,
			MessageID: messageID,
			Reason:    reason,
			CreatedAt: opts.Clock.Now(),
			Entries:   p.Delta,
		})
		if err != nil {
			tel.ReportWarning(report_ledger, err)
		}
	}

	span.SetAttributes(attribute.Int("publications", len(result.Publications)))
	return result, nil
}

// deltas computes the pending publication of every line and the snapshot
// holding only their new entries. Lines the page has no build for are
// skipped, as are lines resolving to a build another line already covers.
// A build already in prev is diffed against its stored entries even when
// prev has a newer build in the line.
func deltas(tel telemetry.API, prev, scraped *changelog.Snapshot, lines []string) ([]Publication, *changelog.Snapshot) {
	if len(lines) == 0 {
		lines = []string{""}
	}

	fresh := changelog.New()
	seen := map[string]bool{}
	var pending []Publication
	for _, line := range lines {
		build, delta, err := changelog.DeltaSeen(prev, scraped, line)
		if errors.Is(err, changelog.ErrPrecondition) {
			tel.ReportWarning(report_line, line, err)
			continue
		}
		if latest, _, ok := prev.LastIn(line); ok && changelog.CompareBuilds(latest, build) > 0 {
			tel.ReportWarning(report_line, line, fmt.Sprintf("page went back from %s to %s", latest, build))
		}
		if seen[build] {
			continue
		}
		seen[build] = true

		fresh.Merge(changelog.WithSingle(build, delta))
		pending = append(pending, Publication{
			Line:  line,
			Build: build,
			Delta: delta,
		})
	}
	return pending, fresh
}
