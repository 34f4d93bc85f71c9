// Package ledger keeps a history of every changelog post attempt in sqlite.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"changelog-bot/lib/changelog"
	configsqlite "changelog-bot/lib/configutil/sqlite"
	"changelog-bot/lib/ledger/db"
	"changelog-bot/lib/notify"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("changelog-bot/lib/ledger")

var ErrNoPublication = errors.New("no matching publication")

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
	// StatusFailed means delivery could not be attempted or was interrupted.
	StatusFailed Status = "failed"
)

// Record is a single post attempt of one build.
type Record struct {
	ID      int64
	Build   string
	Line    string
	ChatID  string
	Message string
	Status  Status
	// MessageID is the first posted message, 0 unless delivered.
	MessageID int64
	Reason    string
	CreatedAt time.Time
	Entries   *changelog.CategorySet
}

// StatusOf converts the result of a Notifier call into what is recorded.
func StatusOf(outcome notify.Outcome, err error) (status Status, messageID int64, reason string) {
	if err != nil {
		return StatusFailed, 0, err.Error()
	}
	switch o := outcome.(type) {
	case notify.Delivered:
		if len(o.MessageIDs) > 0 {
			messageID = o.MessageIDs[0]
		}
		return StatusDelivered, messageID, ""
	case notify.Rejected:
		return StatusRejected, 0, o.Reason
	}
	return StatusFailed, 0, "no outcome"
}

type Ledger struct {
	db  *sql.DB
	qry *db.Queries
	now func() time.Time
}

func New(database *sql.DB) *Ledger {
	return &Ledger{
		db:  database,
		qry: db.New(database),
		now: time.Now,
	}
}

// Open opens the ledger database at path, creating it if needed.
func Open(path string) (*Ledger, error) {
	database, err := configsqlite.Struct{File: path}.OpenDB(db.Schema)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return New(database), nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record stores rec and its entries in one transaction and returns its id.
// A zero CreatedAt is set to the current time.
func (l *Ledger) Record(ctx context.Context, rec Record) (int64, error) {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()

	span.SetAttributes(
		attribute.String("build", rec.Build),
		attribute.String("status", string(rec.Status)),
	)

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	defer tx.Rollback()
	txqry := l.qry.WithTx(tx)

	id, err := txqry.CreatePublication(ctx, db.CreatePublicationParams{
		Build:   rec.Build,
		Line:    rec.Line,
		ChatID:  rec.ChatID,
		Message: rec.Message,
		Status:  string(rec.Status),
		MessageID: sql.NullInt64{
			Int64: rec.MessageID,
			Valid: rec.MessageID != 0,
		},
		Reason:    rec.Reason,
		CreatedAt: rec.CreatedAt.Unix(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	for _, category := range rec.Entries.Categories() {
		for _, description := range rec.Entries.EntriesFor(category) {
			err = txqry.CreatePublicationEntry(ctx, db.CreatePublicationEntryParams{
				PublicationID: id,
				Category:      category,
				Description:   description,
			})
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return 0, err
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}
	return id, nil
}

func (l *Ledger) fromRow(ctx context.Context, row db.Publication) (Record, error) {
	entries, err := l.qry.GetPublicationEntries(ctx, row.ID)
	if err != nil {
		return Record{}, err
	}
	set := changelog.NewCategorySet()
	for _, e := range entries {
		set.Add(e.Category, e.Description)
	}
	return Record{
		ID:        row.ID,
		Build:     row.Build,
		Line:      row.Line,
		ChatID:    row.ChatID,
		Message:   row.Message,
		Status:    Status(row.Status),
		MessageID: row.MessageID.Int64,
		Reason:    row.Reason,
		CreatedAt: time.Unix(row.CreatedAt, 0),
		Entries:   set,
	}, nil
}

// List returns at most limit records, newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	rows, err := l.qry.ListPublications(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := l.fromRow(ctx, row)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LastDelivered returns the newest delivered post to chatID.
func (l *Ledger) LastDelivered(ctx context.Context, chatID string) (Record, error) {
	ctx, span := tracer.Start(ctx, "LastDelivered")
	defer span.End()

	row, err := l.qry.GetLastDelivered(ctx, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: nothing delivered to %s", ErrNoPublication, chatID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Record{}, err
	}
	return l.fromRow(ctx, row)
}
