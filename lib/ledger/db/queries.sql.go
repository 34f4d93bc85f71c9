package db

import (
	"context"
	"database/sql"
)

const createPublication = `-- name: CreatePublication :one
insert into publication (build, line, chat_id, message, status, message_id, reason, created_at)
values (?, ?, ?, ?, ?, ?, ?, ?)
returning id
`

type CreatePublicationParams struct {
	Build     string
	Line      string
	ChatID    string
	Message   string
	Status    string
	MessageID sql.NullInt64
	Reason    string
	CreatedAt int64
}

func (q *Queries) CreatePublication(ctx context.Context, arg CreatePublicationParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createPublication,
		arg.Build,
		arg.Line,
		arg.ChatID,
		arg.Message,
		arg.Status,
		arg.MessageID,
		arg.Reason,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const createPublicationEntry = `-- name: CreatePublicationEntry :exec
insert or ignore into publication_entry (publication_id, category, description)
values (?, ?, ?)
`

type CreatePublicationEntryParams struct {
	PublicationID int64
	Category      string
	Description   string
}

func (q *Queries) CreatePublicationEntry(ctx context.Context, arg CreatePublicationEntryParams) error {
	_, err := q.db.ExecContext(ctx, createPublicationEntry, arg.PublicationID, arg.Category, arg.Description)
	return err
}

const getLastDelivered = `-- name: GetLastDelivered :one
select id, build, line, chat_id, message, status, message_id, reason, created_at from publication
where chat_id = ? and status = 'delivered' and message_id is not null
order by created_at desc, id desc
limit 1
`

func (q *Queries) GetLastDelivered(ctx context.Context, chatID string) (Publication, error) {
	row := q.db.QueryRowContext(ctx, getLastDelivered, chatID)
	var i Publication
	err := row.Scan(
		&i.ID,
		&i.Build,
		&i.Line,
		&i.ChatID,
		&i.Message,
		&i.Status,
		&i.MessageID,
		&i.Reason,
		&i.CreatedAt,
	)
	return i, err
}

const getPublicationEntries = `-- name: GetPublicationEntries :many
select category, description from publication_entry
where publication_id = ?
order by category, description
`

type GetPublicationEntriesRow struct {
	Category    string
	Description string
}

func (q *Queries) GetPublicationEntries(ctx context.Context, publicationID int64) ([]GetPublicationEntriesRow, error) {
	rows, err := q.db.QueryContext(ctx, getPublicationEntries, publicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetPublicationEntriesRow
	for rows.Next() {
		var i GetPublicationEntriesRow
		if err := rows.Scan(&i.Category, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPublications = `-- name: ListPublications :many
select id, build, line, chat_id, message, status, message_id, reason, created_at from publication
order by created_at desc, id desc
limit ?
`

func (q *Queries) ListPublications(ctx context.Context, limit int64) ([]Publication, error) {
	rows, err := q.db.QueryContext(ctx, listPublications, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Publication
	for rows.Next() {
		var i Publication
		if err := rows.Scan(
			&i.ID,
			&i.Build,
			&i.Line,
			&i.ChatID,
			&i.Message,
			&i.Status,
			&i.MessageID,
			&i.Reason,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
