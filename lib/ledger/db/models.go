package db

import (
	"database/sql"
)

type Publication struct {
	ID        int64
	Build     string
	Line      string
	ChatID    string
	Message   string
	Status    string
	MessageID sql.NullInt64
	Reason    string
	CreatedAt int64
}

type PublicationEntry struct {
	PublicationID int64
	Category      string
	Description   string
}
