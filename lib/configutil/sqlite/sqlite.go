// Package configsqlite opens the sqlite databases named in config files.
package configsqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	devenv "changelog-bot/dev/env"

	_ "modernc.org/sqlite"
)

type Struct struct {
	// File may start with "<dev_state>", ":memory:" opens a private in-memory
	// database.
	File string `json:"file"`
}

// OpenDB opens (creating if needed) the database and applies schema.
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	if config.File == "" {
		return nil, fmt.Errorf("a path was not specified")
	}

	dbpath := config.File
	if dbpath != ":memory:" {
		var err error
		dbpath, err = devenv.ResolvePath(config.File)
		if err != nil {
			return nil, err
		}
		err = os.MkdirAll(filepath.Dir(dbpath), 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// a single connection serialises writers, and keeps ":memory:" to one
	// database.
	db.SetMaxOpenConns(1)
	if dbpath != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	if err != nil {
		db.Close()
		return nil, err
	}
	if schema != "" {
		_, err = db.Exec(schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}
