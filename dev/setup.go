package main

import (
	"fmt"
	"log/slog"
	"os"

	configsqlite "changelog-bot/lib/configutil/sqlite"
	"changelog-bot/lib/ledger/db"
)

const localConfig = `{
    // written by "go run ./dev", every path lives in dev/.state
    notifier: "console",
    store: {file: "<dev_state>/changelog.json"},
    ledger: {file: "<dev_state>/ledger.db"},
    resty_output: "<dev_state>/resty",
}
`

func CreateLedgerDB() error {
	database, err := configsqlite.Struct{File: "<dev_state>/ledger.db"}.OpenDB(db.Schema)
	if err != nil {
		return err
	}
	return database.Close()
}

// CreateLocalConfig writes config.local.json5 unless one already exists.
func CreateLocalConfig() error {
	_, err := os.Stat("config.local.json5")
	if err == nil {
		fmt.Println("config.local.json5 already exists, leaving it alone")
		return nil
	}
	return os.WriteFile("config.local.json5", []byte(localConfig), 0644)
}

func PrintConfigLocations() {
	slog.Info("dev config written to config.local.json5, run `go run ./cmd/changelog-bot -v preview` to try it out. Put a BOT_TOKEN and CHAT_ID into .env and switch the notifier to telegram to post for real.")
}
