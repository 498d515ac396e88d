//go:build cgo_sqlite

package main

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

const dbDriver = "sqlite3"

// initDB opens the database at path with the cgo driver.
func initDB(path string) (*sql.DB, error) {
	return sql.Open(dbDriver, "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
}
