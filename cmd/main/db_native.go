//go:build !cgo_sqlite

package main

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

const dbDriver = "sqlite"

// initDB opens the database at path with the pure-Go driver, which takes its
// pragmas as _pragma query parameters.
func initDB(path string) (*sql.DB, error) {
	return sql.Open(dbDriver, "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}
