package sqlite

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DSN builds the go-sqlite3 connection string for path. Every pooled connection gets
// foreign keys enabled and a busy timeout, and write transactions take the
// database lock when they begin so seat counts cannot race.
func DSN(path string) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "5000")
	params.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + params.Encode()
}

// Open opens the database at path and applies pending migrations.
// The returned string describes the schema version change.
func Open(path string) (*sqlx.DB, string, error) {
	db, err := sqlx.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("set journal mode: %w", err)
	}

	info, err := Migrate(db.DB)
	if err != nil {
		db.Close()
		return nil, "", err
	}
	return db, info, nil
}
