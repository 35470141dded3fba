// tankdb is the durable local storage of the dashboard process.
// It holds a handful of small JSON records under fixed keys,
// one row per key, last writer wins.
package tankdb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type DB struct {
	db *sql.DB
}

// Open opens (or creates) the record database at path and applies migrations.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer, avoids SQLITE_BUSY between the API and the connector
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open record db: %w", err)
	}

	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
