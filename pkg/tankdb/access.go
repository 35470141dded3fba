package tankdb

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Get returns the stored value for key. ok is false when no record exists.
func (d *DB) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = d.db.QueryRowContext(ctx,
		"SELECT value FROM records WHERE key = ?",
		key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (d *DB) Put(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO records (key, value, updated_at) "+
			"VALUES (?, ?, ?)",
		key,
		value,
		time.Now().Unix(),
	)
	return err
}

func (d *DB) Delete(ctx context.Context, key string) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM records WHERE key = ?", key)
	return err
}
