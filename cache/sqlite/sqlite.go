// Package sqlite provides a cache.Cache kept in a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"

	"github.com/dekarrin/plyfin/cache"
)

// Cache is a cache.Cache stored in the compiled table of a SQLite database.
type Cache struct {
	db *sql.DB
}

// Open opens the database at file, creating it if needed, and makes sure it
// has the table the cache is stored in.
func Open(file string) (*Cache, error) {
	c := &Cache{}

	var err error
	c.db, err = sql.Open("sqlite", file)
	if err != nil {
		return nil, wrapDBError(err)
	}

	if err := c.init(); err != nil {
		c.db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) init() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS compiled (
		key TEXT NOT NULL PRIMARY KEY,
		data TEXT NOT NULL,
		created INTEGER NOT NULL
	);`)
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var encData string
	row := c.db.QueryRowContext(ctx, `SELECT data FROM compiled WHERE key = ?;`, key)
	if err := row.Scan(&encData); err != nil {
		return nil, wrapDBError(err)
	}

	data, err := base64.StdEncoding.DecodeString(encData)
	if err != nil {
		return nil, fmt.Errorf("stored data for %s is not valid base64: %w", key, err)
	}
	return data, nil
}

func (c *Cache) Put(ctx context.Context, key string, data []byte) error {
	stmt, err := c.db.PrepareContext(ctx, `INSERT OR REPLACE INTO compiled (key, data, created) VALUES (?, ?, ?);`)
	if err != nil {
		return wrapDBError(err)
	}
	defer stmt.Close()

	encData := base64.StdEncoding.EncodeToString(data)
	_, err = stmt.ExecContext(ctx, key, encData, time.Now().Unix())
	if err != nil {
		return wrapDBError(err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func wrapDBError(err error) error {
	sqliteErr := &sqlite.Error{}
	if errors.As(err, &sqliteErr) {
		return fmt.Errorf("%s", sqlite.ErrorCodeString[sqliteErr.Code()])
	} else if errors.Is(err, sql.ErrNoRows) {
		return cache.ErrNotFound
	}
	return err
}
