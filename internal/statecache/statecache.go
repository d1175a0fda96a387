// Package statecache persists verifier states between render runs.
// Querying the verifier dominates render time; states are keyed by the
// BLAKE3 hash of the source file plus the queried position, so an
// unchanged file renders again without starting the verifier at all.
//
// Build modes:
//   - Default: pure Go driver (modernc.org/sqlite)
//   - -tags cgo_sqlite with CGO_ENABLED=1: mattn/go-sqlite3
package statecache

import (
	"database/sql"
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/Lectern/core/errors"
	"github.com/FocuswithJustin/Lectern/core/lecture"
	"github.com/FocuswithJustin/Lectern/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS states (
    source_hash TEXT NOT NULL,
    line        INTEGER NOT NULL,
    col         INTEGER NOT NULL,
    state       TEXT NOT NULL,
    PRIMARY KEY (source_hash, line, col)
);
`

// DriverType returns "purego" or "cgo" depending on build tags.
func DriverType() string {
	return driverType
}

// Cache is a SQLite-backed store of verifier states.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize cache schema")
	}
	logging.CacheEvent("opened", "path", path, "driver", driverType)
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key returns the cache key for a source file's content.
func Key(source []byte) string {
	h := blake3.Sum256(source)
	return hex.EncodeToString(h[:])
}

// Get looks up a cached state. The second return value reports whether
// the position was cached; an empty cached state is a valid entry.
func (c *Cache) Get(key string, line, column int) (string, bool, error) {
	var state string
	err := c.db.QueryRow(
		"SELECT state FROM states WHERE source_hash = ? AND line = ? AND col = ?",
		key, line, column,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to query cache")
	}
	return state, true, nil
}

// Put stores a state, replacing any previous entry for the position.
func (c *Cache) Put(key string, line, column int, state string) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO states (source_hash, line, col, state) VALUES (?, ?, ?, ?)",
		key, line, column, state,
	)
	if err != nil {
		return errors.Wrap(err, "failed to store state")
	}
	return nil
}

// Purge drops every entry not belonging to key. Call it after a
// successful render to keep the database from accumulating states of
// stale file revisions.
func (c *Cache) Purge(key string) error {
	res, err := c.db.Exec("DELETE FROM states WHERE source_hash != ?", key)
	if err != nil {
		return errors.Wrap(err, "failed to purge cache")
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logging.CacheEvent("purged", "entries", n)
	}
	return nil
}

// Querier answers position queries from the cache and falls back to the
// wrapped querier on a miss, storing its answer. It satisfies the same
// interface the parser consumes.
type Querier struct {
	cache *Cache
	key   string
	inner lecture.StateQuerier
}

var _ lecture.StateQuerier = (*Querier)(nil)

// Wrap builds a caching querier for one source file revision.
func Wrap(cache *Cache, source []byte, inner lecture.StateQuerier) *Querier {
	return &Querier{
		cache: cache,
		key:   Key(source),
		inner: inner,
	}
}

// Info implements lecture.StateQuerier.
func (q *Querier) Info(file string, line, column int) (string, error) {
	state, ok, err := q.cache.Get(q.key, line, column)
	if err != nil {
		return "", err
	}
	if ok {
		logging.CacheEvent("hit", "line", line, "col", column)
		return state, nil
	}
	logging.CacheEvent("miss", "line", line, "col", column)

	state, err = q.inner.Info(file, line, column)
	if err != nil {
		return "", err
	}
	if err := q.cache.Put(q.key, line, column, state); err != nil {
		return "", err
	}
	return state, nil
}
