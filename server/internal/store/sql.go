package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"    // PostgreSQL driver
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/benchboard/benchboard/pkg/types"
)

// dialect holds what differs between the supported SQL backends.
type dialect struct {
	name   string
	schema []string

	// dollar switches ? placeholders to $1, $2, ... (PostgreSQL).
	dollar bool

	// setup runs once per connection pool before migrating.
	setup func(db *sql.DB) error
}

var (
	sqliteDialect = dialect{
		name: "sqlite",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS entries (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				suite TEXT NOT NULL,
				commit_id TEXT NOT NULL,
				date INTEGER NOT NULL,
				body TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS entries_suite_id ON entries (suite, id)`,
			`CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
		},
		setup: setupSQLite,
	}

	postgresDialect = dialect{
		name: "postgres",
		schema: []string{
			`CREATE TABLE IF NOT EXISTS entries (
				id BIGSERIAL PRIMARY KEY,
				suite TEXT NOT NULL,
				commit_id TEXT NOT NULL,
				date BIGINT NOT NULL,
				body TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS entries_suite_id ON entries (suite, id)`,
			`CREATE TABLE IF NOT EXISTS meta (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL
			)`,
		},
		dollar: true,
	}
)

// sqliteBusyTimeout bounds how long a statement waits on a locked database.
const sqliteBusyTimeout = 5 * time.Second

// setupSQLite pins the pool to one connection so writers queue in Go rather
// than fail with SQLITE_BUSY, and makes any remaining lock waits block.
func setupSQLite(db *sql.DB) error {
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("set journal_mode WAL: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", sqliteBusyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Database persists entries as JSON rows, one per append. It backs both the
// sqlite and postgres storage backends.
type Database struct {
	db      *sql.DB
	dialect dialect
}

// OpenSQLite opens (creating if needed) the database at path and applies
// migrations.
func OpenSQLite(path string) (*Database, error) {
	return open(sqliteDialect, "sqlite", path)
}

// OpenPostgres connects to the PostgreSQL database at dsn and applies
// migrations.
func OpenPostgres(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("store: postgres connection string is required")
	}
	return open(postgresDialect, "postgres", dsn)
}

func open(d dialect, driver, source string) (*Database, error) {
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("store: open %s database: %w", d.name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s database: %w", d.name, err)
	}
	if d.setup != nil {
		if err := d.setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: prepare %s database: %w", d.name, err)
		}
	}

	s := &Database{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %s database: %w", d.name, err)
	}
	return s, nil
}

func (s *Database) migrate() error {
	for _, q := range s.dialect.schema {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Backend names the SQL dialect, "sqlite" or "postgres".
func (s *Database) Backend() string { return s.dialect.name }

// Close closes the database connection.
func (s *Database) Close() error {
	return s.db.Close()
}

// Persist inserts e and drops the suite's oldest rows beyond what snapshot
// still holds, so the table mirrors maxItems trimming.
func (s *Database) Persist(ctx context.Context, suite string, e types.Entry, snapshot *types.Data) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: encode entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		s.dialect.rebind(`INSERT INTO entries (suite, commit_id, date, body) VALUES (?, ?, ?, ?)`),
		suite, e.Commit.ID, e.Date, string(body)); err != nil {
		return fmt.Errorf("store: insert entry: %w", err)
	}

	if snapshot != nil {
		keep := len(snapshot.Entries[suite])
		if _, err := tx.ExecContext(ctx,
			s.dialect.rebind(`DELETE FROM entries WHERE suite = ? AND id NOT IN (
				SELECT id FROM entries WHERE suite = ? ORDER BY id DESC LIMIT ?)`),
			suite, suite, keep); err != nil {
			return fmt.Errorf("store: trim suite: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			s.dialect.rebind(`INSERT INTO meta (key, value) VALUES ('repo_url', ?)
			 ON CONFLICT (key) DO UPDATE SET value = excluded.value`),
			snapshot.RepoURL); err != nil {
			return fmt.Errorf("store: save repo url: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Load reads the persisted history, entries in insertion order.
func (s *Database) Load(ctx context.Context) (*types.Data, error) {
	d := types.New("")

	var repoURL string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'repo_url'`).Scan(&repoURL)
	switch {
	case err == nil:
		d.RepoURL = repoURL
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, fmt.Errorf("store: load repo url: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT suite, body FROM entries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var suite, body string
		if err := rows.Scan(&suite, &body); err != nil {
			return nil, fmt.Errorf("store: scan entry: %w", err)
		}
		var e types.Entry
		if err := json.Unmarshal([]byte(body), &e); err != nil {
			return nil, fmt.Errorf("store: decode entry in suite %q: %w", suite, err)
		}
		d.Entries[suite] = append(d.Entries[suite], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read entries: %w", err)
	}

	for _, entries := range d.Entries {
		if n := len(entries); n > 0 && entries[n-1].Date > d.LastUpdate {
			d.LastUpdate = entries[n-1].Date
		}
	}
	return d, nil
}
