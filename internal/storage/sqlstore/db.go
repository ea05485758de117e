// Package sqlstore implements the relational stores on MySQL or SQLite
// through database/sql.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	xerrors "hushpay/internal/errors"
)

// Config selects the dialect and tunes the pool.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type dialect struct {
	name          string
	insertIgnore  string
	upsertContact string
}

var dialects = map[string]dialect{
	"mysql": {
		name:         "mysql",
		insertIgnore: "INSERT IGNORE INTO",
		upsertContact: `INSERT INTO contacts (owner, name_key, name, phone, created_at) VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE name = VALUES(name), phone = VALUES(phone)`,
	},
	"sqlite": {
		name:         "sqlite",
		insertIgnore: "INSERT OR IGNORE INTO",
		upsertContact: `INSERT INTO contacts (owner, name_key, name, phone, created_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (owner, name_key) DO UPDATE SET name = excluded.name, phone = excluded.phone`,
	},
}

// DB is an open, migrated database shared by every store in this package.
type DB struct {
	db      *sql.DB
	dialect dialect
}

// Open connects, applies pool settings and runs pending migrations.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, ok := dialects[strings.ToLower(strings.TrimSpace(cfg.Driver))]
	if !ok {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, fmt.Sprintf("unsupported storage driver %q", cfg.Driver))
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "storage DSN is empty")
	}

	dsn := cfg.DSN
	if d.name == "sqlite" {
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open(d.name, dsn)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "open database")
	}
	applyPool(db, d, cfg)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "ping database")
	}
	store := &DB{db: db, dialect: d}
	if err := store.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// SQLite allows one writer; a single connection avoids SQLITE_BUSY and keeps
// in-memory databases alive for the life of the pool.
func applyPool(db *sql.DB, d dialect, cfg Config) {
	if d.name == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		return
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(20)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(10)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}
}

func sqliteDSN(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return appendPragmas(dsn), nil
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", xerrors.Wrap(xerrors.CodeInitializationFailure, err, "create database directory")
		}
	}
	return appendPragmas("file:" + dsn), nil
}

func appendPragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// Close releases the pool.
func (s *DB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect returns "mysql" or "sqlite".
func (s *DB) Dialect() string {
	return s.dialect.name
}

func isDuplicate(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func storageErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return xerrors.Wrap(xerrors.CodeStorageFailure, err, op)
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
