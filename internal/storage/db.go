// Package storage persists the ledger in SQLite (default) or PostgreSQL
// through database/sql and implements the repository ports.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fintrack/internal/log"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrUnsupportedURL is returned for database URLs with an unknown scheme.
var ErrUnsupportedURL = errors.New("unsupported database url")

// Target is a parsed DATABASE_URL.
type Target struct {
	Dialect Dialect
	// Path is the SQLite file path; empty for PostgreSQL.
	Path string
	// DSN is what gets handed to sql.Open.
	DSN string
}

// DriverName returns the database/sql driver registered for the dialect.
func (t Target) DriverName() string {
	if t.Dialect == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// ParseDatabaseURL understands sqlite:///relative.db, sqlite:////abs/path.db
// and postgres:// URLs (postgresql:// and postgresql+driver:// included).
func ParseDatabaseURL(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
	scheme = strings.ToLower(scheme)
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}

	switch scheme {
	case "sqlite", "sqlite3":
		path := strings.TrimPrefix(rest, "/")
		if q := strings.IndexByte(path, '?'); q >= 0 {
			path = path[:q]
		}
		if path == "" {
			return Target{}, fmt.Errorf("%w: missing sqlite path in %q", ErrUnsupportedURL, raw)
		}
		return Target{Dialect: DialectSQLite, Path: path, DSN: sqliteDSN(path)}, nil
	case "postgres", "postgresql":
		return Target{Dialect: DialectPostgres, DSN: "postgres://" + rest}, nil
	default:
		return Target{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
	}
}

func sqliteDSN(path string) string {
	return "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)"
}

// Store owns the connection pool and hands out units of work.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

// Open connects to the database described by databaseURL and pings it.
// It does not run migrations.
func Open(ctx context.Context, databaseURL string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Discard()
	}
	target, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	if target.Dialect == DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(target.Path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open(target.DriverName(), target.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", target.Dialect, err)
	}
	if target.Dialect == DialectSQLite {
		// One writer at a time; transactions queue instead of failing with SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Info("Database opened", log.FieldDialect, string(target.Dialect))

	return &Store{db: db, dialect: target.Dialect, logger: logger}, nil
}

// Dialect reports which SQL flavour the store speaks.
func (s *Store) Dialect() Dialect { return s.dialect }

// DB exposes the pool for callers that need raw access, such as tests.
func (s *Store) DB() *sql.DB { return s.db }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Rebind rewrites ? placeholders to $n for PostgreSQL. Queries in this
// package never carry a literal question mark.
func Rebind(d Dialect, query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
