package sqlitekv

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mrverify/internal/client"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on indexes(bucket, field, int_value) for integer ranges
const currentSchemaVersion = 1

// driverName is the database/sql driver with the filter functions
// registered on every connection.
const driverName = "sqlite3_mrverify"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: setupConn,
	})
	client.Register("sqlite", func(_ context.Context, addr string) (client.Client, error) {
		return Open(addr)
	})
}

var (
	patternMu    sync.Mutex
	patternCache = make(map[string]*regexp.Regexp)
)

func matchPattern(pattern, s string) (bool, error) {
	patternMu.Lock()
	re, ok := patternCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			patternMu.Unlock()
			return false, err
		}
		patternCache[pattern] = re
	}
	patternMu.Unlock()
	return re.MatchString(s), nil
}

// connPragmas are per-connection settings, applied to every connection the
// pool opens.
var connPragmas = []string{
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// setupConn is the driver ConnectHook.
func setupConn(conn *sqlite3.SQLiteConn) error {
	for _, pragma := range connPragmas {
		if _, err := conn.Exec(pragma, nil); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return registerFuncs(conn)
}

func registerFuncs(conn *sqlite3.SQLiteConn) error {
	if err := conn.RegisterFunc("regexp", matchPattern, true); err != nil {
		return fmt.Errorf("register regexp: %w", err)
	}
	lower := func(s string) string { return cases.Lower(language.Und).String(s) }
	if err := conn.RegisterFunc("fold_lower", lower, true); err != nil {
		return fmt.Errorf("register fold_lower: %w", err)
	}
	upper := func(s string) string { return cases.Upper(language.Und).String(s) }
	if err := conn.RegisterFunc("fold_upper", upper, true); err != nil {
		return fmt.Errorf("register fold_upper: %w", err)
	}
	return nil
}

// Store is a client.Client backed by a single SQLite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ client.Client = (*Store)(nil)

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, nil
}

// SetLogger replaces the logger used for capability warnings.
func (s *Store) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas sets database-wide SQLite configuration. Per-connection
// settings live in connPragmas.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the integer range index used by *_int queries.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_indexes_int
		ON indexes(bucket, field, int_value)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
