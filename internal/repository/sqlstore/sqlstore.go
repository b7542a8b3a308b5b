// Package sqlstore implements the repository interfaces on database/sql.
//
// Two drivers are supported behind the same code:
//   - "sqlite"   → modernc.org/sqlite, pure Go, the default. A file path or ":memory:".
//   - "postgres" → github.com/jackc/pgx/v5/stdlib, DSN from DATABASE_URL.
//
// Queries are written once with ? placeholders and rewritten to $1, $2, ...
// for Postgres (see rebind). Schema lives in /migrations and is applied with
// goose, so both dialects share one version history.
//
// USAGE
//
//	db, err := sqlstore.OpenMigrated(ctx, "sqlite", "travelboard.db")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	users := db.Users()
//	trips := db.Trips()
//
// Every store returned by DB shares the same pool. Stores hold no state of
// their own and are safe for concurrent use.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/travelboard/migrations"
)

// Driver names as accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a sql.DB pool and hands out the per-table stores.
type DB struct {
	conn   *sql.DB
	driver string
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Open connects to the database and verifies the connection. It does not
// migrate; call Migrate for that.
//
// POOL SETTINGS
//
//	sqlite    1 connection, WAL journal, foreign keys on, 5s busy timeout
//	postgres  25 open, 5 idle, connections recycled after 30 minutes
//
// An empty driver means sqlite. The ping gets its own 5 second deadline so a
// wrong DSN fails fast at startup instead of on the first request.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		conn, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: opening sqlite: %w", err)
		}
		// One connection: ":memory:" databases are per-connection, and SQLite
		// serialises writers anyway.
		conn.SetMaxOpenConns(1)
	case DriverPostgres:
		conn, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: opening postgres: %w", err)
		}
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}
	}

	return &DB{conn: conn, driver: driver}, nil
}

// OpenMigrated is Open followed by Migrate; used by the server and tests.
func OpenMigrated(ctx context.Context, driver, dsn string) (*DB, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the pool. Stores obtained from db must not be used
// afterwards.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping backs the readiness endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// provider picks the goose dialect and the migration directory matching
// the driver.
func (db *DB) provider() (*goose.Provider, error) {
	dialect := goose.DialectSQLite3
	if db.driver == DriverPostgres {
		dialect = goose.DialectPostgres
	}
	fsys, err := migrations.Dir(db.driver)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db.conn, fsys)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: goose provider: %w", err)
	}
	return provider, nil
}

// Migrate applies every pending migration and returns the versions applied.
// A database that is already current returns an empty slice and no error.
func (db *DB) Migrate(ctx context.Context) ([]int64, error) {
	provider, err := db.provider()
	if err != nil {
		return nil, err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migrating: %w", err)
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

// MigrationStatus is one row of `travelboard migrate status`.
type MigrationStatus struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// MigrationStatus lists every known migration in version order, applied or
// not. AppliedAt is zero for pending ones.
func (db *DB) MigrationStatus(ctx context.Context) ([]MigrationStatus, error) {
	provider, err := db.provider()
	if err != nil {
		return nil, err
	}
	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: migration status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationStatus{
			Version:   s.Source.Version,
			Path:      s.Source.Path,
			Applied:   s.State == goose.StateApplied,
			AppliedAt: s.AppliedAt,
		})
	}
	return out, nil
}

// withTx runs fn inside a transaction, committing on success and rolling back
// on error or panic.
func (db *DB) withTx(ctx context.Context, fn func(tx dbtx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("sqlstore: commit: %w", cerr)
		}
	}()

	return fn(tx)
}

// rebind rewrites ? placeholders to $n when talking to Postgres.
// None of our queries contain a literal question mark.
//
//	SELECT * FROM trips WHERE owner_id = ? AND id = ?
//	SELECT * FROM trips WHERE owner_id = $1 AND id = $2
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isUniqueViolation reports whether err is a unique/primary-key violation.
// When column is non-empty, only a violation on that column matches.
//
// Postgres reports SQLSTATE 23505 with the constraint name; SQLite reports an
// extended result code with "table.column" in the message. Both are checked
// so the callers stay dialect-free.
func isUniqueViolation(err error, column string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != "23505" {
			return false
		}
		return column == "" || strings.Contains(pgErr.ConstraintName, column)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && code != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return false
		}
		// "UNIQUE constraint failed: users.email"
		return column == "" || strings.Contains(liteErr.Error(), "."+column)
	}
	return false
}
