package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Tiliavir/nt-hours/internal/model"
	"github.com/Tiliavir/nt-hours/internal/timecalc"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Mode selects how WriteEvents treats an existing table.
type Mode int

const (
	ModeAppend Mode = iota
	ModeReplace
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	clockLayout     = "15:04:05"
)

// timestampLayouts are accepted when reading; tables written by older
// tooling carry microseconds or RFC 3339 values.
var timestampLayouts = []string{
	timestampLayout,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DBConfig selects the relational backend.
type DBConfig struct {
	Driver string
	DSN    string
}

// Store is the relational event sink.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database. For sqlite the parent directory
// of the file is created and WAL journaling is enabled.
func Open(cfg DBConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSQLite
	}
	switch driver {
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o700); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, &model.ExternalIOError{Op: "open " + driver, Err: err}
	}
	if driver == DriverSQLite {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
			_ = db.Close()
			return nil, &model.ExternalIOError{Op: "pragma journal_mode", Err: err}
		}
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, &model.ExternalIOError{Op: "ping " + driver, Err: err}
	}
	return &Store{db: db, driver: driver}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// TableExists reports whether the named table exists.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	if err := checkTableName(name); err != nil {
		return false, err
	}
	q := `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
	if s.driver == DriverPostgres {
		q = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	var found string
	err := s.db.QueryRowContext(ctx, s.rebind(q), name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &model.ExternalIOError{Op: "check table " + name, Err: err}
	}
	return true, nil
}

// ReadEvents loads all events of the table ordered by timestamp. Calendar
// fields are re-derived from the timestamp; NULL activity and comment values
// read as empty strings.
func (s *Store) ReadEvents(ctx context.Context, name string) ([]model.Event, error) {
	if err := checkTableName(name); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT "timestamp", "activity", "duration_hrs", "comment" FROM %s ORDER BY "timestamp"`, quote(name)))
	if err != nil {
		return nil, &model.ExternalIOError{Op: "read table " + name, Err: err}
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			ts       sql.NullString
			activity sql.NullString
			dur      sql.NullFloat64
			comment  sql.NullString
		)
		if err := rows.Scan(&ts, &activity, &dur, &comment); err != nil {
			return nil, &model.ExternalIOError{Op: "scan table " + name, Err: err}
		}
		if !ts.Valid {
			return nil, &model.MergeInconsistency{Reason: fmt.Sprintf("table %s has a row without timestamp", name)}
		}
		t, err := parseTimestamp(ts.String)
		if err != nil {
			return nil, &model.MergeInconsistency{Reason: fmt.Sprintf("table %s: %v", name, err)}
		}
		events = append(events, model.Event{
			Timestamp:   t,
			Activity:    activity.String,
			DurationHrs: dur.Float64,
			Comment:     comment.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &model.ExternalIOError{Op: "read table " + name, Err: err}
	}
	return timecalc.Annotate(events)
}

// WriteEvents writes events into the named table. ModeReplace drops and
// recreates the table so it mirrors events exactly; ModeAppend creates the
// table if needed and inserts. Either way the write is a single transaction.
func (s *Store) WriteEvents(ctx context.Context, name string, events []model.Event, mode Mode) error {
	if err := checkTableName(name); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &model.ExternalIOError{Op: "begin tx", Err: err}
	}
	defer tx.Rollback()

	if mode == ModeReplace {
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quote(name)); err != nil {
			return &model.ExternalIOError{Op: "drop table " + name, Err: err}
		}
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(name)); err != nil {
		return &model.ExternalIOError{Op: "create table " + name, Err: err}
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(insertSQL(name)))
	if err != nil {
		return &model.ExternalIOError{Op: "prepare insert", Err: err}
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.Timestamp.Format(timestampLayout),
			e.Date.Format(dateLayout),
			e.Clock().Format(clockLayout),
			e.Activity,
			e.DurationHrs,
			e.Year,
			e.Month,
			e.Week,
			e.DOW,
			e.Comment,
		); err != nil {
			return &model.ExternalIOError{Op: "insert " + e.Timestamp.Format(timestampLayout), Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &model.ExternalIOError{Op: "commit tx", Err: err}
	}
	return nil
}

func createTableSQL(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + quote(name) + ` (
		"timestamp" TEXT NOT NULL,
		"date" TEXT NOT NULL,
		"time" TEXT NOT NULL,
		"activity" TEXT NOT NULL,
		"duration_hrs" DOUBLE PRECISION NOT NULL,
		"year" INTEGER NOT NULL,
		"month" INTEGER NOT NULL,
		"week" INTEGER NOT NULL,
		"DOW" INTEGER NOT NULL,
		"comment" TEXT NOT NULL
	)`
}

func insertSQL(name string) string {
	cols := make([]string, len(model.EventFields))
	marks := make([]string, len(model.EventFields))
	for i, f := range model.EventFields {
		cols[i] = quote(f)
		marks[i] = "?"
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		quote(name), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(q string) string {
	if s.driver != DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func quote(ident string) string {
	return `"` + ident + `"`
}

func checkTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return timecalc.Naive(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}
