// Package tracestore keeps recorded renders in a SQL database so that two
// runs of the same program can be compared call by call.
package tracestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/funvibe/dvi/internal/surface"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	// SQL drivers
	_ "github.com/go-sql-driver/mysql" // MariaDB & MySQL
	_ "github.com/lib/pq"              // Postgres
	_ "modernc.org/sqlite"             // SQLite
)

// ErrNotFound is returned by Load for an unknown id.
var ErrNotFound = errors.New("trace not found")

// Trace is one recorded render.
type Trace struct {
	ID      string
	Source  string
	Width   int
	Height  int
	Params  string // the parameter environment as YAML
	Calls   []surface.Call
	Created time.Time
}

// Summary is a trace without its calls.
type Summary struct {
	ID      string
	Source  string
	Calls   int
	Created time.Time
}

// Store is a trace database. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	driver string
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS traces (
	id VARCHAR(36) PRIMARY KEY,
	source VARCHAR(255) NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	params TEXT NOT NULL,
	ncalls INTEGER NOT NULL,
	created BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS trace_calls (
	trace_id VARCHAR(36) NOT NULL,
	seq INTEGER NOT NULL,
	op VARCHAR(64) NOT NULL,
	args TEXT NOT NULL,
	PRIMARY KEY (trace_id, seq)
)`,
}

// Open connects to dsn with one of the drivers sqlite, postgres or mysql
// and creates the tables when they are missing.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported trace store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", driver, err)
	}
	if driver == "sqlite" {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s store: %w", driver, err)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &Store{db: db, driver: driver}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders for drivers that number them.
func rebind(driver, query string) string {
	if driver != "postgres" {
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

func (s *Store) q(query string) string { return rebind(s.driver, query) }

// Save stores t under a fresh id, which it also sets on t.
func (s *Store) Save(ctx context.Context, t *Trace) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Created.IsZero() {
		t.Created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		s.q(`INSERT INTO traces (id, source, width, height, params, ncalls, created) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Source, t.Width, t.Height, t.Params, len(t.Calls), t.Created.UnixNano())
	if err != nil {
		return "", fmt.Errorf("saving trace: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.q(`INSERT INTO trace_calls (trace_id, seq, op, args) VALUES (?, ?, ?, ?)`))
	if err != nil {
		return "", err
	}
	defer stmt.Close()
	for i, c := range t.Calls {
		args, err := encodeArgs(c.Args)
		if err != nil {
			return "", err
		}
		if _, err := stmt.ExecContext(ctx, t.ID, i, c.Op, args); err != nil {
			return "", fmt.Errorf("saving call %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return t.ID, nil
}

// Load reads a whole trace back.
func (s *Store) Load(ctx context.Context, id string) (*Trace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q is not a trace id", ErrNotFound, id)
	}
	t := &Trace{ID: id}
	var created int64
	var ncalls int
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT source, width, height, params, ncalls, created FROM traces WHERE id = ?`), id).
		Scan(&t.Source, &t.Width, &t.Height, &t.Params, &ncalls, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	t.Created = time.Unix(0, created)

	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT op, args FROM trace_calls WHERE trace_id = ? ORDER BY seq`), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t.Calls = make([]surface.Call, 0, ncalls)
	for rows.Next() {
		var c surface.Call
		var args string
		if err := rows.Scan(&c.Op, &args); err != nil {
			return nil, err
		}
		if c.Args, err = decodeArgs(args); err != nil {
			return nil, err
		}
		t.Calls = append(t.Calls, c)
	}
	return t, rows.Err()
}

// List returns the newest traces first, for source when it is not empty.
func (s *Store) List(ctx context.Context, source string, limit int) ([]Summary, error) {
	query := `SELECT id, source, ncalls, created FROM traces`
	var args []interface{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY created DESC`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var sum Summary
		var created int64
		if err := rows.Scan(&sum.ID, &sum.Source, &sum.Calls, &created); err != nil {
			return nil, err
		}
		sum.Created = time.Unix(0, created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a trace and its calls.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM trace_calls WHERE trace_id = ?`), id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM traces WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

func encodeArgs(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	out, err := yaml.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encoding call arguments: %w", err)
	}
	return string(out), nil
}

func decodeArgs(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var args []string
	if err := yaml.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("decoding call arguments: %w", err)
	}
	return args, nil
}
