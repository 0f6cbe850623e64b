package trace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const createTracesTable = `
CREATE TABLE IF NOT EXISTS traces (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	case_name   TEXT NOT NULL,
	recorded_at TIMESTAMP NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	curl        TEXT,
	status_code INTEGER NOT NULL,
	duration_us INTEGER NOT NULL,
	body        BLOB,
	error       TEXT
);
CREATE INDEX IF NOT EXISTS traces_run_id ON traces (run_id);
`

// SQLiteSink persists exchanges to a sqlite database.
type SQLiteSink struct {
	db     *sql.DB
	path   string
	bodies bool
}

// NewSQLiteSink opens (and creates, if needed) the database at path. The
// path may carry a sqlite:// or sqlite: prefix.
func NewSQLiteSink(path string, storeBodies bool) (*SQLiteSink, error) {
	path = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(path), "sqlite://"), "sqlite:")
	if path == "" {
		return nil, fmt.Errorf("trace database path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to trace database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTracesTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create traces table: %w", err)
	}

	return &SQLiteSink{db: db, path: path, bodies: storeBodies}, nil
}

func (s *SQLiteSink) Record(ctx context.Context, entry Entry) error {
	var body []byte
	if s.bodies {
		body = entry.Body
	}

	_, err := s.db.ExecContext(context.WithoutCancel(ctx),
		`INSERT INTO traces (run_id, case_name, recorded_at, method, url, curl, status_code, duration_us, body, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Case, entry.Time.UTC(), entry.Method, entry.URL, entry.Curl,
		entry.StatusCode, entry.Duration.Microseconds(), body, entry.Error)
	if err != nil {
		return fmt.Errorf("failed to record trace: %w", err)
	}
	return nil
}

// Entries returns the exchanges of one run in recording order.
func (s *SQLiteSink) Entries(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, case_name, recorded_at, method, url, curl, status_code, duration_us, body, error
		 FROM traces WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationUs int64
			curl       sql.NullString
			errText    sql.NullString
		)
		if err := rows.Scan(&e.RunID, &e.Case, &e.Time, &e.Method, &e.URL, &curl, &e.StatusCode, &durationUs, &e.Body, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Duration = time.Duration(durationUs) * time.Microsecond
		e.Curl = curl.String
		e.Error = errText.String
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

func (s *SQLiteSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
