package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store persists transcript entries to SQLite or PostgreSQL.
type Store struct {
	db         *sql.DB
	isPostgres bool
}

// IsPostgres reports whether the store is backed by PostgreSQL.
func (s *Store) IsPostgres() bool { return s.isPostgres }

// rebind rewrites ? placeholders as $N for PostgreSQL.
func rebind(isPostgres bool, query string) string {
	if !isPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Open connects to dsn. A postgres:// or postgresql:// DSN selects pgx;
// anything else is a SQLite file path.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("transcript: empty DSN")
	}
	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	var db *sql.DB
	var err error
	if isPostgres {
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	} else {
		if dir := filepath.Dir(dsn); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create transcript directory: %w", err)
			}
		}
		db, err = sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open transcript database: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := createTables(db, isPostgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, isPostgres: isPostgres}, nil
}

func createTables(db *sql.DB, isPostgres bool) error {
	pkDef := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres {
		pkDef = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS transcript_entries (
		id %s,
		entry_id TEXT UNIQUE NOT NULL,
		timestamp TEXT NOT NULL,
		session_id TEXT NOT NULL,
		trace_id TEXT,
		kind TEXT NOT NULL,
		tool_name TEXT,
		duration_ms INTEGER,
		raw_json TEXT NOT NULL
	);
	`, pkDef)
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	for _, idx := range []string{
		"CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript_entries(session_id)",
		"CREATE INDEX IF NOT EXISTS idx_transcript_trace ON transcript_entries(trace_id)",
		"CREATE INDEX IF NOT EXISTS idx_transcript_kind ON transcript_entries(kind)",
	} {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}
	return nil
}

// timestampLayout is fixed width so stored timestamps compare correctly as
// text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Record persists an entry, filling in its ID and timestamp when unset.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.SessionID == "" {
		return fmt.Errorf("transcript entry has no session")
	}
	if e.ID == "" {
		e.ID = "ent_" + uuid.New().String()[:12]
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, rebind(s.isPostgres, `
		INSERT INTO transcript_entries (
			entry_id, timestamp, session_id, trace_id, kind, tool_name, duration_ms, raw_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		e.ID,
		e.Timestamp.UTC().Format(timestampLayout),
		e.SessionID,
		e.TraceID,
		string(e.Kind),
		e.ToolName,
		e.Duration.Milliseconds(),
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

// QueryOptions specifies filters for Query. Zero fields do not filter.
type QueryOptions struct {
	SessionID string
	TraceID   string
	Kind      Kind
	ToolName  string
	Since     time.Time
	Limit     int
}

// Query returns matching entries in insertion order.
func (s *Store) Query(ctx context.Context, opts QueryOptions) ([]Entry, error) {
	query := `SELECT raw_json FROM transcript_entries WHERE 1=1`
	var args []any

	if opts.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, opts.SessionID)
	}
	if opts.TraceID != "" {
		query += " AND trace_id = ?"
		args = append(args, opts.TraceID)
	}
	if opts.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(opts.Kind))
	}
	if opts.ToolName != "" {
		query += " AND tool_name = ?"
		args = append(args, opts.ToolName)
	}
	if !opts.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.Since.UTC().Format(timestampLayout))
	}
	query += " ORDER BY id ASC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, rebind(s.isPostgres, query), args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
