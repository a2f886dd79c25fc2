package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DatabaseType selects the SQL dialect of a SQLStore.
type DatabaseType string

const (
	DatabaseSQLite     DatabaseType = "sqlite"
	DatabasePostgreSQL DatabaseType = "postgres"
)

//go:embed schema-sqlite.sql
var sqliteSchema string

//go:embed schema-postgresql.sql
var postgresSchema string

func ParseDatabaseType(raw string) (DatabaseType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite", "sqlite3":
		return DatabaseSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DatabasePostgreSQL, nil
	default:
		return "", fmt.Errorf("unsupported database type %q", raw)
	}
}

func (t DatabaseType) driverName() string {
	if t == DatabasePostgreSQL {
		return "pgx"
	}
	return "sqlite"
}

func (t DatabaseType) schema() string {
	if t == DatabasePostgreSQL {
		return postgresSchema
	}
	return sqliteSchema
}

// rebind rewrites ? placeholders into the dialect's form.
func (t DatabaseType) rebind(query string) string {
	if t != DatabasePostgreSQL {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timestamp converts t into the column representation: unix nanoseconds on
// SQLite, TIMESTAMPTZ on PostgreSQL.
func (t DatabaseType) timestamp(ts time.Time) any {
	if t == DatabasePostgreSQL {
		return ts.UTC()
	}
	return ts.UTC().UnixNano()
}

// InitializeSchema applies the embedded DDL of dialect. Every statement is
// idempotent.
func InitializeSchema(ctx context.Context, db *sql.DB, dialect DatabaseType) error {
	for _, stmt := range strings.Split(dialect.schema(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initialize %s schema: %w", dialect, err)
		}
	}
	return nil
}

var _ Store = (*SQLStore)(nil)

type SQLStore struct {
	db      *sql.DB
	dialect DatabaseType
}

// NewSQLStore wraps an open database. The caller keeps ownership of schema
// initialization.
func NewSQLStore(db *sql.DB, dialect DatabaseType) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// OpenSQLite opens (and creates) the ledger database at path.
func OpenSQLite(ctx context.Context, path string, busyTimeout time.Duration, initSchema bool) (*SQLStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("ledger path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("ledger path %q is a directory", cleanPath)
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(DatabaseSQLite.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open ledger sqlite %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	return finishOpen(ctx, db, DatabaseSQLite, initSchema)
}

// OpenPostgres connects through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, dsn string, initSchema bool) (*SQLStore, error) {
	db, err := sql.Open(DatabasePostgreSQL.driverName(), strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open ledger postgres: %w", err)
	}
	return finishOpen(ctx, db, DatabasePostgreSQL, initSchema)
}

func finishOpen(ctx context.Context, db *sql.DB, dialect DatabaseType, initSchema bool) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping ledger %s: %w", dialect, err)
	}
	if initSchema {
		if err := InitializeSchema(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return NewSQLStore(db, dialect), nil
}

func (s *SQLStore) Dialect() DatabaseType {
	return s.dialect
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Insert(ctx context.Context, p Publication) error {
	query := s.dialect.rebind(`
INSERT INTO event_publication (id, listener_id, event_type, serialized_event, publication_date, completion_date)
VALUES (?, ?, ?, ?, ?, ?)`)
	var completed any
	if p.CompletedAt != nil {
		completed = s.dialect.timestamp(*p.CompletedAt)
	}
	if _, err := s.db.ExecContext(ctx, query,
		p.ID.String(),
		p.ListenerID,
		p.EventType,
		p.SerializedEvent,
		s.dialect.timestamp(p.PublishedAt),
		completed,
	); err != nil {
		return fmt.Errorf("insert publication %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLStore) Complete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := s.dialect.rebind(`
UPDATE event_publication SET completion_date = ?
WHERE id = ? AND completion_date IS NULL`)
	res, err := s.db.ExecContext(ctx, query, s.dialect.timestamp(at), id.String())
	if err != nil {
		return false, fmt.Errorf("complete publication %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete publication %s: %w", id, err)
	}
	return n > 0, nil
}

const selectPublication = `
SELECT id, listener_id, event_type, serialized_event, publication_date, completion_date
FROM event_publication`

func (s *SQLStore) FindIncomplete(ctx context.Context) ([]Publication, error) {
	rows, err := s.db.QueryContext(ctx, selectPublication+`
WHERE completion_date IS NULL
ORDER BY publication_date ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query incomplete publications: %w", err)
	}
	defer rows.Close()

	out := make([]Publication, 0)
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publication rows: %w", err)
	}
	return out, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id uuid.UUID) (Publication, bool, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(selectPublication+` WHERE id = ?`), id.String())
	p, err := scanPublication(row)
	if err == sql.ErrNoRows {
		return Publication{}, false, nil
	}
	if err != nil {
		return Publication{}, false, err
	}
	return p, true, nil
}

func (s *SQLStore) DeleteCompletedBefore(ctx context.Context, t time.Time) (int64, error) {
	query := s.dialect.rebind(`
DELETE FROM event_publication
WHERE completion_date IS NOT NULL AND completion_date < ?`)
	res, err := s.db.ExecContext(ctx, query, s.dialect.timestamp(t))
	if err != nil {
		return 0, fmt.Errorf("delete completed publications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted publications: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPublication(row rowScanner) (Publication, error) {
	var (
		p         Publication
		published timestampColumn
		completed timestampColumn
	)
	if err := row.Scan(&p.ID, &p.ListenerID, &p.EventType, &p.SerializedEvent, &published, &completed); err != nil {
		if err == sql.ErrNoRows {
			return Publication{}, err
		}
		return Publication{}, fmt.Errorf("scan publication row: %w", err)
	}
	p.PublishedAt = published.time
	if completed.valid {
		at := completed.time
		p.CompletedAt = &at
	}
	return p, nil
}

// timestampColumn scans both dialects' timestamp encodings.
type timestampColumn struct {
	time  time.Time
	valid bool
}

func (c *timestampColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		c.valid = false
	case int64:
		c.time, c.valid = time.Unix(0, v).UTC(), true
	case time.Time:
		c.time, c.valid = v.UTC(), true
	default:
		return fmt.Errorf("unsupported timestamp column type %T", src)
	}
	return nil
}
