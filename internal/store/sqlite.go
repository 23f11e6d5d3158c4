package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/masmgr/commitsync/internal/record"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS commits (
		record_id TEXT PRIMARY KEY,
		repo TEXT NOT NULL,
		commit_hash TEXT NOT NULL,
		author_name TEXT,
		author_email TEXT,
		message TEXT,
		authored_at INTEGER NOT NULL,
		UNIQUE (repo, commit_hash)
	);
	CREATE INDEX IF NOT EXISTS idx_commits_repo_authored ON commits(repo, authored_at);

	CREATE TABLE IF NOT EXISTS markers (
		repo TEXT PRIMARY KEY,
		commit_hash TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);
	INSERT OR REPLACE INTO schema_version (version) VALUES (1);
`

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	conn  *sql.DB
	path  string
	clock func() time.Time
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store path is required")
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open commit database: %w", err)
	}
	// One writer at a time; this also keeps ":memory:" on a single database.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := conn.Exec(sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize commit schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path, clock: time.Now}, nil
}

func (s *SQLiteStore) Marker(ctx context.Context, repo string) (string, bool, error) {
	if err := validateRepo(repo); err != nil {
		return "", false, err
	}

	var marker string
	err := s.conn.QueryRowContext(ctx, `SELECT commit_hash FROM markers WHERE repo = ?`, repo).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read marker: %w", err)
	}
	return marker, true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, repo string, records []record.CommitRecord, marker string) (SaveResult, error) {
	if err := validate(repo, records); err != nil {
		return SaveResult{}, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return SaveResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO commits (record_id, repo, commit_hash, author_name, author_email, message, authored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (repo, commit_hash) DO NOTHING`)
	if err != nil {
		return SaveResult{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var res SaveResult
	for _, r := range records {
		result, err := stmt.ExecContext(ctx, r.RecordID, repo, r.CommitHash,
			nullString(r.AuthorName), nullString(r.AuthorEmail), nullString(r.Message), r.AuthoredAt)
		if err != nil {
			return SaveResult{}, fmt.Errorf("insert commit %s: %w", r.CommitHash, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return SaveResult{}, err
		}
		if n == 0 {
			res.Duplicates++
		} else {
			res.Inserted++
		}
	}

	if marker != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO markers (repo, commit_hash, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (repo) DO UPDATE SET commit_hash = excluded.commit_hash, updated_at = excluded.updated_at`,
			repo, marker, s.clock().UTC().Format(time.RFC3339)); err != nil {
			return SaveResult{}, fmt.Errorf("update marker: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveResult{}, fmt.Errorf("commit transaction: %w", err)
	}
	return res, nil
}

func (s *SQLiteStore) Records(ctx context.Context, repo string, limit int) ([]record.CommitRecord, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}

	query := `
		SELECT record_id, commit_hash, author_name, author_email, message, authored_at
		FROM commits WHERE repo = ? ORDER BY rowid`
	args := []any{repo}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	var out []record.CommitRecord
	for rows.Next() {
		var r record.CommitRecord
		var name, email, message sql.NullString
		if err := rows.Scan(&r.RecordID, &r.CommitHash, &name, &email, &message, &r.AuthoredAt); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		r.AuthorName = fromNullString(name)
		r.AuthorEmail = fromNullString(email)
		r.Message = fromNullString(message)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ResetMarker(ctx context.Context, repo string) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM markers WHERE repo = ?`, repo); err != nil {
		return fmt.Errorf("reset marker: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return record.Optional(s.String)
}
