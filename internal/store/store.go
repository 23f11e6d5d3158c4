// Package store persists commit records per repository, deduplicated on the
// commit hash, together with the marker of the newest ingested commit.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/masmgr/commitsync/internal/record"
)

// Store defines the persistence operations of the ingestion job.
// Implementations are safe for concurrent use.
type Store interface {
	// Marker returns the last ingested commit hash of repo, if any.
	Marker(ctx context.Context, repo string) (string, bool, error)
	// Save inserts the records whose commit hash is not stored yet, in
	// order, and sets the marker when marker is non-empty. Both happen
	// atomically.
	Save(ctx context.Context, repo string, records []record.CommitRecord, marker string) (SaveResult, error)
	// Records lists stored records in ingestion order. limit <= 0 means all.
	Records(ctx context.Context, repo string, limit int) ([]record.CommitRecord, error)
	// ResetMarker forgets the marker so the next run re-reads full history.
	ResetMarker(ctx context.Context, repo string) error
	Close() error
}

// SaveResult reports what a Save call changed.
type SaveResult struct {
	Inserted   int
	Duplicates int
}

// ValidationError represents invalid input supplied by callers.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Driver names a storage backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverBolt   Driver = "bolt"
	DriverRedis  Driver = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Driver    Driver
	Path      string // sqlite and bolt database file
	Addr      string // redis address
	Username  string
	Password  string
	Database  int
	KeyPrefix string // redis key namespace
}

// Open creates the backend described by cfg.
func Open(cfg Config) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return NewSQLiteStore(cfg.Path)
	case DriverBolt:
		return NewBoltStore(cfg.Path)
	case DriverRedis:
		return NewRedisStore(cfg)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func validate(repo string, records []record.CommitRecord) error {
	if strings.TrimSpace(repo) == "" {
		return &ValidationError{Message: "repository name is required"}
	}
	for i, r := range records {
		if r.CommitHash == "" {
			return &ValidationError{Message: fmt.Sprintf("record %d has no commit hash", i)}
		}
		if r.RecordID == "" {
			return &ValidationError{Message: fmt.Sprintf("record %s has no record id", r.CommitHash)}
		}
	}
	return nil
}

func validateRepo(repo string) error {
	return validate(repo, nil)
}

// Compile-time interface conformance checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*BoltStore)(nil)
	_ Store = (*RedisStore)(nil)
)
