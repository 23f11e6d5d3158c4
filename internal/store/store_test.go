package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/masmgr/commitsync/internal/record"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{name: "memory", open: func(t *testing.T) Store {
			return NewMemoryStore()
		}},
		{name: "sqlite", open: func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "commits.db"))
			if err != nil {
				t.Fatalf("NewSQLiteStore: %v", err)
			}
			return s
		}},
		{name: "bolt", open: func(t *testing.T) Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "commits.bolt"))
			if err != nil {
				t.Fatalf("NewBoltStore: %v", err)
			}
			return s
		}},
		{name: "redis", open: openRedis},
	}
}

// openRedis uses TEST_REDIS_ADDR when set, miniredis otherwise.
func openRedis(t *testing.T) Store {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		mini, err := miniredis.Run()
		if err != nil {
			t.Fatalf("start miniredis: %v", err)
		}
		t.Cleanup(mini.Close)
		addr = mini.Addr()
	} else {
		t.Cleanup(func() {
			client := redis.NewClient(&redis.Options{Addr: addr})
			_ = client.FlushDB(context.Background()).Err()
			_ = client.Close()
		})
	}

	s, err := NewRedisStore(Config{Addr: addr, KeyPrefix: "test"})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return s
}

func testRecord(n int) record.CommitRecord {
	return record.CommitRecord{
		RecordID:    fmt.Sprintf("rec-%d", n),
		CommitHash:  fmt.Sprintf("%040x", n),
		AuthorName:  record.Optional(fmt.Sprintf("Author %d", n)),
		AuthorEmail: record.Optional(fmt.Sprintf("a%d@example.com", n)),
		Message:     record.Optional(fmt.Sprintf("commit %d\n", n)),
		AuthoredAt:  int64(1700000000 + n),
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			t.Cleanup(func() { _ = s.Close() })
			fn(t, s)
		})
	}
}

func TestStore_SaveAndList(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		batch := []record.CommitRecord{testRecord(1), testRecord(2), testRecord(3)}

		res, err := s.Save(ctx, "alpha", batch, batch[2].CommitHash)
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if res.Inserted != 3 || res.Duplicates != 0 {
			t.Fatalf("Save result = %+v, expected 3 inserted", res)
		}

		marker, ok, err := s.Marker(ctx, "alpha")
		if err != nil {
			t.Fatalf("Marker: %v", err)
		}
		if !ok || marker != batch[2].CommitHash {
			t.Fatalf("Marker = %q, %v, expected %q", marker, ok, batch[2].CommitHash)
		}

		got, err := s.Records(ctx, "alpha", 0)
		if err != nil {
			t.Fatalf("Records: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Records returned %d, expected 3", len(got))
		}
		for i := range batch {
			if got[i].CommitHash != batch[i].CommitHash || got[i].RecordID != batch[i].RecordID {
				t.Fatalf("record[%d] = %+v, expected %+v", i, got[i], batch[i])
			}
			if record.Value(got[i].Message) != record.Value(batch[i].Message) {
				t.Fatalf("record[%d] message = %q", i, record.Value(got[i].Message))
			}
			if got[i].AuthoredAt != batch[i].AuthoredAt {
				t.Fatalf("record[%d] authored_at = %d", i, got[i].AuthoredAt)
			}
		}

		limited, err := s.Records(ctx, "alpha", 2)
		if err != nil {
			t.Fatalf("Records(limit): %v", err)
		}
		if len(limited) != 2 || limited[1].CommitHash != batch[1].CommitHash {
			t.Fatalf("Records(limit=2) = %v", limited)
		}
	})
}

func TestStore_DeduplicatesOnCommitHash(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.Save(ctx, "alpha", []record.CommitRecord{testRecord(1), testRecord(2)}, ""); err != nil {
			t.Fatalf("Save #1: %v", err)
		}

		again := testRecord(2)
		again.RecordID = "fresh-id"
		res, err := s.Save(ctx, "alpha", []record.CommitRecord{again, testRecord(3)}, testRecord(3).CommitHash)
		if err != nil {
			t.Fatalf("Save #2: %v", err)
		}
		if res.Inserted != 1 || res.Duplicates != 1 {
			t.Fatalf("Save result = %+v, expected 1 inserted and 1 duplicate", res)
		}

		got, err := s.Records(ctx, "alpha", 0)
		if err != nil {
			t.Fatalf("Records: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Records returned %d, expected 3", len(got))
		}
		if got[1].RecordID != "rec-2" {
			t.Fatalf("duplicate replaced the stored record: %+v", got[1])
		}
	})
}

func TestStore_RepositoriesAreIsolated(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.Save(ctx, "alpha", []record.CommitRecord{testRecord(1)}, testRecord(1).CommitHash); err != nil {
			t.Fatalf("Save(alpha): %v", err)
		}
		res, err := s.Save(ctx, "beta", []record.CommitRecord{testRecord(1)}, "")
		if err != nil {
			t.Fatalf("Save(beta): %v", err)
		}
		if res.Inserted != 1 {
			t.Fatalf("same commit in another repository should be inserted, got %+v", res)
		}

		if _, ok, err := s.Marker(ctx, "beta"); err != nil || ok {
			t.Fatalf("Marker(beta) = %v, %v, expected none", ok, err)
		}
	})
}

func TestStore_EmptySaveKeepsMarker(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.Save(ctx, "alpha", []record.CommitRecord{testRecord(1)}, testRecord(1).CommitHash); err != nil {
			t.Fatalf("Save: %v", err)
		}
		res, err := s.Save(ctx, "alpha", nil, "")
		if err != nil {
			t.Fatalf("Save(empty): %v", err)
		}
		if res != (SaveResult{}) {
			t.Fatalf("Save(empty) = %+v", res)
		}

		marker, ok, err := s.Marker(ctx, "alpha")
		if err != nil || !ok || marker != testRecord(1).CommitHash {
			t.Fatalf("Marker = %q, %v, %v", marker, ok, err)
		}
	})
}

func TestStore_ResetMarker(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if err := s.ResetMarker(ctx, "unknown"); err != nil {
			t.Fatalf("ResetMarker(unknown): %v", err)
		}

		if _, err := s.Save(ctx, "alpha", []record.CommitRecord{testRecord(1)}, testRecord(1).CommitHash); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.ResetMarker(ctx, "alpha"); err != nil {
			t.Fatalf("ResetMarker: %v", err)
		}
		if _, ok, err := s.Marker(ctx, "alpha"); err != nil || ok {
			t.Fatalf("Marker after reset = %v, %v, expected none", ok, err)
		}

		got, err := s.Records(ctx, "alpha", 0)
		if err != nil || len(got) != 1 {
			t.Fatalf("records should survive a marker reset: %v, %v", got, err)
		}
	})
}

func TestStore_PreservesAbsentFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		rec := record.CommitRecord{
			RecordID:   "rec-absent",
			CommitHash: fmt.Sprintf("%040x", 99),
			AuthorName: record.Optional(""),
			AuthoredAt: 1,
		}
		if _, err := s.Save(ctx, "alpha", []record.CommitRecord{rec}, ""); err != nil {
			t.Fatalf("Save: %v", err)
		}

		got, err := s.Records(ctx, "alpha", 0)
		if err != nil || len(got) != 1 {
			t.Fatalf("Records = %v, %v", got, err)
		}
		if got[0].AuthorName == nil || *got[0].AuthorName != "" {
			t.Errorf("empty author name should stay present, got %v", got[0].AuthorName)
		}
		if got[0].AuthorEmail != nil || got[0].Message != nil {
			t.Errorf("absent fields should stay absent, got email=%v message=%v", got[0].AuthorEmail, got[0].Message)
		}
	})
}

func TestStore_Validation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var verr *ValidationError

		if _, err := s.Save(ctx, " ", []record.CommitRecord{testRecord(1)}, ""); !errors.As(err, &verr) {
			t.Errorf("Save(blank repo) error = %v, expected ValidationError", err)
		}
		if _, err := s.Save(ctx, "alpha", []record.CommitRecord{{RecordID: "x"}}, ""); !errors.As(err, &verr) {
			t.Errorf("Save(no hash) error = %v, expected ValidationError", err)
		}
		if _, _, err := s.Marker(ctx, ""); !errors.As(err, &verr) {
			t.Errorf("Marker(blank) error = %v, expected ValidationError", err)
		}
	})
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "Memory", cfg: Config{Driver: DriverMemory}},
		{name: "SQLite", cfg: Config{Driver: DriverSQLite, Path: filepath.Join(dir, "a.db")}},
		{name: "DefaultDriverIsSQLite", cfg: Config{Path: filepath.Join(dir, "b.db")}},
		{name: "Bolt", cfg: Config{Driver: "BOLT", Path: filepath.Join(dir, "c.bolt")}},
		{name: "SQLiteWithoutPath", cfg: Config{Driver: DriverSQLite}, wantErr: true},
		{name: "Unknown", cfg: Config{Driver: "mongo"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.cfg)
			if tt.wantErr {
				if err == nil {
					_ = s.Close()
					t.Fatalf("Open(%+v) succeeded, expected error", tt.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open(%+v): %v", tt.cfg, err)
			}
			_ = s.Close()
		})
	}
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mini.Addr()
	mini.Close()

	if _, err := Open(Config{Driver: DriverRedis, Addr: addr}); err == nil {
		t.Fatalf("Open should fail when redis is unreachable")
	}
}
