package store

import (
	"context"
	"sync"

	"github.com/masmgr/commitsync/internal/record"
)

// MemoryStore keeps everything in process memory. Used for tests and dry runs.
type MemoryStore struct {
	mu    sync.RWMutex
	repos map[string]*memoryRepo
}

type memoryRepo struct {
	marker  string
	records []record.CommitRecord
	seen    map[string]bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{repos: map[string]*memoryRepo{}}
}

func (s *MemoryStore) Marker(_ context.Context, repo string) (string, bool, error) {
	if err := validateRepo(repo); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.repos[repo]
	if !ok || r.marker == "" {
		return "", false, nil
	}
	return r.marker, true, nil
}

func (s *MemoryStore) Save(_ context.Context, repo string, records []record.CommitRecord, marker string) (SaveResult, error) {
	if err := validate(repo, records); err != nil {
		return SaveResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.repos[repo]
	if !ok {
		r = &memoryRepo{seen: map[string]bool{}}
		s.repos[repo] = r
	}

	var res SaveResult
	for _, rec := range records {
		if r.seen[rec.CommitHash] {
			res.Duplicates++
			continue
		}
		r.seen[rec.CommitHash] = true
		r.records = append(r.records, rec)
		res.Inserted++
	}
	if marker != "" {
		r.marker = marker
	}
	return res, nil
}

func (s *MemoryStore) Records(_ context.Context, repo string, limit int) ([]record.CommitRecord, error) {
	if err := validateRepo(repo); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.repos[repo]
	if !ok {
		return nil, nil
	}
	out := r.records
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return append([]record.CommitRecord(nil), out...), nil
}

func (s *MemoryStore) ResetMarker(_ context.Context, repo string) error {
	if err := validateRepo(repo); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.repos[repo]; ok {
		r.marker = ""
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
