package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// MockGraph is a test double for Repository.
// It serves commits from a map without needing a real object database.
type MockGraph struct {
	Tip     plumbing.Hash
	TipErr  error
	Commits map[plumbing.Hash]*object.Commit
	Broken  map[plumbing.Hash]error // Commits that fail to load with the given error
}

// NewMockGraph creates a MockGraph holding commits, with tip as HEAD.
func NewMockGraph(tip plumbing.Hash, commits ...*object.Commit) *MockGraph {
	m := &MockGraph{
		Tip:     tip,
		Commits: make(map[plumbing.Hash]*object.Commit, len(commits)),
		Broken:  map[plumbing.Hash]error{},
	}
	for _, c := range commits {
		m.Commits[c.Hash] = c
	}
	return m
}

// ResolveTip returns the predefined tip or error, ignoring ref.
func (m *MockGraph) ResolveTip(_ string) (plumbing.Hash, error) {
	if m.TipErr != nil {
		return plumbing.ZeroHash, m.TipErr
	}
	return m.Tip, nil
}

// CommitObject returns the stored commit, the configured failure, or
// plumbing.ErrObjectNotFound.
func (m *MockGraph) CommitObject(h plumbing.Hash) (*object.Commit, error) {
	if err, ok := m.Broken[h]; ok {
		return nil, err
	}
	c, ok := m.Commits[h]
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", h, plumbing.ErrObjectNotFound)
	}
	return c, nil
}
