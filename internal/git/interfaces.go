package git

import (
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitGraph is the read-only view of a repository the extractor walks.
// Implementations are not required to be safe for concurrent use.
type CommitGraph interface {
	// ResolveTip resolves a revision (HEAD, branch, tag or hash) to a commit hash.
	ResolveTip(ref string) (plumbing.Hash, error)
	// CommitObject loads a commit with its author, message and parents.
	CommitObject(h plumbing.Hash) (*object.Commit, error)
}

// Compile-time interface conformance checks.
var (
	_ CommitGraph = (*Repository)(nil)
	_ CommitGraph = (*CLIGraph)(nil)
	_ CommitGraph = (*MockGraph)(nil)
)
