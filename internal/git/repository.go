package git

import (
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repository is a CommitGraph backed by a go-git repository.
type Repository struct {
	repo *gogit.Repository
	path string
}

// Open opens an existing repository at path. A worktree path, a path inside a
// worktree, and a bare repository directory are all accepted.
func Open(path string) (*Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	return &Repository{repo: repo, path: path}, nil
}

// NewRepository wraps an already opened go-git repository.
func NewRepository(repo *gogit.Repository) *Repository {
	return &Repository{repo: repo}
}

// Path returns the path the repository was opened from, if any.
func (r *Repository) Path() string {
	return r.path
}

// ResolveTip resolves ref to a commit hash. An empty ref or "HEAD" resolves
// the current HEAD.
func (r *Repository) ResolveTip(ref string) (plumbing.Hash, error) {
	rev := strings.TrimSpace(ref)
	if rev == "" || strings.EqualFold(rev, "HEAD") {
		head, err := r.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return head.Hash(), nil
	}

	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return *h, nil
}

// CommitObject loads the commit identified by h.
func (r *Repository) CommitObject(h plumbing.Hash) (*object.Commit, error) {
	return r.repo.CommitObject(h)
}
