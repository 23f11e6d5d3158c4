package git

import (
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/rs/zerolog"

	"github.com/masmgr/commitsync/internal/record"
)

// testingT is the subset of *testing.T and *rapid.T the helpers need.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// graphBuilder writes commits straight into an in-memory object database,
// so arbitrary DAGs can be built without a worktree.
type graphBuilder struct {
	t       testingT
	storage *memory.Storage
	repo    *gogit.Repository
	tree    plumbing.Hash
	when    time.Time
}

func newGraphBuilder(t testingT) *graphBuilder {
	t.Helper()

	st := memory.NewStorage()
	repo, err := gogit.Init(st, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	obj := st.NewEncodedObject()
	if err := (&object.Tree{}).Encode(obj); err != nil {
		t.Fatalf("Encode(tree): %v", err)
	}
	tree, err := st.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("SetEncodedObject(tree): %v", err)
	}

	return &graphBuilder{
		t:       t,
		storage: st,
		repo:    repo,
		tree:    tree,
		when:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// commit stores a commit with the given parents and returns its hash.
func (b *graphBuilder) commit(message string, parents ...plumbing.Hash) plumbing.Hash {
	b.t.Helper()

	b.when = b.when.Add(time.Minute)
	sig := object.Signature{Name: "Test", Email: "test@example.com", When: b.when}
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     b.tree,
		ParentHashes: parents,
	}

	obj := b.storage.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		b.t.Fatalf("Encode(%q): %v", message, err)
	}
	h, err := b.storage.SetEncodedObject(obj)
	if err != nil {
		b.t.Fatalf("SetEncodedObject(%q): %v", message, err)
	}
	return h
}

// setHead points HEAD directly at h.
func (b *graphBuilder) setHead(h plumbing.Hash) {
	b.t.Helper()
	if err := b.storage.SetReference(plumbing.NewHashReference(plumbing.HEAD, h)); err != nil {
		b.t.Fatalf("SetReference(HEAD): %v", err)
	}
}

// setBranch creates or moves refs/heads/<name> to h.
func (b *graphBuilder) setBranch(name string, h plumbing.Hash) {
	b.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), h)
	if err := b.storage.SetReference(ref); err != nil {
		b.t.Fatalf("SetReference(%s): %v", name, err)
	}
}

func (b *graphBuilder) graph() *Repository {
	return NewRepository(b.repo)
}

// faultyGraph fails to load the listed commits.
type faultyGraph struct {
	CommitGraph
	broken map[plumbing.Hash]bool
}

func (g faultyGraph) CommitObject(h plumbing.Hash) (*object.Commit, error) {
	if g.broken[h] {
		return nil, plumbing.ErrObjectNotFound
	}
	return g.CommitGraph.CommitObject(h)
}

func newTestExtractor(opts ExtractOptions) *Extractor {
	return NewExtractor(record.NewSequenceGenerator("rec"), opts, zerolog.Nop())
}

func recordHashes(records []record.CommitRecord) []string {
	hashes := make([]string, len(records))
	for i, r := range records {
		hashes[i] = r.CommitHash
	}
	return hashes
}
