package git

import (
	"errors"
	"strings"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"

	"github.com/masmgr/commitsync/internal/record"
)

// Extractor produces the commits of a repository that are newer than a marker.
type Extractor struct {
	ids    record.IDGenerator
	opts   ExtractOptions
	logger zerolog.Logger
}

// NewExtractor creates an extractor assigning record ids from ids.
func NewExtractor(ids record.IDGenerator, opts ExtractOptions, logger zerolog.Logger) *Extractor {
	return &Extractor{ids: ids, opts: opts, logger: logger}
}

// Extract returns every commit reachable from the tip but not from marker,
// oldest first. An empty marker selects the whole history.
//
// Commits that cannot be loaded are left out of Records and listed in
// Skipped, unless the extractor is strict. Errors are always *GraphError and
// no records are returned with them.
func (e *Extractor) Extract(graph CommitGraph, marker string) (*Batch, error) {
	ref := e.opts.tipRef()
	tipHash, err := graph.ResolveTip(ref)
	if err != nil {
		return nil, graphError("resolve "+ref, ErrTipUnresolved, err)
	}

	tip, err := graph.CommitObject(tipHash)
	if err != nil {
		return nil, graphError("load tip "+tipHash.String(), ErrGraphUnreadable, err)
	}

	batch := &Batch{Tip: tipHash.String()}

	var markerCommit *object.Commit
	if marker = strings.TrimSpace(marker); marker != "" {
		if !plumbing.IsHash(marker) {
			return nil, graphError("parse marker "+marker, ErrMalformedMarker, nil)
		}
		markerCommit, err = graph.CommitObject(plumbing.NewHash(marker))
		if err != nil {
			kind := ErrGraphUnreadable
			if errors.Is(err, plumbing.ErrObjectNotFound) {
				kind = ErrMarkerNotFound
			}
			return nil, graphError("load marker "+marker, kind, err)
		}
		batch.Marker = markerCommit.Hash.String()
	}

	nodes := e.mark(graph, tip, markerCommit)
	commits, skipped, err := e.walk(graph, tip, nodes)
	if err != nil {
		return nil, err
	}

	batch.Records = make([]record.CommitRecord, len(commits))
	for i, c := range commits {
		batch.Records[i] = record.FromCommit(c, e.ids)
	}
	batch.Skipped = skipped

	e.logger.Debug().
		Str("tip", batch.Tip).
		Str("marker", batch.Marker).
		Int("records", len(batch.Records)).
		Int("skipped", len(batch.Skipped)).
		Msg("extraction complete")

	return batch, nil
}

// markNode is a commit seen while marking. uninteresting commits are
// reachable from the marker; err is set when the commit could not be loaded.
type markNode struct {
	commit        *object.Commit
	err           error
	uninteresting bool
	popped        bool
}

// queued reports whether n is still waiting in the marking queue.
func (n *markNode) queued() bool {
	return n.commit != nil && !n.popped
}

// marking is the state of one boundary walk.
type marking struct {
	nodes    map[plumbing.Hash]*markNode
	queue    *binaryheap.Heap
	selected int // queued commits not reachable from the marker

	oldest    time.Time // oldest selected commit popped so far
	hasOldest bool
}

func byCommitTimeDesc(a, b interface{}) int {
	ta, tb := a.(*markNode).commit.Committer.When, b.(*markNode).commit.Committer.When
	switch {
	case ta.After(tb):
		return -1
	case ta.Before(tb):
		return 1
	}
	return 0
}

func (m *marking) push(n *markNode) {
	if !n.uninteresting {
		m.selected++
	}
	m.queue.Push(n)
}

// markUninteresting flags n and, for commits whose parents were already
// expanded, everything loaded below it.
func (m *marking) markUninteresting(n *markNode) {
	stack := []*markNode{n}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.uninteresting {
			continue
		}
		n.uninteresting = true
		if n.queued() {
			m.selected--
			continue
		}
		if n.commit == nil {
			continue
		}
		for _, ph := range n.commit.ParentHashes {
			if p, ok := m.nodes[ph]; ok && !p.uninteresting {
				stack = append(stack, p)
			}
		}
	}
}

// done reports whether no queued commit is selected and none is newer than
// the oldest selected commit.
func (m *marking) done() bool {
	if m.selected > 0 {
		return false
	}
	top, ok := m.queue.Peek()
	if !ok || !m.hasOldest {
		return true
	}
	return top.(*markNode).commit.Committer.When.Before(m.oldest)
}

// mark loads the commits between tip and marker. It walks both histories
// newest first by committer time and stops once every queued commit is
// reachable from the marker and older than any commit still selected, so
// an incremental run only reads the commits near the boundary.
func (e *Extractor) mark(graph CommitGraph, tip, marker *object.Commit) map[plumbing.Hash]*markNode {
	m := &marking{
		nodes: map[plumbing.Hash]*markNode{},
		queue: binaryheap.NewWith(byCommitTimeDesc),
	}

	if marker != nil {
		n := &markNode{commit: marker, uninteresting: true}
		m.nodes[marker.Hash] = n
		m.push(n)
	}
	if _, ok := m.nodes[tip.Hash]; !ok {
		n := &markNode{commit: tip}
		m.nodes[tip.Hash] = n
		m.push(n)
	}

	for !m.queue.Empty() && !m.done() {
		v, _ := m.queue.Pop()
		n := v.(*markNode)
		n.popped = true
		if !n.uninteresting {
			m.selected--
			if when := n.commit.Committer.When; !m.hasOldest || when.Before(m.oldest) {
				m.oldest, m.hasOldest = when, true
			}
		}

		for _, ph := range n.commit.ParentHashes {
			if p, ok := m.nodes[ph]; ok {
				if n.uninteresting {
					m.markUninteresting(p)
				}
				continue
			}

			p := &markNode{uninteresting: n.uninteresting}
			m.nodes[ph] = p
			c, err := graph.CommitObject(ph)
			if err != nil {
				p.err = err
				if n.uninteresting {
					e.logger.Debug().Err(err).Str("commit", ph.String()).Msg("marker ancestry truncated")
				}
				continue
			}
			p.commit = c
			m.push(p)
		}
	}

	return m.nodes
}

type walkFrame struct {
	commit *object.Commit
	next   int // index of the next parent to visit
}

const (
	unvisited = iota
	visiting
	visited
)

// walk performs an iterative depth-first post-order traversal from tip over
// the commits mark selected. Parents are emitted before children, so the
// result is oldest first for any merge topology, and each commit appears once.
func (e *Extractor) walk(graph CommitGraph, tip *object.Commit, nodes map[plumbing.Hash]*markNode) ([]*object.Commit, []record.SkippedCommit, error) {
	if n, ok := nodes[tip.Hash]; ok && n.uninteresting {
		return nil, nil, nil
	}

	var (
		out     []*object.Commit
		skipped []record.SkippedCommit
		state   = map[plumbing.Hash]int{tip.Hash: visiting}
		stack   = []walkFrame{{commit: tip}}
	)

	for len(stack) > 0 {
		top := len(stack) - 1
		frame := &stack[top]

		if frame.next >= len(frame.commit.ParentHashes) {
			out = append(out, frame.commit)
			state[frame.commit.Hash] = visited
			stack = stack[:top]
			continue
		}

		parent := frame.commit.ParentHashes[frame.next]
		frame.next++
		if state[parent] != unvisited {
			continue
		}

		c, err := e.load(graph, nodes, parent)
		if errors.Is(err, errExcluded) {
			state[parent] = visited
			continue
		}
		if err != nil {
			if e.opts.Strict {
				return nil, nil, graphError("load commit "+parent.String(), ErrCommitUnreadable, err)
			}
			e.logger.Warn().Err(err).Str("commit", parent.String()).Msg("skipping unreadable commit")
			skipped = append(skipped, record.SkippedCommit{CommitHash: parent.String(), Reason: err.Error()})
			state[parent] = visited
			continue
		}

		state[parent] = visiting
		stack = append(stack, walkFrame{commit: c})
	}

	return out, skipped, nil
}

var errExcluded = errors.New("commit reachable from marker")

// load returns a commit already read by mark, falling back to the graph.
func (e *Extractor) load(graph CommitGraph, nodes map[plumbing.Hash]*markNode, h plumbing.Hash) (*object.Commit, error) {
	n, ok := nodes[h]
	if !ok {
		return graph.CommitObject(h)
	}
	if n.uninteresting {
		return nil, errExcluded
	}
	if n.err != nil {
		return nil, n.err
	}
	return n.commit, nil
}
