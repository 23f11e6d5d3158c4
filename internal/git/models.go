package git

import (
	"strings"

	"github.com/masmgr/commitsync/internal/record"
)

// ExtractOptions configures the extraction engine.
type ExtractOptions struct {
	Ref    string // Revision naming the tip; empty means HEAD
	Strict bool   // Abort on the first commit that cannot be loaded
}

// tipRef returns the revision to resolve, defaulting to HEAD.
func (o ExtractOptions) tipRef() string {
	ref := strings.TrimSpace(o.Ref)
	if ref == "" {
		return "HEAD"
	}
	return ref
}

// Batch is the result of one extraction.
type Batch struct {
	Tip     string                 // Resolved tip commit hash
	Marker  string                 // Marker the walk stopped at, "" for full history
	Records []record.CommitRecord  // Oldest first
	Skipped []record.SkippedCommit // Reachable commits that could not be loaded
}

// Empty reports whether the batch carries no new records.
func (b *Batch) Empty() bool {
	return len(b.Records) == 0
}

// Newest returns the last record of the batch, which becomes the next marker.
func (b *Batch) Newest() (record.CommitRecord, bool) {
	if len(b.Records) == 0 {
		return record.CommitRecord{}, false
	}
	return b.Records[len(b.Records)-1], true
}
