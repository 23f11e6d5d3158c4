package record

import "strings"

// CommitRecord is the persisted form of a single commit.
// Records are created by FromCommit and never modified afterwards.
type CommitRecord struct {
	RecordID    string  `json:"record_id"`
	CommitHash  string  `json:"commit_hash"`
	AuthorName  *string `json:"author_name,omitempty"`
	AuthorEmail *string `json:"author_email,omitempty"`
	Message     *string `json:"message,omitempty"`
	AuthoredAt  int64   `json:"authored_at"`
}

const shortHashLength = 8

// ShortHash abbreviates a commit hash for display.
func ShortHash(hash string) string {
	if len(hash) <= shortHashLength {
		return hash
	}
	return hash[:shortHashLength]
}

// Subject returns the first line of the message, or "" when absent.
func (r CommitRecord) Subject() string {
	msg := Value(r.Message)
	if idx := strings.IndexByte(msg, '\n'); idx != -1 {
		return msg[:idx]
	}
	return msg
}

// SkippedCommit is a reachable commit that could not be dereferenced.
type SkippedCommit struct {
	CommitHash string `json:"commit_hash"`
	Reason     string `json:"reason"`
}

// Value dereferences an optional field, mapping absence to "".
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Optional returns a pointer to a copy of s.
func Optional(s string) *string {
	return &s
}
