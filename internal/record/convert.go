package record

import (
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// FromCommit converts a fully loaded commit into a CommitRecord.
// Author name, email and message are absent when they are not valid UTF-8.
func FromCommit(c *object.Commit, ids IDGenerator) CommitRecord {
	return CommitRecord{
		RecordID:    ids.NewID(),
		CommitHash:  c.Hash.String(),
		AuthorName:  textField(c.Author.Name),
		AuthorEmail: textField(c.Author.Email),
		Message:     textField(c.Message),
		AuthoredAt:  c.Author.When.Unix(),
	}
}

func textField(s string) *string {
	if !utf8.ValidString(s) {
		return nil
	}
	return &s
}
