package record

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator assigns storage identifiers to new records.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator produces random (version 4) UUIDs.
type UUIDGenerator struct{}

// NewID returns a new random UUID in canonical text form.
func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// IDFunc adapts a plain function to IDGenerator.
type IDFunc func() string

// NewID calls f.
func (f IDFunc) NewID() string {
	return f()
}

// SequenceGenerator hands out predictable ids of the form "<prefix>-<n>".
type SequenceGenerator struct {
	prefix string
	next   atomic.Uint64
}

// NewSequenceGenerator creates a generator starting at 1.
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next id in the sequence.
func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.next.Add(1))
}

// Compile-time interface conformance checks.
var (
	_ IDGenerator = UUIDGenerator{}
	_ IDGenerator = IDFunc(nil)
	_ IDGenerator = (*SequenceGenerator)(nil)
)
