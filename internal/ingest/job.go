// Package ingest runs incremental commit ingestion: it reads the stored
// marker of a repository, extracts the commits added since, persists them and
// advances the marker.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/masmgr/commitsync/internal/git"
	"github.com/masmgr/commitsync/internal/record"
	"github.com/masmgr/commitsync/internal/store"
)

// Target identifies one repository to ingest.
type Target struct {
	Name string // Store key
	Path string // Filesystem path handed to the Opener
}

// Opener returns a readable commit graph for a repository path. Graphs that
// implement io.Closer are closed after the run.
type Opener func(ctx context.Context, path string) (git.CommitGraph, error)

// Repository backends.
const (
	BackendGoGit  = "go-git"
	BackendGitCLI = "git-cli"
)

// OpenRepository opens a repository from disk with go-git.
func OpenRepository(_ context.Context, path string) (git.CommitGraph, error) {
	repo, err := git.Open(path)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// OpenCLIRepository opens a repository through the git executable.
func OpenCLIRepository(ctx context.Context, path string) (git.CommitGraph, error) {
	graph, err := git.OpenCLI(ctx, path)
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// OpenerFor returns the opener of a backend; "" selects go-git.
func OpenerFor(backend string) (Opener, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendGoGit:
		return OpenRepository, nil
	case BackendGitCLI:
		return OpenCLIRepository, nil
	default:
		return nil, fmt.Errorf("unknown repository backend %q", backend)
	}
}

// Options configures a Job.
type Options struct {
	Extract git.ExtractOptions
	// ResetOnMissingMarker re-ingests full history when the stored marker no
	// longer exists in the repository, e.g. after a force push.
	ResetOnMissingMarker bool
	// DryRun extracts without writing to the store.
	DryRun bool
}

// Result summarizes one ingestion run.
type Result struct {
	Repo           string                 `json:"repo"`
	Path           string                 `json:"path"`
	PreviousMarker string                 `json:"previousMarker,omitempty"`
	Marker         string                 `json:"marker,omitempty"`
	Extracted      int                    `json:"extracted"`
	Inserted       int                    `json:"inserted"`
	Duplicates     int                    `json:"duplicates"`
	Skipped        []record.SkippedCommit `json:"skipped,omitempty"`
	MarkerReset    bool                   `json:"markerReset,omitempty"`
	Duration       time.Duration          `json:"duration"`
}

// Failure is a target whose ingestion aborted.
type Failure struct {
	Target Target
	Err    error
}

// Job ingests repositories into a Store.
type Job struct {
	store  store.Store
	ids    record.IDGenerator
	open   Opener
	opts   Options
	logger zerolog.Logger
}

// NewJob creates a job that opens repositories from disk.
func NewJob(st store.Store, ids record.IDGenerator, opts Options, logger zerolog.Logger) *Job {
	return &Job{store: st, ids: ids, open: OpenRepository, opts: opts, logger: logger}
}

// WithOpener replaces how repositories are opened.
func (j *Job) WithOpener(open Opener) *Job {
	j.open = open
	return j
}

// Run ingests a single repository.
func (j *Job) Run(ctx context.Context, target Target) (*Result, error) {
	start := time.Now()
	log := j.logger.With().Str("repo", target.Name).Logger()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph, err := j.open(ctx, target.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	if closer, ok := graph.(io.Closer); ok {
		defer closer.Close()
	}

	marker, _, err := j.store.Marker(ctx, target.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load marker: %w", err)
	}

	res := &Result{Repo: target.Name, Path: target.Path, PreviousMarker: marker, Marker: marker}

	extractor := git.NewExtractor(j.ids, j.opts.Extract, log)
	batch, err := extractor.Extract(graph, marker)
	if err != nil && marker != "" && j.opts.ResetOnMissingMarker && git.IsMarkerRejected(err) {
		log.Warn().Err(err).Str("marker", marker).Msg("stored marker rejected, re-reading full history")
		res.MarkerReset = true
		batch, err = extractor.Extract(graph, "")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to extract commits: %w", err)
	}

	res.Extracted = len(batch.Records)
	res.Skipped = batch.Skipped

	next := ""
	if newest, ok := batch.Newest(); ok {
		next = newest.CommitHash
	}

	if !j.opts.DryRun {
		saved, err := j.store.Save(ctx, target.Name, batch.Records, next)
		if err != nil {
			return nil, fmt.Errorf("failed to persist commits: %w", err)
		}
		res.Inserted = saved.Inserted
		res.Duplicates = saved.Duplicates
	}
	if next != "" {
		res.Marker = next
	}
	res.Duration = time.Since(start)

	log.Info().
		Str("marker", res.Marker).
		Int("extracted", res.Extracted).
		Int("inserted", res.Inserted).
		Int("duplicates", res.Duplicates).
		Int("skipped", len(res.Skipped)).
		Bool("dry_run", j.opts.DryRun).
		Dur("took", res.Duration).
		Msg("ingestion complete")

	return res, nil
}

// RunAll ingests targets one after another. A failing target does not stop
// the others; cancellation of ctx does.
func (j *Job) RunAll(ctx context.Context, targets []Target) ([]*Result, []Failure) {
	var (
		results  []*Result
		failures []Failure
	)
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			failures = append(failures, Failure{Target: target, Err: err})
			continue
		}
		res, err := j.Run(ctx, target)
		if err != nil {
			j.logger.Error().Err(err).Str("repo", target.Name).Msg("ingestion failed")
			failures = append(failures, Failure{Target: target, Err: err})
			continue
		}
		results = append(results, res)
	}
	return results, failures
}
