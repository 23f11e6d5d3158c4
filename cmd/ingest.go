package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitsync/internal/ingest"
	"github.com/masmgr/commitsync/internal/logging"
	"github.com/masmgr/commitsync/internal/output"
	"github.com/masmgr/commitsync/internal/record"
)

// IngestCmd returns the ingest command.
func IngestCmd() *cli.Command {
	flags := append(repoFlags(), extractionFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:  "root",
			Usage: "Discover and ingest every repository below this directory (default: discovery.root from the config)",
		},
		&cli.StringSliceFlag{
			Name:  "include",
			Usage: "Glob patterns selecting repositories under --root (can be specified multiple times)",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "Glob patterns excluding repositories by name (can be specified multiple times)",
		},
		&cli.BoolFlag{
			Name:  "reset-on-missing-marker",
			Usage: "Re-ingest full history when the stored marker no longer exists",
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "Extract without writing to the store",
		},
	)
	flags = append(flags, outputFlags()...)

	return &cli.Command{
		Name:    "ingest",
		Aliases: []string{"i"},
		Usage:   "Persist commits added since the stored marker and advance it",
		Flags:   flags,
		Action:  ingestAction,
	}
}

func ingestAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		targets, err := ingestTargets(ctx, c)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			ctx.Logger.Warn().Str("root", ctx.Config.Discovery.Root).Msg("no repositories found")
		}

		open, err := ctx.Opener()
		if err != nil {
			return err
		}

		dryRun := c.Bool("dry-run")
		job := ingest.NewJob(ctx.Store, record.UUIDGenerator{}, ingest.Options{
			Extract:              ctx.ExtractOptions(),
			ResetOnMissingMarker: ctx.Config.Extraction.ResetOnMissingMarker,
			DryRun:               dryRun,
		}, logging.Named(ctx.Logger, "ingest")).WithOpener(open)

		results, failures := job.RunAll(c.Context, targets)

		report := &output.IngestReport{
			GeneratedAt: time.Now(),
			DryRun:      dryRun,
			Results:     results,
			Failures:    failures,
		}
		opts := OutputOptions(c)
		if err := output.NewIngestReportWriter(opts.Format).Write(report, opts); err != nil {
			return err
		}

		if len(failures) > 0 {
			return fmt.Errorf("%d of %d repositories failed", len(failures), len(targets))
		}
		return nil
	})
}

// ingestTargets returns the repositories discovered under --root or the
// configured discovery.root, and the single --repo otherwise. An explicit
// --repo wins over a configured root.
func ingestTargets(ctx *CommandContext, c *cli.Context) ([]ingest.Target, error) {
	if c.IsSet("root") || (ctx.Config.Discovery.Root != "" && !c.IsSet("repo")) {
		d := ctx.Config.Discovery
		targets, err := ingest.Discover(d.Root, d.Include, d.Exclude)
		if err != nil {
			return nil, fmt.Errorf("failed to discover repositories: %w", err)
		}
		return targets, nil
	}

	repoPath := c.String("repo")
	name, err := repoName(c.String("name"), repoPath)
	if err != nil {
		return nil, err
	}
	return []ingest.Target{{Name: name, Path: repoPath}}, nil
}
