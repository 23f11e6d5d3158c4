package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitsync/internal/git"
	"github.com/masmgr/commitsync/internal/logging"
	"github.com/masmgr/commitsync/internal/output"
	"github.com/masmgr/commitsync/internal/record"
)

// ExtractCmd returns the extract command.
func ExtractCmd() *cli.Command {
	flags := append(repoFlags(), extractionFlags()...)
	flags = append(flags,
		&cli.StringFlag{
			Name:    "marker",
			Aliases: []string{"m"},
			Usage:   "Commit id of the last extracted commit; omit for full history",
		},
		&cli.BoolFlag{
			Name:  "from-store",
			Usage: "Use the marker stored for the repository",
		},
	)
	flags = append(flags, outputFlags()...)

	return &cli.Command{
		Name:    "extract",
		Aliases: []string{"x"},
		Usage:   "List commits added since a marker without persisting them",
		Flags:   flags,
		Action:  extractAction,
	}
}

func extractAction(c *cli.Context) error {
	if c.IsSet("marker") && c.Bool("from-store") {
		return fmt.Errorf("--marker and --from-store are mutually exclusive")
	}

	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		open, err := ctx.Opener()
		if err != nil {
			return err
		}

		repoPath := c.String("repo")
		graph, err := open(c.Context, repoPath)
		if err != nil {
			return err
		}
		if closer, ok := graph.(io.Closer); ok {
			defer closer.Close()
		}

		marker := c.String("marker")
		if c.Bool("from-store") {
			name, err := repoName(c.String("name"), repoPath)
			if err != nil {
				return err
			}
			if marker, _, err = ctx.Store.Marker(c.Context, name); err != nil {
				return fmt.Errorf("failed to load marker: %w", err)
			}
		}

		extractor := git.NewExtractor(record.UUIDGenerator{}, ctx.ExtractOptions(), logging.Named(ctx.Logger, "extract"))
		batch, err := extractor.Extract(graph, marker)
		if err != nil {
			return err
		}

		report := &output.RecordReport{
			RepoPath:    repoPath,
			Ref:         ctx.Config.Extraction.Ref,
			Marker:      batch.Marker,
			GeneratedAt: time.Now(),
			Records:     batch.Records,
			Skipped:     batch.Skipped,
		}

		opts := OutputOptions(c)
		return output.NewRecordReportWriter(opts.Format).Write(report, opts)
	})
}
