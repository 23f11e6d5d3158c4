package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitsync/internal/output"
)

// HistoryCmd returns the history command.
func HistoryCmd() *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Show the records stored for a repository, in ingestion order",
		Flags:   append(repoFlags(), outputFlags()...),
		Action:  historyAction,
	}
}

func historyAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		name, err := repoName(c.String("name"), c.String("repo"))
		if err != nil {
			return err
		}

		records, err := ctx.Store.Records(c.Context, name, c.Int("top"))
		if err != nil {
			return fmt.Errorf("failed to read records: %w", err)
		}

		report := &output.RecordReport{
			RepoPath:    name,
			GeneratedAt: time.Now(),
			Records:     records,
		}
		opts := OutputOptions(c)
		return output.NewRecordReportWriter(opts.Format).Write(report, opts)
	})
}
