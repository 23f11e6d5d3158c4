package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// MarkerCmd returns the marker command.
func MarkerCmd() *cli.Command {
	return &cli.Command{
		Name:    "marker",
		Aliases: []string{"m"},
		Usage:   "Show the stored marker of a repository, or clear it",
		Flags: append(repoFlags(),
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Clear the marker so the next ingestion reads full history",
			},
		),
		Action: markerAction,
	}
}

func markerAction(c *cli.Context) error {
	return executeWithContext(c, func(ctx *CommandContext, c *cli.Context) error {
		name, err := repoName(c.String("name"), c.String("repo"))
		if err != nil {
			return err
		}
		out := c.App.Writer

		if c.Bool("reset") {
			if err := ctx.Store.ResetMarker(c.Context, name); err != nil {
				return fmt.Errorf("failed to reset marker: %w", err)
			}
			ctx.Logger.Info().Str("repo", name).Msg("marker reset")
			fmt.Fprintf(out, "%s: marker cleared\n", name)
			return nil
		}

		marker, ok, err := ctx.Store.Marker(c.Context, name)
		if err != nil {
			return fmt.Errorf("failed to load marker: %w", err)
		}
		if !ok {
			fmt.Fprintf(out, "%s: no marker\n", name)
			return nil
		}
		fmt.Fprintf(out, "%s: %s\n", name, marker)
		return nil
	})
}
