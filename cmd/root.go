package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitsync/config"
	"github.com/masmgr/commitsync/internal/output"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "commitsync",
		Usage:   "Incremental commit extraction for Git repositories",
		Version: "1.0.0",
		Commands: []*cli.Command{
			ExtractCmd(),
			IngestCmd(),
			HistoryCmd(),
			MarkerCmd(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (trace, debug, info, warn, error, off)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format (console, json)",
			},
		},
	}
}

// repoFlags identify a single repository and its store key.
func repoFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Path to Git repository",
			Value:   ".",
		},
		&cli.StringFlag{
			Name:  "name",
			Usage: "Repository key in the store (default: repository directory name)",
		},
	}
}

// outputFlags are shared by every command that writes a report.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (console, json, csv, markdown, ci)",
			Value:   "console",
		},
		&cli.IntFlag{
			Name:    "top",
			Aliases: []string{"n"},
			Usage:   "Maximum number of entries to show (0: all)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output file path (default: stdout)",
		},
	}
}

// extractionFlags override the extraction section of the configuration.
func extractionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "ref",
			Aliases: []string{"b"},
			Usage:   "Revision whose history is extracted (default: HEAD)",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail on unreadable commits instead of skipping them",
		},
		&cli.StringFlag{
			Name:  "backend",
			Usage: "How repositories are read (go-git, git-cli)",
		},
	}
}

// getOutputFormat parses the output format flag.
func getOutputFormat(s string) output.OutputFormat {
	switch strings.ToLower(s) {
	case "json":
		return output.FormatJSON
	case "csv":
		return output.FormatCSV
	case "markdown", "md":
		return output.FormatMarkdown
	case "ci", "ndjson":
		return output.FormatCI
	default:
		return output.FormatConsole
	}
}

// loadConfig loads configuration from file or defaults and applies CLI overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := c.String("log-format"); format != "" {
		cfg.Log.Format = format
	}
	if c.IsSet("ref") {
		cfg.Extraction.Ref = c.String("ref")
	}
	if backend := c.String("backend"); backend != "" {
		cfg.Extraction.Backend = backend
	}
	if c.Bool("strict") {
		cfg.Extraction.Strict = true
	}
	if c.Bool("reset-on-missing-marker") {
		cfg.Extraction.ResetOnMissingMarker = true
	}
	if root := c.String("root"); root != "" {
		cfg.Discovery.Root = root
	}
	if includes := c.StringSlice("include"); len(includes) > 0 {
		cfg.Discovery.Include = includes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Discovery.Exclude = excludes
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// repoName returns the store key for a repository path.
func repoName(name, repoPath string) (string, error) {
	if name = strings.TrimSpace(name); name != "" {
		return name, nil
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "", err
	}
	return filepath.Base(abs), nil
}
