package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/masmgr/commitsync/config"
	"github.com/masmgr/commitsync/internal/git"
	"github.com/masmgr/commitsync/internal/ingest"
	"github.com/masmgr/commitsync/internal/logging"
	"github.com/masmgr/commitsync/internal/output"
	"github.com/masmgr/commitsync/internal/store"
)

// CommandContext holds common state for command execution.
// It encapsulates the shared setup logic across all commands.
type CommandContext struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.Store
}

// NewCommandContext loads configuration, builds the logger and opens the store.
// Callers must Close the context.
func NewCommandContext(c *cli.Context) (*CommandContext, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: c.App.ErrWriter,
	})

	st, err := store.Open(cfg.Store.ToStore())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Debug().Str("driver", cfg.Store.Driver).Msg("store opened")

	return &CommandContext{Config: cfg, Logger: logger, Store: st}, nil
}

// Close releases the store.
func (ctx *CommandContext) Close() error {
	return ctx.Store.Close()
}

// ExtractOptions creates git.ExtractOptions from the configuration.
func (ctx *CommandContext) ExtractOptions() git.ExtractOptions {
	return git.ExtractOptions{
		Ref:    ctx.Config.Extraction.Ref,
		Strict: ctx.Config.Extraction.Strict,
	}
}

// Opener returns the repository opener of the configured backend.
func (ctx *CommandContext) Opener() (ingest.Opener, error) {
	return ingest.OpenerFor(ctx.Config.Extraction.Backend)
}

// executeWithContext runs fn with a CommandContext and closes it afterwards.
func executeWithContext(c *cli.Context, fn func(ctx *CommandContext, c *cli.Context) error) (err error) {
	ctx, err := NewCommandContext(c)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ctx.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close store: %w", cerr)
		}
	}()
	return fn(ctx, c)
}

// OutputOptions creates OutputOptions from CLI flags.
func OutputOptions(c *cli.Context) output.OutputOptions {
	return output.OutputOptions{
		Format:     getOutputFormat(c.String("format")),
		Top:        c.Int("top"),
		OutputPath: c.String("output"),
	}
}
