package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"airchart/internal/catalog"
	"airchart/internal/chartstore"
	"airchart/internal/config"
	"airchart/internal/logging"
	"airchart/internal/stage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// stageBuilder assembles the stages one command runs, in execution order.
type stageBuilder func(cfg *config.Config, logger *slog.Logger, cat *catalog.Store, charts *chartstore.Store) ([]stage.Stage, error)

// runStages is the shared batch entry point: it takes the run lock, opens
// both stores, executes the stages in order under signal cancellation, and
// prints one summary line per stage. The first stage error aborts the run.
func (c *commandContext) runStages(cmd *cobra.Command, opts stage.Options, build stageBuilder) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return errors.New("another airchart run is already in progress")
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(cfg.CatalogDBPath())
	if err != nil {
		return fmt.Errorf("open catalog store: %w", err)
	}
	defer cat.Close()

	charts, err := chartstore.Open(cfg.ChartDBPath())
	if err != nil {
		return fmt.Errorf("open chart store: %w", err)
	}
	defer charts.Close()

	stages, err := build(cfg, logger, cat, charts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, st := range stages {
		summary, err := st.Run(ctx, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", st.Name(), err)
		}
		fmt.Fprintf(out, "%s: %s\n", st.Name(), summary.String())
	}
	return nil
}

// withChartStore opens only the derived ranking store, for read-side
// commands that never touch the catalog and take no run lock.
func (c *commandContext) withChartStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, charts *chartstore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	charts, err := chartstore.Open(cfg.ChartDBPath())
	if err != nil {
		return fmt.Errorf("open chart store: %w", err)
	}
	defer charts.Close()
	return fn(cmd.Context(), cfg, charts)
}

// addStageFlags binds the common batch flags onto a stage command.
func addStageFlags(cmd *cobra.Command, opts *stage.Options) {
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Recompute units that already exist")
	cmd.Flags().BoolVar(&opts.Resume, "resume", false, "Continue from the latest persisted state")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Process at most N units (0 means all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Skip the first N units")
}
