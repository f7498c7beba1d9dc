package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mattetti/mp4edit/container"
	"github.com/mattetti/mp4edit/internal/config"
	"github.com/mattetti/mp4edit/internal/logging"
	"github.com/mattetti/mp4edit/mp4edit"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration once and builds the logger writing to
// logOut.
func (c *commandContext) ensureConfig(logOut io.Writer) (*config.Config, error) {
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
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: logOut,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

// runContext carries the configured logger.
func (c *commandContext) runContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.logger == nil {
		return ctx
	}
	return logging.WithLogger(ctx, c.logger)
}

// options translates the configuration into editing options. An explicit
// --overwrite flag on cmd wins over the configured value.
func (c *commandContext) options(cmd *cobra.Command) []mp4edit.Option {
	var opts []mp4edit.Option
	overwrite := true
	if c.config != nil {
		opts = append(opts, mp4edit.WithReadOptions(container.ReadOptions{
			BufferSize:    c.config.Read.BufferSize,
			BufferHistory: c.config.Read.BufferHistory,
		}))
		overwrite = c.config.Output.Overwrite
	}
	if f := cmd.Flags().Lookup("overwrite"); f != nil && f.Changed {
		overwrite = f.Value.String() == "true"
	}
	return append(opts, mp4edit.WithOverwrite(overwrite))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
