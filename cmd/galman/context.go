package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"galman/internal/config"
	"galman/internal/logging"
)

type commandContext struct {
	configFlag     *string
	logLevelFlag   *string
	collectionFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	sessionID string
	logPath   string
}

func newCommandContext(configFlag, logLevelFlag, collectionFlag *string) *commandContext {
	return &commandContext{
		configFlag:     configFlag,
		logLevelFlag:   logLevelFlag,
		collectionFlag: collectionFlag,
	}
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
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
				if err := cfg.Validate(); err != nil {
					c.configErr = err
					return
				}
			}
		}
		if c.collectionFlag != nil {
			cfg, err = cfg.WithCollection(*c.collectionFlag)
			if err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// sessionLogger builds the logger for one command run. Every record carries a
// fresh session id and old run logs are pruned.
func (c *commandContext) sessionLogger(console io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	c.sessionID = uuid.NewString()

	logger, logPath, err := logging.NewFromConfig(cfg, c.sessionID, console)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	c.logPath = logPath
	if logPath != "" {
		logging.PruneRunLogs(logger, cfg.Logging.Dir, cfg.Logging.RetentionDays, logPath)
	}
	return cfg, logger, nil
}

// signalContext cancels on SIGINT or SIGTERM so a review stops between
// decisions instead of mid-transition.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
