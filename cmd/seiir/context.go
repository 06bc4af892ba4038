package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"seiir/internal/config"
	"seiir/internal/forecastdata"
	"seiir/internal/ledger"
	"seiir/internal/logging"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*c.logLevelFlag))
			if err := cfg.Validate(); err != nil {
				c.configErr = err
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
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

// openLedger returns nil when no ledger path is configured. The caller closes
// a non-nil store.
func (c *commandContext) openLedger(ctx context.Context) (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Paths.LedgerPath) == "" {
		return nil, nil
	}
	store, err := ledger.Open(ctx, cfg.Paths.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	return store, nil
}

func openForecastVersion(version string) (*forecastdata.Interface, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return nil, fmt.Errorf("--forecast-version is required")
	}
	expanded, err := config.ExpandPath(version)
	if err != nil {
		return nil, fmt.Errorf("resolve forecast version: %w", err)
	}
	return forecastdata.OpenVersion(expanded)
}

func workerCount(flagValue, configured int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configured
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
