package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkers()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	// An empty ledger path disables run tracking.
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkers() {
	if c.Workers.Scaling == 0 {
		c.Workers.Scaling = defaultScalingWorkers
	}
	if c.Workers.Outputs == 0 {
		c.Workers.Outputs = defaultOutputsWorkers
	}
	if c.Workers.Measures == 0 {
		c.Workers.Measures = defaultMeasuresWorkers
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
