package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImport(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ImportDir) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/oepma/config.toml"
		}
		return fmt.Errorf("paths.import_dir is required. Set OEPMA_IMPORT_DIR or edit %s (create with 'oepma config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateImport() error {
	if c.Import.MaxRecords < 0 {
		return errors.New("import.max_records must be zero or positive")
	}
	if c.Import.RecordDelayMillis < 0 {
		return errors.New("import.record_delay_ms must be zero or positive")
	}
	if c.Import.CompletionDelayMillis < 0 {
		return errors.New("import.completion_delay_ms must be zero or positive")
	}
	if c.Import.SuccessRetentionDays < 0 {
		return errors.New("import.success_retention_days must be zero or positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MediaTemplate == "" {
		return errors.New("workflow.media_template must be set")
	}
	if c.Workflow.NoMediaTemplate == "" {
		return errors.New("workflow.no_media_template must be set")
	}
	if c.Workflow.PublicationType == "" {
		return errors.New("workflow.publication_type must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.BufferSize < 1 {
		return errors.New("logging.buffer_size must be positive")
	}
	if c.Logging.NotifyIntervalMillis < 0 {
		return errors.New("logging.notify_interval_ms must be zero or positive")
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}
