package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeWorkflow()
	c.normalizeMetadata()
	if err := c.normalizeRepository(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("OEPMA_IMPORT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ImportDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.ImportDir, err = expandPath(strings.TrimSpace(c.Paths.ImportDir)); err != nil {
		return fmt.Errorf("paths.import_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AssetDir) == "" && c.Paths.ImportDir != "" {
		c.Paths.AssetDir = filepath.Join(c.Paths.ImportDir, defaultAssetSubdir)
	}
	if c.Paths.AssetDir, err = expandPath(strings.TrimSpace(c.Paths.AssetDir)); err != nil {
		return fmt.Errorf("paths.asset_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeSources() {
	c.Sources.Applicants = defaultString(c.Sources.Applicants, defaultApplicantsFile)
	c.Sources.Masters = defaultString(c.Sources.Masters, defaultMastersFile)
	c.Sources.Priorities = defaultString(c.Sources.Priorities, defaultPrioritiesFile)
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.MediaTemplate = strings.TrimSpace(c.Workflow.MediaTemplate)
	c.Workflow.NoMediaTemplate = strings.TrimSpace(c.Workflow.NoMediaTemplate)
	c.Workflow.PublicationType = strings.TrimSpace(c.Workflow.PublicationType)
	c.Workflow.Collection = strings.TrimSpace(c.Workflow.Collection)
}

func (c *Config) normalizeMetadata() {
	fallback := DefaultMetadata()
	m := &c.Metadata
	m.Key = defaultString(m.Key, fallback.Key)
	m.FullName = defaultString(m.FullName, fallback.FullName)
	m.Place = defaultString(m.Place, fallback.Place)
	m.Country = defaultString(m.Country, fallback.Country)
	m.Date = defaultString(m.Date, fallback.Date)
	m.Title = defaultString(m.Title, fallback.Title)
	m.Shelfmark = defaultString(m.Shelfmark, fallback.Shelfmark)
	m.Document = defaultString(m.Document, fallback.Document)
	m.Notes = defaultString(m.Notes, fallback.Notes)
	m.Priority = defaultString(m.Priority, fallback.Priority)
	m.PriorityCountry = defaultString(m.PriorityCountry, fallback.PriorityCountry)
	m.PriorityDate = defaultString(m.PriorityDate, fallback.PriorityDate)
	m.FileName = defaultString(m.FileName, fallback.FileName)
	m.FilePath = defaultString(m.FilePath, fallback.FilePath)
	m.Collection = defaultString(m.Collection, fallback.Collection)
	m.CatalogID = defaultString(m.CatalogID, fallback.CatalogID)
}

func (c *Config) normalizeRepository() error {
	var err error
	if c.Repository.DBPath, err = expandPath(defaultString(c.Repository.DBPath, defaultRepositoryDBPath)); err != nil {
		return fmt.Errorf("repository.db_path: %w", err)
	}
	if c.Repository.MediaDir, err = expandPath(defaultString(c.Repository.MediaDir, defaultRepositoryMediaDir)); err != nil {
		return fmt.Errorf("repository.media_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("OEPMA_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(defaultString(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(defaultString(c.Logging.Level, defaultLogLevel))
	if c.Logging.BufferSize == 0 {
		c.Logging.BufferSize = defaultLogBufferSize
	}
	if c.Logging.NotifyIntervalMillis == 0 {
		c.Logging.NotifyIntervalMillis = defaultNotifyIntervalMillis
	}
}

func defaultString(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
