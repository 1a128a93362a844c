package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	ImportDir string `toml:"import_dir"`
	AssetDir  string `toml:"asset_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Sources names the three exported tables inside the import directory.
type Sources struct {
	Applicants string `toml:"applicants"`
	Masters    string `toml:"masters"`
	Priorities string `toml:"priorities"`
}

// Import contains batch pacing and limits.
type Import struct {
	MaxRecords            int `toml:"max_records"`
	RecordDelayMillis     int `toml:"record_delay_ms"`
	CompletionDelayMillis int `toml:"completion_delay_ms"`
	SuccessRetentionDays  int `toml:"success_retention_days"`
}

// Workflow selects the repository templates used when materializing records.
type Workflow struct {
	MediaTemplate   string `toml:"media_template"`
	NoMediaTemplate string `toml:"no_media_template"`
	PublicationType string `toml:"publication_type"`
	Collection      string `toml:"collection"`
}

// Metadata maps staged record fields onto repository metadata type names.
// The importer treats every value as an opaque lookup key.
type Metadata struct {
	Key             string `toml:"key"`
	FullName        string `toml:"fullname"`
	Place           string `toml:"place"`
	Country         string `toml:"country"`
	Date            string `toml:"date"`
	Title           string `toml:"title"`
	Shelfmark       string `toml:"shelfmark"`
	Document        string `toml:"pdf"`
	Notes           string `toml:"notes"`
	Priority        string `toml:"priority"`
	PriorityCountry string `toml:"priority_country"`
	PriorityDate    string `toml:"priority_date"`
	FileName        string `toml:"filename"`
	FilePath        string `toml:"filepath"`
	Collection      string `toml:"collection"`
	CatalogID       string `toml:"catalog_id"`
}

// Repository configures the artifact store that materialized records land in.
type Repository struct {
	DBPath   string `toml:"db_path"`
	MediaDir string `toml:"media_dir"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunStart       bool   `toml:"run_start"`
	RunComplete    bool   `toml:"run_complete"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output and the in-memory log buffer.
type Logging struct {
	Format               string `toml:"format"`
	Level                string `toml:"level"`
	RetentionDays        int    `toml:"retention_days"`
	BufferSize           int    `toml:"buffer_size"`
	NotifyIntervalMillis int    `toml:"notify_interval_ms"`
}

// Config encapsulates all configuration values for the importer.
//
// Configuration sections by subsystem:
//   - Paths: import directory, asset scans, logs and API bind address
//   - Sources: file names of the three exported tables
//   - Import: record cap and pacing delays
//   - Workflow: repository templates, publication type and collection
//   - Metadata: staged field to repository metadata name mapping
//   - Repository: artifact database and media directory
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, retention and UI buffer
type Config struct {
	Paths         Paths         `toml:"paths"`
	Sources       Sources       `toml:"sources"`
	Import        Import        `toml:"import"`
	Workflow      Workflow      `toml:"workflow"`
	Metadata      Metadata      `toml:"metadata"`
	Repository    Repository    `toml:"repository"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/oepma/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("oepma.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the importer writes into.
// The asset directory is read-only input and is never created.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.InputDir(), c.Paths.LogDir, c.Repository.MediaDir}
	if dbDir := filepath.Dir(c.Repository.DBPath); dbDir != "" {
		dirs = append(dirs, dbDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// InputDir is where staged records wait for materialization.
func (c *Config) InputDir() string {
	return filepath.Join(c.Paths.ImportDir, "input")
}

// SuccessDir holds staged records that were materialized.
func (c *Config) SuccessDir() string {
	return filepath.Join(c.InputDir(), "success")
}

// LockPath is the advisory lock guarding the import directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.ImportDir, ".oepma.lock")
}

// SourcePaths returns the absolute paths of the applicant, master and priority tables.
func (c *Config) SourcePaths() (string, string, string) {
	join := func(name string) string {
		if filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(c.Paths.ImportDir, name)
	}
	return join(c.Sources.Applicants), join(c.Sources.Masters), join(c.Sources.Priorities)
}

// RecordDelay is the pause taken before each record.
func (c *Config) RecordDelay() time.Duration {
	return time.Duration(c.Import.RecordDelayMillis) * time.Millisecond
}

// CompletionDelay is the hold after the record loop before a run reports completion.
func (c *Config) CompletionDelay() time.Duration {
	return time.Duration(c.Import.CompletionDelayMillis) * time.Millisecond
}

// NotifyInterval is the minimum spacing between UI update signals.
func (c *Config) NotifyInterval() time.Duration {
	return time.Duration(c.Logging.NotifyIntervalMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
