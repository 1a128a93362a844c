package testsupport

import (
	"path/filepath"
	"testing"

	"oepma/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Record and completion delays are zero so runs finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ImportDir = filepath.Join(base, "import")
	cfgVal.Paths.AssetDir = filepath.Join(base, "import", "Scans")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Repository.DBPath = filepath.Join(base, "repository", "repository.db")
	cfgVal.Repository.MediaDir = filepath.Join(base, "repository", "media")
	cfgVal.Import.RecordDelayMillis = 0
	cfgVal.Import.CompletionDelayMillis = 0
	cfgVal.Import.MaxRecords = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDelays sets the per-record delay and completion hold in milliseconds.
func WithDelays(recordMillis, completionMillis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.RecordDelayMillis = recordMillis
		b.cfg.Import.CompletionDelayMillis = completionMillis
	}
}

// WithMaxRecords sets the per-source record cap.
func WithMaxRecords(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Import.MaxRecords = limit
	}
}

// WithNtfyTopic points notifications at a test server.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ImportDir)
}
