package testsupport

import (
	"path/filepath"
	"testing"

	"slipstream/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// The mock recognition engine is selected so tests never shell out.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InboxDirs = []string{filepath.Join(base, "inbox")}
	cfg.Paths.AttachmentsDir = filepath.Join(base, "attachments")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Pipeline.SettleMillis = 50
	cfg.Recognition.Engine = "mock"
	cfg.Recognition.MockText = "TEST MART\n2024-01-02\nTotal $1.00"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMockText overrides the text the mock recognition engine returns.
func WithMockText(text string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Recognition.MockText = text
	}
}

// WithQueue overrides the pipeline queue shape.
func WithQueue(capacity, workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.QueueCapacity = capacity
		cfg.Pipeline.Workers = workers
	}
}
