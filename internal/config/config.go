package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// InboxDirs are watched for newly arrived receipt files.
	InboxDirs []string `toml:"inbox_dirs"`
	// AttachmentsDir is the root of the content-addressed blob store.
	AttachmentsDir string `toml:"attachments_dir"`
	// DataDir holds the receipt catalog database and the daemon lock file.
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Pipeline contains queue sizing and review policy configuration.
type Pipeline struct {
	// QueueCapacity bounds the intake queue; full queues block producers.
	QueueCapacity int `toml:"queue_capacity"`
	// Workers is the number of concurrent pipeline consumers.
	Workers int `toml:"workers"`
	// OCRPoolSize bounds concurrent CPU-heavy preprocess+recognize work.
	OCRPoolSize int `toml:"ocr_pool_size"`
	// SettleMillis is how long a watched file's size must stay unchanged
	// before it is considered fully written.
	SettleMillis int `toml:"settle_millis"`
	// ReviewThreshold is the aggregate confidence below which a receipt is
	// emphasized for human review or AI re-extraction by downstream callers.
	ReviewThreshold float64 `toml:"review_threshold"`
}

// Recognition selects and configures the OCR backend.
type Recognition struct {
	// Engine is "tesseract" or "mock".
	Engine           string   `toml:"engine"`
	TesseractBinary  string   `toml:"tesseract_binary"`
	Languages        []string `toml:"languages"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
	// MockText is returned verbatim by the mock engine; test installs only.
	MockText string `toml:"mock_text"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Duplicates     bool   `toml:"duplicates"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for slipstream.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Recognition   Recognition   `toml:"recognition"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slipstream/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration file.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found at the resolved path.
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
		if _, err = os.Stat(expanded); err != nil {
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
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// DatabasePath returns the catalog database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "receipts.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "slipstream.lock")
}

// EnsureDirectories creates all configured directories that must exist.
func (c *Config) EnsureDirectories() error {
	dirs := make([]string, 0, len(c.Paths.InboxDirs)+3)
	dirs = append(dirs, c.Paths.AttachmentsDir, c.Paths.DataDir, c.Paths.LogDir)
	dirs = append(dirs, c.Paths.InboxDirs...)
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// OverwriteSample writes the embedded sample config to path, replacing any
// existing file.
func OverwriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}
