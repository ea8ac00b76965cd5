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
	c.normalizeRecognition()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	inboxes := make([]string, 0, len(c.Paths.InboxDirs))
	for i, dir := range c.Paths.InboxDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, expandErr := expandPath(dir)
		if expandErr != nil {
			return fmt.Errorf("paths.inbox_dirs[%d]: %w", i, expandErr)
		}
		inboxes = append(inboxes, expanded)
	}
	c.Paths.InboxDirs = inboxes

	if c.Paths.AttachmentsDir, err = expandPath(c.Paths.AttachmentsDir); err != nil {
		return fmt.Errorf("paths.attachments_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecognition() {
	c.Recognition.Engine = strings.ToLower(strings.TrimSpace(c.Recognition.Engine))
	if c.Recognition.Engine == "" {
		c.Recognition.Engine = defaultEngine
	}
	if strings.TrimSpace(c.Recognition.TesseractBinary) == "" {
		c.Recognition.TesseractBinary = defaultTesseractBinary
	}
	if len(c.Recognition.Languages) == 0 {
		c.Recognition.Languages = []string{"eng"}
	}
	if c.Recognition.TimeoutSeconds <= 0 {
		c.Recognition.TimeoutSeconds = defaultOCRTimeout
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

// ExpandPath resolves ~ and relative paths to absolute paths.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			return home, nil
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(path)
}
