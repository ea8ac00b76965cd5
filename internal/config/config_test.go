package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slipstream/internal/config"
)

func TestDefaultValidatesAfterNormalize(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file to be reported as absent")
	}
	if cfg.Pipeline.QueueCapacity != 32 {
		t.Fatalf("unexpected default queue capacity %d", cfg.Pipeline.QueueCapacity)
	}
	if cfg.Recognition.Engine != "tesseract" {
		t.Fatalf("unexpected default engine %q", cfg.Recognition.Engine)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
inbox_dirs = ["` + dir + `/inbox"]
attachments_dir = "` + dir + `/attachments"
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[pipeline]
queue_capacity = 4
workers = 1

[recognition]
engine = "mock"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Pipeline.QueueCapacity != 4 {
		t.Fatalf("expected queue capacity 4, got %d", cfg.Pipeline.QueueCapacity)
	}
	if cfg.Recognition.Engine != "mock" {
		t.Fatalf("expected mock engine, got %q", cfg.Recognition.Engine)
	}
	if !filepath.IsAbs(cfg.Paths.AttachmentsDir) {
		t.Fatalf("expected absolute attachments dir, got %q", cfg.Paths.AttachmentsDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "bad engine",
			content: "[recognition]\nengine = \"carrier-pigeon\"\n",
			wantErr: "recognition.engine",
		},
		{
			name:    "zero workers",
			content: "[pipeline]\nworkers = 0\n",
			wantErr: "pipeline.workers",
		},
		{
			name:    "threshold out of range",
			content: "[pipeline]\nreview_threshold = 1.5\n",
			wantErr: "review_threshold",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesTree(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InboxDirs = []string{filepath.Join(dir, "inbox")}
	cfg.Paths.AttachmentsDir = filepath.Join(dir, "attachments")
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, p := range []string{cfg.Paths.InboxDirs[0], cfg.Paths.AttachmentsDir, cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			t.Fatalf("expected directory at %s, err=%v", p, err)
		}
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
