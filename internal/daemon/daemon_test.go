package daemon_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"slipstream/internal/config"
	"slipstream/internal/daemon"
	"slipstream/internal/pipeline"
	"slipstream/internal/recognize"
	"slipstream/internal/testsupport"
)

func daemonConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t, testsupport.WithMockText("CORNER DELI\n2024-02-01\nTotal $12.34\nVISA"))
}

func TestDaemonLifecycle(t *testing.T) {
	cfg := daemonConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer func() { _ = d.Close() }()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Running() {
		t.Fatal("expected running")
	}
	d.Stop()
	if d.Running() {
		t.Fatal("expected stopped")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := daemonConfig(t)
	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer func() { _ = first.Close() }()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("start first: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	defer func() { _ = second.Close() }()
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected lock contention error")
	}
}

func TestDirectIngest(t *testing.T) {
	cfg := daemonConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	// The mock backend never inspects the bytes, so a trivially valid
	// image is enough to drive the full stage sequence.
	path := filepath.Join(t.TempDir(), "receipt.png")
	testsupport.WritePNG(t, path, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	outcome, err := d.Ingest(ctx, path)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if outcome.Kind != pipeline.OutcomeCompleted {
		t.Fatalf("expected completed, got %s (stage %s, err %v)", outcome.Kind, outcome.Stage, outcome.Err)
	}
	if outcome.Receipt.Vendor != "CORNER DELI" {
		t.Fatalf("unexpected vendor %q", outcome.Receipt.Vendor)
	}
	if outcome.Origin != pipeline.OriginDirect {
		t.Fatalf("unexpected origin %q", outcome.Origin)
	}
}

func TestBuildBackendSelection(t *testing.T) {
	cfg := daemonConfig(t)
	backend, err := daemon.BuildBackend(cfg)
	if err != nil {
		t.Fatalf("mock backend: %v", err)
	}
	if _, ok := backend.(*recognize.Mock); !ok {
		t.Fatalf("expected mock backend, got %T", backend)
	}

	cfg.Recognition.Engine = "tesseract"
	cfg.Recognition.TesseractBinary = "tesseract"
	if _, err := daemon.BuildBackend(cfg); err != nil {
		t.Fatalf("tesseract backend: %v", err)
	}

	cfg.Recognition.Engine = "carrier-pigeon"
	if _, err := daemon.BuildBackend(cfg); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
