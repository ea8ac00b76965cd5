package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"slipstream/internal/config"
	"slipstream/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyReceiptCompleted(context.Background(), "CAFE", 450, 0.9); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, sink *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		sink.title = r.Header.Get("Title")
		sink.tags = r.Header.Get("Tags")
		sink.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		sink.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
}

func serviceFor(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Completed = true
	cfg.Notifications.Duplicates = true
	cfg.Notifications.Errors = true
	return notifications.NewService(&cfg)
}

func TestNotifyReceiptCompletedFormatsMessage(t *testing.T) {
	var got captured
	server := captureServer(t, &got)
	defer server.Close()

	svc := serviceFor(server.URL)
	if err := svc.NotifyReceiptCompleted(context.Background(), "STARBUCKS COFFEE", 525, 0.88); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.title != "Slipstream - Receipt Ingested" {
		t.Fatalf("unexpected title %q", got.title)
	}
	if got.body != "Receipt ingested: STARBUCKS COFFEE — $5.25 (confidence 88%)" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.tags != "slipstream,receipt,completed" {
		t.Fatalf("unexpected tags %q", got.tags)
	}
}

func TestNotifyDuplicateTruncatesHash(t *testing.T) {
	var got captured
	server := captureServer(t, &got)
	defer server.Close()

	svc := serviceFor(server.URL)
	hash := "0123456789abcdef0123456789abcdef"
	if err := svc.NotifyDuplicate(context.Background(), "/inbox/receipt.png", hash); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.body != "Already ingested: /inbox/receipt.png\nHash: 0123456789ab" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.priority != "low" {
		t.Fatalf("unexpected priority %q", got.priority)
	}
}

func TestNotifyIngestFailedCarriesStage(t *testing.T) {
	var got captured
	server := captureServer(t, &got)
	defer server.Close()

	svc := serviceFor(server.URL)
	if err := svc.NotifyIngestFailed(context.Background(), "/inbox/bad.jpg", "preprocess", errors.New("corrupt image")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if got.body != "Ingest failed at preprocess: /inbox/bad.jpg\ncorrupt image" {
		t.Fatalf("unexpected body %q", got.body)
	}
	if got.priority != "high" {
		t.Fatalf("unexpected priority %q", got.priority)
	}
}

func TestSuppressedCategoriesSkipNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed category: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	cfg.Notifications.Duplicates = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	ctx := context.Background()
	if err := svc.NotifyReceiptCompleted(ctx, "CAFE", 100, 0.9); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := svc.NotifyDuplicate(ctx, "/inbox/x.png", "abc"); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if err := svc.NotifyIngestFailed(ctx, "/inbox/x.png", "store", errors.New("disk full")); err != nil {
		t.Fatalf("failed: %v", err)
	}
}

func TestNotifyErrorStatusSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	svc := serviceFor(server.URL)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
