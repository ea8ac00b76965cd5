package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"slipstream/internal/config"
)

const userAgent = "Slipstream/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyReceiptCompleted(ctx context.Context, vendor string, totalCents int64, confidence float64) error
	NotifyDuplicate(ctx context.Context, sourcePath, hash string) error
	NotifyIngestFailed(ctx context.Context, sourcePath, stage string, err error) error
	NotifyReviewQueue(ctx context.Context, pending int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		completed:  cfg.Notifications.Completed,
		duplicates: cfg.Notifications.Duplicates,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completed  bool
	duplicates bool
	errors     bool
}

func (n *ntfyService) NotifyReceiptCompleted(ctx context.Context, vendor string, totalCents int64, confidence float64) error {
	if !n.completed {
		return nil
	}
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		vendor = "unknown vendor"
	}
	message := fmt.Sprintf("Receipt ingested: %s", vendor)
	if totalCents > 0 {
		message = fmt.Sprintf("%s — $%d.%02d", message, totalCents/100, totalCents%100)
	}
	message = fmt.Sprintf("%s (confidence %.0f%%)", message, confidence*100)
	data := payload{
		title:   "Slipstream - Receipt Ingested",
		message: message,
		tags:    []string{"slipstream", "receipt", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDuplicate(ctx context.Context, sourcePath, hash string) error {
	if !n.duplicates {
		return nil
	}
	data := payload{
		title:    "Slipstream - Duplicate Receipt",
		message:  fmt.Sprintf("Already ingested: %s\nHash: %s", strings.TrimSpace(sourcePath), shortHash(hash)),
		tags:     []string{"slipstream", "receipt", "duplicate"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIngestFailed(ctx context.Context, sourcePath, stage string, err error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Ingest failed")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" at ")
		builder.WriteString(stage)
	}
	builder.WriteString(": ")
	builder.WriteString(strings.TrimSpace(sourcePath))
	if err != nil {
		builder.WriteString("\n")
		builder.WriteString(strings.TrimSpace(err.Error()))
	}
	data := payload{
		title:    "Slipstream - Ingest Failed",
		message:  builder.String(),
		tags:     []string{"slipstream", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewQueue(ctx context.Context, pending int) error {
	if !n.completed || pending <= 0 {
		return nil
	}
	data := payload{
		title:   "Slipstream - Review Queue",
		message: fmt.Sprintf("%d receipts awaiting review", pending),
		tags:    []string{"slipstream", "review"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Slipstream - Test",
		message:  "Notification system test",
		tags:     []string{"slipstream", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReceiptCompleted(context.Context, string, int64, float64) error { return nil }
func (noopService) NotifyDuplicate(context.Context, string, string) error                { return nil }
func (noopService) NotifyIngestFailed(context.Context, string, string, error) error      { return nil }
func (noopService) NotifyReviewQueue(context.Context, int) error                         { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
