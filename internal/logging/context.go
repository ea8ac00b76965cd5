package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for intake item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldHash is the standardized structured logging key for content hashes.
	FieldHash = "content_hash"
	// FieldOrigin is the standardized structured logging key for intake origins.
	FieldOrigin = "origin"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags machine-readable event names on log lines.
	FieldEventType = "event_type"
	// FieldErrorKind carries the error taxonomy bucket for a failure.
	FieldErrorKind = "error_kind"
	// FieldErrorHint carries a short operator-facing remediation hint.
	FieldErrorHint = "error_hint"
)

type itemContext struct {
	itemID        string
	stage         string
	correlationID string
}

type itemContextKey struct{}

// ContextWithItem stamps intake item identity onto a context for log enrichment.
func ContextWithItem(ctx context.Context, itemID, stage, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, itemContextKey{}, itemContext{
		itemID:        itemID,
		stage:         stage,
		correlationID: correlationID,
	})
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	ic, ok := ctx.Value(itemContextKey{}).(itemContext)
	if !ok {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if ic.itemID != "" {
		fields = append(fields, slog.String(FieldItemID, ic.itemID))
	}
	if ic.stage != "" {
		fields = append(fields, slog.String(FieldStage, ic.stage))
	}
	if ic.correlationID != "" {
		fields = append(fields, slog.String(FieldCorrelationID, ic.correlationID))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
