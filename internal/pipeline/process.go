package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"os"
	"time"

	"slipstream/internal/contentstore"
	"slipstream/internal/extract"
	"slipstream/internal/logging"
	"slipstream/internal/preprocess"
	"slipstream/internal/receipts"
	"slipstream/internal/recognize"
	"slipstream/internal/services"
)

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, item *IntakeItem) Outcome {
	ctx = logging.ContextWithItem(ctx, item.ID, "", "")
	logger = logging.WithContext(ctx, logger).With(
		logging.String(logging.FieldOrigin, string(item.Origin)),
		logging.String("source", item.Path),
	)
	started := time.Now()

	data := item.Data
	if data == nil {
		var err error
		data, err = os.ReadFile(item.Path)
		if err != nil {
			return o.fail(logger, item, StageHash, services.Wrap(services.ErrIO, string(StageHash), "read-source", "failed to read intake file", err))
		}
	}
	hash := contentstore.HashBytes(data)
	logger = logger.With(logging.String(logging.FieldHash, hash))

	// Dedup short-circuit: content already stored and cataloged means no
	// re-storage and no wasted OCR work.
	if o.store.Exists(hash) {
		existing, err := o.catalog.RecordDuplicate(ctx, hash)
		if err != nil {
			return o.fail(logger, item, StagePersist, services.Wrap(services.ErrPersistence, string(StagePersist), "record-duplicate", "failed to record duplicate", err))
		}
		if existing != nil {
			logger.Info("duplicate receipt ignored",
				logging.String(logging.FieldEventType, "duplicate"),
				logging.Int64("duplicate_count", existing.DuplicateCount),
			)
			return Outcome{
				ItemID:     item.ID,
				SourcePath: item.Path,
				Origin:     item.Origin,
				Kind:       OutcomeDuplicate,
				Hash:       hash,
				Receipt:    existing,
			}
		}
		// Blob present but no catalog row: an earlier run stored the bytes
		// and crashed before persisting. Re-process; Put is a no-op.
	}

	put, err := o.store.Put(data, item.Extension)
	if err != nil {
		return o.fail(logger, item, StageStore, err)
	}

	// Preprocess and recognize are CPU-bound; both run on the shared pool.
	var (
		prepared   preprocess.Result
		recognized recognize.Result
		stageErr   error
		failedAt   Stage
	)
	done := make(chan struct{})
	submitErr := o.pool.Submit(func() {
		defer close(done)
		prepared, stageErr = preprocess.Prepare(data, mimeHint(item.Extension))
		if stageErr != nil {
			failedAt = StagePreprocess
			return
		}
		recognized, stageErr = o.backend.Recognize(ctx, prepared)
		if stageErr != nil {
			failedAt = StageRecognize
		}
	})
	if submitErr != nil {
		return o.fail(logger, item, StagePreprocess, services.Wrap(services.ErrRecognition, string(StagePreprocess), "pool-submit", "recognition pool rejected work", submitErr))
	}
	<-done
	if stageErr != nil {
		return o.fail(logger, item, failedAt, stageErr)
	}

	extracted := extract.Extract(recognized.Text)

	record, err := o.persist(ctx, item, put.Attachment, recognized, extracted)
	if errors.Is(err, receipts.ErrDuplicateHash) {
		// Another worker cataloged identical content between the dedup
		// check and this insert. Converge on the duplicate path instead
		// of surfacing a failure for content that was ingested.
		existing, dupErr := o.catalog.RecordDuplicate(ctx, hash)
		if dupErr != nil || existing == nil {
			return o.fail(logger, item, StagePersist, services.Wrap(services.ErrPersistence, string(StagePersist), "record-duplicate", "failed to record duplicate", dupErr))
		}
		logger.Info("duplicate receipt ignored",
			logging.String(logging.FieldEventType, "duplicate"),
			logging.Int64("duplicate_count", existing.DuplicateCount),
		)
		return Outcome{
			ItemID:     item.ID,
			SourcePath: item.Path,
			Origin:     item.Origin,
			Kind:       OutcomeDuplicate,
			Hash:       hash,
			Receipt:    existing,
		}
	}
	if err != nil {
		return o.fail(logger, item, StagePersist, services.Wrap(services.ErrPersistence, string(StagePersist), "insert-receipt", "failed to catalog receipt", err))
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "receipt_completed"),
		logging.String("engine", recognized.EngineID),
		logging.Float64("confidence", extracted.Confidence),
		logging.Duration("elapsed", time.Since(started)),
	}
	if extract.ShouldEscalate(extracted, o.cfg.Pipeline.ReviewThreshold) {
		attrs = append(attrs, logging.Bool("needs_review", true))
	}
	logger.Info("receipt ingested", logging.Args(attrs...)...)

	return Outcome{
		ItemID:     item.ID,
		SourcePath: item.Path,
		Origin:     item.Origin,
		Kind:       OutcomeCompleted,
		Hash:       hash,
		Receipt:    record,
	}
}

func (o *Orchestrator) fail(logger *slog.Logger, item *IntakeItem, stage Stage, err error) Outcome {
	logger.Error("receipt ingest failed",
		logging.String(logging.FieldStage, string(stage)),
		logging.String(logging.FieldEventType, "ingest_failed"),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Error(err),
	)
	return Outcome{
		ItemID:     item.ID,
		SourcePath: item.Path,
		Origin:     item.Origin,
		Kind:       OutcomeFailed,
		Stage:      stage,
		Err:        err,
	}
}

type lineItemRow struct {
	Description string  `json:"description"`
	AmountCents int64   `json:"amount_cents"`
	Confidence  float64 `json:"confidence"`
}

func (o *Orchestrator) persist(ctx context.Context, item *IntakeItem, attachment contentstore.Attachment, recognized recognize.Result, extracted extract.Receipt) (*receipts.Receipt, error) {
	rows := make([]lineItemRow, 0, len(extracted.LineItems))
	for _, li := range extracted.LineItems {
		rows = append(rows, lineItemRow{
			Description: li.Description,
			AmountCents: li.AmountCents,
			Confidence:  li.Confidence,
		})
	}
	lineItemsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}

	record := &receipts.Receipt{
		FileHash:       attachment.Hash,
		Extension:      attachment.Extension,
		AttachmentPath: attachment.Path,
		ByteSize:       attachment.Size,
		EngineID:       recognized.EngineID,
		OCRText:        recognized.Text,
		LineItemsJSON:  string(lineItemsJSON),
		Confidence:     extracted.Confidence,
		Status:         receipts.StatusPendingReview,
	}
	if extracted.Vendor != nil {
		record.Vendor = extracted.Vendor.Value
	}
	if extracted.Date != nil {
		date := extracted.Date.Value
		record.ReceiptDate = &date
	}
	if extracted.SubtotalCents != nil {
		v := extracted.SubtotalCents.Value
		record.SubtotalCents = &v
	}
	if extracted.TaxCents != nil {
		v := extracted.TaxCents.Value
		record.TaxCents = &v
	}
	if extracted.TotalCents != nil {
		v := extracted.TotalCents.Value
		record.TotalCents = &v
	}
	if extracted.PaymentMethod != nil {
		record.PaymentMethod = extracted.PaymentMethod.Value
	}
	return o.catalog.Insert(ctx, record)
}

func mimeHint(extension string) string {
	if extension == "" {
		return ""
	}
	return mime.TypeByExtension("." + extension)
}
