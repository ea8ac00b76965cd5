package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const receiptDateLayout = "2006-01-02"

const receiptColumns = "id, file_hash, extension, attachment_path, byte_size, engine_id, ocr_text, vendor, receipt_date, subtotal_cents, tax_cents, total_cents, payment_method, line_items_json, confidence, status, transaction_id, duplicate_count, created_at, updated_at"

// Insert stores a new receipt row and returns the persisted record.
func (s *Store) Insert(ctx context.Context, receipt *Receipt) (*Receipt, error) {
	if receipt == nil {
		return nil, errors.New("receipt is nil")
	}
	if strings.TrimSpace(receipt.FileHash) == "" {
		return nil, errors.New("file hash required")
	}
	status := receipt.Status
	if status == "" {
		status = StatusPendingReview
	}
	lineItems := receipt.LineItemsJSON
	if lineItems == "" {
		lineItems = "[]"
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	var dateValue any
	if receipt.ReceiptDate != nil {
		dateValue = receipt.ReceiptDate.Format(receiptDateLayout)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO receipts (
            file_hash, extension, attachment_path, byte_size, engine_id, ocr_text,
            vendor, receipt_date, subtotal_cents, tax_cents, total_cents,
            payment_method, line_items_json, confidence, status, transaction_id,
            duplicate_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		receipt.FileHash,
		receipt.Extension,
		receipt.AttachmentPath,
		receipt.ByteSize,
		receipt.EngineID,
		receipt.OCRText,
		nullableString(receipt.Vendor),
		dateValue,
		receipt.SubtotalCents,
		receipt.TaxCents,
		receipt.TotalCents,
		nullableString(receipt.PaymentMethod),
		lineItems,
		receipt.Confidence,
		status,
		nullableString(receipt.TransactionID),
		receipt.DuplicateCount,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert receipt %s: %w", receipt.FileHash, ErrDuplicateHash)
		}
		return nil, fmt.Errorf("insert receipt: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a receipt by identifier; nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Receipt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, id)
	receipt, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return receipt, nil
}

// GetByHash fetches the receipt stored for a content hash; nil when absent.
func (s *Store) GetByHash(ctx context.Context, hash string) (*Receipt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE file_hash = ?`, hash)
	receipt, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get receipt by hash: %w", err)
	}
	return receipt, nil
}

// RecordDuplicate increments the duplicate counter for an already-cataloged
// hash and returns the existing row; nil when the hash is unknown.
func (s *Store) RecordDuplicate(ctx context.Context, hash string) (*Receipt, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE receipts SET duplicate_count = duplicate_count + 1, updated_at = ? WHERE file_hash = ?`,
		timestamp,
		hash,
	)
	if err != nil {
		return nil, fmt.Errorf("record duplicate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetByHash(ctx, hash)
}

// List returns receipts newest-first, optionally filtered by status. A
// non-positive limit returns all rows.
func (s *Store) List(ctx context.Context, status Status, limit int) ([]*Receipt, error) {
	query := `SELECT ` + receiptColumns + ` FROM receipts`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []*Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return receipts, nil
}

// PendingReview returns pending receipts below the confidence threshold,
// lowest confidence first so the least certain extractions surface on top.
func (s *Store) PendingReview(ctx context.Context, threshold float64) ([]*Receipt, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE status = ? AND confidence < ? ORDER BY confidence ASC, id DESC`,
		StatusPendingReview,
		threshold,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending review: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var receipts []*Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending review: %w", err)
	}
	return receipts, nil
}

// UpdateStatus moves a receipt to a new review state.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status) error {
	if _, ok := statusSet[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE receipts SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("receipt %d not found", id)
	}
	return nil
}

// LinkTransaction attaches a ledger transaction identifier to a receipt.
func (s *Store) LinkTransaction(ctx context.Context, id int64, transactionID string) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE receipts SET transaction_id = ?, updated_at = ? WHERE id = ?`,
		nullableString(transactionID),
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("link transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("receipt %d not found", id)
	}
	return nil
}

// Health reports aggregated catalog counts.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1), COALESCE(SUM(duplicate_count), 0) FROM receipts GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("health query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			status     string
			count      int
			duplicates int64
		)
		if err := rows.Scan(&status, &count, &duplicates); err != nil {
			return summary, fmt.Errorf("scan health row: %w", err)
		}
		summary.Total += count
		summary.Duplicates += duplicates
		switch Status(status) {
		case StatusPendingReview:
			summary.Pending = count
		case StatusApproved:
			summary.Approved = count
		case StatusRejected:
			summary.Rejected = count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate health rows: %w", err)
	}
	return summary, nil
}

func scanReceipt(scanner interface{ Scan(dest ...any) error }) (*Receipt, error) {
	var (
		id             int64
		fileHash       string
		extension      sql.NullString
		attachmentPath sql.NullString
		byteSize       sql.NullInt64
		engineID       sql.NullString
		ocrText        sql.NullString
		vendor         sql.NullString
		dateRaw        sql.NullString
		subtotalCents  sql.NullInt64
		taxCents       sql.NullInt64
		totalCents     sql.NullInt64
		paymentMethod  sql.NullString
		lineItems      sql.NullString
		confidence     sql.NullFloat64
		statusStr      string
		transactionID  sql.NullString
		duplicateCount sql.NullInt64
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&fileHash,
		&extension,
		&attachmentPath,
		&byteSize,
		&engineID,
		&ocrText,
		&vendor,
		&dateRaw,
		&subtotalCents,
		&taxCents,
		&totalCents,
		&paymentMethod,
		&lineItems,
		&confidence,
		&statusStr,
		&transactionID,
		&duplicateCount,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		ID:             id,
		FileHash:       fileHash,
		Extension:      extension.String,
		AttachmentPath: attachmentPath.String,
		ByteSize:       byteSize.Int64,
		EngineID:       engineID.String,
		OCRText:        ocrText.String,
		Vendor:         vendor.String,
		PaymentMethod:  paymentMethod.String,
		LineItemsJSON:  lineItems.String,
		Confidence:     confidence.Float64,
		Status:         Status(statusStr),
		TransactionID:  transactionID.String,
		DuplicateCount: duplicateCount.Int64,
		CreatedAt:      parseTimestamp(createdRaw.String),
		UpdatedAt:      parseTimestamp(updatedRaw.String),
	}
	if dateRaw.Valid && dateRaw.String != "" {
		if parsed, err := time.Parse(receiptDateLayout, dateRaw.String); err == nil {
			receipt.ReceiptDate = &parsed
		}
	}
	if subtotalCents.Valid {
		v := subtotalCents.Int64
		receipt.SubtotalCents = &v
	}
	if taxCents.Valid {
		v := taxCents.Int64
		receipt.TaxCents = &v
	}
	if totalCents.Valid {
		v := totalCents.Int64
		receipt.TotalCents = &v
	}
	return receipt, nil
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
