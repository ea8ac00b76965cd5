package receipts

import (
	"strings"
	"time"
)

// Status represents the review lifecycle of a stored receipt.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
)

var allStatuses = []Status{
	StatusPendingReview,
	StatusApproved,
	StatusRejected,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Receipt is one catalog row. Optional extracted fields are pointers so a
// missing field is distinguishable from a zero value.
type Receipt struct {
	ID             int64
	FileHash       string
	Extension      string
	AttachmentPath string
	ByteSize       int64
	EngineID       string
	OCRText        string
	Vendor         string
	ReceiptDate    *time.Time
	SubtotalCents  *int64
	TaxCents       *int64
	TotalCents     *int64
	PaymentMethod  string
	LineItemsJSON  string
	Confidence     float64
	Status         Status
	TransactionID  string
	DuplicateCount int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NeedsReview reports whether the receipt should be emphasized in the review
// queue: still pending and extracted below the given confidence threshold.
func (r Receipt) NeedsReview(threshold float64) bool {
	return r.Status == StatusPendingReview && r.Confidence < threshold
}

// HealthSummary describes aggregated catalog counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Approved   int
	Rejected   int
	Duplicates int64
}
