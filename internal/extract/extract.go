package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Field pairs an extracted value with a confidence score in [0.0, 1.0].
type Field[T any] struct {
	Value      T
	Confidence float64
}

// LineItem is a best-effort guess at one purchased item row. Line-item
// confidence never exceeds lineItemCeiling because row segmentation is
// inherently less reliable than header-field extraction.
type LineItem struct {
	Description string
	AmountCents int64
	Confidence  float64
}

// Receipt holds every field recovered from one receipt's text. Nil fields
// were not found. Confidence is the minimum of all present field scores,
// biasing toward caution when any single field is uncertain; it is 0.0 when
// nothing was extracted.
type Receipt struct {
	Vendor        *Field[string]
	Date          *Field[time.Time]
	SubtotalCents *Field[int64]
	TaxCents      *Field[int64]
	TotalCents    *Field[int64]
	PaymentMethod *Field[string]
	LineItems     []LineItem
	Confidence    float64
}

const (
	confidenceLabeledTotal  = 0.92
	confidenceSubtotal      = 0.88
	confidenceTax           = 0.88
	confidenceFallbackTotal = 0.55
	confidenceVendor        = 0.60
	confidenceVendorTied    = 0.45
	confidencePayment       = 0.90

	// consistencyBoost and consistencyPenalty adjust amount confidences
	// after the subtotal+tax≈total arithmetic check.
	consistencyBoost    = 0.08
	consistencyPenalty  = 0.25
	consistencyMaxConf  = 0.99
	consistencyMinConf  = 0.05
	consistencyTolerance = 1 // cents

	lineItemCeiling = 0.50
)

var (
	reAmountLabel = regexp.MustCompile(`(?i)\b(?:total|grand\s+total|amount\s+due|balance\s+due|total\s+due)\s*[:$]?\s*\$?\s*([\d,]+\.\d{2})\b`)
	reSubtotal    = regexp.MustCompile(`(?i)\bsubtotal\b\s*[:$]?\s*\$?\s*([\d,]+\.\d{2})\b`)
	reTax         = regexp.MustCompile(`(?i)\b(?:tax|hst|gst|pst|vat|sales\s*tax)\b\s*[:$]?\s*\$?\s*([\d,]+\.\d{2})\b`)
	reCurrency    = regexp.MustCompile(`\$?\s*([\d,]+\.\d{2})`)

	reDateMonthName = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{1,2}),?\s+(\d{4})\b`)
	reDateAbbrMonth = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\.?\s+(\d{4})\b`)
	reDateISO       = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	reDateSlash     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	reDateDash      = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{2,4})\b`)

	rePayment = regexp.MustCompile(`(?i)\b(visa|mastercard|master\s*card|amex|american\s+express|discover|cash|debit|check|cheque)\b`)

	rePhone = regexp.MustCompile(`\(?\d{3}\)?[\s\-]\d{3}[\s\-]\d{4}`)
	reURL   = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)

	reLineItem = regexp.MustCompile(`^(.+?)\s{2,}\$?\s*([\d,]+\.\d{2})$`)
	reDigits   = regexp.MustCompile(`\d`)
)

// Extract recovers structured fields from raw OCR text.
func Extract(text string) Receipt {
	receipt := Receipt{
		Vendor:        extractVendor(text),
		Date:          extractDate(text),
		SubtotalCents: extractSubtotal(text),
		TaxCents:      extractTax(text),
		TotalCents:    extractTotal(text),
		PaymentMethod: extractPayment(text),
		LineItems:     extractLineItems(text),
	}
	applyConsistencyCheck(&receipt)
	receipt.Confidence = aggregateConfidence(&receipt)
	return receipt
}

func extractVendor(text string) *Field[string] {
	type candidate struct {
		line  string
		score int
	}
	var candidates []candidate
	lines := strings.Split(text, "\n")
	limit := 10
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rePhone.MatchString(line) || reURL.MatchString(line) {
			continue
		}
		if reDateSlash.MatchString(line) || reDateISO.MatchString(line) {
			continue
		}
		if len(line) < 3 || len(line) > 50 {
			continue
		}
		if line[0] >= '0' && line[0] <= '9' {
			continue
		}
		if !hasLetter(line) {
			continue
		}
		score := len(line)
		if score > 20 {
			score = 20
		}
		if isAllCaps(line) {
			score += 2
		}
		candidates = append(candidates, candidate{line: line, score: score})
	}
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	tied := false
	for _, c := range candidates[1:] {
		switch {
		case c.score > best.score:
			best = c
			tied = false
		case c.score == best.score:
			tied = true
		}
	}
	confidence := confidenceVendor
	if tied {
		confidence = confidenceVendorTied
	}
	return &Field[string]{Value: best.line, Confidence: confidence}
}

func hasLetter(line string) bool {
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

func isAllCaps(line string) bool {
	hasAlpha := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if (r >= 'A' && r <= 'Z') || r > 127 {
			hasAlpha = true
		}
	}
	return hasAlpha
}

func extractDate(text string) *Field[time.Time] {
	if m := reDateMonthName.FindStringSubmatch(text); m != nil {
		if month, ok := monthNumber(m[1]); ok {
			if d := makeDate(atoi(m[3]), month, atoi(m[2])); d != nil {
				return &Field[time.Time]{Value: *d, Confidence: 0.90}
			}
		}
	}
	if m := reDateAbbrMonth.FindStringSubmatch(text); m != nil {
		if month, ok := monthNumber(m[2]); ok {
			if d := makeDate(atoi(m[3]), month, atoi(m[1])); d != nil {
				return &Field[time.Time]{Value: *d, Confidence: 0.90}
			}
		}
	}
	if m := reDateISO.FindStringSubmatch(text); m != nil {
		if d := makeDate(atoi(m[1]), atoi(m[2]), atoi(m[3])); d != nil {
			return &Field[time.Time]{Value: *d, Confidence: 0.95}
		}
	}
	// Ambiguous day/month order: assume US MM/DD and score accordingly.
	if m := reDateSlash.FindStringSubmatch(text); m != nil {
		if d := makeDate(expandYear(atoi(m[3])), atoi(m[1]), atoi(m[2])); d != nil {
			return &Field[time.Time]{Value: *d, Confidence: 0.75}
		}
	}
	if m := reDateDash.FindStringSubmatch(text); m != nil {
		if d := makeDate(expandYear(atoi(m[3])), atoi(m[1]), atoi(m[2])); d != nil {
			return &Field[time.Time]{Value: *d, Confidence: 0.70}
		}
	}
	return nil
}

func makeDate(year, month, day int) *time.Time {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return nil
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// Reject rollovers such as February 30.
	if d.Day() != day || int(d.Month()) != month {
		return nil
	}
	return &d
}

func expandYear(y int) int {
	if y < 100 {
		return 2000 + y
	}
	return y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var monthNames = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5,
	"june": 6, "july": 7, "august": 8, "september": 9, "october": 10,
	"november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7,
	"aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

func monthNumber(name string) (int, bool) {
	n, ok := monthNames[strings.ToLower(name)]
	return n, ok
}

func extractTotal(text string) *Field[int64] {
	if m := reAmountLabel.FindStringSubmatch(text); m != nil {
		if cents, ok := parseCents(m[1]); ok {
			return &Field[int64]{Value: cents, Confidence: confidenceLabeledTotal}
		}
	}
	// No labeled total: take the largest currency-shaped value on the last
	// non-blank line, where receipts typically print the amount charged.
	line := lastNonBlankLine(text)
	if line == "" {
		return nil
	}
	var best int64 = -1
	for _, m := range reCurrency.FindAllStringSubmatch(line, -1) {
		if cents, ok := parseCents(m[1]); ok && cents > best {
			best = cents
		}
	}
	if best < 0 {
		return nil
	}
	return &Field[int64]{Value: best, Confidence: confidenceFallbackTotal}
}

func lastNonBlankLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func extractSubtotal(text string) *Field[int64] {
	m := reSubtotal.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	cents, ok := parseCents(m[1])
	if !ok {
		return nil
	}
	return &Field[int64]{Value: cents, Confidence: confidenceSubtotal}
}

func extractTax(text string) *Field[int64] {
	m := reTax.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	cents, ok := parseCents(m[1])
	if !ok {
		return nil
	}
	return &Field[int64]{Value: cents, Confidence: confidenceTax}
}

func extractPayment(text string) *Field[string] {
	m := rePayment.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	token := strings.ReplaceAll(strings.ToLower(m[1]), " ", "")
	var method string
	switch token {
	case "visa":
		method = "visa"
	case "mastercard", "mc":
		method = "mastercard"
	case "amex", "americanexpress":
		method = "amex"
	case "discover":
		method = "discover"
	case "cash":
		method = "cash"
	case "debit":
		method = "debit"
	case "check", "cheque":
		method = "check"
	default:
		method = token
	}
	return &Field[string]{Value: method, Confidence: confidencePayment}
}

var lineItemLabels = []string{"total", "subtotal", "tax", "amount due", "balance", "change", "tender", "visa", "mastercard", "cash", "debit"}

func extractLineItems(text string) []LineItem {
	var items []LineItem
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t")
		m := reLineItem.FindStringSubmatch(strings.TrimLeft(line, " \t"))
		if m == nil {
			continue
		}
		desc := strings.TrimSpace(m[1])
		if desc == "" || isAmountLabel(desc) {
			continue
		}
		cents, ok := parseCents(m[2])
		if !ok {
			continue
		}
		confidence := lineItemCeiling
		// Digit-heavy descriptions are often SKUs or addresses misread as rows.
		if reDigits.MatchString(desc) {
			confidence = 0.35
		}
		items = append(items, LineItem{Description: desc, AmountCents: cents, Confidence: confidence})
	}
	return items
}

func isAmountLabel(desc string) bool {
	lower := strings.ToLower(desc)
	for _, label := range lineItemLabels {
		if strings.Contains(lower, label) {
			return true
		}
	}
	return false
}

// applyConsistencyCheck adjusts amount confidences when subtotal, tax, and
// total were all found: agreement within a cent raises all three, while a
// mismatch lowers whichever value is least textually anchored.
func applyConsistencyCheck(r *Receipt) {
	if r.SubtotalCents == nil || r.TaxCents == nil || r.TotalCents == nil {
		return
	}
	diff := r.SubtotalCents.Value + r.TaxCents.Value - r.TotalCents.Value
	if diff < 0 {
		diff = -diff
	}
	if diff <= consistencyTolerance {
		for _, f := range []*Field[int64]{r.SubtotalCents, r.TaxCents, r.TotalCents} {
			f.Confidence += consistencyBoost
			if f.Confidence > consistencyMaxConf {
				f.Confidence = consistencyMaxConf
			}
		}
		return
	}
	weakest := r.TaxCents
	for _, f := range []*Field[int64]{r.SubtotalCents, r.TotalCents} {
		if f.Confidence < weakest.Confidence {
			weakest = f
		}
	}
	weakest.Confidence -= consistencyPenalty
	if weakest.Confidence < consistencyMinConf {
		weakest.Confidence = consistencyMinConf
	}
}

// aggregateConfidence is the minimum of all present header-field confidences,
// or 0.0 when nothing was extracted.
func aggregateConfidence(r *Receipt) float64 {
	confidences := make([]float64, 0, 6)
	if r.Vendor != nil {
		confidences = append(confidences, r.Vendor.Confidence)
	}
	if r.Date != nil {
		confidences = append(confidences, r.Date.Confidence)
	}
	if r.SubtotalCents != nil {
		confidences = append(confidences, r.SubtotalCents.Confidence)
	}
	if r.TaxCents != nil {
		confidences = append(confidences, r.TaxCents.Confidence)
	}
	if r.TotalCents != nil {
		confidences = append(confidences, r.TotalCents.Confidence)
	}
	if r.PaymentMethod != nil {
		confidences = append(confidences, r.PaymentMethod.Confidence)
	}
	if len(confidences) == 0 {
		return 0.0
	}
	min := confidences[0]
	for _, c := range confidences[1:] {
		if c < min {
			min = c
		}
	}
	return min
}

func parseCents(s string) (int64, bool) {
	clean := strings.ReplaceAll(s, ",", "")
	dot := strings.IndexByte(clean, '.')
	if dot < 0 || len(clean)-dot-1 != 2 {
		return 0, false
	}
	dollars, err := strconv.ParseInt(clean[:dot], 10, 64)
	if err != nil {
		return 0, false
	}
	frac, err := strconv.ParseInt(clean[dot+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return dollars*100 + frac, true
}
