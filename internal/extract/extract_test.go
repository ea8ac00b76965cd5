package extract

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestVendorAllCapsPreferred(t *testing.T) {
	r := Extract("123 Main Street\nSTARBUCKS COFFEE\n2024-01-15\nTotal $5.50")
	if r.Vendor == nil {
		t.Fatal("expected vendor")
	}
	if r.Vendor.Value != "STARBUCKS COFFEE" {
		t.Fatalf("unexpected vendor %q", r.Vendor.Value)
	}
}

func TestVendorSkipsPhoneNumber(t *testing.T) {
	r := Extract("(555) 123-4567\nWHOLE FOODS\nTotal $42.00")
	if r.Vendor == nil || r.Vendor.Value != "WHOLE FOODS" {
		t.Fatalf("unexpected vendor %+v", r.Vendor)
	}
}

func TestVendorSkipsURL(t *testing.T) {
	r := Extract("www.example.com\nTRADER JOES MARKET\nTotal $10.00")
	if r.Vendor == nil || r.Vendor.Value != "TRADER JOES MARKET" {
		t.Fatalf("unexpected vendor %+v", r.Vendor)
	}
}

func TestVendorTieLowersConfidence(t *testing.T) {
	r := Extract("ACME STORE\nBEST MARTS\nTotal $5.00")
	if r.Vendor == nil {
		t.Fatal("expected vendor")
	}
	if r.Vendor.Confidence >= confidenceVendor {
		t.Fatalf("expected lowered confidence for tie, got %v", r.Vendor.Confidence)
	}
}

func TestVendorNoneFromUnsuitableLines(t *testing.T) {
	r := Extract("123 First Ave\n(800) 555-1234\n$10.00")
	if r.Vendor != nil {
		t.Fatalf("expected no vendor, got %q", r.Vendor.Value)
	}
}

func TestDateISO(t *testing.T) {
	r := Extract("AMAZON\nOrder 2024-03-15\nTotal $49.99")
	if r.Date == nil {
		t.Fatal("expected date")
	}
	if !r.Date.Value.Equal(date(2024, time.March, 15)) {
		t.Fatalf("unexpected date %v", r.Date.Value)
	}
	if r.Date.Confidence != 0.95 {
		t.Fatalf("unexpected confidence %v", r.Date.Confidence)
	}
}

func TestDateFullMonthName(t *testing.T) {
	r := Extract("WHOLE FOODS\nDate: March 15, 2024\nTotal $87.50")
	if r.Date == nil || !r.Date.Value.Equal(date(2024, time.March, 15)) {
		t.Fatalf("unexpected date %+v", r.Date)
	}
}

func TestDateAbbreviatedMonth(t *testing.T) {
	r := Extract("WALMART\n15 Jan 2024\nTotal $120.00")
	if r.Date == nil || !r.Date.Value.Equal(date(2024, time.January, 15)) {
		t.Fatalf("unexpected date %+v", r.Date)
	}
}

func TestDateSlashFormat(t *testing.T) {
	r := Extract("STARBUCKS\n01/15/2024\n$5.50")
	if r.Date == nil || !r.Date.Value.Equal(date(2024, time.January, 15)) {
		t.Fatalf("unexpected date %+v", r.Date)
	}
	if r.Date.Confidence != 0.75 {
		t.Fatalf("ambiguous format should score lower, got %v", r.Date.Confidence)
	}
}

func TestDateTwoDigitYearExpands(t *testing.T) {
	r := Extract("STORE\n01/15/24\nTotal $5.00")
	if r.Date == nil || !r.Date.Value.Equal(date(2024, time.January, 15)) {
		t.Fatalf("unexpected date %+v", r.Date)
	}
}

func TestDateRejectsImpossibleDay(t *testing.T) {
	r := Extract("STORE\n02/30/2024\nno totals here")
	if r.Date != nil {
		t.Fatalf("expected no date, got %v", r.Date.Value)
	}
}

func TestTotalLabeled(t *testing.T) {
	r := Extract("AMAZON\nItem A   $10.00\nItem B   $15.00\nTotal    $25.00")
	if r.TotalCents == nil || r.TotalCents.Value != 2500 {
		t.Fatalf("unexpected total %+v", r.TotalCents)
	}
	if r.TotalCents.Confidence < 0.9 {
		t.Fatalf("labeled total should score high, got %v", r.TotalCents.Confidence)
	}
}

func TestTotalFallsBackToLastLine(t *testing.T) {
	r := Extract("STORE\n$5.00\n$3.00\n$8.00")
	if r.TotalCents == nil || r.TotalCents.Value != 800 {
		t.Fatalf("unexpected total %+v", r.TotalCents)
	}
	if r.TotalCents.Confidence != confidenceFallbackTotal {
		t.Fatalf("fallback total should score low, got %v", r.TotalCents.Confidence)
	}
}

func TestTotalWithCommaThousands(t *testing.T) {
	r := Extract("STORE\nTotal $1,234.56")
	if r.TotalCents == nil || r.TotalCents.Value != 123456 {
		t.Fatalf("unexpected total %+v", r.TotalCents)
	}
}

func TestSubtotalAndTax(t *testing.T) {
	r := Extract("STORE\nSubtotal $45.00\nTax $3.60\nTotal $48.60")
	if r.SubtotalCents == nil || r.SubtotalCents.Value != 4500 {
		t.Fatalf("unexpected subtotal %+v", r.SubtotalCents)
	}
	if r.TaxCents == nil || r.TaxCents.Value != 360 {
		t.Fatalf("unexpected tax %+v", r.TaxCents)
	}
	if r.TotalCents == nil || r.TotalCents.Value != 4860 {
		t.Fatalf("unexpected total %+v", r.TotalCents)
	}
}

func TestConsistencyBoost(t *testing.T) {
	r := Extract("STORE\nSubtotal 10.00\nTax 1.00\nTotal 11.00")
	for name, f := range map[string]*Field[int64]{
		"subtotal": r.SubtotalCents, "tax": r.TaxCents, "total": r.TotalCents,
	} {
		if f == nil {
			t.Fatalf("expected %s to be extracted", name)
		}
		if f.Confidence < 0.8 {
			t.Fatalf("%s confidence %v below boosted baseline", name, f.Confidence)
		}
	}
}

func TestConsistencyMismatchPenalizesWeakest(t *testing.T) {
	matched := Extract("STORE\nSubtotal 10.00\nTax 1.00\nTotal 11.00")
	mismatched := Extract("STORE\nSubtotal 10.00\nTax 1.00\nTotal 99.00")
	weakest := mismatched.TaxCents.Confidence
	if mismatched.SubtotalCents.Confidence < weakest {
		weakest = mismatched.SubtotalCents.Confidence
	}
	if mismatched.TotalCents.Confidence < weakest {
		weakest = mismatched.TotalCents.Confidence
	}
	strongestMatched := matched.TaxCents.Confidence
	if weakest >= strongestMatched {
		t.Fatalf("expected a strictly lower confidence after mismatch, weakest %v", weakest)
	}
}

func TestPaymentMethods(t *testing.T) {
	cases := map[string]string{
		"Paid with VISA":               "visa",
		"American Express ending 1234": "amex",
		"Payment: Cash":                "cash",
		"MASTER CARD ****1111":         "mastercard",
		"Paid by cheque":               "check",
	}
	for text, want := range cases {
		r := Extract("STORE\n" + text + "\nTotal $5.00")
		if r.PaymentMethod == nil {
			t.Fatalf("%q: expected payment method", text)
		}
		if r.PaymentMethod.Value != want {
			t.Fatalf("%q: got %q want %q", text, r.PaymentMethod.Value, want)
		}
	}
}

func TestLineItemsCappedConfidence(t *testing.T) {
	r := Extract("CAFE\nLatte  $4.50\nCroissant  $3.25\nTotal  $7.75")
	if len(r.LineItems) != 2 {
		t.Fatalf("expected 2 line items, got %d: %+v", len(r.LineItems), r.LineItems)
	}
	for _, item := range r.LineItems {
		if item.Confidence > lineItemCeiling {
			t.Fatalf("line item %q confidence %v exceeds ceiling", item.Description, item.Confidence)
		}
	}
	if r.LineItems[0].Description != "Latte" || r.LineItems[0].AmountCents != 450 {
		t.Fatalf("unexpected first item %+v", r.LineItems[0])
	}
}

func TestLineItemsSkipTotalsRows(t *testing.T) {
	r := Extract("STORE\nWidget  $9.99\nSubtotal  $9.99\nTax  $0.80\nTotal  $10.79")
	if len(r.LineItems) != 1 {
		t.Fatalf("expected only the item row, got %+v", r.LineItems)
	}
}

func TestAggregateIsMinimum(t *testing.T) {
	r := Extract("STARBUCKS COFFEE\n2024-01-15\nSubtotal $4.75\nTax $0.50\nTotal $5.25\nVISA")
	min := 1.0
	for _, f := range []float64{
		r.Vendor.Confidence, r.Date.Confidence, r.SubtotalCents.Confidence,
		r.TaxCents.Confidence, r.TotalCents.Confidence, r.PaymentMethod.Confidence,
	} {
		if f < min {
			min = f
		}
	}
	if r.Confidence != min {
		t.Fatalf("aggregate %v is not the field minimum %v", r.Confidence, min)
	}
}

func TestAggregateZeroWhenNothingExtracted(t *testing.T) {
	r := Extract("")
	if r.Confidence != 0.0 {
		t.Fatalf("expected 0.0, got %v", r.Confidence)
	}
}

func TestAggregateWithinBounds(t *testing.T) {
	texts := []string{
		"",
		"!@#$%^&*()\n\x01\x02",
		"STORE\nTotal $5.00",
		"STARBUCKS COFFEE\n2024-01-15\nSubtotal $4.75\nTax $0.50\nTotal $5.25\nVISA",
	}
	for _, text := range texts {
		r := Extract(text)
		if r.Confidence < 0.0 || r.Confidence > 1.0 {
			t.Fatalf("confidence %v out of bounds for %q", r.Confidence, text)
		}
	}
}

func TestNoPanicOnGarbage(t *testing.T) {
	_ = Extract("!@#$%^&*()\n\x00\x01\x02")
}

func TestParseCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"49.99", 4999, true},
		{"0.01", 1, true},
		{"1,234.56", 123456, true},
		{"12", 0, false},
		{"1.2", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseCents(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("parseCents(%q) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestShouldEscalate(t *testing.T) {
	low := Receipt{Confidence: 0.4}
	high := Receipt{Confidence: 0.9}
	if !ShouldEscalate(low, 0) {
		t.Fatal("low confidence should escalate at default threshold")
	}
	if ShouldEscalate(high, 0) {
		t.Fatal("high confidence should not escalate")
	}
	if !ShouldEscalate(high, 0.95) {
		t.Fatal("custom threshold should apply")
	}
}

func TestDisplayVendor(t *testing.T) {
	if got := DisplayVendor("STARBUCKS COFFEE"); got != "Starbucks Coffee" {
		t.Fatalf("unexpected display name %q", got)
	}
	if got := DisplayVendor("Trader Joe's"); got != "Trader Joe's" {
		t.Fatalf("mixed case should be untouched, got %q", got)
	}
	if got := DisplayVendor(""); got != "" {
		t.Fatalf("empty should stay empty, got %q", got)
	}
}
