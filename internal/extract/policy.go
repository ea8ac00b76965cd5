package extract

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultReviewThreshold is the aggregate-confidence level below which a
// receipt should receive stronger human review emphasis.
const DefaultReviewThreshold = 0.7

// ShouldEscalate reports whether a receipt's extraction is uncertain enough
// to warrant escalated review. A non-positive threshold selects the default.
func ShouldEscalate(r Receipt, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultReviewThreshold
	}
	return r.Confidence < threshold
}

var titleCaser = cases.Title(language.AmericanEnglish)

// DisplayVendor renders a vendor name for listings: shouty OCR text such as
// "STARBUCKS COFFEE" becomes "Starbucks Coffee", while mixed-case names are
// left as extracted.
func DisplayVendor(vendor string) string {
	if vendor == "" || !isAllCaps(vendor) {
		return vendor
	}
	return titleCaser.String(vendor)
}
