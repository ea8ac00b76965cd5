package main

import (
	"fmt"
	"time"

	"slipstream/internal/extract"
)

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}

func formatCentsPtr(cents *int64) string {
	if cents == nil {
		return "-"
	}
	return formatCents(*cents)
}

func formatConfidence(confidence float64) string {
	return fmt.Sprintf("%.0f%%", confidence*100)
}

func formatDatePtr(date *time.Time) string {
	if date == nil {
		return "-"
	}
	return date.Format("2006-01-02")
}

func displayVendorOrDash(vendor string) string {
	if vendor == "" {
		return "-"
	}
	return extract.DisplayVendor(vendor)
}
