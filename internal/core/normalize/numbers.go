package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/po-digitizer/constants"
)

var reNonNumeric = regexp.MustCompile(`[^\d,.\-]`)

// ParseNumber reads an amount written with either comma or dot decimals.
// When both separators appear the last one is the decimal point; a lone
// comma is a grouping separator only for Indian-style documents.
func ParseNumber(raw string, numberingStyle *string) (*decimal.Decimal, map[string]any) {
	meta := map[string]any{}
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, meta
	}
	meta["raw"] = text

	cleaned := reNonNumeric.ReplaceAllString(text, "")
	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
			meta["decimal_separator"] = ","
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
			meta["decimal_separator"] = "."
		}
	case hasComma:
		if numberingStyle != nil && *numberingStyle == constants.NumberingIndian {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
			meta["grouping_style"] = constants.NumberingIndian
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
			meta["decimal_separator"] = ","
		}
	case hasDot:
		meta["decimal_separator"] = "."
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, meta
	}
	meta["normalized"] = cleaned
	return &d, meta
}

// formatDecimal renders d without trailing fractional zeros.
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}
