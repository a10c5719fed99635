package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var lineFixes = strings.NewReplacer(
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2212", "-", // minus sign
	"\u00a0", " ",
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
)

// CleanLine folds compatibility characters and common OCR punctuation
// variants, then trims the ends. Inner whitespace runs are kept because
// column detection depends on them.
func CleanLine(s string) string {
	if s == "" {
		return s
	}
	s = lineFixes.Replace(s)
	s = norm.NFKC.String(s)
	return strings.TrimSpace(s)
}
