package fingerprint

import (
	"fmt"
	"hash/fnv"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// DefaultAnchorExcess is the per-label anchor count above which a document is flagged.
const DefaultAnchorExcess = 3

// LayoutSignature hashes page text into 16 hex characters for template
// clustering. It is not a cryptographic digest.
func LayoutSignature(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Build derives the fingerprint from the first page and the document hints.
func Build(doc *entity.Document, languages []string) *entity.Fingerprint {
	fp := &entity.Fingerprint{
		Languages:      append([]string{}, languages...),
		CurrencyGlyphs: []string{},
	}
	if c := doc.Candidates[constants.FieldVendorName]; len(c) > 0 {
		v := c[0].Value
		fp.VendorGuess = &v
	}
	firstPage := ""
	if len(doc.Pages) > 0 {
		firstPage = doc.Pages[0].Text
	}
	fp.LayoutSignature = LayoutSignature(firstPage)
	if doc.Hints != nil {
		fp.CurrencyGlyphs = append(fp.CurrencyGlyphs, doc.Hints.CurrencyGlyphs...)
		fp.NumberingStyle = doc.Hints.NumberingStyle
	}
	return fp
}

// Anomalies lists structural oddities. They are advisory only.
func Anomalies(doc *entity.Document, labelOrder []string, excess int) []*entity.Anomaly {
	if excess <= 0 {
		excess = DefaultAnchorExcess
	}
	out := []*entity.Anomaly{}

	counts := map[string]int{}
	for _, a := range doc.Anchors {
		counts[a.Label]++
	}
	for _, label := range labelOrder {
		if n := counts[label]; n > excess {
			out = append(out, &entity.Anomaly{
				Code:    constants.AnomalyAnchorExcess,
				Message: fmt.Sprintf("label %q detected %d times", label, n),
			})
		}
	}

	for _, t := range doc.Tables {
		if t.NCols <= 1 {
			page := t.Page
			out = append(out, &entity.Anomaly{
				Code:    constants.AnomalyTableLowConfidence,
				Message: fmt.Sprintf("table %s has %d column(s)", t.ID, t.NCols),
				Page:    &page,
			})
		}
	}

	if len(doc.Candidates[constants.FieldSubtotal]) == 0 && len(doc.Candidates[constants.FieldGrandTotal]) == 0 {
		out = append(out, &entity.Anomaly{
			Code:    constants.AnomalyTotalsMissing,
			Message: "no subtotal or grand total found",
		})
	}

	if doc.Normalized != nil && doc.Normalized.Totals != nil && doc.Normalized.Totals.Status == constants.TotalsMismatch {
		msg := "grand total differs from recomputed total"
		if d := doc.Normalized.Totals.Difference; d != nil {
			msg = fmt.Sprintf("%s by %.2f", msg, *d)
		}
		out = append(out, &entity.Anomaly{Code: constants.AnomalyTotalsMismatch, Message: msg})
	}
	return out
}
