package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// TotalsTolerance is the largest difference accepted as a match.
var TotalsTolerance = decimal.RequireFromString("0.01")

type amounts struct {
	subtotal, tax, grand *decimal.Decimal
}

// reconcile builds the totals breakdown. It returns nil when there is
// nothing to report.
func reconcile(cands map[string][]*entity.FieldCandidate, hints *entity.DocumentHints, tables []*entity.Table, parsed amounts) *entity.TotalsBreakdown {
	totals := &entity.TotalsBreakdown{
		Subtotal:   passThrough(first(cands[constants.FieldSubtotal])),
		TaxTotal:   passThrough(first(cands[constants.FieldTaxTotal])),
		GrandTotal: passThrough(first(cands[constants.FieldGrandTotal])),
		Status:     constants.TotalsMissing,
	}

	recomputed, meta := sumTables(tables, hints, preferredPages(cands))
	if recomputed == nil && parsed.subtotal != nil && parsed.tax != nil {
		sum := parsed.subtotal.Add(*parsed.tax)
		recomputed = &sum
		meta = map[string]any{"source": "subtotal_plus_tax"}
	}
	if recomputed != nil {
		totals.RecomputedTotal = &entity.NormalizedValue{
			Normalized: strPtr(formatDecimal(*recomputed)),
			ValueType:  "number",
			Parser:     "deterministic.total",
			Confidence: 0.9,
			Metadata:   meta,
		}
	}

	switch {
	case parsed.grand != nil && recomputed != nil:
		diff := parsed.grand.Sub(*recomputed).Abs()
		f := diff.InexactFloat64()
		totals.Difference = &f
		if diff.LessThanOrEqual(TotalsTolerance) {
			totals.Status = constants.TotalsOK
			totals.Notes = "Grand total matches recomputed total."
		} else {
			totals.Status = constants.TotalsMismatch
			totals.Notes = "Grand total differs from recomputed total."
		}
	case parsed.grand != nil, parsed.subtotal != nil, parsed.tax != nil, recomputed != nil:
		totals.Status = constants.TotalsInsufficient
	}

	if totals.Subtotal == nil && totals.TaxTotal == nil && totals.GrandTotal == nil && totals.RecomputedTotal == nil {
		return nil
	}
	return totals
}

// preferredPages collects the page prefixes ("p2") of anchors that produced
// totals candidates; tables on those pages are summed first.
func preferredPages(cands map[string][]*entity.FieldCandidate) map[string]struct{} {
	pages := map[string]struct{}{}
	for _, field := range constants.NumericFields {
		for _, c := range cands[field] {
			if id := c.Evidence.AnchorID; id != "" {
				pages[pagePrefix(id)] = struct{}{}
			}
		}
	}
	return pages
}

func pagePrefix(id string) string {
	if i := strings.Index(id, "-"); i > 0 {
		return id[:i]
	}
	return id
}

func sumTables(tables []*entity.Table, hints *entity.DocumentHints, preferred map[string]struct{}) (*decimal.Decimal, map[string]any) {
	var style *string
	if hints != nil {
		style = hints.NumberingStyle
	}
	if len(preferred) > 0 {
		for _, t := range tables {
			if _, ok := preferred[pagePrefix(t.ID)]; !ok {
				continue
			}
			if sum, meta := sumLastColumn(t, style); sum != nil {
				meta["linked"] = true
				return sum, meta
			}
		}
	}
	for _, t := range tables {
		if sum, meta := sumLastColumn(t, style); sum != nil {
			return sum, meta
		}
	}
	return nil, nil
}

func sumLastColumn(t *entity.Table, style *string) (*decimal.Decimal, map[string]any) {
	if t.NCols == 0 {
		return nil, nil
	}
	total := decimal.Zero
	rows := 0
	for _, cell := range t.Cells {
		if cell.IsHeader || cell.Col != t.NCols-1 {
			continue
		}
		v, _ := ParseNumber(cell.Text, style)
		if v == nil {
			continue
		}
		total = total.Add(*v)
		rows++
	}
	if rows == 0 {
		return nil, nil
	}
	return &total, map[string]any{
		"source":    "table_sum",
		"table_id":  t.ID,
		"row_count": rows,
	}
}

func passThrough(c *entity.FieldCandidate) *entity.NormalizedValue {
	if c == nil {
		return nil
	}
	return &entity.NormalizedValue{
		Raw:        strPtr(c.Value),
		Normalized: strPtr(strings.TrimSpace(c.Value)),
		ValueType:  "string",
		Parser:     "identity",
		Confidence: 1.0,
		Metadata:   candidateMeta(c),
	}
}
