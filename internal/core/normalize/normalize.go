package normalize

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// Document normalizes the first candidate of every known field, resolves the
// currency and reconciles totals. It returns nil when there is nothing to
// normalize. Unparseable values keep their raw text with a lowered confidence.
func Document(cands map[string][]*entity.FieldCandidate, hints *entity.DocumentHints, tables []*entity.Table) *entity.Normalization {
	if len(cands) == 0 && len(tables) == 0 {
		return nil
	}
	if hints == nil {
		hints = &entity.DocumentHints{}
	}
	fields := map[string]*entity.NormalizedValue{}

	for _, field := range constants.IdentityFields {
		if c := first(cands[field]); c != nil {
			fields[field] = &entity.NormalizedValue{
				Raw:        strPtr(c.Value),
				Normalized: strPtr(strings.TrimSpace(c.Value)),
				ValueType:  "string",
				Parser:     "identity",
				Confidence: 1.0,
				Metadata:   candidateMeta(c),
			}
		}
	}

	for _, field := range constants.DateFields {
		c := first(cands[field])
		if c == nil {
			continue
		}
		res := ParseDate(c.Value, hints.DayFirstProb)
		v := &entity.NormalizedValue{
			Raw:        strPtr(c.Value),
			Normalized: res.ISO,
			ValueType:  "string",
			Parser:     "deterministic.date",
			Confidence: res.Confidence,
			Metadata:   mergeMeta(res.Metadata, candidateMeta(c)),
		}
		if res.ISO != nil {
			v.ValueType = "date"
		}
		fields[field] = v
	}

	var parsed amounts
	for _, field := range constants.NumericFields {
		c := first(cands[field])
		if c == nil {
			continue
		}
		d, meta := ParseNumber(c.Value, hints.NumberingStyle)
		v := &entity.NormalizedValue{
			Raw:        strPtr(c.Value),
			ValueType:  "string",
			Parser:     "deterministic.number",
			Confidence: 0.6,
			Metadata:   mergeMeta(candidateMeta(c), meta),
		}
		if d != nil {
			v.Normalized = strPtr(formatDecimal(*d))
			v.ValueType = "number"
			v.Confidence = 1.0
		}
		fields[field] = v
		switch field {
		case constants.FieldSubtotal:
			parsed.subtotal = d
		case constants.FieldTaxTotal:
			parsed.tax = d
		case constants.FieldGrandTotal:
			parsed.grand = d
		}
	}

	currency := normalizeCurrency(cands[constants.FieldCurrency], hints)
	totals := reconcile(cands, hints, tables, parsed)
	if len(fields) == 0 && currency == nil && totals == nil {
		return nil
	}
	return &entity.Normalization{Fields: fields, Currency: currency, Totals: totals}
}

// Amount parses an amount with the document's numbering style.
func Amount(raw string, hints *entity.DocumentHints) (decimal.Decimal, bool) {
	var style *string
	if hints != nil {
		style = hints.NumberingStyle
	}
	d, _ := ParseNumber(raw, style)
	if d == nil {
		return decimal.Zero, false
	}
	return *d, true
}

func first(cands []*entity.FieldCandidate) *entity.FieldCandidate {
	if len(cands) == 0 {
		return nil
	}
	return cands[0]
}

func candidateMeta(c *entity.FieldCandidate) map[string]any {
	meta := map[string]any{}
	if c == nil {
		return meta
	}
	if c.Evidence.AnchorLabel != "" {
		meta["anchor"] = c.Evidence.AnchorLabel
	}
	if c.Evidence.Page > 0 {
		meta["page"] = c.Evidence.Page
	}
	if c.Evidence.AnchorID != "" {
		meta["anchor_id"] = c.Evidence.AnchorID
	}
	return meta
}

func mergeMeta(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
