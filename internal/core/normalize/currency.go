package normalize

import (
	"strings"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// detectCurrency resolves an ISO code from the candidate text, falling back
// to the first known glyph observed in the document.
func detectCurrency(raw string, hints *entity.DocumentHints) (string, map[string]any) {
	meta := map[string]any{}
	raw = strings.TrimSpace(raw)
	if raw != "" {
		for _, g := range constants.CurrencyGlyphs {
			if strings.Contains(raw, g) {
				meta["glyph"] = g
				meta["source"] = "candidate"
				return constants.CurrencyGlyphCodes[g], meta
			}
		}
		if code, ok := constants.CurrencyWordCodes[strings.ToLower(raw)]; ok {
			meta["source"] = "candidate"
			return code, meta
		}
	}
	if hints != nil {
		for _, g := range hints.CurrencyGlyphs {
			if code, ok := constants.CurrencyGlyphCodes[g]; ok {
				meta["glyph"] = g
				meta["source"] = "document_hint"
				return code, meta
			}
		}
	}
	return "", meta
}

func normalizeCurrency(cands []*entity.FieldCandidate, hints *entity.DocumentHints) *entity.NormalizedValue {
	c := first(cands)
	var raw *string
	if c != nil {
		raw = strPtr(c.Value)
	}
	code, meta := detectCurrency(deref(raw), hints)
	if code == "" && raw == nil {
		return nil
	}
	out := &entity.NormalizedValue{
		Raw:        raw,
		ValueType:  "string",
		Parser:     "deterministic.currency",
		Confidence: 0.5,
		Metadata:   mergeMeta(meta, candidateMeta(c)),
	}
	if code != "" {
		out.Normalized = strPtr(code)
		out.ValueType = "currency"
		out.Confidence = 0.9
	}
	return out
}
