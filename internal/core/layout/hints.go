package layout

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

var (
	reGlyphAmount  = regexp.MustCompile(`^([₹$€£])\d`)
	reGlyphAny     = regexp.MustCompile(`[₹$€£]`)
	reDateDMY      = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})$`)
	reDateISO      = regexp.MustCompile(`^\d{4}[-/]\d{2}[-/]\d{2}$`)
	reIndianNum    = regexp.MustCompile(`^\d{1,2}(,\d{2})+,\d{3}(\.\d+)?$`)
	reIntlNum      = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)
	reCommaNumeric = regexp.MustCompile(`^[\d,]*\d[\d,]*(\.\d+)?$`)
)

var hintCurrencyWords = map[string]struct{}{
	"rs": {}, "inr": {}, "usd": {}, "eur": {}, "gbp": {}, "aud": {}, "cad": {},
}

// HintStats accumulates the document-wide observations of the hinter.
type HintStats struct {
	Glyphs        []string
	DayFirst      int
	MonthFirst    int
	Ambiguous     int
	Indian        int
	International int
}

func (s *HintStats) addGlyph(g string) {
	for _, seen := range s.Glyphs {
		if seen == g {
			return
		}
	}
	s.Glyphs = append(s.Glyphs, g)
}

// DocumentHints derives the day-first probability and numbering style.
func (s HintStats) DocumentHints() *entity.DocumentHints {
	h := &entity.DocumentHints{CurrencyGlyphs: append([]string{}, s.Glyphs...)}
	if total := s.DayFirst + s.MonthFirst + s.Ambiguous; total > 0 {
		p := (float64(s.DayFirst) + 0.5*float64(s.Ambiguous)) / float64(total)
		h.DayFirstProb = &p
	}
	if s.Indian > 0 || s.International > 0 {
		style := constants.NumberingInternational
		if s.Indian > s.International {
			style = constants.NumberingIndian
		}
		h.NumberingStyle = &style
	}
	return h
}

// hintRule classifies a token text. Rules are tried in slice order and the
// first match wins.
type hintRule struct {
	name  string
	apply func(text string, stats *HintStats) *entity.Hint
}

var hintRules = []hintRule{
	{name: "glyph_amount", apply: func(text string, stats *HintStats) *entity.Hint {
		m := reGlyphAmount.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		stats.addGlyph(m[1])
		return &entity.Hint{Kind: constants.HintMoney, Glyph: m[1]}
	}},
	{name: "currency_word", apply: func(text string, _ *HintStats) *entity.Hint {
		w := strings.ToLower(text)
		if _, ok := hintCurrencyWords[w]; !ok {
			return nil
		}
		return &entity.Hint{Kind: constants.HintMoney, Word: w}
	}},
	{name: "glyph_any", apply: func(text string, stats *HintStats) *entity.Hint {
		g := reGlyphAny.FindString(text)
		if g == "" {
			return nil
		}
		stats.addGlyph(g)
		return &entity.Hint{Kind: constants.HintMoney, Glyph: g}
	}},
	{name: "date_numeric", apply: func(text string, stats *HintStats) *entity.Hint {
		m := reDateDMY.FindStringSubmatch(text)
		if m == nil {
			return nil
		}
		// The counters key on the second component: a value above 12 there
		// counts as day-first, one in the first component as month-first.
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		order := constants.OrderAmbiguous
		switch {
		case second > 12 && first <= 12:
			order = constants.OrderDayFirst
			stats.DayFirst++
		case first > 12 && second <= 12:
			order = constants.OrderMonthFirst
			stats.MonthFirst++
		default:
			stats.Ambiguous++
		}
		return &entity.Hint{Kind: constants.HintDate, Order: order}
	}},
	{name: "date_iso", apply: func(text string, _ *HintStats) *entity.Hint {
		if !reDateISO.MatchString(text) {
			return nil
		}
		return &entity.Hint{Kind: constants.HintDate, Order: constants.OrderISO}
	}},
	{name: "number_indian", apply: func(text string, stats *HintStats) *entity.Hint {
		if !reIndianNum.MatchString(text) {
			return nil
		}
		stats.Indian++
		return &entity.Hint{Kind: constants.HintNumber, Grouping: constants.NumberingIndian}
	}},
	{name: "number_international", apply: func(text string, stats *HintStats) *entity.Hint {
		if !reIntlNum.MatchString(text) {
			return nil
		}
		stats.International++
		return &entity.Hint{Kind: constants.HintNumber, Grouping: constants.NumberingInternational}
	}},
	{name: "number_comma", apply: func(text string, _ *HintStats) *entity.Hint {
		if !strings.Contains(text, ",") || !reCommaNumeric.MatchString(text) {
			return nil
		}
		return &entity.Hint{Kind: constants.HintNumber, Grouping: constants.NumberingUnknown}
	}},
}

// trimHintText drops punctuation that commonly clings to values in running text.
func trimHintText(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",;:()")
}

// ApplyHints tags every non-empty token with at most one hint and returns
// the accumulated statistics. Tokens that already carry a hint are skipped.
func ApplyHints(tokens []*entity.Token) HintStats {
	var stats HintStats
	for _, tok := range tokens {
		if tok.Hints != nil {
			continue
		}
		text := trimHintText(tok.Text)
		if text == "" {
			continue
		}
		for _, rule := range hintRules {
			if h := rule.apply(text, &stats); h != nil {
				tok.Hints = h
				break
			}
		}
	}
	return stats
}
