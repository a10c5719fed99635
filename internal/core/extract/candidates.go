package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

var (
	reIdentifier = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-_/]*$`)
	reLooseDate  = []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,4}[./\-]\d{1,2}[./\-]\d{1,4}$`),
		regexp.MustCompile(`^\d{1,2}[\s\-]+[A-Za-z]{3,9}\.?,?[\s\-]+\d{2,4}$`),
		regexp.MustCompile(`^[A-Za-z]{3,9}\.?\s+\d{1,2},?\s+\d{4}$`),
	}
	reAmount = regexp.MustCompile(`^-?[₹$€£]?\s?-?[\d.,]*\d[\d.,]*$`)
)

// probe is a piece of text considered as a value, with the token it came from.
type probe struct {
	text string
	tok  *entity.Token
}

// fieldKind dispatches a field to the rule that recognises its values.
type fieldKind struct {
	name   string
	fields []string
	match  func(p probe) (string, bool)
}

// fieldKinds is consulted in order; the first kind listing the field wins.
var fieldKinds = []fieldKind{
	{
		name:   "identifier",
		fields: []string{constants.FieldPONumber, constants.FieldOrderReference, constants.FieldInvoiceNumber},
		match:  matchIdentifier,
	},
	{
		name:   "date",
		fields: []string{constants.FieldPODate, constants.FieldInvoiceDate},
		match:  matchDate,
	},
	{
		name:   "money",
		fields: []string{constants.FieldSubtotal, constants.FieldTaxTotal, constants.FieldGrandTotal},
		match:  matchMoney,
	},
	{
		name:   "vendor",
		fields: []string{constants.FieldVendorName},
		match:  matchVendor,
	},
}

func kindFor(field string) *fieldKind {
	for i := range fieldKinds {
		for _, f := range fieldKinds[i].fields {
			if f == field {
				return &fieldKinds[i]
			}
		}
	}
	return nil
}

func isMoneyField(field string) bool {
	k := kindFor(field)
	return k != nil && k.name == "money"
}

func cleanValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), ",;:()")
}

func matchIdentifier(p probe) (string, bool) {
	v := cleanValue(p.text)
	return v, reIdentifier.MatchString(v)
}

func matchDate(p probe) (string, bool) {
	v := cleanValue(p.text)
	if p.tok != nil && p.tok.Hints != nil && p.tok.Hints.Kind == constants.HintDate && p.text == p.tok.Text {
		return v, true
	}
	for _, re := range reLooseDate {
		if re.MatchString(v) {
			return v, true
		}
	}
	return "", false
}

func matchMoney(p probe) (string, bool) {
	v := cleanValue(p.text)
	if p.tok != nil && p.tok.Hints != nil && p.tok.Hints.Kind == constants.HintMoney && p.text == p.tok.Text && hasDigit(v) {
		return v, true
	}
	return v, reAmount.MatchString(v)
}

func matchVendor(p probe) (string, bool) {
	v := cleanValue(p.text)
	if utf8.RuneCountInString(v) < 3 {
		return "", false
	}
	return v, strings.IndexFunc(v, unicode.IsLetter) >= 0
}

func matchCurrency(p probe) (string, bool) {
	if p.tok != nil && p.tok.Hints != nil && p.tok.Hints.Kind == constants.HintMoney && p.tok.Hints.Glyph != "" {
		return p.tok.Hints.Glyph, true
	}
	v := cleanValue(p.text)
	if _, ok := constants.CurrencyWordCodes[strings.ToLower(v)]; ok {
		return v, true
	}
	return "", false
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// probes lists the values an anchor may yield: its own words after the label
// text, then its context tokens. The label line itself is never a value.
func probes(doc *entity.Document, a *entity.Anchor) []probe {
	var out []probe

	labelWords, tail := labelSpan(a)
	for _, id := range a.TokenIDs {
		tok := doc.TokenByID(id)
		if tok == nil || tok.Text == a.Text || tok.Kind == constants.TokenLine {
			continue
		}
		switch {
		case tok.OrderInBlock < labelWords:
			continue
		case tok.OrderInBlock == labelWords:
			if tail != "" {
				out = append(out, probe{text: tail, tok: tok})
			}
			continue
		}
		out = append(out, probe{text: tok.Text, tok: tok})
	}

	for _, id := range a.ContextTokenIDs {
		if tok := doc.TokenByID(id); tok != nil {
			out = append(out, probe{text: tok.Text, tok: tok})
		}
	}
	return out
}

// labelSpan returns how many words of the anchor text the label match
// covers and, when the match ends inside a word, the rest of that word.
func labelSpan(a *entity.Anchor) (int, string) {
	idx := strings.Index(a.Text, a.Match)
	if a.Match == "" || idx < 0 {
		return 0, ""
	}
	end := idx + len(a.Match)
	covered := strings.Fields(a.Text[:end])
	n := len(covered)
	if n == 0 || end >= len(a.Text) {
		return n, ""
	}
	next, _ := utf8.DecodeRuneInString(a.Text[end:])
	if unicode.IsSpace(next) {
		return n, ""
	}
	words := strings.Fields(a.Text)
	rest := strings.TrimPrefix(words[n-1], covered[n-1])
	return n, strings.TrimLeft(rest, ":#.")
}

func newCandidate(value string, tok *entity.Token, a *entity.Anchor) *entity.FieldCandidate {
	ev := entity.Evidence{}
	if a != nil {
		ev = entity.Evidence{
			Page:        a.Page,
			BBox:        a.BBox,
			BBoxRel:     a.BBoxRel,
			AnchorID:    a.ID,
			AnchorLabel: a.Label,
			TokenIDs:    append([]string{}, a.TokenIDs...),
		}
	}
	if tok != nil {
		ev.Page = tok.Page
		ev.BBox = tok.BBox
		ev.BBoxRel = tok.BBoxRel
		ev.TokenIDs = []string{tok.ID}
	}
	return &entity.FieldCandidate{Value: value, Evidence: ev}
}

// ExtractCandidates proposes raw values per field from each anchor, in
// anchor discovery order. When no anchor yields a currency, every
// money-hinted word in the document becomes a currency candidate.
func ExtractCandidates(doc *entity.Document) map[string][]*entity.FieldCandidate {
	out := make(map[string][]*entity.FieldCandidate)
	for _, a := range doc.Anchors {
		field, ok := constants.LabelFields[a.Label]
		if !ok {
			continue
		}
		kind := kindFor(field)
		if kind == nil {
			continue
		}
		ps := probes(doc, a)
		for _, p := range ps {
			if v, ok := kind.match(p); ok && v != "" {
				out[field] = append(out[field], newCandidate(v, p.tok, a))
				break
			}
		}
		if !isMoneyField(field) {
			continue
		}
		for _, p := range ps {
			if v, ok := matchCurrency(p); ok {
				out[constants.FieldCurrency] = append(out[constants.FieldCurrency], newCandidate(v, p.tok, a))
				break
			}
		}
	}

	if len(out[constants.FieldCurrency]) == 0 {
		seen := make(map[string]struct{})
		for _, tok := range doc.Tokens {
			// line tokens repeat the text of their words
			if tok.Kind == constants.TokenLine || tok.Hints == nil || tok.Hints.Kind != constants.HintMoney {
				continue
			}
			if _, dup := seen[tok.Text]; dup {
				continue
			}
			seen[tok.Text] = struct{}{}
			out[constants.FieldCurrency] = append(out[constants.FieldCurrency], newCandidate(tok.Text, tok, nil))
		}
	}
	return out
}
