package layout

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// DefaultContextWindowPx is how far right of and below a label values are searched for.
const DefaultContextWindowPx = 300

// AnchorRule binds a canonical label to its keyword patterns.
type AnchorRule struct {
	Label    string
	Patterns []*regexp.Regexp
}

// AnchorRules is evaluated in order; the first label with a matching pattern
// claims the block.
var AnchorRules = []AnchorRule{
	{Label: constants.LabelPONumber, Patterns: compile(
		`\b(?:purchase\s+order|p\.?\s?o\.?)\s*(?:no\b\.?|number\b|num\b|#)`,
	)},
	{Label: constants.LabelPODate, Patterns: compile(
		`\b(?:purchase\s+order|p\.?\s?o\.?|order)\s*date\b`,
	)},
	{Label: constants.LabelOrderReference, Patterns: compile(
		`\border\s*ref(?:erence)?\b`,
		`\bref(?:erence)?\s*(?:no\b\.?|number\b|#)`,
		`\byour\s+ref\b`,
	)},
	{Label: constants.LabelBillTo, Patterns: compile(
		`\bbill(?:ed)?\s*to\b`,
		`\binvoice\s+to\b`,
	)},
	{Label: constants.LabelShipTo, Patterns: compile(
		`\bship(?:ped)?\s*to\b`,
		`\bdeliver(?:y)?\s+(?:to|address)\b`,
	)},
	{Label: constants.LabelVendor, Patterns: compile(
		`\bvendor\b`,
		`\bsupplier\b`,
		`\bseller\b`,
	)},
	{Label: constants.LabelInvoiceNumber, Patterns: compile(
		`\binvoice\s*(?:no\b\.?|number\b|num\b|#)`,
		`\binv\.?\s*(?:no\b\.?|#)`,
	)},
	{Label: constants.LabelInvoiceDate, Patterns: compile(
		`\b(?:invoice|inv\.?)\s*date\b`,
	)},
	{Label: constants.LabelTotal, Patterns: compile(
		`^\s*(?:grand\s+|net\s+)?total\b`,
		`\bgrand\s*total\b`,
		`\btotal\s*(?:amount|due|payable|value)\b`,
		`\bamount\s+(?:due|payable)\b`,
	)},
	{Label: constants.LabelSubtotal, Patterns: compile(
		`\bsub\s*-?\s*total\b`,
	)},
	{Label: constants.LabelTax, Patterns: compile(
		`\b(?:tax|vat|gst|igst|cgst|sgst)\b`,
	)},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// matchLabel returns the first label (in rule order) matching text and the
// matched span.
func matchLabel(text string) (string, string, bool) {
	for _, rule := range AnchorRules {
		for _, re := range rule.Patterns {
			if m := re.FindString(text); m != "" {
				return rule.Label, m, true
			}
		}
	}
	return "", "", false
}

type AnchorConfig struct {
	ContextWindowPx int
}

// DetectAnchors scans every block of every page and turns label blocks into
// anchors. A block yields at most one anchor. Context tokens are the other
// tokens on the page whose top-left corner falls inside the window extending
// right of and below the label, in reading order.
func DetectAnchors(doc *entity.Document, zones []*entity.Zone, cfg AnchorConfig) []*entity.Anchor {
	w := cfg.ContextWindowPx
	if w <= 0 {
		w = DefaultContextWindowPx
	}
	var anchors []*entity.Anchor
	for _, page := range doc.Pages {
		var index *rtree.RTreeG[*entity.Token]
		n := 0
		for _, block := range page.Blocks {
			label, match, ok := matchLabel(block.Text)
			if !ok {
				continue
			}
			if index == nil {
				index = pageIndex(doc, page.Number)
			}
			n++
			a := &entity.Anchor{
				ID:              fmt.Sprintf("p%d-a%d", page.Number, n),
				Label:           label,
				Text:            block.Text,
				Match:           match,
				Page:            page.Number,
				BBox:            block.BBox,
				BBoxRel:         block.BBoxRel,
				Zone:            zoneAt(zones, page.Number, block),
				TokenIDs:        append([]string{}, block.TokenIDs...),
				ContextWindowPx: w,
			}
			a.ContextTokenIDs = contextTokens(index, block, float64(w))
			anchors = append(anchors, a)
		}
	}
	return anchors
}

func pageIndex(doc *entity.Document, page int) *rtree.RTreeG[*entity.Token] {
	var tr rtree.RTreeG[*entity.Token]
	for _, t := range doc.PageTokens(page) {
		pt := [2]float64{t.BBox.X1, t.BBox.Y1}
		tr.Insert(pt, pt, t)
	}
	return &tr
}

func contextTokens(index *rtree.RTreeG[*entity.Token], block *entity.Block, w float64) []string {
	own := make(map[string]struct{}, len(block.TokenIDs))
	for _, id := range block.TokenIDs {
		own[id] = struct{}{}
	}
	var hits []*entity.Token
	lo := [2]float64{block.BBox.X1, block.BBox.Y1}
	hi := [2]float64{block.BBox.X2 + w, block.BBox.Y2 + w}
	index.Search(lo, hi, func(_, _ [2]float64, t *entity.Token) bool {
		if _, mine := own[t.ID]; !mine {
			hits = append(hits, t)
		}
		return true
	})
	sort.Slice(hits, func(i, j int) bool { return hits[i].ReadingOrder < hits[j].ReadingOrder })
	ids := make([]string, len(hits))
	for i, t := range hits {
		ids[i] = t.ID
	}
	return ids
}

func zoneAt(zones []*entity.Zone, page int, block *entity.Block) *constants.ZoneKind {
	c := block.BBox.Center()
	for _, z := range zones {
		if z.Page == page && z.BBox.Contains(c) {
			kind := z.Kind
			return &kind
		}
	}
	return nil
}

// Labels returns the anchor labels in rule order.
func Labels() []string {
	out := make([]string, len(AnchorRules))
	for i, r := range AnchorRules {
		out[i] = r.Label
	}
	return out
}
