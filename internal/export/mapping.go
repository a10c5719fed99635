package export

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/core/normalize"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

// ItemValue is a cell value with its parsed number, if any.
type ItemValue struct {
	Raw        string  `json:"raw"`
	Normalized *string `json:"normalized"`
}

// MaterialID is the identifier chosen for a line item plus every
// identifier-like cell seen in the row.
type MaterialID struct {
	Selected string              `json:"selected_id"`
	Reason   string              `json:"selection_reason"`
	Found    []map[string]string `json:"all_found_ids"`
}

type LineItem struct {
	LineNumber  int        `json:"line_number"`
	TableID     string     `json:"table_id"`
	Page        int        `json:"page"`
	Description string     `json:"description"`
	MaterialID  MaterialID `json:"material_id"`
	Quantity    ItemValue  `json:"quantity"`
	UnitPrice   ItemValue  `json:"unit_price"`
	TotalPrice  ItemValue  `json:"total_price"`
	BBoxRel     geom.BBox  `json:"bbox_rel"`
}

// Address is the context text of a bill_to or ship_to anchor.
type Address struct {
	Raw     string    `json:"raw"`
	Lines   []string  `json:"lines"`
	Page    int       `json:"page"`
	BBoxRel geom.BBox `json:"bbox_rel"`
}

var idKeywords = []string{
	"item", "vendor", "product", "material", "sku", "bin", "code",
	"number", "id", "s4", "mdg", "mfg", "gtin", "ean", "upc",
}

// materialPriorities is searched in order; the first non-empty cell whose
// header contains a key and whose value passes the pattern wins.
var materialPriorities = []struct {
	keys    []string
	pattern *regexp.Regexp
}{
	{keys: []string{"s4 code"}},
	{keys: []string{"mdg id", "mfg number"}, pattern: regexp.MustCompile(`^\d{9}$|^\d{18}$`)},
	{keys: []string{"gtin", "ean-13", "gtin-14"}, pattern: regexp.MustCompile(`^\d{11,14}$`)},
	{keys: []string{"upc"}, pattern: regexp.MustCompile(`^\d{1,5}$`)},
	{keys: []string{"item id", "item code", "number"}},
}

// LineItems maps the data rows of a table to line items keyed by its
// column headers. Tables without headers yield nothing.
func LineItems(t *entity.Table, numberingStyle *string) []LineItem {
	headers := t.ColumnHeaders
	if len(headers) == 0 {
		return nil
	}
	desc := pickHeader(headers, headers[0], "description", "item")
	qty := pickHeader(headers, "", "qty", "quantity")
	unit := pickHeader(headers, "", "unit", "price")
	total := pickHeader(headers, headers[len(headers)-1], "total", "amount")

	var items []LineItem
	for row := 0; row < t.NRows; row++ {
		if isHeaderRow(t, row) {
			continue
		}
		cells := map[string]string{}
		for col := 0; col < t.NCols && col < len(headers); col++ {
			if c := t.Cell(row, col); c != nil {
				cells[headers[col]] = c.Text
			}
		}
		items = append(items, LineItem{
			LineNumber:  len(items) + 1,
			TableID:     t.ID,
			Page:        t.Page,
			Description: cells[desc],
			MaterialID:  selectMaterialID(cells, headers),
			Quantity:    itemValue(cells[qty], numberingStyle),
			UnitPrice:   itemValue(cells[unit], numberingStyle),
			TotalPrice:  itemValue(cells[total], numberingStyle),
			BBoxRel:     t.BBoxRel,
		})
	}
	return items
}

// DocumentLineItems collects the line items of every table in doc.
func DocumentLineItems(doc *entity.Document) []LineItem {
	var style *string
	if doc.Hints != nil {
		style = doc.Hints.NumberingStyle
	}
	var out []LineItem
	for _, t := range doc.Tables {
		out = append(out, LineItems(t, style)...)
	}
	return out
}

func isHeaderRow(t *entity.Table, row int) bool {
	for _, h := range t.HeaderRows {
		if h == row {
			return true
		}
	}
	return false
}

func pickHeader(headers []string, fallback string, keys ...string) string {
	for _, h := range headers {
		lower := strings.ToLower(h)
		for _, k := range keys {
			if strings.Contains(lower, k) {
				return h
			}
		}
	}
	return fallback
}

func itemValue(raw string, style *string) ItemValue {
	v := ItemValue{Raw: raw}
	if d, _ := normalize.ParseNumber(raw, style); d != nil {
		s := d.String()
		v.Normalized = &s
	}
	return v
}

func selectMaterialID(cells map[string]string, headers []string) MaterialID {
	var found []map[string]string
	for _, h := range headers {
		v, ok := cells[h]
		if !ok {
			continue
		}
		lower := strings.ToLower(h)
		for _, k := range idKeywords {
			if strings.Contains(lower, k) {
				found = append(found, map[string]string{h: v})
				break
			}
		}
	}
	if len(found) == 0 {
		found = []map[string]string{{"<none_found>": ""}}
	}

	for i, p := range materialPriorities {
		for _, key := range p.keys {
			for _, h := range headers {
				if !strings.Contains(strings.ToLower(h), key) {
					continue
				}
				v := cells[h]
				if v == "" || p.pattern != nil && !p.pattern.MatchString(v) {
					continue
				}
				return MaterialID{
					Selected: v,
					Reason:   fmt.Sprintf("Priority %d: '%s' column found.", i+1, h),
					Found:    found,
				}
			}
		}
	}
	return MaterialID{Reason: "No priority field found.", Found: found}
}

// Addresses joins the context lines of address anchors in reading order.
// A later anchor with the same label replaces an earlier one.
func Addresses(doc *entity.Document) map[string]Address {
	out := map[string]Address{}
	for _, a := range doc.Anchors {
		if a.Label != constants.LabelBillTo && a.Label != constants.LabelShipTo {
			continue
		}
		toks := make([]*entity.Token, 0, len(a.ContextTokenIDs))
		for _, id := range a.ContextTokenIDs {
			if t := doc.TokenByID(id); t != nil && t.Kind == constants.TokenLine {
				toks = append(toks, t)
			}
		}
		sort.SliceStable(toks, func(i, j int) bool { return toks[i].ReadingOrder < toks[j].ReadingOrder })
		lines := make([]string, 0, len(toks))
		for _, t := range toks {
			lines = append(lines, t.Text)
		}
		out[a.Label] = Address{
			Raw:     strings.Join(lines, "\n"),
			Lines:   lines,
			Page:    a.Page,
			BBoxRel: a.BBoxRel,
		}
	}
	return out
}
