package layout

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

var reColumnGap = regexp.MustCompile(`\s{2,}`)

// minTableRows is the shortest run of aligned lines accepted as a table.
const minTableRows = 2

// DetectTables groups consecutive whitespace-aligned blocks into table
// skeletons. Tables are added to the document and to their page.
func DetectTables(doc *entity.Document) []*entity.Table {
	var tables []*entity.Table
	for _, page := range doc.Pages {
		n := 0
		for _, run := range candidateRuns(page.Blocks) {
			n++
			t := buildTable(fmt.Sprintf("p%d-t%d", page.Number, n), page, run)
			if t == nil {
				n--
				continue
			}
			doc.AddTable(t)
			tables = append(tables, t)
		}
	}
	return tables
}

func isRowCandidate(b *entity.Block) bool {
	return reColumnGap.MatchString(b.Text)
}

func candidateRuns(blocks []*entity.Block) [][]*entity.Block {
	var runs [][]*entity.Block
	var cur []*entity.Block
	flush := func() {
		if len(cur) >= minTableRows {
			runs = append(runs, cur)
		}
		cur = nil
	}
	for _, b := range blocks {
		if isRowCandidate(b) {
			cur = append(cur, b)
			continue
		}
		flush()
	}
	flush()
	return runs
}

func splitColumns(text string) []string {
	parts := reColumnGap.Split(strings.TrimSpace(text), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// reconcile pads short rows with empty cells and folds the excess segments
// of long rows into the last column.
func reconcile(segs []string, n int) []string {
	switch {
	case len(segs) < n:
		out := make([]string, n)
		copy(out, segs)
		return out
	case len(segs) > n:
		out := append([]string{}, segs[:n-1]...)
		return append(out, strings.Join(segs[n-1:], " "))
	default:
		return segs
	}
}

func buildTable(id string, page *entity.Page, rows []*entity.Block) *entity.Table {
	headers := splitColumns(rows[0].Text)
	if len(headers) == 0 {
		return nil
	}
	nCols := len(headers)
	t := &entity.Table{
		ID:            id,
		Page:          page.Number,
		HeaderRows:    []int{0},
		ColumnHeaders: headers,
		NRows:         len(rows),
		NCols:         nCols,
	}
	for r, row := range rows {
		if r == 0 {
			t.BBox = row.BBox
		} else {
			t.BBox = t.BBox.Union(row.BBox)
		}
		segs := reconcile(splitColumns(row.Text), nCols)
		for c, box := range apportion(row.BBox, segs) {
			cell := &entity.TableCell{
				ID:       fmt.Sprintf("%s-r%dc%d", id, r, c),
				Row:      r,
				Col:      c,
				Text:     segs[c],
				BBox:     box,
				BBoxRel:  box.Relative(page.Width, page.Height),
				RowSpan:  1,
				ColSpan:  1,
				IsHeader: r == 0,
				TokenIDs: append([]string{}, row.TokenIDs...),
				Hints:    map[string]any{},
			}
			if segs[c] == "" {
				cell.Hints["empty"] = true
			}
			t.Cells = append(t.Cells, cell)
		}
	}
	t.BBoxRel = t.BBox.Relative(page.Width, page.Height)
	return t
}

// apportion splits the row box horizontally in proportion to each segment's
// character count. Column boundaries are not measured, so this is an estimate.
func apportion(row geom.BBox, segs []string) []geom.BBox {
	total := 0
	for _, s := range segs {
		total += utf8.RuneCountInString(s)
	}
	out := make([]geom.BBox, len(segs))
	width := row.Width()
	x := row.X1
	for i, s := range segs {
		var share float64
		if total > 0 {
			share = float64(utf8.RuneCountInString(s)) / float64(total)
		} else {
			share = 1 / float64(len(segs))
		}
		x2 := x + width*share
		if i == len(segs)-1 {
			x2 = row.X2
		}
		out[i] = geom.NewBBox(x, row.Y1, x2, row.Y2)
		x = x2
	}
	return out
}
