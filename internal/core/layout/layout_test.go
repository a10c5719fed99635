package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/core/ocr"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

type line struct {
	text string
	box  geom.BBox
}

func buildDoc(width, height float64, lines ...line) *entity.Document {
	page := entity.OCRPage{Width: width, Height: height}
	for _, l := range lines {
		page.Lines = append(page.Lines, entity.OCRLine{Text: l.text, BBox: l.box})
	}
	return ocr.BuildDocument(entity.OCRInput{Filename: "test.png", Pages: []entity.OCRPage{page}})
}

// row places a line at a given vertical slot on a 1000x1000 page.
func row(text string, y float64) line {
	return line{text: text, box: geom.NewBBox(50, y, 800, y+20)}
}

func TestSegmentZones(t *testing.T) {
	doc := buildDoc(1000, 1000)
	zones := SegmentZones(doc.Pages, ZoneConfig{})
	require.Len(t, zones, 3)

	assert.Equal(t, "p1-z1", zones[0].ID)
	assert.Equal(t, constants.ZoneHeader, zones[0].Kind)
	assert.Equal(t, geom.NewBBox(0, 0, 1000, 200), zones[0].BBox)
	assert.Equal(t, constants.ZoneBody, zones[1].Kind)
	assert.Equal(t, geom.NewBBox(0, 200, 1000, 850), zones[1].BBox)
	assert.Equal(t, constants.ZoneFooter, zones[2].Kind)
	assert.Equal(t, geom.NewBBox(0, 850, 1000, 1000), zones[2].BBox)
	assert.InDeltaSlice(t, []float64{0, 0.85, 1, 1}, zones[2].BBoxRel.Slice(), 1e-9)
}

func TestSegmentZonesCapsFooterAndDropsEmptyBands(t *testing.T) {
	doc := buildDoc(1000, 1000)
	zones := SegmentZones(doc.Pages, ZoneConfig{HeaderRatio: 0.7, FooterRatio: 0.5})
	require.Len(t, zones, 2)
	assert.Equal(t, constants.ZoneHeader, zones[0].Kind)
	assert.Equal(t, constants.ZoneFooter, zones[1].Kind)
	assert.Equal(t, "p1-z2", zones[1].ID)
	assert.Equal(t, geom.NewBBox(0, 700, 1000, 1000), zones[1].BBox)

	assert.Empty(t, SegmentZones(buildDoc(0, 0).Pages, ZoneConfig{}))
}

func TestMatchLabel(t *testing.T) {
	cases := []struct {
		text  string
		label string
	}{
		{"PURCHASE ORDER NO: PO-88214", constants.LabelPONumber},
		{"P.O. No. 4500012", constants.LabelPONumber},
		{"PO # 77", constants.LabelPONumber},
		{"PO Date: 12/05/2024", constants.LabelPODate},
		{"Order Ref: ABC-1", constants.LabelOrderReference},
		{"Bill To:", constants.LabelBillTo},
		{"Ship To: Acme Corp", constants.LabelShipTo},
		{"Vendor: Globex Ltd", constants.LabelVendor},
		{"Invoice No. INV-9", constants.LabelInvoiceNumber},
		{"Invoice Date 2024-01-02", constants.LabelInvoiceDate},
		{"Grand Total $1,200.00", constants.LabelTotal},
		{"Total 55.00", constants.LabelTotal},
		{"Sub Total 50.00", constants.LabelSubtotal},
		{"Subtotal: 50.00", constants.LabelSubtotal},
		{"GST 18%", constants.LabelTax},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			label, match, ok := matchLabel(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.label, label)
			assert.NotEmpty(t, match)
		})
	}

	_, _, ok := matchLabel("Widget  10  5.00")
	assert.False(t, ok)
}

func TestDetectAnchors(t *testing.T) {
	doc := buildDoc(1000, 1000,
		row("PURCHASE ORDER NO: PO-88214", 100),
		row("Ship To: Acme Corp, 123 Main St, Springfield, IL 62704", 140),
		row("ITEM  QTY  PRICE", 400),
		row("Widget  10  5.00", 430),
	)
	zones := SegmentZones(doc.Pages, ZoneConfig{})
	anchors := DetectAnchors(doc, zones, AnchorConfig{})
	require.Len(t, anchors, 2)

	po := anchors[0]
	assert.Equal(t, "p1-a1", po.ID)
	assert.Equal(t, constants.LabelPONumber, po.Label)
	assert.Equal(t, "PURCHASE ORDER NO", po.Match)
	require.NotNil(t, po.Zone)
	assert.Equal(t, constants.ZoneHeader, *po.Zone)
	assert.Equal(t, DefaultContextWindowPx, po.ContextWindowPx)
	assert.Equal(t, doc.Pages[0].Blocks[0].TokenIDs, po.TokenIDs)

	// window reaches y=420: ship-to and header row, not the widget row
	require.NotEmpty(t, po.ContextTokenIDs)
	assert.Equal(t, "p1-l2", po.ContextTokenIDs[0])
	assert.Contains(t, po.ContextTokenIDs, "p1-l3-w3")
	assert.NotContains(t, po.ContextTokenIDs, "p1-l4")
	for _, id := range po.TokenIDs {
		assert.NotContains(t, po.ContextTokenIDs, id)
	}
	for i := 1; i < len(po.ContextTokenIDs); i++ {
		prev := doc.TokenByID(po.ContextTokenIDs[i-1])
		cur := doc.TokenByID(po.ContextTokenIDs[i])
		assert.Less(t, prev.ReadingOrder, cur.ReadingOrder)
	}

	assert.Equal(t, "p1-a2", anchors[1].ID)
	assert.Equal(t, constants.LabelShipTo, anchors[1].Label)
}

func TestDetectAnchorsWithoutZones(t *testing.T) {
	doc := buildDoc(0, 0, row("Total 10.00", 10))
	anchors := DetectAnchors(doc, nil, AnchorConfig{ContextWindowPx: 50})
	require.Len(t, anchors, 1)
	assert.Nil(t, anchors[0].Zone)
	assert.Equal(t, 50, anchors[0].ContextWindowPx)
	assert.Empty(t, anchors[0].ContextTokenIDs)
}

func TestDetectTablesPadsAndMerges(t *testing.T) {
	doc := buildDoc(1000, 1000,
		row("ITEM  QTY  PRICE", 400),
		row("A  2", 430),
		row("B  1  2.00  each", 460),
	)
	tables := DetectTables(doc)
	require.Len(t, tables, 1)
	tbl := tables[0]

	assert.Equal(t, "p1-t1", tbl.ID)
	assert.Equal(t, []string{"ITEM", "QTY", "PRICE"}, tbl.ColumnHeaders)
	assert.Equal(t, []int{0}, tbl.HeaderRows)
	assert.Equal(t, 3, tbl.NRows)
	assert.Equal(t, 3, tbl.NCols)
	assert.Len(t, tbl.Cells, 9)

	padded := tbl.Cell(1, 2)
	require.NotNil(t, padded)
	assert.Equal(t, "", padded.Text)
	assert.Equal(t, true, padded.Hints["empty"])
	assert.Equal(t, "p1-t1-r1c2", padded.ID)

	assert.Equal(t, "2.00 each", tbl.Cell(2, 2).Text)
	assert.True(t, tbl.Cell(0, 1).IsHeader)
	assert.False(t, tbl.Cell(1, 1).IsHeader)
	assert.Equal(t, doc.Pages[0].Blocks[1].TokenIDs, tbl.Cell(1, 0).TokenIDs)

	assert.Equal(t, geom.NewBBox(50, 400, 800, 480), tbl.BBox)
	assert.Equal(t, []string{"p1-t1"}, doc.Pages[0].TableIDs)
	assert.Same(t, tbl, doc.TableByID("p1-t1"))
}

func TestDetectTablesCellGeometry(t *testing.T) {
	doc := buildDoc(1000, 1000,
		row("ITEM  QTY  PRICE", 400),
		row("Widget  10  5.00", 430),
	)
	tbl := DetectTables(doc)[0]

	// 4:3:5 character split of a 750px row
	assert.InDelta(t, 50.0, tbl.Cell(0, 0).BBox.X1, 1e-9)
	assert.InDelta(t, 300.0, tbl.Cell(0, 0).BBox.X2, 1e-9)
	assert.InDelta(t, 487.5, tbl.Cell(0, 1).BBox.X2, 1e-9)
	assert.InDelta(t, 800.0, tbl.Cell(0, 2).BBox.X2, 1e-9)
	assert.Equal(t, 400.0, tbl.Cell(0, 2).BBox.Y1)
	assert.Equal(t, 420.0, tbl.Cell(0, 2).BBox.Y2)
}

func TestDetectTablesRuns(t *testing.T) {
	doc := buildDoc(1000, 1000,
		row("A  B", 100),
		row("Notes follow", 130),
		row("X  Y", 160),
		row("1  2", 190),
		row("Plain", 220),
		row("P  Q  R", 250),
		row("3  4  5", 280),
	)
	tables := DetectTables(doc)
	require.Len(t, tables, 2)
	assert.Equal(t, "p1-t1", tables[0].ID)
	assert.Equal(t, []string{"X", "Y"}, tables[0].ColumnHeaders)
	assert.Equal(t, "p1-t2", tables[1].ID)
	assert.Equal(t, 3, tables[1].NCols)
	for _, tbl := range tables {
		for r := 0; r < tbl.NRows; r++ {
			assert.Len(t, tbl.Row(r), tbl.NCols)
		}
	}
}
