package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/po-digitizer/internal/core/pipeline"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

func table(headers []string, rows ...[]string) *entity.Table {
	t := &entity.Table{
		ID:            "p1-t1",
		Page:          1,
		HeaderRows:    []int{0},
		ColumnHeaders: headers,
		NRows:         len(rows) + 1,
		NCols:         len(headers),
		BBoxRel:       geom.BBox{X1: 0.1, Y1: 0.3, X2: 0.9, Y2: 0.4},
	}
	all := append([][]string{headers}, rows...)
	for r, row := range all {
		for c, text := range row {
			t.Cells = append(t.Cells, &entity.TableCell{Row: r, Col: c, Text: text, IsHeader: r == 0})
		}
	}
	return t
}

func TestLineItems(t *testing.T) {
	tbl := table(
		[]string{"Description", "Item Code", "Qty", "Unit Price", "Amount"},
		[]string{"Widget", "A-100", "10", "5.00", "50.00"},
		[]string{"Gadget", "B-200", "2", "1,250.50", "2,501.00"},
	)
	items := LineItems(tbl, nil)
	require.Len(t, items, 2)

	first := items[0]
	assert.Equal(t, 1, first.LineNumber)
	assert.Equal(t, "p1-t1", first.TableID)
	assert.Equal(t, "Widget", first.Description)
	assert.Equal(t, "10", first.Quantity.Raw)
	require.NotNil(t, first.Quantity.Normalized)
	assert.Equal(t, "10", *first.Quantity.Normalized)
	assert.Equal(t, "5", *first.UnitPrice.Normalized)
	assert.Equal(t, "50", *first.TotalPrice.Normalized)
	assert.Equal(t, "A-100", first.MaterialID.Selected)
	assert.Equal(t, "Priority 5: 'Item Code' column found.", first.MaterialID.Reason)
	assert.Equal(t, []map[string]string{{"Item Code": "A-100"}}, first.MaterialID.Found)

	assert.Equal(t, "2501", *items[1].TotalPrice.Normalized)
	assert.Equal(t, 2, items[1].LineNumber)
}

func TestLineItemsFallbacksAndValidation(t *testing.T) {
	tbl := table(
		[]string{"Name", "GTIN", "Cost"},
		[]string{"Bolt", "12345", "3"},
		[]string{"Nut", "00012345678905", "1"},
	)
	items := LineItems(tbl, nil)
	require.Len(t, items, 2)

	assert.Equal(t, "Bolt", items[0].Description, "first header is the description fallback")
	assert.Equal(t, "3", items[0].TotalPrice.Raw, "last header is the total fallback")
	assert.Empty(t, items[0].Quantity.Raw)
	assert.Nil(t, items[0].Quantity.Normalized)
	assert.Empty(t, items[0].MaterialID.Selected, "GTIN fails the length check")
	assert.Equal(t, "No priority field found.", items[0].MaterialID.Reason)

	assert.Equal(t, "00012345678905", items[1].MaterialID.Selected)

	assert.Nil(t, LineItems(&entity.Table{NRows: 2, NCols: 1}, nil))
}

func TestMaterialIDNoneFound(t *testing.T) {
	tbl := table([]string{"Description", "Qty"}, []string{"Paper", "5"})
	items := LineItems(tbl, nil)
	require.Len(t, items, 1)
	assert.Equal(t, []map[string]string{{"<none_found>": ""}}, items[0].MaterialID.Found)
}

func structured(t *testing.T) *entity.Document {
	t.Helper()
	line := func(text string, y float64) entity.OCRLine {
		return entity.OCRLine{Text: text, BBox: geom.NewBBox(40, y, 900, y+30)}
	}
	return pipeline.NewStructurer(nil, pipeline.Config{}, nil).Structure(entity.OCRInput{
		Filename: "po.json",
		Pages: []entity.OCRPage{{
			Width: 1000, Height: 1400,
			Lines: []entity.OCRLine{
				line("PO Number: PO-88214", 60),
				line("Ship To:", 120),
				line("Acme Corp", 160),
				line("Item  Qty  Amount", 400),
				line("Widget  10  50.00", 440),
				line("Total: $50.00", 1300),
			},
		}},
	})
}

func TestAddresses(t *testing.T) {
	doc := structured(t)
	addrs := Addresses(doc)
	require.Contains(t, addrs, "ship_to")
	ship := addrs["ship_to"]
	assert.Equal(t, 1, ship.Page)
	assert.Contains(t, ship.Lines, "Acme Corp")
	assert.NotContains(t, ship.Lines, "Ship To:")
}

func TestDocumentXLSX(t *testing.T) {
	doc := structured(t)
	data, err := NewService(nil, nil).DocumentXLSX(doc)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	assert.Equal(t, []string{"Fields", "Totals", "Line Items", "Addresses", "Anomalies", "Table p1-t1"}, sheets)

	fields, err := f.GetRows("Fields")
	require.NoError(t, err)
	assert.Equal(t, []string{"Field", "Raw", "Normalized", "Type", "Parser", "Confidence"}, fields[0])
	var po []string
	for _, r := range fields[1:] {
		if r[0] == "po_number" {
			po = r
		}
	}
	require.NotNil(t, po)
	assert.Equal(t, "PO-88214", po[1])

	items, err := f.GetRows("Line Items")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"1", "p1-t1", "1", "Widget", "", "10", "", "50"}, items[1])

	grid, err := f.GetRows("Table p1-t1")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Item", "Qty", "Amount"}, {"Widget", "10", "50.00"}}, grid)
}
