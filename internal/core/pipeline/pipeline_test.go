package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
	"github.com/joseph-ayodele/po-digitizer/internal/masterdata"
)

func input(lines ...string) entity.OCRInput {
	page := entity.OCRPage{Width: 1240, Height: 1754}
	for i, text := range lines {
		y := float64(80 + i*60)
		c := 0.95
		page.Lines = append(page.Lines, entity.OCRLine{Text: text, Confidence: &c, BBox: geom.NewBBox(60, y, 1100, y+28)})
	}
	return entity.OCRInput{Filename: "po-88214.png", Pages: []entity.OCRPage{page}}
}

func TestStructureEndToEnd(t *testing.T) {
	s := NewStructurer(nil, Config{}, nil)
	doc := s.Structure(input(
		"PURCHASE ORDER NO: PO-88214",
		"Ship To: Acme Corp, 123 Main St, Springfield, IL 62704",
		"ITEM  QTY  PRICE",
		"Widget  10  5.00",
	))

	labels := map[string]bool{}
	for _, a := range doc.Anchors {
		labels[a.Label] = true
	}
	assert.True(t, labels[constants.LabelPONumber])
	assert.True(t, labels[constants.LabelShipTo])

	require.Len(t, doc.Tables, 1)
	tbl := doc.Tables[0]
	assert.Equal(t, 2, tbl.NRows)
	assert.Equal(t, 3, tbl.NCols)
	assert.Equal(t, []string{"Widget", "10", "5.00"}, tbl.Row(1))

	require.NotNil(t, doc.Normalized)
	po := doc.Normalized.Fields[constants.FieldPONumber]
	require.NotNil(t, po)
	require.NotNil(t, po.Normalized)
	assert.Equal(t, "PO-88214", *po.Normalized)

	// a table sum exists but no grand total was found
	require.NotNil(t, doc.Normalized.Totals)
	assert.Equal(t, constants.TotalsInsufficient, doc.Normalized.Totals.Status)
	assert.Equal(t, "5", *doc.Normalized.Totals.RecomputedTotal.Normalized)

	require.NotNil(t, doc.Fingerprint)
	assert.Len(t, doc.Fingerprint.LayoutSignature, 16)
	assert.Equal(t, []string{"eng"}, doc.Fingerprint.Languages)

	var codes []string
	for _, a := range doc.Anomalies {
		codes = append(codes, a.Code)
	}
	assert.Contains(t, codes, constants.AnomalyTotalsMissing)

	require.NotNil(t, doc.Metrics)
	assert.Equal(t, len(doc.Tokens), doc.Metrics.Tokens)
	assert.Contains(t, doc.Metrics.StageMillis, "tables")
	assert.NotEqual(t, "", doc.RunID.String())
}

func TestStructureInvariants(t *testing.T) {
	doc := NewStructurer(nil, Config{}, nil).Structure(input(
		"Vendor: Globex",
		"PO Date: 05/13/2024",
		"Total: $1,200.00",
		"Total 1,200.00",
	))

	seen := map[string]bool{}
	for i, tok := range doc.Tokens {
		assert.False(t, seen[tok.ID], tok.ID)
		seen[tok.ID] = true
		if i > 0 {
			assert.Greater(t, tok.ReadingOrder, doc.Tokens[i-1].ReadingOrder)
		}
	}
	for _, a := range doc.Anchors {
		for _, own := range a.TokenIDs {
			assert.NotContains(t, a.ContextTokenIDs, own)
		}
	}

	date := doc.Normalized.Fields[constants.FieldPODate]
	require.NotNil(t, date.Normalized)
	assert.Equal(t, "2024-05-13", *date.Normalized)

	require.NotNil(t, doc.Normalized.Currency)
	assert.Equal(t, "USD", *doc.Normalized.Currency.Normalized)
}

func TestStructureCanonicalizesVendor(t *testing.T) {
	md := masterdata.New(map[string][]string{"Globex Corporation": {"Globex"}}, nil, nil)
	doc := NewStructurer(nil, Config{Languages: []string{"eng", "hin"}}, md).Structure(input("Vendor: Globex"))

	require.NotNil(t, doc.Fingerprint.VendorGuess)
	assert.Equal(t, "Globex Corporation", *doc.Fingerprint.VendorGuess)
	assert.Equal(t, "Globex", *doc.Fingerprint.VendorRaw)
	assert.Equal(t, []string{"eng", "hin"}, doc.Fingerprint.Languages)
	require.NotNil(t, doc.MasterData)
}

func TestStructureEmptyDocument(t *testing.T) {
	doc := NewStructurer(nil, Config{}, nil).Structure(entity.OCRInput{
		Filename: "blank.png",
		Pages:    []entity.OCRPage{{Width: 100, Height: 100}},
	})
	require.Len(t, doc.Pages, 1)
	assert.Empty(t, doc.Tokens)
	assert.Nil(t, doc.Normalized)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"filename":"blank.png"`)
}
