package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

func strp(s string) *string    { return &s }
func f64p(v float64) *float64 { return &v }

func cand(value, anchorID string) *entity.FieldCandidate {
	return &entity.FieldCandidate{Value: value, Evidence: entity.Evidence{Page: 1, AnchorID: anchorID}}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		raw   string
		style *string
		want  string
	}{
		{"1,000.50", strp(constants.NumberingInternational), "1000.5"},
		{"1,00,000", strp(constants.NumberingIndian), "100000"},
		{"1.234,56", nil, "1234.56"},
		{"12,5", nil, "12.5"},
		{"$ 55.00", nil, "55"},
		{"₹2,50,000.00", strp(constants.NumberingIndian), "250000"},
		{"-42", nil, "-42"},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			d, meta := ParseNumber(tc.raw, tc.style)
			require.NotNil(t, d)
			assert.Equal(t, tc.want, formatDecimal(*d))
			assert.Equal(t, tc.raw, meta["raw"])
		})
	}

	d, _ := ParseNumber("1,000.50", strp(constants.NumberingInternational))
	assert.True(t, d.Equal(decimal.RequireFromString("1000.50")))

	for _, bad := range []string{"", "N/A", "1.2.3"} {
		d, _ := ParseNumber(bad, nil)
		assert.Nil(t, d, bad)
	}
}

func TestParseDate(t *testing.T) {
	// no hint: day-first first, confidence 0.9
	res := ParseDate("05/03/2024", nil)
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-03-05", *res.ISO)
	assert.Equal(t, 0.9, res.Confidence)

	// month-first preferred below 0.5
	res = ParseDate("05/03/2024", f64p(0.2))
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-05-03", *res.ISO)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)

	// day-first layouts reject month 13, month-first picks it up
	res = ParseDate("05/13/2024", f64p(0.75))
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-05-13", *res.ISO)
	assert.InDelta(t, 0.75, res.Confidence, 1e-9)

	res = ParseDate("12 Jan 2024", nil)
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-01-12", *res.ISO)

	res = ParseDate("Jan 5, 2024", nil)
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-01-05", *res.ISO)

	res = ParseDate("2024-01-31", nil)
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-01-31", *res.ISO)
	assert.Equal(t, "iso", res.Metadata["family"])
}

func TestParseDateRelaxedAndFailure(t *testing.T) {
	res := ParseDate("05.13.2024", nil)
	require.NotNil(t, res.ISO)
	assert.Equal(t, "2024-05-13", *res.ISO)
	assert.Equal(t, 0.8, res.Confidence)
	assert.Equal(t, true, res.Metadata["relaxed"])

	res = ParseDate("sometime soon", nil)
	assert.Nil(t, res.ISO)
	assert.Equal(t, 0.4, res.Confidence)
}

func TestDocumentFields(t *testing.T) {
	hints := &entity.DocumentHints{NumberingStyle: strp(constants.NumberingInternational)}
	cands := map[string][]*entity.FieldCandidate{
		constants.FieldPONumber:   {cand(" PO-88214 ", "p1-a1"), cand("OTHER", "p1-a2")},
		constants.FieldPODate:     {cand("not a date", "p1-a3")},
		constants.FieldGrandTotal: {cand("1,200.00", "p1-a4")},
		constants.FieldSubtotal:   {cand("n/a", "p1-a5")},
	}
	n := Document(cands, hints, nil)
	require.NotNil(t, n)

	po := n.Fields[constants.FieldPONumber]
	require.NotNil(t, po)
	assert.Equal(t, "PO-88214", *po.Normalized)
	assert.Equal(t, " PO-88214 ", *po.Raw)
	assert.Equal(t, 1.0, po.Confidence)
	assert.Equal(t, "p1-a1", po.Metadata["anchor_id"])

	date := n.Fields[constants.FieldPODate]
	assert.Nil(t, date.Normalized)
	assert.Equal(t, "not a date", *date.Raw)
	assert.Equal(t, 0.4, date.Confidence)
	assert.Equal(t, "string", date.ValueType)

	grand := n.Fields[constants.FieldGrandTotal]
	assert.Equal(t, "1200", *grand.Normalized)
	assert.Equal(t, 1.0, grand.Confidence)

	sub := n.Fields[constants.FieldSubtotal]
	assert.Nil(t, sub.Normalized)
	assert.Equal(t, 0.6, sub.Confidence)
}

func TestDocumentNothingToDo(t *testing.T) {
	assert.Nil(t, Document(nil, nil, nil))
}

func TestCurrency(t *testing.T) {
	// glyph from document hints
	n := Document(map[string][]*entity.FieldCandidate{constants.FieldPONumber: {cand("X1", "p1-a1")}},
		&entity.DocumentHints{CurrencyGlyphs: []string{"$"}}, nil)
	require.NotNil(t, n.Currency)
	assert.Equal(t, "USD", *n.Currency.Normalized)
	assert.Equal(t, 0.9, n.Currency.Confidence)
	assert.Equal(t, "document_hint", n.Currency.Metadata["source"])

	// neither candidate nor hint
	n = Document(map[string][]*entity.FieldCandidate{constants.FieldPONumber: {cand("X1", "p1-a1")}},
		&entity.DocumentHints{}, nil)
	assert.Nil(t, n.Currency)

	// explicit word candidate beats hints
	n = Document(map[string][]*entity.FieldCandidate{constants.FieldCurrency: {cand("INR", "")}},
		&entity.DocumentHints{CurrencyGlyphs: []string{"$"}}, nil)
	assert.Equal(t, "INR", *n.Currency.Normalized)

	// present but unresolved
	n = Document(map[string][]*entity.FieldCandidate{constants.FieldCurrency: {cand("bitcoin", "")}}, nil, nil)
	assert.Nil(t, n.Currency.Normalized)
	assert.Equal(t, 0.5, n.Currency.Confidence)
	assert.Equal(t, "bitcoin", *n.Currency.Raw)
}

func amountTable(id string, amounts ...string) *entity.Table {
	t := &entity.Table{ID: id, Page: 1, NCols: 2, NRows: len(amounts) + 1, ColumnHeaders: []string{"ITEM", "AMOUNT"}}
	t.Cells = append(t.Cells,
		&entity.TableCell{Row: 0, Col: 0, Text: "ITEM", IsHeader: true},
		&entity.TableCell{Row: 0, Col: 1, Text: "AMOUNT", IsHeader: true},
	)
	for i, a := range amounts {
		t.Cells = append(t.Cells,
			&entity.TableCell{Row: i + 1, Col: 0, Text: "item"},
			&entity.TableCell{Row: i + 1, Col: 1, Text: a},
		)
	}
	return t
}

func TestTotalsReconciliation(t *testing.T) {
	hints := &entity.DocumentHints{NumberingStyle: strp(constants.NumberingInternational)}
	grand := map[string][]*entity.FieldCandidate{constants.FieldGrandTotal: {cand("1,200.00", "p1-a3")}}

	n := Document(grand, hints, []*entity.Table{amountTable("p1-t1", "1000.00", "199.99")})
	require.NotNil(t, n.Totals)
	assert.Equal(t, constants.TotalsOK, n.Totals.Status)
	require.NotNil(t, n.Totals.Difference)
	assert.InDelta(t, 0.01, *n.Totals.Difference, 1e-9)
	assert.Equal(t, "1199.99", *n.Totals.RecomputedTotal.Normalized)
	assert.Equal(t, "table_sum", n.Totals.RecomputedTotal.Metadata["source"])
	assert.Equal(t, "1,200.00", *n.Totals.GrandTotal.Raw)

	n = Document(grand, hints, []*entity.Table{amountTable("p1-t1", "1000.00", "199.98")})
	assert.Equal(t, constants.TotalsMismatch, n.Totals.Status)
	assert.InDelta(t, 0.02, *n.Totals.Difference, 1e-9)
}

func TestTotalsSourcesAndStatuses(t *testing.T) {
	hints := &entity.DocumentHints{}

	// grand total alone
	n := Document(map[string][]*entity.FieldCandidate{constants.FieldGrandTotal: {cand("10.00", "p1-a1")}}, hints, nil)
	assert.Equal(t, constants.TotalsInsufficient, n.Totals.Status)
	assert.Nil(t, n.Totals.Difference)

	// subtotal plus tax when no table
	n = Document(map[string][]*entity.FieldCandidate{
		constants.FieldSubtotal:   {cand("100.00", "p1-a1")},
		constants.FieldTaxTotal:   {cand("18.00", "p1-a2")},
		constants.FieldGrandTotal: {cand("118.00", "p1-a3")},
	}, hints, nil)
	assert.Equal(t, constants.TotalsOK, n.Totals.Status)
	assert.Equal(t, "subtotal_plus_tax", n.Totals.RecomputedTotal.Metadata["source"])

	// tables on the totals page win over earlier pages
	other := amountTable("p1-t1", "5.00")
	linked := amountTable("p2-t1", "7.00")
	linked.Page = 2
	n = Document(map[string][]*entity.FieldCandidate{constants.FieldGrandTotal: {cand("7.00", "p2-a1")}},
		hints, []*entity.Table{other, linked})
	assert.Equal(t, "p2-t1", n.Totals.RecomputedTotal.Metadata["table_id"])
	assert.Equal(t, constants.TotalsOK, n.Totals.Status)

	// only a table: recomputed but insufficient
	n = Document(nil, hints, []*entity.Table{amountTable("p1-t1", "3.50")})
	require.NotNil(t, n)
	assert.Equal(t, constants.TotalsInsufficient, n.Totals.Status)

	// table without amounts and no totals fields
	n = Document(nil, hints, []*entity.Table{amountTable("p1-t1", "n/a")})
	assert.Nil(t, n)
}

func TestDateFamiliesOrder(t *testing.T) {
	assert.Equal(t, "day_first", DateFamilies(nil)[0].Name)
	assert.Equal(t, "day_first", DateFamilies(f64p(0.5))[0].Name)
	assert.Equal(t, "month_first", DateFamilies(f64p(0.49))[0].Name)
	for _, p := range []*float64{nil, f64p(0.1)} {
		fams := DateFamilies(p)
		assert.Equal(t, "iso", fams[len(fams)-1].Name)
	}
}
