package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/repository"
)

const (
	sheetFields    = "Fields"
	sheetTotals    = "Totals"
	sheetLineItems = "Line Items"
	sheetAddresses = "Addresses"
	sheetAnomalies = "Anomalies"
)

// Service produces XLSX workbooks for structured documents.
type Service struct {
	results repository.ResultRepository
	logger  *slog.Logger
}

func NewService(results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, logger: logger}
}

// ResultXLSX loads a stored result and renders it.
func (s *Service) ResultXLSX(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if s.results == nil {
		return nil, common.UnavailableError("no result store configured")
	}
	stored, err := s.results.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	var doc entity.Document
	if err := json.Unmarshal(stored.ResultJSON, &doc); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return s.DocumentXLSX(&doc)
}

// DocumentXLSX renders normalized fields, totals, line items, addresses,
// anomalies and one sheet per detected table.
func (s *Service) DocumentXLSX(doc *entity.Document) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default workbook starts with Sheet1; rename it to the first sheet
	if err := f.SetSheetName("Sheet1", sheetFields); err != nil {
		return nil, err
	}
	w := &workbook{f: f}

	w.sheet(sheetFields, []string{"Field", "Raw", "Normalized", "Type", "Parser", "Confidence"}, []float64{22, 32, 28, 12, 22, 12})
	if n := doc.Normalized; n != nil {
		names := make([]string, 0, len(n.Fields))
		for name := range n.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			w.valueRow(sheetFields, name, n.Fields[name])
		}
		if n.Currency != nil {
			w.valueRow(sheetFields, "currency", n.Currency)
		}
	}

	w.sheet(sheetTotals, []string{"Component", "Raw", "Normalized", "Type", "Parser", "Confidence"}, []float64{20, 24, 20, 12, 22, 12})
	if n := doc.Normalized; n != nil && n.Totals != nil {
		t := n.Totals
		w.valueRow(sheetTotals, "subtotal", t.Subtotal)
		w.valueRow(sheetTotals, "tax_total", t.TaxTotal)
		w.valueRow(sheetTotals, "grand_total", t.GrandTotal)
		w.valueRow(sheetTotals, "recomputed_total", t.RecomputedTotal)
		var diff any
		if t.Difference != nil {
			diff = *t.Difference
		}
		w.row(sheetTotals, "difference", "", diff)
		w.row(sheetTotals, "status", "", string(t.Status))
	}

	items := DocumentLineItems(doc)
	w.sheet(sheetLineItems, []string{"Line", "Table", "Page", "Description", "Material ID", "Quantity", "Unit Price", "Total Price"}, []float64{8, 12, 8, 40, 20, 12, 14, 14})
	for _, it := range items {
		w.row(sheetLineItems, it.LineNumber, it.TableID, it.Page, it.Description, it.MaterialID.Selected,
			numberOrRaw(it.Quantity), numberOrRaw(it.UnitPrice), numberOrRaw(it.TotalPrice))
	}

	addrs := Addresses(doc)
	w.sheet(sheetAddresses, []string{"Label", "Page", "Address"}, []float64{12, 8, 60})
	labels := make([]string, 0, len(addrs))
	for l := range addrs {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		w.row(sheetAddresses, l, addrs[l].Page, addrs[l].Raw)
	}

	w.sheet(sheetAnomalies, []string{"Code", "Page", "Message"}, []float64{24, 8, 60})
	for _, a := range doc.Anomalies {
		var page any
		if a.Page != nil {
			page = *a.Page
		}
		w.row(sheetAnomalies, a.Code, page, a.Message)
	}

	for _, t := range doc.Tables {
		w.table(t)
	}
	if w.err != nil {
		return nil, fmt.Errorf("xlsx build: %w", w.err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"document", doc.Filename,
		"fields", fieldCount(doc),
		"line_items", len(items),
		"tables", len(doc.Tables),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// workbook tracks the next free row per sheet and keeps the first error.
type workbook struct {
	f    *excelize.File
	next map[string]int
	err  error
}

func (w *workbook) sheet(name string, headers []string, widths []float64) {
	if w.next == nil {
		w.next = map[string]int{}
	}
	if idx, _ := w.f.GetSheetIndex(name); idx == -1 {
		if _, err := w.f.NewSheet(name); err != nil && w.err == nil {
			w.err = err
			return
		}
	}
	w.next[name] = 1
	vals := make([]any, len(headers))
	for i, h := range headers {
		vals[i] = h
	}
	w.row(name, vals...)
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = w.f.SetColWidth(name, col, col, width)
	}
}

func (w *workbook) row(sheet string, vals ...any) {
	r := w.next[sheet]
	for i, v := range vals {
		cell, _ := excelize.CoordinatesToCellName(i+1, r)
		if err := w.f.SetCellValue(sheet, cell, v); err != nil && w.err == nil {
			w.err = err
		}
	}
	w.next[sheet] = r + 1
}

func (w *workbook) valueRow(sheet, name string, v *entity.NormalizedValue) {
	if v == nil {
		w.row(sheet, name)
		return
	}
	w.row(sheet, name, deref(v.Raw), deref(v.Normalized), v.ValueType, v.Parser, v.Confidence)
}

// table writes a table's cell grid to its own sheet named after its id.
func (w *workbook) table(t *entity.Table) {
	name := "Table " + t.ID
	if len(name) > 31 {
		name = name[:31]
	}
	w.sheet(name, nil, nil)
	w.next[name] = 1
	for r := 0; r < t.NRows; r++ {
		cells := t.Row(r)
		vals := make([]any, len(cells))
		for i, c := range cells {
			vals[i] = c
		}
		w.row(name, vals...)
	}
}

func numberOrRaw(v ItemValue) any {
	if v.Normalized != nil {
		return *v.Normalized
	}
	return v.Raw
}

func fieldCount(doc *entity.Document) int {
	if doc.Normalized == nil {
		return 0
	}
	return len(doc.Normalized.Fields)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
