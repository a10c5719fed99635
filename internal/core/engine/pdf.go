package engine

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

// US Letter in points, used when a page carries no MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// Gaps between text runs, as multiples of the font size.
const (
	wordGapRatio   = 0.2
	columnGapRatio = 1.5
)

// pdfcpu names extracted images <base>_<page>_<obj>.<ext>.
var reExtractedImage = regexp.MustCompile(`_(\d+)_(\d+)\.[A-Za-z0-9]+$`)

// pageBox is a MediaBox in PDF user space.
type pageBox struct {
	llx, lly, urx, ury float64
}

func (b pageBox) width() float64  { return b.urx - b.llx }
func (b pageBox) height() float64 { return b.ury - b.lly }

func (s *FileSource) loadPDF(ctx context.Context, path string, langs []string) ([]entity.OCRPage, string, error) {
	pages, err := ReadPDFText(path, s.maxPages)
	if err == nil && hasLines(pages) {
		return pages, EnginePDFText, nil
	}
	if err != nil {
		s.logger.Warn("engine.pdf.text.failed", "path", path, "error", err)
	} else {
		s.logger.Info("engine.pdf.no_text_layer", "path", path)
	}
	pages, err = s.pdfImages(ctx, path, langs)
	if err != nil {
		return nil, "", err
	}
	return pages, constants.DefaultEngine, nil
}

// ReadPDFText reads the text layer of a PDF row by row. Coordinates are
// flipped to a top-left origin so they match image engines.
func ReadPDFText(path string, maxPages int) ([]entity.OCRPage, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}
	pages := make([]entity.OCRPage, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, entity.OCRPage{})
			continue
		}
		box := mediaBox(p)
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		page := entity.OCRPage{Width: box.width(), Height: box.height()}
		for _, row := range rows {
			if line, ok := assembleRow(row.Content, box); ok {
				page.Lines = append(page.Lines, line)
			}
		}
		pages = append(pages, page)
	}
	return pages, nil
}

func mediaBox(p pdf.Page) pageBox {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() >= 4 {
			b := pageBox{
				llx: mb.Index(0).Float64(),
				lly: mb.Index(1).Float64(),
				urx: mb.Index(2).Float64(),
				ury: mb.Index(3).Float64(),
			}
			if b.width() > 0 && b.height() > 0 {
				return b
			}
		}
	}
	return pageBox{urx: defaultPageWidth, ury: defaultPageHeight}
}

// assembleRow joins the text runs of one row. Wide gaps become two spaces
// so column structure survives into table detection.
func assembleRow(texts []pdf.Text, box pageBox) (entity.OCRLine, bool) {
	runs := make([]pdf.Text, 0, len(texts))
	for _, t := range texts {
		if t.S != "" {
			runs = append(runs, t)
		}
	}
	if len(runs) == 0 {
		return entity.OCRLine{}, false
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].X < runs[j].X })

	var b strings.Builder
	x1, x2 := math.Inf(1), math.Inf(-1)
	top, bottom := math.Inf(1), math.Inf(-1)
	prevEnd := runs[0].X
	for i, t := range runs {
		if i > 0 {
			want := gapSpaces(t.X-prevEnd, t.FontSize)
			have := len(b.String()) - len(strings.TrimRight(b.String(), " "))
			if want > have {
				b.WriteString(strings.Repeat(" ", want-have))
			}
		}
		b.WriteString(t.S)
		prevEnd = math.Max(prevEnd, t.X+t.W)

		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		x1 = math.Min(x1, t.X-box.llx)
		x2 = math.Max(x2, t.X+t.W-box.llx)
		top = math.Min(top, box.ury-t.Y-size)
		bottom = math.Max(bottom, box.ury-t.Y)
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return entity.OCRLine{}, false
	}
	conf := 1.0
	return entity.OCRLine{
		Text:       text,
		Confidence: &conf,
		BBox:       geom.NewBBox(x1, math.Max(top, 0), x2, bottom),
	}, true
}

func gapSpaces(gap, size float64) int {
	if size <= 0 {
		size = 10
	}
	switch {
	case gap >= columnGapRatio*size:
		return 2
	case gap >= wordGapRatio*size:
		return 1
	default:
		return 0
	}
}

func hasLines(pages []entity.OCRPage) bool {
	for _, p := range pages {
		if len(p.Lines) > 0 {
			return true
		}
	}
	return false
}

// pdfImages extracts embedded page images with pdfcpu and recognizes each
// one as a page.
func (s *FileSource) pdfImages(ctx context.Context, path string, langs []string) ([]entity.OCRPage, error) {
	dir, err := os.MkdirTemp("", "po-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}()

	if err := api.ExtractImagesFile(path, dir, nil, model.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("extract images: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read temp dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sortExtracted(names)
	if s.maxPages > 0 && len(names) > s.maxPages {
		names = names[:s.maxPages]
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("pdf has neither text nor images: %s", filepath.Base(path))
	}

	pages := make([]entity.OCRPage, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			s.logger.Warn("engine.pdf.image.read_failed", "image", name, "error", err)
			continue
		}
		page, err := s.RecognizePage(ctx, data, langs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("engine.pdf.image.skipped", "image", name, "error", err)
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// sortExtracted orders extracted image names by page, then object number.
func sortExtracted(names []string) {
	key := func(name string) (int, int, bool) {
		m := reExtractedImage.FindStringSubmatch(name)
		if m == nil {
			return 0, 0, false
		}
		page, _ := strconv.Atoi(m[1])
		obj, _ := strconv.Atoi(m[2])
		return page, obj, true
	}
	sort.SliceStable(names, func(i, j int) bool {
		pi, oi, iok := key(names[i])
		pj, oj, jok := key(names[j])
		if iok != jok {
			return iok
		}
		if !iok || pi == pj && oi == oj {
			return names[i] < names[j]
		}
		if pi != pj {
			return pi < pj
		}
		return oi < oj
	})
}
