package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	_ "golang.org/x/image/tiff"

	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
)

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// RecognizePage detects the text lines of one page image and recognizes each
// line crop. Lines keep the detector's order; a line that fails to
// recognize is skipped.
func (s *FileSource) RecognizePage(ctx context.Context, data []byte, langs []string) (entity.OCRPage, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return entity.OCRPage{}, fmt.Errorf("decode image: %w", err)
	}
	det, err := s.registry.Detector()
	if err != nil {
		return entity.OCRPage{}, err
	}
	rec, err := s.registry.Recognizer(langs)
	if err != nil {
		return entity.OCRPage{}, err
	}
	boxes, err := det.DetectLines(data)
	if err != nil {
		return entity.OCRPage{}, err
	}

	bounds := img.Bounds()
	page := entity.OCRPage{
		Width:  float64(bounds.Dx()),
		Height: float64(bounds.Dy()),
		Lines:  make([]entity.OCRLine, 0, len(boxes)),
	}
	for i, box := range boxes {
		if err := ctx.Err(); err != nil {
			return entity.OCRPage{}, err
		}
		crop, err := cropPNG(img, box)
		if err != nil {
			s.logger.Warn("engine.crop.failed", "line", i, "error", err)
			continue
		}
		text, conf, err := rec.Recognize(crop)
		if err != nil {
			s.logger.Warn("engine.recognize.failed", "line", i, "error", err)
			continue
		}
		c := conf
		page.Lines = append(page.Lines, entity.OCRLine{
			Text:       strings.TrimRight(text, "\r\n"),
			Confidence: &c,
			BBox: geom.NewBBox(
				float64(box.Min.X-bounds.Min.X), float64(box.Min.Y-bounds.Min.Y),
				float64(box.Max.X-bounds.Min.X), float64(box.Max.Y-bounds.Min.Y),
			),
		})
	}
	return page, nil
}

func cropPNG(img image.Image, box image.Rectangle) ([]byte, error) {
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("image type %T cannot be cropped", img)
	}
	r := box.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("line box %v outside image", box)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, si.SubImage(r)); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
