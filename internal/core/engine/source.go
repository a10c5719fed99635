package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// EnginePDFText marks lines read from a PDF text layer.
const EnginePDFText = "pdf-text"

// Source turns a document on disk into engine line output.
type Source interface {
	Load(ctx context.Context, path string, langs []string) (entity.OCRInput, error)
}

// FileSource picks a strategy from the file extension: OCR JSON is read
// as-is, PDFs use their text layer and fall back to embedded page images,
// and images go through detection and recognition.
type FileSource struct {
	registry *Registry
	logger   *slog.Logger
	maxPages int
}

func NewFileSource(registry *Registry, maxPages int, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{registry: registry, logger: logger, maxPages: maxPages}
}

func (s *FileSource) Load(ctx context.Context, path string, langs []string) (entity.OCRInput, error) {
	start := time.Now()
	ext := filepath.Ext(path)
	in := entity.OCRInput{
		Filename:  filepath.Base(path),
		Languages: NormalizeLanguages(langs),
	}

	var err error
	switch constants.MapExtToFormat(ext) {
	case constants.FormatOCRJSON:
		in, err = ReadOCRJSON(path)
	case constants.FormatPDF:
		in.Pages, in.Engine, err = s.loadPDF(ctx, path, in.Languages)
	case constants.FormatImage:
		in.Engine = constants.DefaultEngine
		in.Pages, err = s.loadImage(ctx, path, in.Languages)
	default:
		s.logger.Error("unsupported source extension", "extension", ext)
		return entity.OCRInput{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	if err != nil {
		return entity.OCRInput{}, err
	}
	s.logger.Info("engine.load.ok",
		"path", path,
		"engine", in.Engine,
		"pages", len(in.Pages),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return in, nil
}

// ReadOCRJSON reads pre-recognised engine output.
func ReadOCRJSON(path string) (entity.OCRInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.OCRInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	var in entity.OCRInput
	if err := json.Unmarshal(data, &in); err != nil {
		return entity.OCRInput{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if in.Filename == "" {
		in.Filename = filepath.Base(path)
	}
	return in, nil
}

func (s *FileSource) loadImage(ctx context.Context, path string, langs []string) ([]entity.OCRPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	page, err := s.RecognizePage(ctx, data, langs)
	if err != nil {
		return nil, err
	}
	return []entity.OCRPage{page}, nil
}
