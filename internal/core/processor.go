package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core/engine"
	"github.com/joseph-ayodele/po-digitizer/internal/core/pipeline"
	"github.com/joseph-ayodele/po-digitizer/internal/core/schema"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/repository"
)

// Outcome is what one processed document produced.
type Outcome struct {
	Document   *entity.Document
	ResultJSON []byte
	// Stored is nil when no result store is configured.
	Stored   *entity.StoredResult
	Replaced bool
}

// Processor coordinates line extraction, structuring, contract validation
// and persistence for one document at a time.
type Processor struct {
	logger     *slog.Logger
	source     engine.Source
	structurer *pipeline.Structurer
	results    repository.ResultRepository
	languages  []string
}

func NewProcessor(
	logger *slog.Logger,
	source engine.Source,
	structurer *pipeline.Structurer,
	results repository.ResultRepository,
	languages []string,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:     logger,
		source:     source,
		structurer: structurer,
		results:    results,
		languages:  languages,
	}
}

// ProcessFile loads a document from disk and structures it. langs overrides
// the configured recognition languages when non-empty.
func (p *Processor) ProcessFile(ctx context.Context, path string, langs []string) (*Outcome, error) {
	ext := filepath.Ext(path)
	if constants.MapExtToFormat(ext) == "" {
		return nil, common.NewAppError("UNSUPPORTED_FORMAT", fmt.Sprintf("unsupported extension %q", ext), common.ErrUnsupportedFormat)
	}
	if len(langs) == 0 {
		langs = p.languages
	}
	ctx = common.WithDocument(ctx, filepath.Base(path))
	log := common.LoggerFromContext(ctx, p.logger)

	start := time.Now()
	in, err := p.source.Load(ctx, path, langs)
	if err != nil {
		log.Error("processor.load.failed", "path", path, "error", err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, common.NewAppError("LOAD_FAILED", "could not read document lines", err)
	}
	log.Debug("processor load success", "pages", len(in.Pages), "engine", in.Engine, "elapsed_ms", time.Since(start).Milliseconds())
	return p.ProcessInput(ctx, in)
}

// ProcessInput structures engine output that is already in memory.
func (p *Processor) ProcessInput(ctx context.Context, in entity.OCRInput) (*Outcome, error) {
	if err := common.ValidateOCRInput(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(in.Languages) == 0 {
		in.Languages = p.languages
	}
	log := common.LoggerFromContext(ctx, p.logger)

	doc := p.structurer.Structure(in)
	if err := ctx.Err(); err != nil {
		log.Warn("processor.structure.abandoned", "run_id", doc.RunID, "error", err)
		return nil, err
	}

	data, err := schema.Validate(doc)
	if err != nil {
		log.Error("processor.schema.failed", "run_id", doc.RunID, "error", err)
		return nil, common.NewAppError("SCHEMA_ERROR", "structured result failed contract validation", errors.Join(common.ErrValidation, err))
	}
	out := &Outcome{Document: doc, ResultJSON: data}

	if p.results != nil {
		stored, replaced, err := p.results.Save(ctx, doc, data)
		if err != nil {
			log.Error("processor.save.failed", "run_id", doc.RunID, "error", err)
			return nil, err
		}
		out.Stored = stored
		out.Replaced = replaced
	}

	log.Info("processor.document.ok",
		"run_id", doc.RunID,
		"filename", doc.Filename,
		"anomalies", len(doc.Anomalies),
		"stored", out.Stored != nil,
		"replaced", out.Replaced,
	)
	return out, nil
}
