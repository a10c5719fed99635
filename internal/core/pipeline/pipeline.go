package pipeline

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/internal/core/extract"
	"github.com/joseph-ayodele/po-digitizer/internal/core/fingerprint"
	"github.com/joseph-ayodele/po-digitizer/internal/core/layout"
	"github.com/joseph-ayodele/po-digitizer/internal/core/normalize"
	"github.com/joseph-ayodele/po-digitizer/internal/core/ocr"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/masterdata"
)

// Config tunes the structuring stages. Zero values select the defaults.
type Config struct {
	HeaderRatio     float64
	FooterRatio     float64
	ContextWindowPx int
	AnchorExcess    int
	Languages       []string
}

// Structurer runs the structuring stages over one document at a time. It
// holds no per-document state and is safe for concurrent use.
type Structurer struct {
	logger     *slog.Logger
	cfg        Config
	masterData *masterdata.Tables
}

func NewStructurer(logger *slog.Logger, cfg Config, md *masterdata.Tables) *Structurer {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Structurer{logger: logger, cfg: cfg, masterData: md}
}

// Structure turns engine lines into a structured document. Content problems
// degrade individual fields and never fail the run.
func (s *Structurer) Structure(in entity.OCRInput) *entity.Document {
	start := time.Now()
	stages := map[string]float64{}
	timed := func(name string, fn func()) {
		t0 := time.Now()
		fn()
		stages[name] = float64(time.Since(t0).Microseconds()) / 1000
	}

	var doc *entity.Document
	timed("tokens", func() { doc = ocr.BuildDocument(in) })
	doc.RunID = uuid.New()
	doc.CreatedAt = start.UTC()

	languages := s.cfg.Languages
	if len(in.Languages) > 0 {
		languages = in.Languages
	}

	timed("hints", func() { doc.Hints = layout.ApplyHints(doc.Tokens).DocumentHints() })
	timed("zones", func() {
		doc.Zones = layout.SegmentZones(doc.Pages, layout.ZoneConfig{
			HeaderRatio: s.cfg.HeaderRatio,
			FooterRatio: s.cfg.FooterRatio,
		})
	})
	timed("anchors", func() {
		doc.Anchors = layout.DetectAnchors(doc, doc.Zones, layout.AnchorConfig{ContextWindowPx: s.cfg.ContextWindowPx})
	})
	timed("tables", func() { layout.DetectTables(doc) })
	timed("candidates", func() { doc.Candidates = extract.ExtractCandidates(doc) })
	timed("normalize", func() { doc.Normalized = normalize.Document(doc.Candidates, doc.Hints, doc.Tables) })
	timed("fingerprint", func() {
		doc.Fingerprint = fingerprint.Build(doc, languages)
		s.canonicalizeVendor(doc)
		doc.Anomalies = fingerprint.Anomalies(doc, layout.Labels(), s.cfg.AnchorExcess)
	})
	doc.MasterData = s.masterData.Summary()
	doc.EnsureCollections()

	nCands := 0
	for _, c := range doc.Candidates {
		nCands += len(c)
	}
	doc.Metrics = &entity.Metrics{
		StageMillis: stages,
		Tokens:      len(doc.Tokens),
		Anchors:     len(doc.Anchors),
		Tables:      len(doc.Tables),
		Candidates:  nCands,
	}

	s.logger.Info("pipeline.structure.ok",
		"document", doc.Filename,
		"run_id", doc.RunID,
		"pages", len(doc.Pages),
		"tokens", len(doc.Tokens),
		"anchors", len(doc.Anchors),
		"tables", len(doc.Tables),
		"anomalies", len(doc.Anomalies),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc
}

func (s *Structurer) canonicalizeVendor(doc *entity.Document) {
	fp := doc.Fingerprint
	if fp == nil || fp.VendorGuess == nil {
		return
	}
	canonical, ok := s.masterData.ResolveVendor(*fp.VendorGuess)
	if !ok || canonical == *fp.VendorGuess {
		return
	}
	s.logger.Debug("vendor canonicalized", "raw", *fp.VendorGuess, "canonical", canonical)
	fp.VendorRaw = fp.VendorGuess
	fp.VendorGuess = &canonical
}
