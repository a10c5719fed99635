package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
	"github.com/joseph-ayodele/po-digitizer/internal/core/engine"
	"github.com/joseph-ayodele/po-digitizer/internal/core/pipeline"
	"github.com/joseph-ayodele/po-digitizer/internal/export"
	"github.com/joseph-ayodele/po-digitizer/internal/masterdata"
	"github.com/joseph-ayodele/po-digitizer/internal/repository"
	"github.com/joseph-ayodele/po-digitizer/internal/server"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		in      = flag.String("in", "", "document to structure: OCR JSON, PDF or image (required)")
		out     = flag.String("out", "", "output JSON path (optional, defaults to stdout)")
		xlsx    = flag.String("xlsx", "", "also write an XLSX workbook to this path")
		langs   = flag.String("lang", "", "recognition languages, e.g. eng+hin (defaults to OCR_LANGUAGES)")
		persist = flag.Bool("persist", false, "store the result in the configured database")
		inmem   = flag.Bool("inmem", false, "with --persist, use an in-memory SQLite database")
		timeout = flag.Duration("timeout", 2*time.Minute, "overall processing timeout")
	)
	flag.Parse()

	if *in == "" {
		printError("Error: --in is required\n")
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	if *inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = ""
	}
	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	// logs go to stderr so stdout stays clean for the result
	logger := common.NewLogger(os.Stderr, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var results repository.ResultRepository
	if *persist {
		db, err := server.ConnectDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		if db == nil {
			printError("Error: --persist needs DB_URL or --inmem\n")
			os.Exit(1)
		}
		defer server.CloseDB(db, logger)
		results = repository.NewResultRepository(db, logger)
	}

	registry := engine.NewRegistry(engine.TesseractFactory{
		TessdataPrefix: cfg.OCR.TessdataDir,
		DPI:            cfg.OCR.DPI,
	}, logger)
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Warn("engine close failed", "error", err)
		}
	}()
	source := engine.NewFileSource(registry, cfg.OCR.MaxPages, logger)

	md := masterdata.Load(masterdata.Paths{
		Vendors: cfg.MasterData.VendorsPath,
		SKUs:    cfg.MasterData.SKUsPath,
		UOMs:    cfg.MasterData.UOMsPath,
	}, logger)
	structurer := pipeline.NewStructurer(logger, pipeline.Config{
		HeaderRatio:     cfg.Structuring.HeaderRatio,
		FooterRatio:     cfg.Structuring.FooterRatio,
		ContextWindowPx: cfg.Structuring.ContextWindowPx,
		AnchorExcess:    cfg.Structuring.AnchorExcess,
		Languages:       cfg.Structuring.Languages,
	}, md)
	processor := core.NewProcessor(logger, source, structurer, results, cfg.OCR.Languages)

	var langList []string
	if *langs != "" {
		langList = strings.FieldsFunc(*langs, func(r rune) bool { return r == ',' || r == '+' })
	}

	outcome, err := processor.ProcessFile(ctx, *in, langList)
	if err != nil {
		printError("Error: %s\n", common.Message(err))
		logger.Error("structuring failed", "path", *in, "error", err)
		os.Exit(1)
	}

	if *out == "" {
		if _, err := os.Stdout.Write(append(outcome.ResultJSON, '\n')); err != nil {
			logger.Error("failed to write result", "error", err)
			os.Exit(1)
		}
	} else {
		if err := writeFile(*out, outcome.ResultJSON); err != nil {
			logger.Error("failed to write result", "path", *out, "error", err)
			os.Exit(1)
		}
		logger.Info("result written", "path", *out)
	}

	if *xlsx != "" {
		data, err := export.NewService(results, logger).DocumentXLSX(outcome.Document)
		if err != nil {
			logger.Error("failed to build xlsx", "error", err)
			os.Exit(1)
		}
		if err := writeFile(*xlsx, data); err != nil {
			logger.Error("failed to write xlsx", "path", *xlsx, "error", err)
			os.Exit(1)
		}
		logger.Info("xlsx written", "path", *xlsx)
	}

	if outcome.Stored != nil {
		logger.Info("result stored", "result_id", outcome.Stored.ID, "replaced", outcome.Replaced)
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
