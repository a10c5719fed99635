package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
	"github.com/joseph-ayodele/po-digitizer/internal/core/async"
	"github.com/joseph-ayodele/po-digitizer/internal/core/engine"
	"github.com/joseph-ayodele/po-digitizer/internal/core/pipeline"
	"github.com/joseph-ayodele/po-digitizer/internal/export"
	"github.com/joseph-ayodele/po-digitizer/internal/ingest"
	"github.com/joseph-ayodele/po-digitizer/internal/masterdata"
	repo "github.com/joseph-ayodele/po-digitizer/internal/repository"
	svc "github.com/joseph-ayodele/po-digitizer/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := svc.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	var results repo.ResultRepository
	if db != nil {
		defer svc.CloseDB(db, logger)
		if err := svc.PingDB(ctx, db, logger, 5*time.Second); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}
		results = repo.NewResultRepository(db, logger)
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

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.ProcessTimeout),
	)
	ingestor := ingest.NewFSIngestor(queue, cfg.OCR.Languages, logger)

	if len(cfg.Ingest.WatchDirs) > 0 {
		go func() {
			err := ingestor.Watch(ctx, ingest.WatchConfig{
				Roots:       cfg.Ingest.WatchDirs,
				InitialScan: cfg.Ingest.InitialScan,
				Debounce:    cfg.Ingest.Debounce,
				SkipHidden:  cfg.Ingest.SkipHidden,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("directory watcher stopped", "error", err)
			}
		}()
	}

	api := svc.New(svc.Deps{
		Processor: processor,
		Queue:     queue,
		Results:   results,
		Exporter:  export.NewService(results, logger),
		Ingestor:  ingestor,
		DB:        db,
	}, svc.Options{
		UploadDir:      cfg.Server.UploadDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		RequestTimeout: cfg.Queue.ProcessTimeout,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health service
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	// empty string means overall server health
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("po-digitizer listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped")
}
