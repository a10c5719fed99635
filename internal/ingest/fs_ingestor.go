package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/async"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
)

// FSIngestor queues documents found on the local filesystem. A file whose
// content hash was already queued by this process is skipped.
type FSIngestor struct {
	queue     Enqueuer
	logger    *slog.Logger
	languages []string

	mu   sync.Mutex
	seen map[string]uuid.UUID
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(queue Enqueuer, languages []string, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		queue:     queue,
		logger:    logger,
		languages: languages,
		seen:      make(map[string]uuid.UUID),
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("ingest.abs.failed", "path", path, "error", err)
		return out, err
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.skip.extension", "path", abs, "ext", ext)
		return out, common.NewAppError("UNSUPPORTED_FORMAT", fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrUnsupportedFormat)
	}

	sum, err := hashFile(abs)
	if err != nil {
		i.logger.Error("ingest.hash.failed", "path", abs, "error", err)
		return out, err
	}
	out = IngestionResult{SourcePath: abs, HashHex: sum, FileExt: ext}

	i.mu.Lock()
	if id, ok := i.seen[sum]; ok {
		i.mu.Unlock()
		out.JobID = id
		out.Deduplicated = true
		i.logger.Info("ingest.dedup", "path", abs, "job_id", id)
		return out, nil
	}
	i.mu.Unlock()

	now := time.Now().UTC()
	id, err := i.queue.Enqueue(ctx, async.Job{
		Path:        abs,
		Languages:   i.languages,
		SubmittedAt: now,
		TraceID:     sum[:16],
	})
	if err != nil {
		return out, err
	}

	i.mu.Lock()
	i.seen[sum] = id
	i.mu.Unlock()

	out.JobID = id
	out.QueuedAt = now
	i.logger.Info("ingest.queued", "path", abs, "job_id", id)
	return out, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
