package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/ingest"
)

type ingestRequest struct {
	Path       string `json:"path"`
	RootPath   string `json:"root_path"`
	SkipHidden *bool  `json:"skip_hidden"`
}

type ingestItem struct {
	JobID          string `json:"job_id,omitempty"`
	Deduplicated   bool   `json:"deduplicated"`
	ContentHashHex string `json:"content_hash_hex,omitempty"`
	FileExt        string `json:"file_ext,omitempty"`
	QueuedAt       string `json:"queued_at,omitempty"`
	SourcePath     string `json:"source_path"`
	Error          string `json:"error,omitempty"`
}

func toItem(r ingest.IngestionResult) ingestItem {
	item := ingestItem{
		Deduplicated:   r.Deduplicated,
		ContentHashHex: r.HashHex,
		FileExt:        r.FileExt,
		SourcePath:     r.SourcePath,
		Error:          r.Err,
	}
	if r.JobID != uuid.Nil {
		item.JobID = r.JobID.String()
	}
	if !r.QueuedAt.IsZero() {
		item.QueuedAt = r.QueuedAt.UTC().Format(time.RFC3339)
	}
	return item
}

// Ingest queues a server-side file (path) or every supported file under a
// directory (root_path).
func (s *Server) Ingest(c *gin.Context) {
	if s.deps.Ingestor == nil {
		unavailable(c, "ingestor")
		return
	}
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, common.InvalidArgumentError("body must be JSON"))
		return
	}
	path := strings.TrimSpace(req.Path)
	root := strings.TrimSpace(req.RootPath)
	if (path == "") == (root == "") {
		s.log(c).Error("ingest request needs exactly one of path or root_path")
		writeError(c, common.InvalidArgumentError("exactly one of path or root_path is required"))
		return
	}

	if path != "" {
		s.log(c).Info("starting file ingest", "path", path)
		r, err := s.deps.Ingestor.IngestPath(c.Request.Context(), path)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, toItem(r))
		return
	}

	// default skipHidden := true when field not present
	skipHidden := true
	if req.SkipHidden != nil {
		skipHidden = *req.SkipHidden
	}
	s.log(c).Info("starting directory ingest", "root", root, "skip_hidden", skipHidden)
	results, stats, err := s.deps.Ingestor.IngestDirectory(c.Request.Context(), root, skipHidden)
	if err != nil {
		writeError(c, common.InvalidArgumentErrorf("ingest directory: %v", err))
		return
	}
	items := make([]ingestItem, 0, len(results))
	for _, r := range results {
		items = append(items, toItem(r))
	}
	c.JSON(http.StatusAccepted, gin.H{
		"scanned":      stats.Scanned,
		"matched":      stats.Matched,
		"succeeded":    stats.Succeeded,
		"deduplicated": stats.Deduplicated,
		"failed":       stats.Failed,
		"results":      items,
	})
}

// GetJob reports the state of a queued document.
func (s *Server) GetJob(c *gin.Context) {
	if s.deps.Queue == nil {
		unavailable(c, "job queue")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	state, found := s.deps.Queue.Status(id)
	if !found {
		writeError(c, common.NotFoundError("job not found"))
		return
	}
	c.JSON(http.StatusOK, state)
}
