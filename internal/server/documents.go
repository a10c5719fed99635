package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-digitizer/internal/async"
	"github.com/joseph-ayodele/po-digitizer/internal/common"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

// StructureDocument accepts either engine output as JSON or a document
// upload (multipart field "file"). Uploads with async=true are queued and
// answered with 202 and a job id.
func (s *Server) StructureDocument(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		s.structureUpload(c)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxUploadBytes)
	var in entity.OCRInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.log(c).Warn("structure request body invalid", "error", err)
		writeError(c, common.InvalidArgumentErrorf("body must be OCR engine output: %v", err))
		return
	}
	if strings.TrimSpace(in.Filename) == "" {
		in.Filename = "document"
	}
	if langs := splitLanguages(c.Query("languages")); len(langs) > 0 {
		in.Languages = langs
	}

	ctx, cancel := common.WithTimeout(common.WithDocument(c.Request.Context(), in.Filename), s.opts.RequestTimeout)
	defer cancel()
	out, err := s.deps.Processor.ProcessInput(ctx, in)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeOutcome(c, out)
}

func (s *Server) structureUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		writeError(c, common.InvalidArgumentError("file missing"))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	v := common.NewValidator().Field("file", name, common.Required, common.SupportedExtension)
	if err := common.ValidateAndReturnError(v); err != nil {
		writeError(c, err)
		return
	}
	if header.Size > s.opts.MaxUploadBytes {
		writeError(c, common.InvalidArgumentErrorf("file exceeds %d bytes", s.opts.MaxUploadBytes))
		return
	}

	// one directory per upload keeps the original name as the document filename
	dir := filepath.Join(s.opts.UploadDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log(c).Error("upload dir create failed", "dir", dir, "error", err)
		writeError(c, common.InternalError("could not store upload"))
		return
	}
	path := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(header, path); err != nil {
		s.log(c).Error("upload save failed", "path", path, "error", err)
		_ = os.RemoveAll(dir)
		writeError(c, common.InternalError("could not store upload"))
		return
	}
	langs := splitLanguages(c.PostForm("languages"))

	if queued, _ := strconv.ParseBool(c.PostForm("async")); queued {
		s.enqueueUpload(c, path, langs)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	ctx, cancel := common.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()
	out, err := s.deps.Processor.ProcessFile(ctx, path, langs)
	if err != nil {
		writeError(c, err)
		return
	}
	s.writeOutcome(c, out)
}

// enqueueUpload hands a stored upload to the worker queue. The file stays in
// the upload directory for the worker to read.
func (s *Server) enqueueUpload(c *gin.Context, path string, langs []string) {
	if s.deps.Queue == nil {
		_ = os.RemoveAll(filepath.Dir(path))
		unavailable(c, "job queue")
		return
	}
	id, err := s.deps.Queue.Enqueue(c.Request.Context(), async.Job{
		Path:        path,
		Languages:   langs,
		SubmittedAt: time.Now().UTC(),
		TraceID:     common.RequestIDFromContext(c.Request.Context()),
	})
	if err != nil {
		_ = os.RemoveAll(filepath.Dir(path))
		if errors.Is(err, common.ErrQueueFull) {
			writeError(c, common.NewAppError("QUEUE_FULL", "queue is full, retry later", err))
			return
		}
		writeError(c, err)
		return
	}
	c.Header("Location", "/api/v1/jobs/"+id.String())
	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "status": "QUEUED"})
}

func (s *Server) writeOutcome(c *gin.Context, out *core.Outcome) {
	if out.Stored != nil {
		c.Header("X-Result-ID", out.Stored.ID.String())
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out.ResultJSON)
}

func splitLanguages(v string) []string {
	return strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' || r == ' ' })
}
