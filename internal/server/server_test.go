package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/po-digitizer/constants"
	"github.com/joseph-ayodele/po-digitizer/internal/core"
	queue "github.com/joseph-ayodele/po-digitizer/internal/core/async"
	"github.com/joseph-ayodele/po-digitizer/internal/core/pipeline"
	"github.com/joseph-ayodele/po-digitizer/internal/entity"
	"github.com/joseph-ayodele/po-digitizer/internal/geom"
	"github.com/joseph-ayodele/po-digitizer/internal/repository"
)

type fixedSource struct{}

func (fixedSource) Load(_ context.Context, path string, langs []string) (entity.OCRInput, error) {
	in := orderInput()
	in.Filename = filepath.Base(path)
	in.Languages = langs
	return in, nil
}

func orderInput() entity.OCRInput {
	line := func(text string, y float64) entity.OCRLine {
		return entity.OCRLine{Text: text, BBox: geom.NewBBox(40, y, 900, y+30)}
	}
	return entity.OCRInput{
		Filename: "po-88214.json",
		Pages: []entity.OCRPage{{
			Width: 1000, Height: 1400,
			Lines: []entity.OCRLine{
				line("PURCHASE ORDER PO No: PO-88214", 80),
				line("Vendor: Globex", 140),
				line("Total: $55.00", 1300),
			},
		}},
	}
}

type harness struct {
	router    *gin.Engine
	uploadDir string
	queue     *queue.ProcessorQueue
}

func newHarness(t *testing.T, withQueue bool) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := repository.OpenSQLite(ctx, "", logger)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, logger) })
	require.NoError(t, repository.Migrate(ctx, db))
	results := repository.NewResultRepository(db, logger)

	proc := core.NewProcessor(logger, fixedSource{}, pipeline.NewStructurer(logger, pipeline.Config{}, nil), results, []string{"eng"})
	h := &harness{uploadDir: t.TempDir()}
	deps := Deps{Processor: proc, Results: results, DB: db}
	if withQueue {
		h.queue = queue.NewProcessorQueue(proc, logger, queue.WithWorkers(1))
		t.Cleanup(func() { h.queue.Shutdown(context.Background()) })
		deps.Queue = h.queue
	}
	h.router = New(deps, Options{UploadDir: h.uploadDir, RequestTimeout: 10 * time.Second}, logger).Router()
	return h
}

func (h *harness) do(method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, name string, fields map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte("scan bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

func TestStructureJSONAndResultRoutes(t *testing.T) {
	h := newHarness(t, false)
	body, err := json.Marshal(orderInput())
	require.NoError(t, err)

	rec := h.do(http.MethodPost, "/api/v1/documents/structure", body, "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resultID := rec.Header().Get("X-Result-ID")
	require.NotEmpty(t, resultID)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "po-88214.json", doc["filename"])
	assert.Contains(t, doc, "fingerprint")

	rec = h.do(http.MethodGet, "/api/v1/results/"+resultID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(constants.JobStatusStructured), rec.Header().Get("X-Result-Status"))

	rec = h.do(http.MethodGet, "/api/v1/results?filename=po-88214.json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Results, 1)
	assert.Equal(t, resultID, listed.Results[0]["id"])

	rec = h.do(http.MethodGet, "/api/v1/results/"+resultID+"/xlsx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = h.do(http.MethodPost, "/api/v1/results/"+resultID+"/corrections", []byte(`{"po_number":"PO-99999"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var corr entity.Correction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &corr))
	assert.Equal(t, []string{"po_number"}, corr.ChangedFields)

	rec = h.do(http.MethodGet, "/api/v1/results/"+resultID+"/corrections", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PO-99999")

	rec = h.do(http.MethodGet, "/api/v1/results/"+resultID, nil, "")
	assert.Equal(t, string(constants.JobStatusCorrected), rec.Header().Get("X-Result-Status"))
}

func TestResultErrors(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodGet, "/api/v1/results/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/results/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/results", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/results/"+uuid.NewString()+"/corrections", []byte(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/documents/structure", []byte(`{"pages": 7}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := orderInput()
	bad.Pages[0].Height = -1
	body, _ := json.Marshal(bad)
	rec = h.do(http.MethodPost, "/api/v1/documents/structure", body, "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "pages[0].height")
}

func TestStructureUpload(t *testing.T) {
	h := newHarness(t, false)

	body, ct := upload(t, "scan-42.png", map[string]string{"languages": "eng+hin"})
	rec := h.do(http.MethodPost, "/api/v1/documents/structure", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "scan-42.png", doc["filename"])

	entries, err := os.ReadDir(h.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	body, ct = upload(t, "order.docx", nil)
	rec = h.do(http.MethodPost, "/api/v1/documents/structure", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = upload(t, "scan-43.png", map[string]string{"async": "true"})
	rec = h.do(http.MethodPost, "/api/v1/documents/structure", body, ct)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStructureUploadAsync(t *testing.T) {
	h := newHarness(t, true)

	body, ct := upload(t, "scan-7.pdf", map[string]string{"async": "true"})
	rec := h.do(http.MethodPost, "/api/v1/documents/structure", body, ct)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	var state struct {
		Status   string `json:"status"`
		ResultID string `json:"result_id"`
	}
	require.Eventually(t, func() bool {
		rec := h.do(http.MethodGet, "/api/v1/jobs/"+accepted.JobID, nil, "")
		if rec.Code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(rec.Body.Bytes(), &state)
		return state.Status == string(constants.JobStatusStructured)
	}, 5*time.Second, 10*time.Millisecond)
	require.NotEmpty(t, state.ResultID)

	rec = h.do(http.MethodGet, "/api/v1/results/"+state.ResultID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndUnconfiguredRoutes(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)

	rec = h.do(http.MethodPost, "/api/v1/ingest", []byte(`{"path":"/tmp/po.pdf"}`), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
