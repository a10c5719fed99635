package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/po-digitizer/internal/common"
)

// GetResult returns the stored document JSON.
func (s *Server) GetResult(c *gin.Context) {
	if s.deps.Results == nil {
		unavailable(c, "result store")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	stored, err := s.deps.Results.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("X-Result-Status", stored.Status)
	c.Data(http.StatusOK, "application/json; charset=utf-8", stored.ResultJSON)
}

// ListResults lists stored runs for one filename, newest first.
func (s *Server) ListResults(c *gin.Context) {
	if s.deps.Results == nil {
		unavailable(c, "result store")
		return
	}
	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		writeError(c, common.InvalidArgumentError("filename is required"))
		return
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(c, common.InvalidArgumentError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	rows, err := s.deps.Results.ListByFilename(c.Request.Context(), filename, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	items := make([]gin.H, 0, len(rows))
	for _, r := range rows {
		items = append(items, gin.H{
			"id":               r.ID,
			"filename":         r.Filename,
			"layout_signature": r.LayoutSignature,
			"vendor_guess":     r.VendorGuess,
			"totals_status":    r.TotalsStatus,
			"status":           r.Status,
			"created_at":       r.CreatedAt,
			"updated_at":       r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": items})
}

// SaveCorrection stores a reviewer's corrected field values. The body is a
// JSON object keyed by field name.
func (s *Server) SaveCorrection(c *gin.Context) {
	if s.deps.Results == nil {
		unavailable(c, "result store")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var corrected map[string]any
	if err := c.ShouldBindJSON(&corrected); err != nil || len(corrected) == 0 {
		writeError(c, common.InvalidArgumentError("body must be a non-empty JSON object of corrected fields"))
		return
	}

	corr, err := s.deps.Results.SaveCorrection(c.Request.Context(), id, corrected)
	if err != nil {
		writeError(c, err)
		return
	}
	s.log(c).Info("correction saved", "result_id", id, "changed", len(corr.ChangedFields))
	c.JSON(http.StatusCreated, corr)
}

func (s *Server) ListCorrections(c *gin.Context) {
	if s.deps.Results == nil {
		unavailable(c, "result store")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := s.deps.Results.GetByID(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	list, err := s.deps.Results.ListCorrections(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		c.JSON(http.StatusOK, gin.H{"corrections": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"corrections": list})
}
