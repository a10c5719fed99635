package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportResult renders a stored result as an XLSX workbook.
func (s *Server) ExportResult(c *gin.Context) {
	if s.deps.Results == nil {
		unavailable(c, "result store")
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	xlsx, err := s.deps.Exporter.ResultXLSX(c.Request.Context(), id)
	if err != nil {
		s.log(c).Error("export.xlsx.failed", "result_id", id, "err", err)
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+id.String()+`.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, xlsx)
}
