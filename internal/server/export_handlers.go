package server

import (
	"memoria/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ExportExcel handles GET /api/export/excel. The workbook is written to
// the export directory and streamed back as an attachment; a background
// sweep removes the file after the retention window.
func (s *Server) ExportExcel(c *fiber.Ctx) error {
	svc := s.exports()
	if svc == nil {
		return respondDegraded(c)
	}

	path, downloadName, err := svc.Export(c.Context(), c.Query("filename"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Download(path, downloadName)
}
