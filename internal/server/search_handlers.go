package server

import (
	"memoria/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Search handles GET /api/search?q=. The aggregated organic-result
// summary is meant to be fed back into the generate endpoint.
func (s *Server) Search(c *fiber.Ctx) error {
	if s.searchClient == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUpstreamError("search", fiber.ErrServiceUnavailable))
	}

	result, err := s.searchClient.Web(c.Context(), c.Query("q"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(result)
}

// SearchImages handles GET /api/search/images?q=
func (s *Server) SearchImages(c *fiber.Ctx) error {
	if s.searchClient == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUpstreamError("search", fiber.ErrServiceUnavailable))
	}

	thumbnails, err := s.searchClient.Images(c.Context(), c.Query("q"))
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{
		"q":          c.Query("q"),
		"thumbnails": thumbnails,
	})
}

// Generate handles POST /api/generate. The client supplies the search
// summary it got back from /api/search so the model can ground the
// memorial text in real snippets.
func (s *Server) Generate(c *fiber.Ctx) error {
	if s.aiClient == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUpstreamError("generate", fiber.ErrServiceUnavailable))
	}

	var req struct {
		Query   string `json:"q"`
		Summary string `json:"summary"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	text, err := s.aiClient.Generate(c.Context(), req.Query, req.Summary)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"response": text})
}
