package server

import (
	"memoria/internal/models"
	"memoria/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// GetImages handles GET /api/images
func (s *Server) GetImages(c *fiber.Ctx) error {
	repo := s.imageRepository()
	if repo == nil {
		return respondDegraded(c)
	}

	p := parsePagination(c, 20)
	images, err := repo.List(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(images)
}

// CreateImage handles POST /api/images. Creating an image with a URL
// that already exists returns the existing row instead of duplicating it.
func (s *Server) CreateImage(c *fiber.Ctx) error {
	repo := s.imageRepository()
	if repo == nil {
		return respondDegraded(c)
	}

	var req struct {
		URL    string `json:"url"`
		Source string `json:"source"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.ValidateImageURL(req.URL); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(err.Error()))
	}

	existing, err := repo.GetByURL(c.Context(), req.URL)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	if existing != nil {
		return c.JSON(existing)
	}

	source := req.Source
	switch source {
	case "":
		source = models.ImageSourceUpload
	case models.ImageSourceUpload, models.ImageSourceSearch:
	default:
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Image source must be "+
				models.ImageSourceUpload+" or "+models.ImageSourceSearch))
	}
	image := &models.Image{URL: req.URL, Source: source}
	if err := repo.Create(c.Context(), image); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(image)
}

// DeleteImage handles DELETE /api/images/:id. An image still referenced
// by a post cannot be removed directly; unlink it from its posts first.
func (s *Server) DeleteImage(c *fiber.Ctx) error {
	repo := s.imageRepository()
	if repo == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := repo.GetByID(c.Context(), id); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	refs, err := repo.CountPostRefs(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	if refs > 0 {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Image is referenced by one or more posts"))
	}

	if err := repo.Delete(c.Context(), id); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Image deleted"})
}
