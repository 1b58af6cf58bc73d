package server

import (
	"strings"

	"memoria/internal/models"

	"github.com/gofiber/fiber/v2"
)

type platformRequest struct {
	Name            string `json:"name"`
	APIAccessStatus bool   `json:"api_access_status"`
	PlatformURL     string `json:"platform_url"`
	IconURL         string `json:"icon_url"`
}

// GetPlatforms handles GET /api/platforms
func (s *Server) GetPlatforms(c *fiber.Ctx) error {
	repo := s.platformRepository()
	if repo == nil {
		return respondDegraded(c)
	}

	platforms, err := repo.List(c.Context())
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(platforms)
}

// CreatePlatform handles POST /api/platforms
func (s *Server) CreatePlatform(c *fiber.Ctx) error {
	repo := s.platformRepository()
	if repo == nil {
		return respondDegraded(c)
	}

	var req platformRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Name) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Platform name is required"))
	}

	platform := &models.Platform{
		Name:            strings.TrimSpace(req.Name),
		APIAccessStatus: req.APIAccessStatus,
		PlatformURL:     req.PlatformURL,
		IconURL:         req.IconURL,
	}
	if err := repo.Create(c.Context(), platform); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(platform)
}

// UpdatePlatform handles PUT /api/platforms/:id
func (s *Server) UpdatePlatform(c *fiber.Ctx) error {
	repo := s.platformRepository()
	if repo == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	platform, err := repo.GetByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	var req platformRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if strings.TrimSpace(req.Name) == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Platform name is required"))
	}

	platform.Name = strings.TrimSpace(req.Name)
	platform.APIAccessStatus = req.APIAccessStatus
	platform.PlatformURL = req.PlatformURL
	platform.IconURL = req.IconURL

	if err := repo.Update(c.Context(), platform); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(platform)
}

// DeletePlatform handles DELETE /api/platforms/:id. Distribution rows
// pointing at the platform are removed by the cascade.
func (s *Server) DeletePlatform(c *fiber.Ctx) error {
	repo := s.platformRepository()
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
	if err := repo.Delete(c.Context(), id); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Platform deleted"})
}
