package server

import (
	"memoria/internal/models"
	"memoria/internal/service"

	"github.com/gofiber/fiber/v2"
)

func currentUserID(c *fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("userID").(uint)
	return userID, ok
}

// GetMyProfile handles GET /api/auth/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	svc := s.users()
	if svc == nil {
		return respondDegraded(c)
	}

	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	user, err := svc.GetUserByID(c.Context(), userID)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/auth/users/me
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	svc := s.users()
	if svc == nil {
		return respondDegraded(c)
	}

	userID, ok := currentUserID(c)
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authentication required"))
	}

	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := svc.UpdateProfile(c.Context(), service.UpdateProfileInput{
		UserID:   userID,
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(user)
}

// GetAllUsers handles GET /api/auth/users
func (s *Server) GetAllUsers(c *fiber.Ctx) error {
	svc := s.users()
	if svc == nil {
		return respondDegraded(c)
	}

	p := parsePagination(c, 20)
	users, err := svc.ListUsers(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(users)
}

// GetUserProfile handles GET /api/auth/users/:id
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	svc := s.users()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := svc.GetUserByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/auth/users/:id. Posts created by the
// deleted user stay behind with their attribution nulled.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	svc := s.users()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := svc.DeleteUser(c.Context(), id); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "User deleted"})
}
