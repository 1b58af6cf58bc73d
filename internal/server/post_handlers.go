package server

import (
	"memoria/internal/models"
	"memoria/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postRequest is the shared body for create and update. The images and
// platforms arrays always describe the COMPLETE desired set; the server
// replaces the previous associations wholesale.
type postRequest struct {
	Name        string   `json:"name"`
	DateOfDeath string   `json:"date_of_death"`
	Content     string   `json:"content"`
	CreatedBy   *uint    `json:"created_by"`
	Images      []string `json:"images"`
	Platforms   []uint   `json:"platforms"`
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	p := parsePagination(c, 20)
	posts, err := svc.ListPosts(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := svc.GetPost(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(post)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	createdBy := req.CreatedBy
	if createdBy == nil {
		if userID, ok := c.Locals("userID").(uint); ok {
			createdBy = &userID
		}
	}

	post, err := svc.CreatePost(c.Context(), service.CreatePostInput{
		Name:        req.Name,
		DateOfDeath: req.DateOfDeath,
		Content:     req.Content,
		CreatedBy:   createdBy,
		ImageURLs:   req.Images,
		PlatformIDs: req.Platforms,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "Post created",
		"post_id": post.ID,
		"post":    post,
	})
}

// UpdatePost handles PUT /api/posts/:id. The update is permissive: a
// missing id writes nothing and still returns success, matching the
// delete-then-reinsert replace semantics of the association sets.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := svc.UpdatePost(c.Context(), service.UpdatePostInput{
		PostID:      id,
		Name:        req.Name,
		DateOfDeath: req.DateOfDeath,
		Content:     req.Content,
		CreatedBy:   req.CreatedBy,
		ImageURLs:   req.Images,
		PlatformIDs: req.Platforms,
	}); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}

	return c.JSON(fiber.Map{
		"status":  "Post updated",
		"post_id": id,
	})
}

// DeletePost handles DELETE /api/posts/:id. Idempotent.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := svc.DeletePost(c.Context(), id); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Post deleted"})
}

// GetPostImages handles GET /api/posts/:id/images
func (s *Server) GetPostImages(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	images, err := svc.GetPostImages(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(images)
}

// GetPostPlatforms handles GET /api/posts/:id/platforms
func (s *Server) GetPostPlatforms(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	platforms, err := svc.GetPostPlatforms(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(platforms)
}

// ReplacePostPlatforms handles PUT /api/posts/:id/platforms
func (s *Server) ReplacePostPlatforms(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		PlatformIDs []uint `json:"platform_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := svc.ReplacePlatforms(c.Context(), id, req.PlatformIDs); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Platforms replaced"})
}

// AddPostPlatform handles POST /api/posts/:id/platforms/:platformId.
// Idempotent: re-adding an existing association succeeds.
func (s *Server) AddPostPlatform(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	platformID, err := s.parseID(c, "platformId")
	if err != nil {
		return nil
	}

	if err := svc.AddPlatform(c.Context(), id, platformID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Post assigned to platform"})
}

// RemovePostPlatform handles DELETE /api/posts/:id/platforms/:platformId
func (s *Server) RemovePostPlatform(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	platformID, err := s.parseID(c, "platformId")
	if err != nil {
		return nil
	}

	if err := svc.RemovePlatform(c.Context(), id, platformID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Post unassigned from platform"})
}

// UnlinkPostImage handles DELETE /api/posts/:id/images/:imageId.
// Dropping the image's last reference collects the image row itself.
func (s *Server) UnlinkPostImage(c *fiber.Ctx) error {
	svc := s.posts()
	if svc == nil {
		return respondDegraded(c)
	}

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	imageID, err := s.parseID(c, "imageId")
	if err != nil {
		return nil
	}

	if err := svc.UnlinkImage(c.Context(), id, imageID); err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(fiber.Map{"status": "Image unlinked from post"})
}
