package server

import (
	"errors"
	"strings"
	"unicode"

	"memoria/internal/models"
	"memoria/internal/repository"
	"memoria/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was
// already committed by a helper. Handlers must return nil (not this
// error) to avoid Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const maxPaginationLimit = 100

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{Limit: limit, Offset: offset}
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "imageId" -> "image ID", "platformId" -> "platform ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// respondDegraded reports that the database is not yet available.
func respondDegraded(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
		Error: "Database unavailable, try again shortly",
		Code:  "UNAVAILABLE",
	})
}

// Dependency getters hide the degraded-boot locking from handlers.
// Each returns nil while the database has not been installed yet.

func (s *Server) posts() *service.PostService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.postService
}

func (s *Server) users() *service.UserService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userService
}

func (s *Server) exports() *service.ExportService {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exportService
}

func (s *Server) userRepository() repository.UserRepository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userRepo
}

func (s *Server) imageRepository() repository.ImageRepository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.imageRepo
}

func (s *Server) platformRepository() repository.PlatformRepository {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.platformRepo
}
