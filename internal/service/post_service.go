package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"memoria/internal/middleware"
	"memoria/internal/models"
	"memoria/internal/repository"
	"memoria/internal/validation"
)

type PostService struct {
	postRepo  repository.PostRepository
	uploadDir string
}

type CreatePostInput struct {
	Name        string
	DateOfDeath string
	Content     string
	CreatedBy   *uint
	ImageURLs   []string
	PlatformIDs []uint
}

type UpdatePostInput struct {
	PostID      uint
	Name        string
	DateOfDeath string
	Content     string
	CreatedBy   *uint
	ImageURLs   []string
	PlatformIDs []uint
}

func NewPostService(postRepo repository.PostRepository, uploadDir string) *PostService {
	return &PostService{postRepo: postRepo, uploadDir: uploadDir}
}

func validatePostFields(name, dateOfDeath, content string, imageURLs []string, platformIDs []uint) error {
	const maxNameLen = 100
	const maxContentLen = 50000 // 50K characters

	if strings.TrimSpace(name) == "" {
		return models.NewValidationError("Name is required")
	}
	if len(name) > maxNameLen {
		return models.NewValidationError("Name too long (max 100 characters)")
	}
	if dateOfDeath == "" {
		return models.NewValidationError("Date of death is required")
	}
	if err := validation.ValidateDate(dateOfDeath); err != nil {
		return models.NewValidationError(err.Error())
	}
	if len(content) > maxContentLen {
		return models.NewValidationError("Content too long (max 50000 characters)")
	}
	for _, url := range imageURLs {
		if err := validation.ValidateImageURL(url); err != nil {
			return models.NewValidationError(err.Error())
		}
	}
	for _, id := range platformIDs {
		if id == 0 {
			return models.NewValidationError("Platform IDs must be positive")
		}
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Name, in.DateOfDeath, in.Content, in.ImageURLs, in.PlatformIDs); err != nil {
		return nil, err
	}

	post := &models.Post{
		Name:        strings.TrimSpace(in.Name),
		DateOfDeath: in.DateOfDeath,
		Content:     in.Content,
		CreatedBy:   in.CreatedBy,
	}
	if err := s.postRepo.Create(ctx, post, in.ImageURLs, in.PlatformIDs); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID)
}

// UpdatePost overwrites the post and both association sets. Updating a
// post that does not exist succeeds without writing anything, so a
// follow-up read reports the post missing rather than the update failing.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) error {
	if err := validatePostFields(in.Name, in.DateOfDeath, in.Content, in.ImageURLs, in.PlatformIDs); err != nil {
		return err
	}

	post := &models.Post{
		ID:          in.PostID,
		Name:        strings.TrimSpace(in.Name),
		DateOfDeath: in.DateOfDeath,
		Content:     in.Content,
		CreatedBy:   in.CreatedBy,
	}
	return s.postRepo.Update(ctx, post, in.ImageURLs, in.PlatformIDs)
}

func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	return s.postRepo.Delete(ctx, id)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.postRepo.List(ctx, limit, offset)
}

func (s *PostService) GetPostImages(ctx context.Context, postID uint) ([]models.Image, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetImages(ctx, postID)
}

func (s *PostService) GetPostPlatforms(ctx context.Context, postID uint) ([]models.Platform, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetPlatforms(ctx, postID)
}

// UnlinkImage removes one post-to-image association. When the image loses
// its last reference its row is collected; a locally uploaded file is
// then removed best effort, a failure there only logs.
func (s *PostService) UnlinkImage(ctx context.Context, postID, imageID uint) error {
	orphan, err := s.postRepo.UnlinkImage(ctx, postID, imageID)
	if err != nil {
		return err
	}
	if orphan == nil {
		return nil
	}
	s.removeUploadedFile(ctx, orphan.URL)
	return nil
}

func (s *PostService) ReplacePlatforms(ctx context.Context, postID uint, platformIDs []uint) error {
	for _, id := range platformIDs {
		if id == 0 {
			return models.NewValidationError("Platform IDs must be positive")
		}
	}
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}
	return s.postRepo.ReplacePlatforms(ctx, postID, platformIDs)
}

func (s *PostService) AddPlatform(ctx context.Context, postID, platformID uint) error {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return err
	}
	return s.postRepo.AddPlatform(ctx, postID, platformID)
}

func (s *PostService) RemovePlatform(ctx context.Context, postID, platformID uint) error {
	return s.postRepo.RemovePlatform(ctx, postID, platformID)
}

// removeUploadedFile deletes the backing file for server-relative
// upload URLs. Remote (search result) URLs have nothing to clean up.
func (s *PostService) removeUploadedFile(ctx context.Context, url string) {
	if s.uploadDir == "" || !strings.HasPrefix(url, "/uploads/") {
		return
	}
	name := filepath.Base(url)
	path := filepath.Join(s.uploadDir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		middleware.Logger.WarnContext(ctx, "failed to remove uploaded file",
			slog.String("path", path),
			slog.Any("error", err))
	}
}
