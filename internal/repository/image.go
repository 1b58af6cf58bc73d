package repository

import (
	"context"
	"errors"

	"memoria/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines persistence operations for images.
type ImageRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Image, error)
	// GetByURL returns (nil, nil) when no image with that URL exists.
	GetByURL(ctx context.Context, url string) (*models.Image, error)
	List(ctx context.Context, limit, offset int) ([]models.Image, error)
	Create(ctx context.Context, image *models.Image) error
	Delete(ctx context.Context, id uint) error
	// CountPostRefs reports how many posts still link the image.
	CountPostRefs(ctx context.Context, id uint) (int64, error)
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a new ImageRepository implementation.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

func (r *imageRepository) GetByURL(ctx context.Context, url string) (*models.Image, error) {
	var image models.Image
	err := r.db.WithContext(ctx).Where("url = ?", url).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

func (r *imageRepository) List(ctx context.Context, limit, offset int) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&images).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// Delete removes an image row. Links from posts are dropped by the
// ON DELETE CASCADE on post_images.
func (r *imageRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Image{}, id).Error
}

func (r *imageRepository) CountPostRefs(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostImage{}).
		Where("image_id = ?", id).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
