package repository

import (
	"context"
	"errors"

	"memoria/internal/models"

	"gorm.io/gorm"
)

// PlatformRepository defines persistence operations for social media
// platforms.
type PlatformRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Platform, error)
	List(ctx context.Context) ([]models.Platform, error)
	Create(ctx context.Context, platform *models.Platform) error
	Update(ctx context.Context, platform *models.Platform) error
	Delete(ctx context.Context, id uint) error
}

type platformRepository struct {
	db *gorm.DB
}

// NewPlatformRepository returns a new PlatformRepository implementation.
func NewPlatformRepository(db *gorm.DB) PlatformRepository {
	return &platformRepository{db: db}
}

func (r *platformRepository) GetByID(ctx context.Context, id uint) (*models.Platform, error) {
	var platform models.Platform
	if err := r.db.WithContext(ctx).First(&platform, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Platform", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &platform, nil
}

func (r *platformRepository) List(ctx context.Context) ([]models.Platform, error) {
	var platforms []models.Platform
	if err := r.db.WithContext(ctx).Order("id").Find(&platforms).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return platforms, nil
}

func (r *platformRepository) Create(ctx context.Context, platform *models.Platform) error {
	err := r.db.WithContext(ctx).Create(platform).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("Platform with this name already exists")
	}
	return err
}

func (r *platformRepository) Update(ctx context.Context, platform *models.Platform) error {
	err := r.db.WithContext(ctx).Save(platform).Error
	if isUniqueViolation(err) {
		return models.NewConflictError("Platform with this name already exists")
	}
	return err
}

// Delete removes a platform. Distribution rows referencing it are
// dropped by the ON DELETE CASCADE on post_distributions.
func (r *platformRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Platform{}, id).Error
}
