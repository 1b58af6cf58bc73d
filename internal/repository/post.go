package repository

import (
	"context"
	"errors"
	"fmt"

	"memoria/internal/models"

	"gorm.io/gorm"
)

// PostRepository is the post graph store: it owns the post rows and the
// two join tables linking them to images and platforms, and keeps the
// graph consistent under create/update/delete.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, imageURLs []string, platformIDs []uint) error
	Update(ctx context.Context, post *models.Post, imageURLs []string, platformIDs []uint) error
	Delete(ctx context.Context, id uint) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	GetImages(ctx context.Context, postID uint) ([]models.Image, error)
	GetPlatforms(ctx context.Context, postID uint) ([]models.Platform, error)

	// UnlinkImage removes a single post-to-image association. When that was
	// the image's last reference, the image row is deleted too and
	// returned so the caller can clean up any backing file.
	UnlinkImage(ctx context.Context, postID, imageID uint) (*models.Image, error)

	ReplacePlatforms(ctx context.Context, postID uint, platformIDs []uint) error
	AddPlatform(ctx context.Context, postID, platformID uint) error
	RemovePlatform(ctx context.Context, postID, platformID uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post row and its image/platform associations in one
// transaction. Any failure rolls the whole write back; no orphaned join
// rows survive a failed create.
func (r *postRepository) Create(ctx context.Context, post *models.Post, imageURLs []string, platformIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		if err := replaceImages(tx, post.ID, imageURLs); err != nil {
			return err
		}
		return replacePlatforms(tx, post.ID, platformIDs)
	})
}

// Update overwrites the post's scalar fields and re-derives both
// association sets. A missing post id affects zero rows and is not an
// error: the reference behavior is a permissive update, not NotFound.
func (r *postRepository) Update(ctx context.Context, post *models.Post, imageURLs []string, platformIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":          post.Name,
			"date_of_death": post.DateOfDeath,
			"content":       post.Content,
			"created_by":    post.CreatedBy,
		}
		res := tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Nothing to re-associate against; inserting join rows for a
			// missing post would only trip the foreign keys.
			return nil
		}
		if err := replaceImages(tx, post.ID, imageURLs); err != nil {
			return err
		}
		return replacePlatforms(tx, post.ID, platformIDs)
	})
}

// Delete removes the post's join rows, the post itself, and any image
// left without references afterwards. Idempotent: a nonexistent id is a
// no-op.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var imageIDs []uint
		if err := tx.Model(&models.PostImage{}).
			Where("post_id = ?", id).
			Pluck("image_id", &imageIDs).Error; err != nil {
			return err
		}

		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostDistribution{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Post{}, id).Error; err != nil {
			return err
		}

		return collectOrphanImages(tx, imageIDs)
	})
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Creator").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}

	images, err := r.GetImages(ctx, id)
	if err != nil {
		return nil, err
	}
	platforms, err := r.GetPlatforms(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Images = images
	post.Platforms = platforms

	return &post, nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) GetImages(ctx context.Context, postID uint) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).
		Joins("JOIN post_images ON post_images.image_id = images.id").
		Where("post_images.post_id = ?", postID).
		Order("images.id").
		Find(&images).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *postRepository) GetPlatforms(ctx context.Context, postID uint) ([]models.Platform, error) {
	var platforms []models.Platform
	err := r.db.WithContext(ctx).
		Joins("JOIN post_distributions ON post_distributions.platform_id = social_media_platforms.id").
		Where("post_distributions.post_id = ?", postID).
		Order("social_media_platforms.id").
		Find(&platforms).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return platforms, nil
}

func (r *postRepository) UnlinkImage(ctx context.Context, postID, imageID uint) (*models.Image, error) {
	var orphan *models.Image
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ? AND image_id = ?", postID, imageID).
			Delete(&models.PostImage{}).Error; err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.PostImage{}).
			Where("image_id = ?", imageID).
			Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return nil
		}

		var image models.Image
		if err := tx.First(&image, imageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if err := tx.Delete(&models.Image{}, imageID).Error; err != nil {
			return err
		}
		orphan = &image
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return orphan, nil
}

func (r *postRepository) ReplacePlatforms(ctx context.Context, postID uint, platformIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replacePlatforms(tx, postID, platformIDs)
	})
}

// AddPlatform is idempotent: adding an existing association is a no-op.
// Count-then-insert rather than an upsert; a concurrent duplicate insert
// is suppressed via its unique violation.
func (r *postRepository) AddPlatform(ctx context.Context, postID, platformID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.PostDistribution{}).
			Where("post_id = ? AND platform_id = ?", postID, platformID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		err := tx.Create(&models.PostDistribution{PostID: postID, PlatformID: platformID}).Error
		if isUniqueViolation(err) {
			return nil
		}
		return err
	})
}

// RemovePlatform deletes zero or one association row.
func (r *postRepository) RemovePlatform(ctx context.Context, postID, platformID uint) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND platform_id = ?", postID, platformID).
		Delete(&models.PostDistribution{}).Error
}

// replaceImages wipes the post's image associations and rebuilds them
// from urls. Images are created lazily: an unknown URL inserts a new row
// with the user-upload source label, a known URL reuses the existing
// row. Duplicate URLs in the input collapse to a single association.
// Images dropped from the set and referenced by no other post are
// deleted along with their associations.
func replaceImages(tx *gorm.DB, postID uint, urls []string) error {
	var priorImageIDs []uint
	if err := tx.Model(&models.PostImage{}).
		Where("post_id = ?", postID).
		Pluck("image_id", &priorImageIDs).Error; err != nil {
		return err
	}

	if err := tx.Where("post_id = ?", postID).Delete(&models.PostImage{}).Error; err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(urls))
	for _, url := range urls {
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}

		var image models.Image
		err := tx.Where("url = ?", url).First(&image).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			image = models.Image{URL: url, Source: models.ImageSourceUpload}
			if err := tx.Create(&image).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}

		if err := tx.Create(&models.PostImage{PostID: postID, ImageID: image.ID}).Error; err != nil {
			return err
		}
	}

	// Re-linked images regain a reference above and survive collection.
	return collectOrphanImages(tx, priorImageIDs)
}

// collectOrphanImages deletes every listed image that no post references
// anymore. Shared by the delete and full-replace paths so every way of
// dropping an image's last reference enforces the same refcount policy.
func collectOrphanImages(tx *gorm.DB, imageIDs []uint) error {
	for _, imageID := range imageIDs {
		var refs int64
		if err := tx.Model(&models.PostImage{}).
			Where("image_id = ?", imageID).
			Count(&refs).Error; err != nil {
			return err
		}
		if refs == 0 {
			if err := tx.Delete(&models.Image{}, imageID).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// replacePlatforms wipes and rebuilds the post's platform associations.
// No existence check is made against the platforms table: an invalid id
// trips the foreign key, which is reported as a validation error naming
// the offending platform.
func replacePlatforms(tx *gorm.DB, postID uint, platformIDs []uint) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostDistribution{}).Error; err != nil {
		return err
	}

	for _, platformID := range platformIDs {
		dist := models.PostDistribution{PostID: postID, PlatformID: platformID}
		if err := tx.Create(&dist).Error; err != nil {
			if isForeignKeyViolation(err) {
				return models.NewValidationError(
					fmt.Sprintf("Platform %d does not exist", platformID))
			}
			return err
		}
	}
	return nil
}
