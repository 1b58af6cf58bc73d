package database

import (
	"fmt"
	"log/slog"

	"memoria/internal/middleware"
	"memoria/internal/models"

	"gorm.io/gorm"
)

// seedPlatforms returns the four fixed rows inserted at first boot.
// A fresh slice each call so gorm's ID back-fill never leaks between runs.
func seedPlatforms() []models.Platform {
	return []models.Platform{
		{Name: "LinkedIn", APIAccessStatus: false, PlatformURL: "https://www.linkedin.com/sharing/share-offsite/?url=", IconURL: "/images/linkedin.png"},
		{Name: "Instagram", APIAccessStatus: false, PlatformURL: "https://www.instagram.com/", IconURL: "/images/instagram.png"},
		{Name: "Facebook", APIAccessStatus: false, PlatformURL: "https://www.facebook.com/sharer/sharer.php?u=", IconURL: "/images/facebook.png"},
		{Name: "X", APIAccessStatus: false, PlatformURL: "https://twitter.com/intent/tweet?url=", IconURL: "/images/x.png"},
	}
}

// Bootstrap ensures the schema exists. When the posts table is missing,
// ALL application tables are dropped and recreated, and the fixed
// platform rows are seeded.
//
// WARNING: this is an all-or-nothing wipe-and-recreate policy, not a
// per-table migration. Pointing the service at a database whose posts
// table has been removed destroys every other table too. Operators must
// treat the schema as owned exclusively by this service.
func Bootstrap(db *gorm.DB) error {
	if db.Migrator().HasTable(&models.Post{}) {
		return nil
	}

	middleware.Logger.Warn("Expected tables missing: wiping and recreating ALL application tables (destructive)")

	// Drop in reverse dependency order. Join tables first so foreign keys
	// never block the drop.
	drops := []interface{}{
		&models.PostDistribution{},
		&models.PostImage{},
		&models.Post{},
		&models.Image{},
		&models.Platform{},
		&models.User{},
	}
	for _, m := range drops {
		if err := db.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", m, err)
		}
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Platform{},
		&models.Image{},
		&models.Post{},
		&models.PostImage{},
		&models.PostDistribution{},
	); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	platforms := seedPlatforms()
	if err := db.Create(&platforms).Error; err != nil {
		return fmt.Errorf("failed to seed platforms: %w", err)
	}

	middleware.Logger.Info("Schema created and platforms seeded",
		slog.Int("platforms", len(platforms)))
	return nil
}
