// Package seed creates demo data for development environments. The
// fixed platform catalog comes from database.Bootstrap; this package
// only fills in users, posts and their associations.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"memoria/internal/models"
	"memoria/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// DevPassword is the login password shared by all seeded users.
const DevPassword = "MemoriaDev123!"

// Seeder populates the database with generated memorial content.
type Seeder struct {
	db    *gorm.DB
	posts repository.PostRepository
	rng   *rand.Rand
}

// NewSeeder creates a Seeder bound to the given database handle.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:    db,
		posts: repository.NewPostRepository(db),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes seedable data. Platforms are left alone since they
// are part of the bootstrap schema, not demo content.
func (s *Seeder) ClearAll() error {
	tables := []string{"post_distributions", "post_images", "posts", "images", "users"}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// SeedUsers creates n users with a shared development password.
func (s *Seeder) SeedUsers(n int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DevPassword), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		email := gofakeit.Email()
		user := models.User{
			Username: fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Username()), i),
			Email:    &email,
			Password: string(hashed),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user %q: %w", user.Username, err)
		}
		users = append(users, user)
	}

	log.Printf("Seeded %d users (password %q)", len(users), DevPassword)
	return users, nil
}

// SeedPosts creates n memorial posts attributed to random seeded users,
// each with a handful of images and platform assignments.
func (s *Seeder) SeedPosts(ctx context.Context, n int, users []models.User) error {
	var platforms []models.Platform
	if err := s.db.Order("id").Find(&platforms).Error; err != nil {
		return fmt.Errorf("load platforms: %w", err)
	}

	for i := 0; i < n; i++ {
		post := &models.Post{
			Name:        gofakeit.Name(),
			DateOfDeath: s.randomDeathDate(),
			Content:     s.memorialContent(),
		}
		if len(users) > 0 {
			id := users[s.rng.Intn(len(users))].ID
			post.CreatedBy = &id
		}

		imageURLs := make([]string, s.rng.Intn(3))
		for j := range imageURLs {
			imageURLs[j] = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
		}

		platformIDs := s.randomPlatformIDs(platforms)

		if err := s.posts.Create(ctx, post, imageURLs, platformIDs); err != nil {
			return fmt.Errorf("create post %d: %w", i, err)
		}
	}

	log.Printf("Seeded %d posts", n)
	return nil
}

func (s *Seeder) randomDeathDate() string {
	daysBack := s.rng.Intn(365 * 30)
	return time.Now().AddDate(0, 0, -daysBack).Format("2006-01-02")
}

func (s *Seeder) memorialContent() string {
	paragraphs := gofakeit.Paragraph(2, 3, 12, "\n\n")
	return fmt.Sprintf("In loving memory.\n\n%s\n\n#tyfys #AmericanHero", paragraphs)
}

func (s *Seeder) randomPlatformIDs(platforms []models.Platform) []uint {
	if len(platforms) == 0 {
		return nil
	}
	count := 1 + s.rng.Intn(len(platforms))
	perm := s.rng.Perm(len(platforms))[:count]
	ids := make([]uint, 0, count)
	for _, idx := range perm {
		ids = append(ids, platforms[idx].ID)
	}
	return ids
}

// Run executes a full seeding pass per the options.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	users, err := s.SeedUsers(opts.NumUsers)
	if err != nil {
		return err
	}
	return s.SeedPosts(ctx, opts.NumPosts, users)
}
