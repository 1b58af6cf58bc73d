package service

import (
	"context"
	"os"
	"strings"
	"testing"

	"memoria/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn           func(context.Context, *models.Post, []string, []uint) error
	updateFn           func(context.Context, *models.Post, []string, []uint) error
	deleteFn           func(context.Context, uint) error
	getByIDFn          func(context.Context, uint) (*models.Post, error)
	listFn             func(context.Context, int, int) ([]*models.Post, error)
	getImagesFn        func(context.Context, uint) ([]models.Image, error)
	getPlatformsFn     func(context.Context, uint) ([]models.Platform, error)
	unlinkImageFn      func(context.Context, uint, uint) (*models.Image, error)
	replacePlatformsFn func(context.Context, uint, []uint) error
	addPlatformFn      func(context.Context, uint, uint) error
	removePlatformFn   func(context.Context, uint, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post, urls []string, ids []uint) error {
	return s.createFn(ctx, post, urls, ids)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post, urls []string, ids []uint) error {
	return s.updateFn(ctx, post, urls, ids)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) GetImages(ctx context.Context, postID uint) ([]models.Image, error) {
	return s.getImagesFn(ctx, postID)
}
func (s *postRepoStub) GetPlatforms(ctx context.Context, postID uint) ([]models.Platform, error) {
	return s.getPlatformsFn(ctx, postID)
}
func (s *postRepoStub) UnlinkImage(ctx context.Context, postID, imageID uint) (*models.Image, error) {
	return s.unlinkImageFn(ctx, postID, imageID)
}
func (s *postRepoStub) ReplacePlatforms(ctx context.Context, postID uint, ids []uint) error {
	return s.replacePlatformsFn(ctx, postID, ids)
}
func (s *postRepoStub) AddPlatform(ctx context.Context, postID, platformID uint) error {
	return s.addPlatformFn(ctx, postID, platformID)
}
func (s *postRepoStub) RemovePlatform(ctx context.Context, postID, platformID uint) error {
	return s.removePlatformFn(ctx, postID, platformID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, post *models.Post, _ []string, _ []uint) error {
			post.ID = 1
			return nil
		},
		updateFn: func(_ context.Context, _ *models.Post, _ []string, _ []uint) error { return nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
		listFn:             func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		getImagesFn:        func(_ context.Context, _ uint) ([]models.Image, error) { return nil, nil },
		getPlatformsFn:     func(_ context.Context, _ uint) ([]models.Platform, error) { return nil, nil },
		unlinkImageFn:      func(_ context.Context, _, _ uint) (*models.Image, error) { return nil, nil },
		replacePlatformsFn: func(_ context.Context, _ uint, _ []uint) error { return nil },
		addPlatformFn:      func(_ context.Context, _, _ uint) error { return nil },
		removePlatformFn:   func(_ context.Context, _, _ uint) error { return nil },
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	svc := NewPostService(noopPostRepo(), "")
	ctx := context.Background()

	valid := CreatePostInput{
		Name:        "John Doe",
		DateOfDeath: "2024-01-15",
		Content:     "In memoriam",
		ImageURLs:   []string{"https://cdn.example.com/a.jpg"},
		PlatformIDs: []uint{1},
	}

	tests := []struct {
		name   string
		mutate func(*CreatePostInput)
	}{
		{"Empty Name", func(in *CreatePostInput) { in.Name = "  " }},
		{"Name Too Long", func(in *CreatePostInput) { in.Name = strings.Repeat("n", 101) }},
		{"Missing Date", func(in *CreatePostInput) { in.DateOfDeath = "" }},
		{"Bad Date Format", func(in *CreatePostInput) { in.DateOfDeath = "15/01/2024" }},
		{"Content Too Long", func(in *CreatePostInput) { in.Content = strings.Repeat("c", 50001) }},
		{"Bad Image URL", func(in *CreatePostInput) { in.ImageURLs = []string{"not a url"} }},
		{"Zero Platform ID", func(in *CreatePostInput) { in.PlatformIDs = []uint{0} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := svc.CreatePost(ctx, in)
			assertValidationError(t, err)
		})
	}

	t.Run("Valid Input Passes", func(t *testing.T) {
		post, err := svc.CreatePost(ctx, valid)
		require.NoError(t, err)
		assert.NotNil(t, post)
	})
}

func TestPostService_CreatePost_TrimsName(t *testing.T) {
	repo := noopPostRepo()
	var created *models.Post
	repo.createFn = func(_ context.Context, post *models.Post, _ []string, _ []uint) error {
		post.ID = 7
		created = post
		return nil
	}
	svc := NewPostService(repo, "")

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		Name:        "  John Doe  ",
		DateOfDeath: "2024-01-15",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "John Doe", created.Name)
}

func TestPostService_UpdatePost_PassesThrough(t *testing.T) {
	repo := noopPostRepo()
	var gotURLs []string
	var gotIDs []uint
	repo.updateFn = func(_ context.Context, post *models.Post, urls []string, ids []uint) error {
		gotURLs = urls
		gotIDs = ids
		return nil
	}
	svc := NewPostService(repo, "")

	err := svc.UpdatePost(context.Background(), UpdatePostInput{
		PostID:      3,
		Name:        "Jane",
		DateOfDeath: "2023-06-01",
		ImageURLs:   []string{"https://cdn.example.com/b.jpg"},
		PlatformIDs: []uint{2, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/b.jpg"}, gotURLs)
	assert.Equal(t, []uint{2, 4}, gotIDs)
}

func TestPostService_ListPosts_DefaultsPagination(t *testing.T) {
	repo := noopPostRepo()
	var gotLimit, gotOffset int
	repo.listFn = func(_ context.Context, limit, offset int) ([]*models.Post, error) {
		gotLimit, gotOffset = limit, offset
		return nil, nil
	}
	svc := NewPostService(repo, "")

	_, err := svc.ListPosts(context.Background(), 0, -5)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 0, gotOffset)

	_, err = svc.ListPosts(context.Background(), 500, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, 10, gotOffset)
}

func TestPostService_GetPostImages_ChecksPostExists(t *testing.T) {
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	svc := NewPostService(repo, "")

	_, err := svc.GetPostImages(context.Background(), 42)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestPostService_UnlinkImage_RemovesOrphanFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/portrait.jpg"
	require.NoError(t, os.WriteFile(path, []byte("img"), 0o644))

	repo := noopPostRepo()
	repo.unlinkImageFn = func(_ context.Context, _, _ uint) (*models.Image, error) {
		return &models.Image{ID: 1, URL: "/uploads/portrait.jpg"}, nil
	}
	svc := NewPostService(repo, dir)

	require.NoError(t, svc.UnlinkImage(context.Background(), 1, 1))
	assert.NoFileExists(t, path)
}

func TestPostService_UnlinkImage_LeavesRemoteURLsAlone(t *testing.T) {
	repo := noopPostRepo()
	repo.unlinkImageFn = func(_ context.Context, _, _ uint) (*models.Image, error) {
		return &models.Image{ID: 1, URL: "https://cdn.example.com/a.jpg"}, nil
	}
	svc := NewPostService(repo, t.TempDir())

	assert.NoError(t, svc.UnlinkImage(context.Background(), 1, 1))
}

func TestPostService_ReplacePlatforms_RejectsZeroID(t *testing.T) {
	svc := NewPostService(noopPostRepo(), "")
	err := svc.ReplacePlatforms(context.Background(), 1, []uint{1, 0})
	assertValidationError(t, err)
}
