package service

import (
	"context"
	"testing"

	"memoria/internal/database"
	"memoria/internal/models"
	"memoria/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openExportDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Bootstrap(db))
	return db
}

func TestExportService_BuildWorkbook(t *testing.T) {
	db := openExportDB(t)
	ctx := context.Background()

	user := &models.User{Username: "curator", Password: "hash"}
	require.NoError(t, db.Create(user).Error)

	postRepo := repository.NewPostRepository(db)
	post := &models.Post{
		Name:        "John Doe",
		DateOfDeath: "2024-01-15",
		Content:     "In loving memory.",
		CreatedBy:   &user.ID,
	}
	require.NoError(t, postRepo.Create(ctx, post,
		[]string{"https://cdn.example.com/a.jpg"}, []uint{1, 3}))

	svc := NewExportService(db, t.TempDir())
	f, err := svc.BuildWorkbook(ctx)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t,
		[]string{"Posts", "Post Images", "Post Distributions", "Platforms"},
		f.GetSheetList())

	rows, err := f.GetRows("Posts")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t,
		[]string{"Post ID", "Name", "Date of Death", "Content", "Created By", "Created At"},
		rows[0])
	assert.Equal(t, "John Doe", rows[1][1])
	assert.Equal(t, "2024-01-15", rows[1][2])
	assert.Contains(t, rows[1][4], "(curator)")

	imageRows, err := f.GetRows("Post Images")
	require.NoError(t, err)
	require.Len(t, imageRows, 2)
	assert.Equal(t, "https://cdn.example.com/a.jpg", imageRows[1][3])

	distRows, err := f.GetRows("Post Distributions")
	require.NoError(t, err)
	require.Len(t, distRows, 3)
	assert.Equal(t, "LinkedIn", distRows[1][3])
	assert.Equal(t, "Facebook", distRows[2][3])

	platformRows, err := f.GetRows("Platforms")
	require.NoError(t, err)
	require.Len(t, platformRows, 5)
	assert.Equal(t, "No", platformRows[1][2])
}

func TestExportService_Export(t *testing.T) {
	db := openExportDB(t)
	dir := t.TempDir()
	svc := NewExportService(db, dir)

	path, download, err := svc.Export(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "memoria-posts.xlsx", download)
	assert.FileExists(t, path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Posts")
}

func TestExportService_Export_RejectsBadFilename(t *testing.T) {
	svc := NewExportService(openExportDB(t), t.TempDir())

	for _, bad := range []string{"../escape", "name with spaces", "a/b"} {
		_, _, err := svc.Export(context.Background(), bad)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr, "filename %q", bad)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	}
}
