package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"memoria/internal/middleware"
	"memoria/internal/models"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	defaultExportName = "memoria-posts"
	exportRetention   = time.Hour
	maxColWidth       = 100
)

var exportNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ExportService builds xlsx snapshots of the whole data set: one sheet
// per table, join columns resolved to human-readable values.
type ExportService struct {
	db        *gorm.DB
	exportDir string
}

func NewExportService(db *gorm.DB, exportDir string) *ExportService {
	return &ExportService{db: db, exportDir: exportDir}
}

// Export writes a workbook to the export directory and returns its path
// together with the name the download should carry. The file is removed
// by a detached goroutine after the retention window.
func (s *ExportService) Export(ctx context.Context, filename string) (path, downloadName string, err error) {
	if filename == "" {
		filename = defaultExportName
	}
	if !exportNameRegex.MatchString(filename) {
		return "", "", models.NewValidationError("Filename may only contain letters, numbers, hyphens and underscores")
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", "", models.NewInternalError(err)
	}

	f, err := s.BuildWorkbook(ctx)
	if err != nil {
		middleware.ExportsTotal.WithLabelValues("error").Inc()
		return "", "", err
	}
	defer f.Close()

	// Timestamp plus a short random suffix keeps concurrent exports from
	// colliding on the same path.
	stamp := time.Now().Format("20060102_150405")
	path = filepath.Join(s.exportDir,
		fmt.Sprintf("%s_%s_%s.xlsx", filename, stamp, uuid.NewString()[:8]))

	if err := f.SaveAs(path); err != nil {
		middleware.ExportsTotal.WithLabelValues("error").Inc()
		return "", "", models.NewInternalError(err)
	}

	go func(p string) {
		time.Sleep(exportRetention)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			middleware.Logger.Warn("failed to remove export file",
				slog.String("path", p),
				slog.Any("error", err))
		}
	}(path)

	middleware.ExportsTotal.WithLabelValues("success").Inc()
	return path, filename + ".xlsx", nil
}

// BuildWorkbook assembles the four sheets. The caller owns the returned
// file and must Close it.
func (s *ExportService) BuildWorkbook(ctx context.Context) (*excelize.File, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, models.NewInternalError(err)
	}

	builders := []func(context.Context, *excelize.File, int) error{
		s.buildPostsSheet,
		s.buildPostImagesSheet,
		s.buildPostDistributionsSheet,
		s.buildPlatformsSheet,
	}
	for _, build := range builders {
		if err := build(ctx, f, headerStyle); err != nil {
			f.Close()
			return nil, err
		}
	}

	// The workbook starts with a default sheet we never wrote to.
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)
	return f, nil
}

type postExportRow struct {
	ID          uint
	Name        string
	DateOfDeath string
	Content     string
	CreatedBy   *uint
	Username    *string
	CreatedAt   time.Time
}

func (s *ExportService) buildPostsSheet(ctx context.Context, f *excelize.File, style int) error {
	var rows []postExportRow
	err := s.db.WithContext(ctx).
		Table("posts").
		Select("posts.id, posts.name, posts.date_of_death, posts.content, posts.created_by, users.username, posts.created_at").
		Joins("LEFT JOIN users ON posts.created_by = users.id").
		Order("posts.id").
		Scan(&rows).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		createdBy := ""
		if r.CreatedBy != nil {
			createdBy = fmt.Sprintf("%d", *r.CreatedBy)
			if r.Username != nil {
				createdBy = fmt.Sprintf("%d (%s)", *r.CreatedBy, *r.Username)
			}
		}
		data = append(data, []interface{}{
			r.ID, r.Name, r.DateOfDeath, r.Content, createdBy,
			r.CreatedAt.Format(time.RFC3339),
		})
	}

	return writeSheet(f, "Posts", style,
		[]string{"Post ID", "Name", "Date of Death", "Content", "Created By", "Created At"},
		data)
}

type postImageExportRow struct {
	PostID   uint
	ImageID  uint
	PostName string
	ImageURL string
}

func (s *ExportService) buildPostImagesSheet(ctx context.Context, f *excelize.File, style int) error {
	var rows []postImageExportRow
	err := s.db.WithContext(ctx).
		Table("post_images").
		Select("post_images.post_id, post_images.image_id, posts.name AS post_name, images.url AS image_url").
		Joins("JOIN posts ON post_images.post_id = posts.id").
		Joins("JOIN images ON post_images.image_id = images.id").
		Order("post_images.post_id, post_images.image_id").
		Scan(&rows).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.PostID, r.ImageID, r.PostName, r.ImageURL})
	}

	return writeSheet(f, "Post Images", style,
		[]string{"Post ID", "Image ID", "Post Name", "Image URL"},
		data)
}

type distributionExportRow struct {
	PostID       uint
	PlatformID   uint
	PostName     string
	PlatformName string
}

func (s *ExportService) buildPostDistributionsSheet(ctx context.Context, f *excelize.File, style int) error {
	var rows []distributionExportRow
	err := s.db.WithContext(ctx).
		Table("post_distributions").
		Select("post_distributions.post_id, post_distributions.platform_id, posts.name AS post_name, social_media_platforms.name AS platform_name").
		Joins("JOIN posts ON post_distributions.post_id = posts.id").
		Joins("JOIN social_media_platforms ON post_distributions.platform_id = social_media_platforms.id").
		Order("post_distributions.post_id, post_distributions.platform_id").
		Scan(&rows).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{r.PostID, r.PlatformID, r.PostName, r.PlatformName})
	}

	return writeSheet(f, "Post Distributions", style,
		[]string{"Post ID", "Platform ID", "Post Name", "Platform Name"},
		data)
}

func (s *ExportService) buildPlatformsSheet(ctx context.Context, f *excelize.File, style int) error {
	var platforms []models.Platform
	if err := s.db.WithContext(ctx).Order("id").Find(&platforms).Error; err != nil {
		return models.NewInternalError(err)
	}

	data := make([][]interface{}, 0, len(platforms))
	for _, p := range platforms {
		access := "No"
		if p.APIAccessStatus {
			access = "Yes"
		}
		data = append(data, []interface{}{p.ID, p.Name, access, p.PlatformURL, p.IconURL})
	}

	return writeSheet(f, "Platforms", style,
		[]string{"Platform ID", "Name", "API Access Status", "Platform URL", "Icon URL"},
		data)
}

// writeSheet creates the sheet, writes the styled header plus data rows
// and fits column widths to content (capped so huge cells cannot blow
// the layout up).
func writeSheet(f *excelize.File, name string, headerStyle int, headers []string, data [][]interface{}) error {
	if _, err := f.NewSheet(name); err != nil {
		return models.NewInternalError(err)
	}

	widths := make([]int, len(headers))

	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
		widths[i] = len(h)
	}
	if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return models.NewInternalError(err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := f.SetCellStyle(name, "A1", lastCol+"1", headerStyle); err != nil {
		return models.NewInternalError(err)
	}

	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return models.NewInternalError(err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return models.NewInternalError(err)
		}
		for col, v := range row {
			if col < len(widths) {
				if l := len(fmt.Sprintf("%v", v)); l > widths[col] {
					widths[col] = l
				}
			}
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return models.NewInternalError(err)
		}
		w := widths[i] + 2
		if w > maxColWidth {
			w = maxColWidth
		}
		if err := f.SetColWidth(name, col, col, float64(w)); err != nil {
			return models.NewInternalError(err)
		}
	}
	return nil
}
