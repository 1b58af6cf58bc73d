package models

// Image source labels. User uploads are created lazily when a post
// references an unknown URL; search results come in through the image
// search endpoint.
const (
	ImageSourceUpload = "user-upload"
	ImageSourceSearch = "web-search"
)

// Image is a picture attached to zero or more posts through the
// post_images join table. The URL acts as an application-level dedup
// key: referencing an existing URL reuses the row instead of inserting
// a second one. An image with no remaining references is an orphan and
// is collected eagerly when its last link is removed.
type Image struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	URL    string `gorm:"type:text;not null" json:"url"`
	Source string `gorm:"size:255" json:"source"`
}
