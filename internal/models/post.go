package models

import (
	"time"
)

// Post is a memorial entry: the name of the person being remembered,
// their date of death and free-text memorial content. Posts are hard
// deleted; the repository removes their join rows (and any images those
// rows orphan) in the same transaction.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	DateOfDeath string    `gorm:"type:date;not null" json:"date_of_death"`
	Content     string    `gorm:"type:text" json:"content"`
	CreatedBy   *uint     `gorm:"index" json:"created_by,omitempty"`
	Creator     *User     `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL" json:"creator,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Images and Platforms are populated by the repository from the join
	// tables; they are not managed through GORM associations so that the
	// replace semantics stay explicit.
	Images    []Image    `gorm:"-" json:"images,omitempty"`
	Platforms []Platform `gorm:"-" json:"platforms,omitempty"`
}

// PostImage links a post to an image. Composite primary key; both sides
// cascade-delete at the database level.
type PostImage struct {
	PostID  uint `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	ImageID uint `gorm:"primaryKey;autoIncrement:false" json:"image_id"`

	Post  Post  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Image Image `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostDistribution links a post to a social platform it should be
// shared on. Composite primary key; cascade-deletes from either side.
type PostDistribution struct {
	PostID     uint `gorm:"primaryKey;autoIncrement:false" json:"post_id"`
	PlatformID uint `gorm:"primaryKey;autoIncrement:false" json:"platform_id"`

	Post     Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Platform Platform `gorm:"foreignKey:PlatformID;constraint:OnDelete:CASCADE" json:"-"`
}
