package models

// Platform describes a social network a post can be distributed to.
// Four rows (LinkedIn, Instagram, Facebook, X) are seeded at first boot;
// the rest is plain CRUD.
type Platform struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:100;not null" json:"name"`
	APIAccessStatus bool   `gorm:"not null;default:false" json:"api_access_status"`
	PlatformURL     string `gorm:"type:text" json:"platform_url"`
	IconURL         string `gorm:"type:text" json:"icon_url"`
}

// TableName specifies the table name for GORM.
func (Platform) TableName() string {
	return "social_media_platforms"
}
