// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered account. Users anchor the CreatedBy
// reference on posts; deleting a user nulls that reference out rather
// than cascading into the post graph.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:100;unique;not null" json:"username"`
	Email     *string   `gorm:"size:100" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Posts []Post `gorm:"foreignKey:CreatedBy" json:"posts,omitempty"`
}
