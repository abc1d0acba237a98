package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"-" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = ulid.Make().String()
	}
	return nil
}

// User represents an account. Usernames are unique and case-sensitive.
type User struct {
	Username     string    `json:"username" gorm:"primaryKey;type:varchar(64)"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Post represents a post written by a user
type Post struct {
	BaseModel
	Title   string `json:"title" gorm:"not null"`
	Content string `json:"content" gorm:"type:text;not null"`
	User    string `json:"user" gorm:"column:sent_by;not null;index"`
	Date    int64  `json:"date" gorm:"column:date_added;not null;index"` // unix seconds
}

// BeforeCreate stamps the post date and ID
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.Date == 0 {
		p.Date = time.Now().Unix()
	}
	return p.BaseModel.BeforeCreate(tx)
}

// RevokedToken is a refresh token jti that may no longer be used.
// Rows can be deleted once ExpiresAt has passed since the token is dead anyway.
type RevokedToken struct {
	JTI       string `gorm:"primaryKey;type:varchar(26)"`
	ExpiresAt int64  `gorm:"not null;index"` // unix seconds
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&User{}, &Post{}, &RevokedToken{},
	}

	return db.AutoMigrate(models...)
}
