package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID         string  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AuthorID   string  `gorm:"type:uuid;not null;index;references:users(id)" json:"author_id"`
	MovieTitle string  `gorm:"type:varchar(255);not null" json:"movie_title"`
	Title      string  `gorm:"type:varchar(255);not null" json:"title"`
	Body       string  `gorm:"type:text;not null" json:"body"`
	Rating     int     `gorm:"not null;default:0" json:"rating"` // 1..10
	PosterURL  *string `gorm:"type:text" json:"poster_url,omitempty"`

	// Denormalized aggregates, refreshed when votes/comments change.
	HelpfulCount int64 `gorm:"not null;default:0" json:"helpful_count"`
	CommentCount int64 `gorm:"not null;default:0" json:"comment_count"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Author User `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
}

// BeforeCreate hook to generate UUID
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
