package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxCommentLength is the upper bound on comment body text.
const MaxCommentLength = 500

type Comment struct {
	ID       string  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ReviewID string  `gorm:"type:uuid;not null;index;references:reviews(id)" json:"review_id"`
	ParentID *string `gorm:"type:uuid;index;references:comments(id)" json:"parent_id,omitempty"` // Replies are one level deep: parent is always a top-level comment
	Body     string  `gorm:"type:text;not null" json:"body"`

	// Author descriptor columns (tagged variant, see Author)
	AuthorKind AuthorKind `gorm:"type:varchar(20);not null;default:'anonymous'" json:"author_kind"`
	AuthorID   *string    `gorm:"type:uuid;index" json:"author_id,omitempty"`
	GuestName  *string    `gorm:"type:varchar(100)" json:"guest_name,omitempty"`

	// Denormalized reaction aggregates, adjusted server-side in the same
	// transaction as the reaction row change. Never negative.
	LikeCount    int64 `gorm:"not null;default:0" json:"like_count"`
	DislikeCount int64 `gorm:"not null;default:0" json:"dislike_count"`
	LoveCount    int64 `gorm:"not null;default:0" json:"love_count"`

	Reported       bool    `gorm:"default:false" json:"reported"`
	ReportedReason *string `gorm:"type:text" json:"reported_reason,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate UUID
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}

// Author assembles the tagged descriptor from the stored columns.
func (c *Comment) Author() Author {
	a := Author{Kind: c.AuthorKind}
	switch c.AuthorKind {
	case AuthorUser:
		if c.AuthorID != nil {
			a.UserID = *c.AuthorID
		}
	case AuthorGuest:
		if c.GuestName != nil {
			a.GuestName = *c.GuestName
		}
	}
	return a
}

// SetAuthor writes the descriptor back into the stored columns.
func (c *Comment) SetAuthor(a Author) {
	c.AuthorKind = a.Kind
	c.AuthorID = nil
	c.GuestName = nil
	switch a.Kind {
	case AuthorUser:
		id := a.UserID
		c.AuthorID = &id
	case AuthorGuest:
		name := a.GuestName
		c.GuestName = &name
	}
}

// ReactionCount returns the aggregate for one reaction type.
func (c *Comment) ReactionCount(typ ReactionType) int64 {
	switch typ {
	case ReactionLike:
		return c.LikeCount
	case ReactionDislike:
		return c.DislikeCount
	case ReactionLove:
		return c.LoveCount
	}
	return 0
}

// AddReaction adjusts one aggregate by delta, flooring at zero.
func (c *Comment) AddReaction(typ ReactionType, delta int64) {
	bump := func(n int64) int64 {
		n += delta
		if n < 0 {
			n = 0
		}
		return n
	}
	switch typ {
	case ReactionLike:
		c.LikeCount = bump(c.LikeCount)
	case ReactionDislike:
		c.DislikeCount = bump(c.DislikeCount)
	case ReactionLove:
		c.LoveCount = bump(c.LoveCount)
	}
}
