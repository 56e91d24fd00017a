package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReactionType is the three-state reaction a voter can hold on a comment.
type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
	ReactionLove    ReactionType = "love"
)

// ReactionTypes lists all valid types, in counter order.
var ReactionTypes = []ReactionType{ReactionLike, ReactionDislike, ReactionLove}

// IsValid reports whether typ is one of the three reaction types.
func (t ReactionType) IsValid() bool {
	switch t {
	case ReactionLike, ReactionDislike, ReactionLove:
		return true
	}
	return false
}

// Reaction is one voter's reaction on one comment. The (comment_id, voter_id)
// pair is unique: a voter holds at most one reaction per comment, and picking
// a different type replaces the row rather than adding a second one.
type Reaction struct {
	ID        string       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CommentID string       `gorm:"type:uuid;not null;index:idx_comment_voter,unique" json:"comment_id"`
	VoterID   string       `gorm:"type:varchar(100);not null;index:idx_comment_voter,unique" json:"voter_id"` // user id or device id
	Type      ReactionType `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate hook to generate UUID
func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Reaction) TableName() string {
	return "reactions"
}
