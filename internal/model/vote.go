package model

import (
	"time"

	"github.com/google/uuid"
)

// helpfulVoteNamespace salts the deterministic vote ids so they cannot
// collide with row ids minted elsewhere.
var helpfulVoteNamespace = uuid.MustParse("9b2c6b3e-3f6a-4f0e-9a1d-cf1f2b7a5e42")

// HelpfulVoteID derives the identity of a helpful vote from its natural key.
// The same (review, voter) pair always maps to the same id, so a duplicate
// vote is a primary-key conflict rather than a read-before-write race.
func HelpfulVoteID(reviewID, voterID string) string {
	return uuid.NewSHA1(helpfulVoteNamespace, []byte(reviewID+"/"+voterID)).String()
}

// HelpfulVote marks a review as helpful for one voter. At most one row per
// (review, voter) pair; inserting a duplicate is a benign no-op.
type HelpfulVote struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	ReviewID  string    `gorm:"type:uuid;not null;index;references:reviews(id)" json:"review_id"`
	VoterID   string    `gorm:"type:varchar(100);not null" json:"voter_id"` // user id or device id
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (HelpfulVote) TableName() string {
	return "helpful_votes"
}
