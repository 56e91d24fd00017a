package repository

import (
	"reelview/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VoteRepository interface {
	// CreateIfAbsent inserts the vote unless its deterministic id already
	// exists. Returns inserted=false for the duplicate case; a conflict is
	// never an error.
	CreateIfAbsent(vote *model.HelpfulVote) (inserted bool, err error)
	Exists(reviewID, voterID string) (bool, error)
	CountByReviewID(reviewID string) (int64, error)
}

type voteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) CreateIfAbsent(vote *model.HelpfulVote) (bool, error) {
	if vote.ID == "" {
		vote.ID = model.HelpfulVoteID(vote.ReviewID, vote.VoterID)
	}
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(vote)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *voteRepository) Exists(reviewID, voterID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.HelpfulVote{}).
		Where("id = ?", model.HelpfulVoteID(reviewID, voterID)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *voteRepository) CountByReviewID(reviewID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.HelpfulVote{}).
		Where("review_id = ?", reviewID).
		Count(&count).Error
	return count, err
}
