package repository

import (
	"errors"

	"reelview/internal/model"
	"reelview/internal/util"

	"gorm.io/gorm"
)

type ReactionRepository interface {
	FindByVoterAndComment(voterID, commentID string) (*model.Reaction, error)
	FindByVoterAndComments(voterID string, commentIDs []string) ([]*model.Reaction, error)
	// Toggle applies replace-or-clear semantics and adjusts the comment's
	// counters in the same transaction. It returns the comment row as it
	// stands after the change.
	Toggle(commentID, voterID string, typ model.ReactionType) (*model.Comment, error)
}

type reactionRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

func NewReactionRepository(db *gorm.DB, redis *util.RedisClient) ReactionRepository {
	return &reactionRepository{
		db:    db,
		redis: redis,
	}
}

func (r *reactionRepository) FindByVoterAndComment(voterID, commentID string) (*model.Reaction, error) {
	var reaction model.Reaction
	err := r.db.Where("voter_id = ? AND comment_id = ?", voterID, commentID).First(&reaction).Error
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) FindByVoterAndComments(voterID string, commentIDs []string) ([]*model.Reaction, error) {
	if len(commentIDs) == 0 {
		return []*model.Reaction{}, nil
	}
	var reactions []*model.Reaction
	err := r.db.
		Where("voter_id = ? AND comment_id IN ?", voterID, commentIDs).
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

// counterColumn maps a reaction type to its aggregate column on comments.
func counterColumn(typ model.ReactionType) string {
	switch typ {
	case model.ReactionLike:
		return "like_count"
	case model.ReactionDislike:
		return "dislike_count"
	case model.ReactionLove:
		return "love_count"
	}
	return ""
}

// Toggle runs the whole reaction change in one transaction so the row and
// the counters can never diverge. GREATEST keeps counters at zero even if a
// previous aggregate drifted.
func (r *reactionRepository) Toggle(commentID, voterID string, typ model.ReactionType) (*model.Comment, error) {
	var result model.Comment

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var comment model.Comment
		if err := tx.Where("id = ?", commentID).First(&comment).Error; err != nil {
			return err
		}

		var existing model.Reaction
		err := tx.Where("voter_id = ? AND comment_id = ?", voterID, commentID).First(&existing).Error
		switch {
		case err == nil && existing.Type == typ:
			// Toggle-off: clear the row, decrement its counter
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			if err := decrement(tx, commentID, typ); err != nil {
				return err
			}

		case err == nil:
			// Switch: replace the row, move one count across
			if err := tx.Model(&existing).Update("type", typ).Error; err != nil {
				return err
			}
			if err := decrement(tx, commentID, existing.Type); err != nil {
				return err
			}
			if err := increment(tx, commentID, typ); err != nil {
				return err
			}

		case errors.Is(err, gorm.ErrRecordNotFound):
			// First reaction from this voter
			reaction := &model.Reaction{CommentID: commentID, VoterID: voterID, Type: typ}
			if err := tx.Create(reaction).Error; err != nil {
				return err
			}
			if err := increment(tx, commentID, typ); err != nil {
				return err
			}

		default:
			return err
		}

		return tx.Where("id = ?", commentID).First(&result).Error
	})
	if err != nil {
		return nil, err
	}

	// The counters changed, so the cached comment and the cached list for
	// its review are stale. Reads after the toggle must see ground truth.
	if r.redis != nil {
		r.redis.Delete(commentCachePrefix + commentID)
		r.redis.Delete(commentByReviewCachePrefix + result.ReviewID)
	}

	return &result, nil
}

func increment(tx *gorm.DB, commentID string, typ model.ReactionType) error {
	col := counterColumn(typ)
	return tx.Model(&model.Comment{}).
		Where("id = ?", commentID).
		Update(col, gorm.Expr(col+" + 1")).Error
}

func decrement(tx *gorm.DB, commentID string, typ model.ReactionType) error {
	col := counterColumn(typ)
	return tx.Model(&model.Comment{}).
		Where("id = ?", commentID).
		Update(col, gorm.Expr("GREATEST("+col+" - 1, 0)")).Error
}
