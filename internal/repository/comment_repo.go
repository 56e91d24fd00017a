package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"reelview/internal/model"
	"reelview/internal/util"

	"gorm.io/gorm"
)

type CommentRepository interface {
	Create(comment *model.Comment) error
	FindByID(id string) (*model.Comment, error)
	FindByReviewID(reviewID string) ([]*model.Comment, error)
	// UpdateBody and SetReported write only their own columns. A full-row
	// save here would write back counter values read before a concurrent
	// reaction toggle and silently revert it.
	UpdateBody(id, body string) (*model.Comment, error)
	SetReported(id string, reason *string) (*model.Comment, error)
	Delete(id string) error
	CountByReviewID(reviewID string) (int64, error)
}

type commentRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	commentCachePrefix         = "comment:"
	commentByReviewCachePrefix = "comment:review:"
	commentCountCachePrefix    = "comment:count:"
	commentCacheExpiration     = 15 * time.Minute
)

func NewCommentRepository(db *gorm.DB, redis *util.RedisClient) CommentRepository {
	return &commentRepository{
		db:    db,
		redis: redis,
	}
}

// Create creates a new comment and invalidates related caches
func (r *commentRepository) Create(comment *model.Comment) error {
	if err := r.db.Create(comment).Error; err != nil {
		return err
	}

	if r.redis != nil {
		r.invalidateReviewCache(comment.ReviewID)
	}

	return nil
}

// FindByID finds a comment by ID
func (r *commentRepository) FindByID(id string) (*model.Comment, error) {
	// Try cache first
	if r.redis != nil {
		cached, err := r.getFromCache(commentCachePrefix + id)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var comment model.Comment
	if err := r.db.Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.cacheComment(&comment)
	}

	return &comment, nil
}

// FindByReviewID returns the flat comment list for a review, replies
// included. Top-level ordering is newest-first; the client partitions the
// list into threads.
func (r *commentRepository) FindByReviewID(reviewID string) ([]*model.Comment, error) {
	// Try cache first
	cacheKey := commentByReviewCachePrefix + reviewID
	if r.redis != nil {
		cached, err := r.getListFromCache(cacheKey)
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	var comments []*model.Comment
	err := r.db.
		Where("review_id = ?", reviewID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.cacheCommentList(cacheKey, comments)
	}

	return comments, nil
}

// UpdateBody replaces the body column and returns the fresh row
func (r *commentRepository) UpdateBody(id, body string) (*model.Comment, error) {
	return r.updateColumns(id, map[string]interface{}{"body": body})
}

// SetReported flags the comment for moderation and returns the fresh row
func (r *commentRepository) SetReported(id string, reason *string) (*model.Comment, error) {
	return r.updateColumns(id, map[string]interface{}{
		"reported":        true,
		"reported_reason": reason,
	})
}

// updateColumns writes only the given columns, so counters changed by a
// concurrent reaction toggle are never overwritten, then re-reads the row
// and invalidates the caches.
func (r *commentRepository) updateColumns(id string, cols map[string]interface{}) (*model.Comment, error) {
	res := r.db.Model(&model.Comment{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var comment model.Comment
	if err := r.db.Where("id = ?", id).First(&comment).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		r.redis.Delete(commentCachePrefix + id)
		r.invalidateReviewCache(comment.ReviewID)
	}

	return &comment, nil
}

// Delete removes a comment and its direct replies (one level of nesting, so
// a cascade never recurses further).
func (r *commentRepository) Delete(id string) error {
	var comment model.Comment
	if err := r.db.Where("id = ?", id).First(&comment).Error; err != nil {
		return err
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if comment.ParentID == nil {
			if err := tx.Where("parent_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&comment).Error
	})
	if err != nil {
		return err
	}

	if r.redis != nil {
		r.redis.Delete(commentCachePrefix + id)
		r.invalidateReviewCache(comment.ReviewID)
	}

	return nil
}

// CountByReviewID counts comments for a review (replies included)
func (r *commentRepository) CountByReviewID(reviewID string) (int64, error) {
	// Try cache first
	cacheKey := commentCountCachePrefix + reviewID
	if r.redis != nil {
		cached, err := r.redis.Get(cacheKey)
		if err == nil {
			var count int64
			if _, err := fmt.Sscanf(cached, "%d", &count); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := r.db.Model(&model.Comment{}).
		Where("review_id = ?", reviewID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if r.redis != nil {
		r.redis.Set(cacheKey, fmt.Sprintf("%d", count), commentCacheExpiration)
	}

	return count, nil
}

// Cache helpers
func (r *commentRepository) cacheComment(comment *model.Comment) {
	commentJSON, err := json.Marshal(comment)
	if err != nil {
		return
	}
	r.redis.Set(commentCachePrefix+comment.ID, string(commentJSON), commentCacheExpiration)
}

func (r *commentRepository) cacheCommentList(key string, comments []*model.Comment) {
	commentsJSON, err := json.Marshal(comments)
	if err != nil {
		return
	}
	r.redis.Set(key, string(commentsJSON), commentCacheExpiration)
}

func (r *commentRepository) getFromCache(key string) (*model.Comment, error) {
	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var comment model.Comment
	if err := json.Unmarshal([]byte(cached), &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) getListFromCache(key string) ([]*model.Comment, error) {
	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var comments []*model.Comment
	if err := json.Unmarshal([]byte(cached), &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *commentRepository) invalidateReviewCache(reviewID string) {
	r.redis.Delete(commentByReviewCachePrefix + reviewID)
	r.redis.Delete(commentCountCachePrefix + reviewID)
}
