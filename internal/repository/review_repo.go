package repository

import (
	"encoding/json"
	"time"

	"reelview/internal/model"
	"reelview/internal/util"

	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(review *model.Review) error
	FindByID(id string) (*model.Review, error)
	FindAll(limit, offset int) ([]*model.Review, error)
	// RefreshAggregates recomputes helpful_count and comment_count from the
	// underlying rows.
	RefreshAggregates(id string) error
}

type reviewRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	reviewCachePrefix     = "review:"
	reviewListCacheKey    = "review:list"
	reviewCacheExpiration = 10 * time.Minute
)

func NewReviewRepository(db *gorm.DB, redis *util.RedisClient) ReviewRepository {
	return &reviewRepository{
		db:    db,
		redis: redis,
	}
}

func (r *reviewRepository) Create(review *model.Review) error {
	if err := r.db.Create(review).Error; err != nil {
		return err
	}
	if r.redis != nil {
		r.redis.DeletePattern(reviewListCacheKey + "*")
	}
	return nil
}

func (r *reviewRepository) FindByID(id string) (*model.Review, error) {
	// Try cache first
	if r.redis != nil {
		if cached, err := r.redis.Get(reviewCachePrefix + id); err == nil {
			var review model.Review
			if err := json.Unmarshal([]byte(cached), &review); err == nil {
				return &review, nil
			}
		}
	}

	var review model.Review
	if err := r.db.Where("id = ?", id).First(&review).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if reviewJSON, err := json.Marshal(&review); err == nil {
			r.redis.Set(reviewCachePrefix+id, string(reviewJSON), reviewCacheExpiration)
		}
	}

	return &review, nil
}

func (r *reviewRepository) FindAll(limit, offset int) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// RefreshAggregates recomputes the denormalized counters after a structural
// change (new comment, deleted comment, new vote) and invalidates caches.
func (r *reviewRepository) RefreshAggregates(id string) error {
	err := r.db.Exec(`
		UPDATE reviews SET
			comment_count = (SELECT COUNT(*) FROM comments WHERE review_id = reviews.id AND deleted_at IS NULL),
			helpful_count = (SELECT COUNT(*) FROM helpful_votes WHERE review_id = reviews.id)
		WHERE id = ?`, id).Error
	if err != nil {
		return err
	}

	if r.redis != nil {
		r.redis.Delete(reviewCachePrefix + id)
		r.redis.DeletePattern(reviewListCacheKey + "*")
	}
	return nil
}
