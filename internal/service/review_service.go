package service

import (
	"errors"

	"reelview/internal/model"
	"reelview/internal/repository"
)

type ReviewService interface {
	CreateReview(authorID, movieTitle, title, body string, rating int) (*model.Review, error)
	GetReview(id string) (*model.Review, error)
	ListReviews(limit, offset int) ([]*model.Review, error)
	// VoteHelpful records a helpful vote; the bool reports whether the voter
	// had already voted (a benign outcome, not an error).
	VoteHelpful(reviewID string, voter model.Identity) (bool, error)
	HasVoted(reviewID string, voter model.Identity) (bool, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	voteRepo   repository.VoteRepository
	userRepo   repository.UserRepository
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	voteRepo repository.VoteRepository,
	userRepo repository.UserRepository,
) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		voteRepo:   voteRepo,
		userRepo:   userRepo,
	}
}

// CreateReview creates a new movie review
func (s *reviewService) CreateReview(authorID, movieTitle, title, body string, rating int) (*model.Review, error) {
	if _, err := s.userRepo.FindByID(authorID); err != nil {
		return nil, errors.New("user not found")
	}
	if movieTitle == "" || title == "" || body == "" {
		return nil, errors.New("movie title, title and body are required")
	}
	if rating < 1 || rating > 10 {
		return nil, errors.New("rating must be between 1 and 10")
	}

	review := &model.Review{
		AuthorID:   authorID,
		MovieTitle: movieTitle,
		Title:      title,
		Body:       body,
		Rating:     rating,
	}

	if err := s.reviewRepo.Create(review); err != nil {
		return nil, errors.New("failed to create review")
	}

	return review, nil
}

// GetReview gets a single review with its aggregates
func (s *reviewService) GetReview(id string) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(id)
	if err != nil {
		return nil, errors.New("review not found")
	}
	return review, nil
}

// ListReviews lists reviews, newest first
func (s *reviewService) ListReviews(limit, offset int) ([]*model.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	reviews, err := s.reviewRepo.FindAll(limit, offset)
	if err != nil {
		return nil, errors.New("failed to get reviews")
	}
	return reviews, nil
}

// VoteHelpful marks a review as helpful for one voter. Voting twice from the
// same identity leaves exactly one vote and reports already-voted.
func (s *reviewService) VoteHelpful(reviewID string, voter model.Identity) (bool, error) {
	if err := voter.Validate(); err != nil {
		return false, err
	}

	if _, err := s.reviewRepo.FindByID(reviewID); err != nil {
		return false, errors.New("review not found")
	}

	vote := &model.HelpfulVote{
		ReviewID: reviewID,
		VoterID:  voter.Value,
	}

	created, err := s.voteRepo.CreateIfAbsent(vote)
	if err != nil {
		return false, errors.New("failed to record vote")
	}
	if !created {
		return true, nil
	}

	if err := s.reviewRepo.RefreshAggregates(reviewID); err != nil {
		return false, errors.New("failed to refresh review aggregates")
	}
	return false, nil
}

// HasVoted checks whether a voter already marked a review as helpful
func (s *reviewService) HasVoted(reviewID string, voter model.Identity) (bool, error) {
	if err := voter.Validate(); err != nil {
		return false, err
	}
	return s.voteRepo.Exists(reviewID, voter.Value)
}
