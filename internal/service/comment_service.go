package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"reelview/internal/model"
	"reelview/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrEmptyBody    = errors.New("comment body is empty")
	ErrBodyTooLong  = errors.New("comment body exceeds maximum length")
	ErrNestedReply  = errors.New("replies to replies are not allowed")
	ErrNotCommenter = errors.New("only the author can modify this comment")
)

type CommentService interface {
	CreateComment(reviewID string, parentID *string, body string, author model.Author) (*model.Comment, error)
	GetComments(reviewID string) ([]*model.Comment, error)
	UpdateBody(commentID, body string, actor model.Identity) (*model.Comment, error)
	ReportComment(commentID, reason string) (*model.Comment, error)
	DeleteComment(commentID string, actor model.Identity, isAdmin bool) error
	// GetVoterReactions returns the actor's reaction per comment id, for the
	// comments the actor has reacted to.
	GetVoterReactions(voter model.Identity, commentIDs []string) (map[string]model.ReactionType, error)
	ToggleReaction(commentID string, voter model.Identity, typ model.ReactionType) (*model.Comment, error)
}

type commentService struct {
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	reviewRepo   repository.ReviewRepository
	publisher    FeedPublisher
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	reactionRepo repository.ReactionRepository,
	reviewRepo repository.ReviewRepository,
	publisher FeedPublisher,
) CommentService {
	return &commentService{
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		reviewRepo:   reviewRepo,
		publisher:    publisher,
	}
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > model.MaxCommentLength {
		return ErrBodyTooLong
	}
	return nil
}

// CreateComment creates a comment or a one-level reply on a review
func (s *commentService) CreateComment(reviewID string, parentID *string, body string, author model.Author) (*model.Comment, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}
	if err := author.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.reviewRepo.FindByID(reviewID); err != nil {
		return nil, errors.New("review not found")
	}

	// Replies attach only to top-level comments of the same review
	if parentID != nil {
		parent, err := s.commentRepo.FindByID(*parentID)
		if err != nil {
			return nil, errors.New("parent comment not found")
		}
		if parent.ReviewID != reviewID {
			return nil, errors.New("parent comment belongs to another review")
		}
		if parent.ParentID != nil {
			return nil, ErrNestedReply
		}
	}

	comment := &model.Comment{
		ReviewID: reviewID,
		ParentID: parentID,
		Body:     body,
	}
	comment.SetAuthor(author)

	if err := s.commentRepo.Create(comment); err != nil {
		return nil, errors.New("failed to create comment")
	}

	if err := s.reviewRepo.RefreshAggregates(reviewID); err != nil {
		return nil, errors.New("failed to refresh review aggregates")
	}

	s.publisher.PublishInsert(comment)
	return comment, nil
}

// GetComments returns the flat comment list for a review, newest first
func (s *commentService) GetComments(reviewID string) ([]*model.Comment, error) {
	comments, err := s.commentRepo.FindByReviewID(reviewID)
	if err != nil {
		return nil, errors.New("failed to get comments")
	}
	return comments, nil
}

// UpdateBody replaces a comment's body. Only the original author may edit;
// guest and anonymous comments cannot be edited after posting.
func (s *commentService) UpdateBody(commentID, body string, actor model.Identity) (*model.Comment, error) {
	if err := validateBody(body); err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		return nil, errors.New("comment not found")
	}

	if actor.Kind != model.IdentityUser || comment.AuthorID == nil || *comment.AuthorID != actor.Value {
		return nil, ErrNotCommenter
	}

	updated, err := s.commentRepo.UpdateBody(commentID, body)
	if err != nil {
		return nil, errors.New("failed to update comment")
	}

	s.publisher.PublishUpdate(updated)
	return updated, nil
}

// ReportComment flags a comment for moderation. Anyone can report.
func (s *commentService) ReportComment(commentID, reason string) (*model.Comment, error) {
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	reported, err := s.commentRepo.SetReported(commentID, reasonPtr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("comment not found")
		}
		return nil, errors.New("failed to report comment")
	}

	s.publisher.PublishUpdate(reported)
	return reported, nil
}

// DeleteComment removes a comment. Deleting a top-level comment removes its
// replies as well, and every removed row gets its own delete event.
func (s *commentService) DeleteComment(commentID string, actor model.Identity, isAdmin bool) error {
	comment, err := s.commentRepo.FindByID(commentID)
	if err != nil {
		return errors.New("comment not found")
	}

	owns := actor.Kind == model.IdentityUser && comment.AuthorID != nil && *comment.AuthorID == actor.Value
	if !owns && !isAdmin {
		return ErrNotCommenter
	}

	// Collect replies before the cascade so their delete events can be
	// published afterwards.
	var replies []*model.Comment
	if comment.ParentID == nil {
		all, err := s.commentRepo.FindByReviewID(comment.ReviewID)
		if err == nil {
			for _, c := range all {
				if c.ParentID != nil && *c.ParentID == comment.ID {
					replies = append(replies, c)
				}
			}
		}
	}

	if err := s.commentRepo.Delete(commentID); err != nil {
		return errors.New("failed to delete comment")
	}

	if err := s.reviewRepo.RefreshAggregates(comment.ReviewID); err != nil {
		return errors.New("failed to refresh review aggregates")
	}

	s.publisher.PublishDelete(comment)
	for _, reply := range replies {
		s.publisher.PublishDelete(reply)
	}
	return nil
}

// GetVoterReactions maps comment id to the actor's current reaction
func (s *commentService) GetVoterReactions(voter model.Identity, commentIDs []string) (map[string]model.ReactionType, error) {
	if err := voter.Validate(); err != nil {
		return nil, err
	}

	reactions, err := s.reactionRepo.FindByVoterAndComments(voter.Value, commentIDs)
	if err != nil {
		return nil, errors.New("failed to get reactions")
	}

	result := make(map[string]model.ReactionType, len(reactions))
	for _, r := range reactions {
		result[r.CommentID] = r.Type
	}
	return result, nil
}

// ToggleReaction applies one toggle press: same type clears it, a different
// type replaces it, no prior reaction records it. Returns the comment with
// its settled counters.
func (s *commentService) ToggleReaction(commentID string, voter model.Identity, typ model.ReactionType) (*model.Comment, error) {
	if !typ.IsValid() {
		return nil, errors.New("invalid reaction type")
	}
	if err := voter.Validate(); err != nil {
		return nil, err
	}

	comment, err := s.reactionRepo.Toggle(commentID, voter.Value, typ)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("comment not found")
		}
		return nil, errors.New("failed to toggle reaction")
	}

	s.publisher.PublishUpdate(comment)
	return comment, nil
}
