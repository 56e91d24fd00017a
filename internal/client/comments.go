package client

import (
	"context"
	"fmt"
	"strings"

	"reelview/internal/model"
)

// Comments returns the cached comment list for a review, fetching it from the
// backend on first use. The returned slice is the cache's value; callers must
// not mutate it.
func (c *Client) Comments(ctx context.Context, reviewID string) ([]model.Comment, error) {
	c.bindReview(reviewID)
	if v, ok := c.store.Read(CommentsKey(reviewID)); ok {
		if comments, valid := v.([]model.Comment); valid {
			return comments, nil
		}
	}
	comments, err := c.remote.FetchComments(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	c.store.Write(CommentsKey(reviewID), func(interface{}, bool) interface{} {
		return comments
	})
	return comments, nil
}

// Reactions returns the voter's cached reactions for a review's comments,
// loading them on first use.
func (c *Client) Reactions(ctx context.Context, reviewID string) (map[string]model.ReactionType, error) {
	c.bindReview(reviewID)
	if v, ok := c.store.Read(ReactionsKey(reviewID)); ok {
		if m, valid := v.(map[string]model.ReactionType); valid {
			return m, nil
		}
	}
	m, err := c.fetchReactionMap(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	c.store.Write(ReactionsKey(reviewID), func(interface{}, bool) interface{} {
		return m
	})
	return m, nil
}

func validateBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return ErrEmptyBody
	}
	if len([]rune(body)) > model.MaxCommentLength {
		return ErrBodyTooLong
	}
	return nil
}

// PostComment creates a top-level comment or a reply. Creation is not
// optimistic: the new row reaches the cache through the change feed (or the
// post-settle refetch), so the feed's insert de-dup guard stays simple.
func (c *Client) PostComment(ctx context.Context, in CreateCommentInput) (*model.Comment, error) {
	if err := validateBody(in.Body); err != nil {
		return nil, err
	}
	if err := in.Author.Validate(); err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		// One level of nesting only. The parent must be a top-level comment;
		// enforce it locally when the parent is cached, and again server-side.
		if v, ok := c.store.Read(CommentsKey(in.ReviewID)); ok {
			if comments, valid := v.([]model.Comment); valid {
				for _, cm := range comments {
					if cm.ID == *in.ParentID && cm.ParentID != nil {
						return nil, ErrNestedReply
					}
				}
			}
		}
	}
	c.bindReview(in.ReviewID)

	created, err := c.remote.CreateComment(ctx, in)

	c.store.Invalidate(ctx, CommentsKey(in.ReviewID))
	c.store.Invalidate(ctx, ReviewKey(in.ReviewID))
	c.store.Invalidate(ctx, ReviewListKey())

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return created, nil
}

// EditComment replaces a comment's body. Author-only, enforced server-side.
func (c *Client) EditComment(ctx context.Context, reviewID, commentID, body string) error {
	if err := validateBody(body); err != nil {
		return err
	}
	c.bindReview(reviewID)

	err := c.remote.UpdateCommentBody(ctx, commentID, body)
	c.store.Invalidate(ctx, CommentsKey(reviewID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return nil
}

// ReportComment flags a comment with an optional reason. Any user may report.
func (c *Client) ReportComment(ctx context.Context, reviewID, commentID, reason string) error {
	c.bindReview(reviewID)

	err := c.remote.ReportComment(ctx, commentID, reason)
	c.store.Invalidate(ctx, CommentsKey(reviewID))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return nil
}

// DeleteComment removes a comment (author or admin; enforced server-side).
// Replies may be cascade-deleted or orphaned by the backend's referential
// policy; the thread builder tolerates either.
func (c *Client) DeleteComment(ctx context.Context, reviewID, commentID string) error {
	c.bindReview(reviewID)

	err := c.remote.DeleteComment(ctx, commentID)
	c.store.Invalidate(ctx, CommentsKey(reviewID))
	c.store.Invalidate(ctx, ReviewKey(reviewID))
	c.store.Invalidate(ctx, ReviewListKey())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return nil
}
