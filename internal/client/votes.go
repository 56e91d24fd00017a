package client

import (
	"context"
	"fmt"
)

// VoteResult reports the outcome of a helpful vote.
type VoteResult struct {
	AlreadyVoted bool `json:"already_voted"`
}

// VoteHelpful marks a review as helpful for this voter. The vote's identity
// is deterministic over (review, voter), so a repeat vote surfaces as
// AlreadyVoted rather than an error or a second row.
func (c *Client) VoteHelpful(ctx context.Context, reviewID string) (VoteResult, error) {
	if err := c.voter.Validate(); err != nil {
		return VoteResult{}, err
	}
	c.bindReview(reviewID)

	already, err := c.remote.CreateHelpfulVote(ctx, reviewID, c.voter)

	c.store.Invalidate(ctx, ReviewKey(reviewID))
	c.store.Invalidate(ctx, ReviewListKey())

	if err != nil {
		return VoteResult{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return VoteResult{AlreadyVoted: already}, nil
}

// HasVotedHelpful reports whether this voter already voted on the review.
func (c *Client) HasVotedHelpful(ctx context.Context, reviewID string) (bool, error) {
	if err := c.voter.Validate(); err != nil {
		return false, err
	}
	voted, err := c.remote.CheckHelpfulVote(ctx, reviewID, c.voter)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return voted, nil
}
