package client

import (
	"context"
	"fmt"

	"reelview/internal/cache"
	"reelview/internal/model"
)

// ToggleReaction runs the optimistic reaction pipeline for one comment:
// snapshot, optimistic counter rewrite, remote toggle, rollback on failure,
// and an unconditional post-settle invalidation. Re-submitting the current
// reaction clears it; submitting a different one replaces it.
func (c *Client) ToggleReaction(ctx context.Context, reviewID, commentID string, typ model.ReactionType) error {
	if !typ.IsValid() {
		return ErrInvalidReaction
	}
	if err := c.voter.Validate(); err != nil {
		return err
	}
	c.bindReview(reviewID)

	current, hasCurrent := c.currentReaction(commentID)

	commentsKey := CommentsKey(reviewID)
	reactionsKey := ReactionsKey(reviewID)
	commentsSnap, commentsPresent := c.store.Snapshot(commentsKey)
	reactionsSnap, reactionsPresent := c.store.Snapshot(reactionsKey)

	// Optimistic rewrite of the one affected comment's counters. Toggle-off
	// decrements the current type; a switch decrements the old type (when
	// one existed) and increments the new one. Floors at zero either way.
	c.store.Write(commentsKey, func(v interface{}, ok bool) interface{} {
		comments, valid := asComments(v, ok)
		if !valid {
			return v
		}
		next := make([]model.Comment, len(comments))
		copy(next, comments)
		for i := range next {
			if next[i].ID != commentID {
				continue
			}
			if hasCurrent && current == typ {
				next[i].AddReaction(typ, -1)
			} else {
				if hasCurrent {
					next[i].AddReaction(current, -1)
				}
				next[i].AddReaction(typ, +1)
			}
		}
		return next
	})

	// Mirror the voter's own reaction entry so a rapid follow-up toggle sees
	// this one before the reconciling refetch lands.
	c.store.Write(reactionsKey, func(v interface{}, ok bool) interface{} {
		next := make(map[string]model.ReactionType)
		if m, valid := asReactionMap(v, ok); valid {
			for k, t := range m {
				next[k] = t
			}
		}
		if hasCurrent && current == typ {
			delete(next, commentID)
		} else {
			next[commentID] = typ
		}
		return next
	})

	err := c.remote.ToggleReaction(ctx, commentID, c.voter, typ)
	if err != nil {
		c.store.Restore(commentsKey, commentsSnap, commentsPresent)
		c.store.Restore(reactionsKey, reactionsSnap, reactionsPresent)
	}

	// Settle: refetch ground truth whether the toggle landed or not. The
	// counters are aggregates other voters move concurrently, so the
	// optimistic arithmetic is never trusted as final.
	c.store.Invalidate(ctx, commentsKey)
	c.store.InvalidatePrefix(ctx, reactionsKeyPrefix)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return nil
}

// CurrentReaction reports the voter's cached reaction on a comment, if any.
func (c *Client) CurrentReaction(commentID string) (model.ReactionType, bool) {
	return c.currentReaction(commentID)
}

// currentReaction scans every cached reaction entry for this voter. A miss
// just means no reaction is known locally; the remote toggle is safe either
// way because (comment, voter) is the natural key server-side.
func (c *Client) currentReaction(commentID string) (model.ReactionType, bool) {
	var (
		found model.ReactionType
		ok    bool
	)
	c.store.EachPrefix(reactionsKeyPrefix, func(_ cache.Key, v interface{}) {
		if ok {
			return
		}
		if m, valid := asReactionMap(v, true); valid {
			if t, has := m[commentID]; has {
				found, ok = t, true
			}
		}
	})
	return found, ok
}

func asComments(v interface{}, ok bool) ([]model.Comment, bool) {
	if !ok {
		return nil, false
	}
	comments, valid := v.([]model.Comment)
	return comments, valid
}

func asReactionMap(v interface{}, ok bool) (map[string]model.ReactionType, bool) {
	if !ok {
		return nil, false
	}
	m, valid := v.(map[string]model.ReactionType)
	return m, valid
}
