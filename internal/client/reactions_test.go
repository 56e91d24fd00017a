package client

import (
	"context"
	"errors"
	"sync"
	"testing"

	"reelview/internal/cache"
	"reelview/internal/model"

	"github.com/stretchr/testify/require"
)

const reviewID = "review-1"

func seedReviewWithComment(remote *fakeRemote, like, dislike, love int64) model.Comment {
	cm := model.Comment{
		ID:           "comment-1",
		ReviewID:     reviewID,
		Body:         "great movie",
		AuthorKind:   model.AuthorAnonymous,
		LikeCount:    like,
		DislikeCount: dislike,
		LoveCount:    love,
	}
	remote.seedComment(cm)
	return cm
}

func loadReview(t *testing.T, c *Client) {
	t.Helper()
	ctx := context.Background()
	_, err := c.Comments(ctx, reviewID)
	require.NoError(t, err)
	_, err = c.Reactions(ctx, reviewID)
	require.NoError(t, err)
}

func TestToggleReaction_Idempotence(t *testing.T) {
	remote := newFakeRemote()
	seedReviewWithComment(remote, 0, 0, 0)
	c := newTestClient(t, remote, model.UserIdentity("voter-1"))
	loadReview(t, c)
	ctx := context.Background()

	// First toggle: +1 and a held reaction.
	require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLike))
	cm := findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(1), cm.LikeCount)
	typ, ok := c.CurrentReaction("comment-1")
	require.True(t, ok)
	require.Equal(t, model.ReactionLike, typ)
	c.Store().WaitRefetches()

	// Same type again: toggle-off, net change zero.
	require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLike))
	c.Store().WaitRefetches()
	cm = findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(0), cm.LikeCount)
	_, ok = c.CurrentReaction("comment-1")
	require.False(t, ok, "toggle-off must clear the held reaction")
}

func TestToggleReaction_MutualExclusivity(t *testing.T) {
	remote := newFakeRemote()
	seedReviewWithComment(remote, 2, 0, 1)
	c := newTestClient(t, remote, model.UserIdentity("voter-1"))
	loadReview(t, c)
	ctx := context.Background()

	require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLike))
	c.Store().WaitRefetches()
	require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionDislike))
	c.Store().WaitRefetches()

	cm := findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(2), cm.LikeCount, "like counter must return to its original value")
	require.Equal(t, int64(1), cm.DislikeCount, "dislike counter incremented exactly once")
	typ, ok := c.CurrentReaction("comment-1")
	require.True(t, ok)
	require.Equal(t, model.ReactionDislike, typ)
}

func TestToggleReaction_CountersNeverNegative(t *testing.T) {
	remote := newFakeRemote()
	seedReviewWithComment(remote, 0, 0, 0)
	// Drifted state: the voter holds a reaction the aggregate never counted.
	remote.reactions["voter-1"] = map[string]model.ReactionType{"comment-1": model.ReactionLike}

	c := newTestClient(t, remote, model.UserIdentity("voter-1"))
	loadReview(t, c)
	ctx := context.Background()

	// Watch every cache write for a negative counter. Violations are
	// collected and asserted from the test goroutine.
	var (
		sawNegative bool
		seenMu      sync.Mutex
	)
	c.Store().OnChange(func(key cache.Key) {
		v, ok := c.Store().Read(key)
		if !ok {
			return
		}
		comments, ok := v.([]model.Comment)
		if !ok {
			return
		}
		seenMu.Lock()
		defer seenMu.Unlock()
		for _, cm := range comments {
			if cm.LikeCount < 0 || cm.DislikeCount < 0 || cm.LoveCount < 0 {
				sawNegative = true
			}
		}
	})

	for i := 0; i < 3; i++ {
		require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLike))
		c.Store().WaitRefetches()
	}
	cm := findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.GreaterOrEqual(t, cm.LikeCount, int64(0))
	seenMu.Lock()
	defer seenMu.Unlock()
	require.False(t, sawNegative, "no write may drive a counter below zero")
}

func TestToggleReaction_RollbackOnFailure(t *testing.T) {
	remote := newFakeRemote()
	seedReviewWithComment(remote, 2, 0, 1)
	c := newTestClient(t, remote, model.UserIdentity("voter-1"))
	loadReview(t, c)
	ctx := context.Background()

	before := cachedComments(t, c, reviewID)

	remote.mu.Lock()
	remote.toggleErr = errors.New("backend down")
	remote.mu.Unlock()
	err := c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLove)
	require.ErrorIs(t, err, ErrRemote)

	// The post-settle refetch lands on unchanged ground truth, so the cache
	// is exactly the pre-mutation state, not a partial one.
	c.Store().WaitRefetches()
	require.Equal(t, before, cachedComments(t, c, reviewID))
	_, ok := c.CurrentReaction("comment-1")
	require.False(t, ok)
}

func TestToggleReaction_InvalidType(t *testing.T) {
	remote := newFakeRemote()
	c := newTestClient(t, remote, model.UserIdentity("voter-1"))

	err := c.ToggleReaction(context.Background(), reviewID, "comment-1", "haha")
	require.ErrorIs(t, err, ErrInvalidReaction)
	require.Zero(t, remote.toggleCall, "no remote call on validation failure")
}

func TestToggleReaction_EndToEnd(t *testing.T) {
	remote := newFakeRemote()
	seedReviewWithComment(remote, 2, 0, 1)
	c := newTestClient(t, remote, model.UserIdentity("voter-V"))
	loadReview(t, c)
	ctx := context.Background()

	// V reacts love: optimistic {2,0,2}.
	require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLove))
	cm := findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(2), cm.LikeCount)
	require.Equal(t, int64(0), cm.DislikeCount)
	require.Equal(t, int64(2), cm.LoveCount)

	// Refetch confirms the same state.
	c.Store().WaitRefetches()
	cm = findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(2), cm.LoveCount)

	// Toggle-off back to {2,0,1}, confirmed by refetch.
	require.NoError(t, c.ToggleReaction(ctx, reviewID, "comment-1", model.ReactionLove))
	c.Store().WaitRefetches()
	cm = findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(2), cm.LikeCount)
	require.Equal(t, int64(0), cm.DislikeCount)
	require.Equal(t, int64(1), cm.LoveCount)
}

func TestToggleReaction_DeviceVoter(t *testing.T) {
	remote := newFakeRemote()
	seedReviewWithComment(remote, 0, 0, 0)
	c := newTestClient(t, remote, model.DeviceIdentity("device-abc"))
	loadReview(t, c)

	require.NoError(t, c.ToggleReaction(context.Background(), reviewID, "comment-1", model.ReactionLove))
	c.Store().WaitRefetches()
	cm := findComment(t, cachedComments(t, c, reviewID), "comment-1")
	require.Equal(t, int64(1), cm.LoveCount)
}
