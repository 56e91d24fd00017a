// Package client is the SDK the presentation layer talks to: a query cache,
// the mutation pipeline for comments, reactions and helpful votes, and the
// per-review change-feed listener that keeps cached comment lists fresh.
package client

import (
	"context"
	"errors"

	"reelview/internal/cache"
	"reelview/internal/model"
)

// Cache key families. Reaction entries are keyed per review so the toggle
// pipeline can scan every cached reaction query belonging to the voter.
const (
	commentsKeyPrefix  = "comments:"
	reactionsKeyPrefix = "reactions:"
	reviewKeyPrefix    = "review:"
	reviewListKey      = cache.Key("reviews")
)

func CommentsKey(reviewID string) cache.Key {
	return cache.Key(commentsKeyPrefix + reviewID)
}

func ReactionsKey(reviewID string) cache.Key {
	return cache.Key(reactionsKeyPrefix + reviewID)
}

func ReviewKey(reviewID string) cache.Key {
	return cache.Key(reviewKeyPrefix + reviewID)
}

// ReviewListKey names the cached review list.
func ReviewListKey() cache.Key { return reviewListKey }

// Validation errors, rejected before any remote call.
var (
	ErrEmptyBody       = errors.New("comment body is empty")
	ErrBodyTooLong     = errors.New("comment body exceeds maximum length")
	ErrInvalidReaction = errors.New("invalid reaction type")
	ErrNestedReply     = errors.New("replies cannot be nested under another reply")
)

// ErrRemote wraps any backend failure surfaced to the UI as retryable.
var ErrRemote = errors.New("remote request failed")

// CreateCommentInput is the payload for posting a comment.
type CreateCommentInput struct {
	ReviewID string
	ParentID *string
	Body     string
	Author   model.Author
}

// FeedStream is a live change feed for one review's comments. Events stops
// yielding and is closed once Close is called or the server drops the stream.
type FeedStream interface {
	Events() <-chan model.FeedEvent
	Close() error
}

// Remote is the backend collaborator contract: reads, writes with toggle and
// insert-or-ignore semantics, and the per-review change feed. The HTTP
// implementation lives in this package; tests substitute fakes.
type Remote interface {
	FetchComments(ctx context.Context, reviewID string) ([]model.Comment, error)
	FetchReactions(ctx context.Context, voter model.Identity, commentIDs []string) ([]model.Reaction, error)
	FetchReview(ctx context.Context, reviewID string) (*model.Review, error)
	FetchReviews(ctx context.Context) ([]model.Review, error)

	CreateComment(ctx context.Context, in CreateCommentInput) (*model.Comment, error)
	UpdateCommentBody(ctx context.Context, commentID, body string) error
	ReportComment(ctx context.Context, commentID, reason string) error
	DeleteComment(ctx context.Context, commentID string) error

	// ToggleReaction has replace-or-clear semantics server-side: the same
	// inputs replace the voter's reaction row or clear it when the type
	// matches the current one, adjusting counters in the same transaction.
	ToggleReaction(ctx context.Context, commentID string, voter model.Identity, typ model.ReactionType) error

	// CreateHelpfulVote inserts the deterministic (review, voter) vote;
	// a duplicate is reported as alreadyVoted, never as an error.
	CreateHelpfulVote(ctx context.Context, reviewID string, voter model.Identity) (alreadyVoted bool, err error)
	CheckHelpfulVote(ctx context.Context, reviewID string, voter model.Identity) (bool, error)

	SubscribeComments(ctx context.Context, reviewID string) (FeedStream, error)
}

// Client binds one voter identity to the cache and the remote backend.
type Client struct {
	store  *cache.Store
	remote Remote
	voter  model.Identity
}

// New creates a client. The store is shared app-wide and injected so tests
// run against a fresh instance.
func New(store *cache.Store, remote Remote, voter model.Identity) *Client {
	return &Client{store: store, remote: remote, voter: voter}
}

// Store exposes the underlying cache for UI change subscriptions.
func (c *Client) Store() *cache.Store { return c.store }

// Voter returns the identity this client mutates under.
func (c *Client) Voter() model.Identity { return c.voter }

// bindReview registers the remote fetchers backing a review's cache entries,
// so invalidation self-heals them from ground truth.
func (c *Client) bindReview(reviewID string) {
	c.store.RegisterFetcher(CommentsKey(reviewID), func(ctx context.Context) (interface{}, error) {
		return c.remote.FetchComments(ctx, reviewID)
	})
	c.store.RegisterFetcher(ReactionsKey(reviewID), func(ctx context.Context) (interface{}, error) {
		return c.fetchReactionMap(ctx, reviewID)
	})
	c.store.RegisterFetcher(ReviewKey(reviewID), func(ctx context.Context) (interface{}, error) {
		return c.remote.FetchReview(ctx, reviewID)
	})
	c.store.RegisterFetcher(ReviewListKey(), func(ctx context.Context) (interface{}, error) {
		return c.remote.FetchReviews(ctx)
	})
}

// fetchReactionMap loads the voter's reactions over the currently cached
// comment set and indexes them by comment id.
func (c *Client) fetchReactionMap(ctx context.Context, reviewID string) (map[string]model.ReactionType, error) {
	ids := c.cachedCommentIDs(reviewID)
	out := make(map[string]model.ReactionType)
	if len(ids) == 0 {
		return out, nil
	}
	reactions, err := c.remote.FetchReactions(ctx, c.voter, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range reactions {
		out[r.CommentID] = r.Type
	}
	return out, nil
}

func (c *Client) cachedCommentIDs(reviewID string) []string {
	v, ok := c.store.Read(CommentsKey(reviewID))
	if !ok {
		return nil
	}
	comments, ok := v.([]model.Comment)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.ID)
	}
	return ids
}
