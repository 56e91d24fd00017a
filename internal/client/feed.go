package client

import (
	"context"
	"sync"

	"reelview/internal/model"
)

// Subscription is the handle for one review's change feed. Release detaches
// the listener and closes the underlying stream; it is safe to call more than
// once and must be called on every exit path of the owning view.
type Subscription struct {
	once    sync.Once
	release func()
}

// Release tears the subscription down. Events arriving afterwards are
// dropped, which is safe because a fresh subscription always begins with a
// full refetch.
func (s *Subscription) Release() {
	s.once.Do(s.release)
}

// SubscribeComments attaches a change-feed listener for one review and merges
// incoming insert/update/delete events into the cached comment list.
func (c *Client) SubscribeComments(ctx context.Context, reviewID string) (*Subscription, error) {
	c.bindReview(reviewID)

	stream, err := c.remote.SubscribeComments(ctx, reviewID)
	if err != nil {
		return nil, err
	}

	// A fresh subscription starts from ground truth; anything missed while
	// unsubscribed is picked up here.
	c.store.Invalidate(ctx, CommentsKey(reviewID))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-stream.Events():
				if !ok {
					return
				}
				c.applyFeedEvent(ctx, reviewID, ev)
			}
		}
	}()

	return &Subscription{release: func() {
		stream.Close()
		<-done
	}}, nil
}

// applyFeedEvent merges one pushed row change into the comment list cache.
// Unknown event types and rows for other reviews are dropped; an update or
// delete for a comment that is no longer cached is benign staleness and a
// no-op either way.
func (c *Client) applyFeedEvent(ctx context.Context, reviewID string, ev model.FeedEvent) {
	if ev.Comment.ID == "" || ev.Comment.ReviewID != reviewID {
		return
	}

	structural := false
	c.store.Write(CommentsKey(reviewID), func(v interface{}, ok bool) interface{} {
		comments, valid := asComments(v, ok)
		if !valid {
			comments = nil
		}

		switch ev.Event {
		case model.FeedInsert:
			for _, cm := range comments {
				if cm.ID == ev.Comment.ID {
					return comments // duplicate event or already merged
				}
			}
			structural = true
			next := make([]model.Comment, 0, len(comments)+1)
			next = append(next, ev.Comment)
			next = append(next, comments...)
			return next

		case model.FeedUpdate:
			for i, cm := range comments {
				if cm.ID == ev.Comment.ID {
					next := make([]model.Comment, len(comments))
					copy(next, comments)
					next[i] = ev.Comment // incoming row wins
					return next
				}
			}
			return comments

		case model.FeedDelete:
			for i, cm := range comments {
				if cm.ID == ev.Comment.ID {
					structural = true
					next := make([]model.Comment, 0, len(comments)-1)
					next = append(next, comments[:i]...)
					next = append(next, comments[i+1:]...)
					return next
				}
			}
			return comments

		default:
			return comments
		}
	})

	// Inserts and deletes move the review's comment count; updates already
	// carry their counter changes in the pushed row.
	if structural {
		c.store.Invalidate(ctx, ReviewKey(reviewID))
		c.store.Invalidate(ctx, ReviewListKey())
	}
}
