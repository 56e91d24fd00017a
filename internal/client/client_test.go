package client

// Tests for the client SDK core: the optimistic reaction pipeline, the
// change-feed merge, comment threading, and helpful votes. The backend is a
// fake Remote implementing the same toggle / insert-or-ignore semantics the
// real server provides, so post-settle refetches land on ground truth.

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reelview/internal/cache"
	"reelview/internal/model"

	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	mu sync.Mutex

	reviews   map[string]*model.Review
	comments  map[string][]model.Comment                  // by review id
	reactions map[string]map[string]model.ReactionType    // voter id -> comment id -> type
	votes     map[string]struct{}                         // deterministic vote id

	toggleErr  error
	createErr  error
	toggleCall int
	reviewCall int

	stream *fakeStream
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		reviews:   make(map[string]*model.Review),
		comments:  make(map[string][]model.Comment),
		reactions: make(map[string]map[string]model.ReactionType),
		votes:     make(map[string]struct{}),
	}
}

func (f *fakeRemote) seedComment(cm model.Comment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.comments[cm.ReviewID] = append(f.comments[cm.ReviewID], cm)
}

func (f *fakeRemote) FetchComments(_ context.Context, reviewID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Comment, len(f.comments[reviewID]))
	copy(out, f.comments[reviewID])
	return out, nil
}

func (f *fakeRemote) FetchReactions(_ context.Context, voter model.Identity, commentIDs []string) ([]model.Reaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Reaction
	for _, id := range commentIDs {
		if typ, ok := f.reactions[voter.Value][id]; ok {
			out = append(out, model.Reaction{CommentID: id, VoterID: voter.Value, Type: typ})
		}
	}
	return out, nil
}

func (f *fakeRemote) FetchReview(_ context.Context, reviewID string) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewCall++
	if rv, ok := f.reviews[reviewID]; ok {
		out := *rv
		return &out, nil
	}
	return &model.Review{ID: reviewID}, nil
}

func (f *fakeRemote) FetchReviews(context.Context) ([]model.Review, error) {
	return nil, nil
}

func (f *fakeRemote) CreateComment(_ context.Context, in CreateCommentInput) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	cm := model.Comment{
		ID:        "c-" + in.Body,
		ReviewID:  in.ReviewID,
		ParentID:  in.ParentID,
		Body:      in.Body,
		CreatedAt: time.Now(),
	}
	cm.SetAuthor(in.Author)
	f.comments[in.ReviewID] = append(f.comments[in.ReviewID], cm)
	return &cm, nil
}

func (f *fakeRemote) UpdateCommentBody(_ context.Context, commentID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for rid := range f.comments {
		for i := range f.comments[rid] {
			if f.comments[rid][i].ID == commentID {
				f.comments[rid][i].Body = body
				return nil
			}
		}
	}
	return errors.New("comment not found")
}

func (f *fakeRemote) ReportComment(_ context.Context, commentID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for rid := range f.comments {
		for i := range f.comments[rid] {
			if f.comments[rid][i].ID == commentID {
				f.comments[rid][i].Reported = true
				if reason != "" {
					r := reason
					f.comments[rid][i].ReportedReason = &r
				}
				return nil
			}
		}
	}
	return errors.New("comment not found")
}

func (f *fakeRemote) DeleteComment(_ context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for rid, list := range f.comments {
		for i := range list {
			if list[i].ID == commentID {
				f.comments[rid] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
	}
	return errors.New("comment not found")
}

// ToggleReaction mirrors the server transaction: clear on same type, replace
// otherwise, counters adjusted alongside the row change.
func (f *fakeRemote) ToggleReaction(_ context.Context, commentID string, voter model.Identity, typ model.ReactionType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggleCall++
	if f.toggleErr != nil {
		return f.toggleErr
	}
	if f.reactions[voter.Value] == nil {
		f.reactions[voter.Value] = make(map[string]model.ReactionType)
	}
	current, has := f.reactions[voter.Value][commentID]

	adjust := func(t model.ReactionType, delta int64) {
		for rid := range f.comments {
			for i := range f.comments[rid] {
				if f.comments[rid][i].ID == commentID {
					f.comments[rid][i].AddReaction(t, delta)
				}
			}
		}
	}

	if has && current == typ {
		delete(f.reactions[voter.Value], commentID)
		adjust(typ, -1)
		return nil
	}
	if has {
		adjust(current, -1)
	}
	f.reactions[voter.Value][commentID] = typ
	adjust(typ, +1)
	return nil
}

func (f *fakeRemote) CreateHelpfulVote(_ context.Context, reviewID string, voter model.Identity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := model.HelpfulVoteID(reviewID, voter.Value)
	if _, ok := f.votes[id]; ok {
		return true, nil
	}
	f.votes[id] = struct{}{}
	return false, nil
}

func (f *fakeRemote) CheckHelpfulVote(_ context.Context, reviewID string, voter model.Identity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.votes[model.HelpfulVoteID(reviewID, voter.Value)]
	return ok, nil
}

func (f *fakeRemote) SubscribeComments(context.Context, string) (FeedStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stream = newFakeStream()
	return f.stream, nil
}

type fakeStream struct {
	ch     chan model.FeedEvent
	closed chan struct{}
	once   sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan model.FeedEvent, 16), closed: make(chan struct{})}
}

func (s *fakeStream) Events() <-chan model.FeedEvent { return s.ch }

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		close(s.closed)
		close(s.ch)
	})
	return nil
}

func (s *fakeStream) push(ev model.FeedEvent) {
	// Check closed first: after Close() both cases of a combined select would
	// be ready and the send could be picked, panicking on the closed channel.
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case <-s.closed:
	case s.ch <- ev:
	}
}

func newTestClient(t *testing.T, remote Remote, voter model.Identity) *Client {
	t.Helper()
	store := cache.NewStore()
	t.Cleanup(store.Close)
	return New(store, remote, voter)
}

// cachedComments reads the comment list straight out of the cache.
func cachedComments(t *testing.T, c *Client, reviewID string) []model.Comment {
	t.Helper()
	v, ok := c.Store().Read(CommentsKey(reviewID))
	require.True(t, ok, "comments entry should be cached")
	comments, ok := v.([]model.Comment)
	require.True(t, ok)
	return comments
}

func findComment(t *testing.T, comments []model.Comment, id string) model.Comment {
	t.Helper()
	for _, cm := range comments {
		if cm.ID == id {
			return cm
		}
	}
	t.Fatalf("comment %s not in list", id)
	return model.Comment{}
}
