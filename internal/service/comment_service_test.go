package service

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"reelview/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[string]*model.Comment
	nextID   int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: make(map[string]*model.Comment)}
}

func (r *fakeCommentRepo) Create(comment *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if comment.ID == "" {
		r.nextID++
		comment.ID = "comment-" + strconv.Itoa(r.nextID)
	}
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r *fakeCommentRepo) FindByID(id string) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCommentRepo) FindByReviewID(reviewID string) ([]*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Comment
	for _, c := range r.comments {
		if c.ReviewID == reviewID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCommentRepo) UpdateBody(id, body string) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c.Body = body
	cp := *c
	return &cp, nil
}

func (r *fakeCommentRepo) SetReported(id string, reason *string) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c.Reported = true
	c.ReportedReason = reason
	cp := *c
	return &cp, nil
}

func (r *fakeCommentRepo) put(comment *model.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *comment
	r.comments[comment.ID] = &cp
}

func (r *fakeCommentRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.comments, id)
	if c.ParentID == nil {
		for rid, reply := range r.comments {
			if reply.ParentID != nil && *reply.ParentID == id {
				delete(r.comments, rid)
			}
		}
	}
	return nil
}

func (r *fakeCommentRepo) CountByReviewID(reviewID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.comments {
		if c.ReviewID == reviewID {
			n++
		}
	}
	return n, nil
}

type fakeReactionRepo struct {
	mu       sync.Mutex
	comments *fakeCommentRepo
	// voter -> comment -> type
	reactions map[string]map[string]model.ReactionType
}

func newFakeReactionRepo(comments *fakeCommentRepo) *fakeReactionRepo {
	return &fakeReactionRepo{
		comments:  comments,
		reactions: make(map[string]map[string]model.ReactionType),
	}
}

func (r *fakeReactionRepo) FindByVoterAndComment(voterID, commentID string) (*model.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	typ, ok := r.reactions[voterID][commentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.Reaction{CommentID: commentID, VoterID: voterID, Type: typ}, nil
}

func (r *fakeReactionRepo) FindByVoterAndComments(voterID string, commentIDs []string) ([]*model.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Reaction
	for _, id := range commentIDs {
		if typ, ok := r.reactions[voterID][id]; ok {
			out = append(out, &model.Reaction{CommentID: id, VoterID: voterID, Type: typ})
		}
	}
	return out, nil
}

func (r *fakeReactionRepo) Toggle(commentID, voterID string, typ model.ReactionType) (*model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment, err := r.comments.FindByID(commentID)
	if err != nil {
		return nil, err
	}

	if r.reactions[voterID] == nil {
		r.reactions[voterID] = make(map[string]model.ReactionType)
	}

	switch current, ok := r.reactions[voterID][commentID]; {
	case ok && current == typ:
		delete(r.reactions[voterID], commentID)
		comment.AddReaction(typ, -1)
	case ok:
		r.reactions[voterID][commentID] = typ
		comment.AddReaction(current, -1)
		comment.AddReaction(typ, +1)
	default:
		r.reactions[voterID][commentID] = typ
		comment.AddReaction(typ, +1)
	}

	r.comments.put(comment)
	return comment, nil
}

type fakeReviewRepo struct {
	mu        sync.Mutex
	reviews   map[string]*model.Review
	refreshes map[string]int
}

func newFakeReviewRepo(ids ...string) *fakeReviewRepo {
	r := &fakeReviewRepo{
		reviews:   make(map[string]*model.Review),
		refreshes: make(map[string]int),
	}
	for _, id := range ids {
		r.reviews[id] = &model.Review{ID: id, MovieTitle: "Movie", Title: "Title", Body: "Body", Rating: 7}
	}
	return r
}

func (r *fakeReviewRepo) Create(review *model.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if review.ID == "" {
		review.ID = "review-" + strconv.Itoa(len(r.reviews)+1)
	}
	r.reviews[review.ID] = review
	return nil
}

func (r *fakeReviewRepo) FindByID(id string) (*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rev, nil
}

func (r *fakeReviewRepo) FindAll(limit, offset int) ([]*model.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Review
	for _, rev := range r.reviews {
		out = append(out, rev)
	}
	return out, nil
}

func (r *fakeReviewRepo) RefreshAggregates(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes[id]++
	return nil
}

type publishedEvent struct {
	Event   model.FeedEventType
	Comment model.Comment
}

type recordPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordPublisher) record(event model.FeedEventType, comment *model.Comment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event, Comment: *comment})
}

func (p *recordPublisher) PublishInsert(c *model.Comment) { p.record(model.FeedInsert, c) }
func (p *recordPublisher) PublishUpdate(c *model.Comment) { p.record(model.FeedUpdate, c) }
func (p *recordPublisher) PublishDelete(c *model.Comment) { p.record(model.FeedDelete, c) }

func (p *recordPublisher) all() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func newTestCommentService(t *testing.T) (CommentService, *fakeCommentRepo, *fakeReviewRepo, *recordPublisher) {
	t.Helper()
	comments := newFakeCommentRepo()
	reviews := newFakeReviewRepo("review-1")
	publisher := &recordPublisher{}
	svc := NewCommentService(comments, newFakeReactionRepo(comments), reviews, publisher)
	return svc, comments, reviews, publisher
}

func TestCreateCommentPublishesInsertAndRefreshesAggregates(t *testing.T) {
	svc, _, reviews, publisher := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "nice movie", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)
	require.NotEmpty(t, comment.ID)
	require.Equal(t, model.AuthorAnonymous, comment.AuthorKind)

	require.Equal(t, 1, reviews.refreshes["review-1"])

	events := publisher.all()
	require.Len(t, events, 1)
	require.Equal(t, model.FeedInsert, events[0].Event)
	require.Equal(t, comment.ID, events[0].Comment.ID)
}

func TestCreateCommentRejectsBadBodies(t *testing.T) {
	svc, _, _, publisher := newTestCommentService(t)

	_, err := svc.CreateComment("review-1", nil, "   ", model.Author{Kind: model.AuthorAnonymous})
	require.ErrorIs(t, err, ErrEmptyBody)

	long := strings.Repeat("x", model.MaxCommentLength+1)
	_, err = svc.CreateComment("review-1", nil, long, model.Author{Kind: model.AuthorAnonymous})
	require.ErrorIs(t, err, ErrBodyTooLong)

	// A body at exactly the limit is fine
	_, err = svc.CreateComment("review-1", nil, strings.Repeat("y", model.MaxCommentLength), model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	require.Len(t, publisher.all(), 1)
}

func TestCreateCommentRejectsNestedReplies(t *testing.T) {
	svc, _, _, _ := newTestCommentService(t)

	top, err := svc.CreateComment("review-1", nil, "top", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	reply, err := svc.CreateComment("review-1", &top.ID, "reply", model.Author{Kind: model.AuthorGuest, GuestName: "Ana"})
	require.NoError(t, err)
	require.Equal(t, top.ID, *reply.ParentID)

	_, err = svc.CreateComment("review-1", &reply.ID, "reply to reply", model.Author{Kind: model.AuthorAnonymous})
	require.ErrorIs(t, err, ErrNestedReply)
}

func TestCreateCommentRejectsCrossReviewParent(t *testing.T) {
	comments := newFakeCommentRepo()
	reviews := newFakeReviewRepo("review-1", "review-2")
	svc := NewCommentService(comments, newFakeReactionRepo(comments), reviews, &recordPublisher{})

	top, err := svc.CreateComment("review-1", nil, "top", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	_, err = svc.CreateComment("review-2", &top.ID, "wrong review", model.Author{Kind: model.AuthorAnonymous})
	require.Error(t, err)
}

func TestUpdateBodyOnlyByAuthor(t *testing.T) {
	svc, _, _, publisher := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "original",
		model.Author{Kind: model.AuthorUser, UserID: "user-1"})
	require.NoError(t, err)

	_, err = svc.UpdateBody(comment.ID, "hijacked", model.UserIdentity("user-2"))
	require.ErrorIs(t, err, ErrNotCommenter)

	updated, err := svc.UpdateBody(comment.ID, "edited", model.UserIdentity("user-1"))
	require.NoError(t, err)
	require.Equal(t, "edited", updated.Body)

	events := publisher.all()
	require.Equal(t, model.FeedUpdate, events[len(events)-1].Event)
}

func TestAnonymousCommentsCannotBeEdited(t *testing.T) {
	svc, _, _, _ := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "anon", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	_, err = svc.UpdateBody(comment.ID, "edited", model.DeviceIdentity("device-1"))
	require.ErrorIs(t, err, ErrNotCommenter)
}

func TestDeleteTopLevelCommentCascadesToReplies(t *testing.T) {
	svc, comments, reviews, publisher := newTestCommentService(t)

	top, err := svc.CreateComment("review-1", nil, "top",
		model.Author{Kind: model.AuthorUser, UserID: "user-1"})
	require.NoError(t, err)
	reply, err := svc.CreateComment("review-1", &top.ID, "reply", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteComment(top.ID, model.UserIdentity("user-1"), false))

	_, err = comments.FindByID(top.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = comments.FindByID(reply.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Two creates plus one refresh on delete
	require.Equal(t, 3, reviews.refreshes["review-1"])

	var deletes []string
	for _, ev := range publisher.all() {
		if ev.Event == model.FeedDelete {
			deletes = append(deletes, ev.Comment.ID)
		}
	}
	require.ElementsMatch(t, []string{top.ID, reply.ID}, deletes)
}

func TestDeleteCommentPermissions(t *testing.T) {
	svc, _, _, _ := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "top",
		model.Author{Kind: model.AuthorUser, UserID: "user-1"})
	require.NoError(t, err)

	err = svc.DeleteComment(comment.ID, model.UserIdentity("user-2"), false)
	require.ErrorIs(t, err, ErrNotCommenter)

	// Admins can delete anyone's comment
	require.NoError(t, svc.DeleteComment(comment.ID, model.UserIdentity("user-2"), true))
}

func TestReportCommentFlagsAndPublishesUpdate(t *testing.T) {
	svc, comments, _, publisher := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "spam", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	reported, err := svc.ReportComment(comment.ID, "spam links")
	require.NoError(t, err)
	require.True(t, reported.Reported)
	require.Equal(t, "spam links", *reported.ReportedReason)

	stored, err := comments.FindByID(comment.ID)
	require.NoError(t, err)
	require.True(t, stored.Reported)

	events := publisher.all()
	require.Equal(t, model.FeedUpdate, events[len(events)-1].Event)
}

func TestToggleReactionSemantics(t *testing.T) {
	svc, _, _, publisher := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "react to me", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)
	voter := model.DeviceIdentity("device-1")

	// First press records the reaction
	after, err := svc.ToggleReaction(comment.ID, voter, model.ReactionLike)
	require.NoError(t, err)
	require.Equal(t, int64(1), after.LikeCount)

	// Switching moves the count across
	after, err = svc.ToggleReaction(comment.ID, voter, model.ReactionLove)
	require.NoError(t, err)
	require.Equal(t, int64(0), after.LikeCount)
	require.Equal(t, int64(1), after.LoveCount)

	// Same type again clears it
	after, err = svc.ToggleReaction(comment.ID, voter, model.ReactionLove)
	require.NoError(t, err)
	require.Equal(t, int64(0), after.LoveCount)

	// Every press published an update for the feed
	var updates int
	for _, ev := range publisher.all() {
		if ev.Event == model.FeedUpdate {
			updates++
		}
	}
	require.Equal(t, 3, updates)
}

func TestToggleReactionRejectsInvalidInput(t *testing.T) {
	svc, _, _, _ := newTestCommentService(t)

	comment, err := svc.CreateComment("review-1", nil, "body", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	_, err = svc.ToggleReaction(comment.ID, model.DeviceIdentity("device-1"), model.ReactionType("fire"))
	require.Error(t, err)

	_, err = svc.ToggleReaction(comment.ID, model.Identity{}, model.ReactionLike)
	require.ErrorIs(t, err, model.ErrInvalidIdentity)
}

func TestGetVoterReactionsMapsByComment(t *testing.T) {
	svc, _, _, _ := newTestCommentService(t)
	voter := model.UserIdentity("user-1")

	a, err := svc.CreateComment("review-1", nil, "a", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)
	b, err := svc.CreateComment("review-1", nil, "b", model.Author{Kind: model.AuthorAnonymous})
	require.NoError(t, err)

	_, err = svc.ToggleReaction(a.ID, voter, model.ReactionDislike)
	require.NoError(t, err)

	got, err := svc.GetVoterReactions(voter, []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Equal(t, map[string]model.ReactionType{a.ID: model.ReactionDislike}, got)
}

func TestCreateCommentUnknownReview(t *testing.T) {
	svc, _, _, publisher := newTestCommentService(t)

	_, err := svc.CreateComment("missing", nil, "body", model.Author{Kind: model.AuthorAnonymous})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrEmptyBody))
	require.Empty(t, publisher.all())
}
