package model

// FeedEventType labels a row-level change pushed over the comment change feed.
type FeedEventType string

const (
	FeedInsert FeedEventType = "insert"
	FeedUpdate FeedEventType = "update"
	FeedDelete FeedEventType = "delete"
)

// FeedEvent is one change-feed frame for a review's comments channel.
// Insert and update carry the full current row; delete carries the row as it
// was, so the id of the removed comment is always available.
type FeedEvent struct {
	Event   FeedEventType `json:"event"`
	Comment Comment       `json:"comment"`
}
