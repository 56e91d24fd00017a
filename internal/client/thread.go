package client

import (
	"sort"

	"reelview/internal/model"
)

// Thread is one top-level comment with its replies attached.
type Thread struct {
	Comment model.Comment   `json:"comment"`
	Replies []model.Comment `json:"replies"`
}

// BuildThreads partitions a flat comment list into threads. Top-level
// comments keep the order the cache holds them in (server-determined);
// replies are attached oldest-first. A reply whose parent is not in the list
// (parent deleted, or stale feed) is dropped rather than surfaced as a
// phantom top-level comment.
func BuildThreads(comments []model.Comment) []Thread {
	replies := make(map[string][]model.Comment)
	var top []model.Comment
	for _, cm := range comments {
		if cm.ParentID == nil {
			top = append(top, cm)
			continue
		}
		replies[*cm.ParentID] = append(replies[*cm.ParentID], cm)
	}

	threads := make([]Thread, 0, len(top))
	for _, cm := range top {
		rs := replies[cm.ID]
		sort.SliceStable(rs, func(i, j int) bool {
			return rs[i].CreatedAt.Before(rs[j].CreatedAt)
		})
		threads = append(threads, Thread{Comment: cm, Replies: rs})
	}
	return threads
}
