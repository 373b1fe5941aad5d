package models

import (
	"sort"
	"time"
)

// ThreadState is the moderation state of one conversation thread.
// ReplyCount always equals len(RepliedCommentIDs).
type ThreadState struct {
	ThreadID          string              `json:"thread_id"`
	RepliedCommentIDs map[string]struct{} `json:"-"`
	ReplyCount        int                 `json:"reply_count"`
	CreatedAt         time.Time           `json:"created_at"`
	LastTouchedAt     time.Time           `json:"last_touched_at"`
	ExpiresAt         time.Time           `json:"expires_at"`
}

// HasReplied reports whether commentID already received a reply in this thread.
func (s ThreadState) HasReplied(commentID string) bool {
	_, ok := s.RepliedCommentIDs[commentID]
	return ok
}

// IsEmpty is true for the zero value returned for unknown threads.
func (s ThreadState) IsEmpty() bool {
	return s.ReplyCount == 0
}

// CommentIDs returns the replied comment ids in sorted order.
func (s ThreadState) CommentIDs() []string {
	ids := make([]string, 0, len(s.RepliedCommentIDs))
	for id := range s.RepliedCommentIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
