package models

// Platform identifies which webhook shape an event came from.
type Platform string

const (
	PlatformFeedComment   Platform = "feed_comment"   // Facebook page feed comment
	PlatformMediaComment  Platform = "media_comment"  // Instagram media comment
	PlatformDirectMessage Platform = "direct_message" // Messenger / Instagram DM
)

// CommentEvent is one normalized inbound comment or message.
type CommentEvent struct {
	Platform     Platform `json:"platform"`
	ThreadID     string   `json:"thread_id"`  // root comment id, or the sender id for DMs
	CommentID    string   `json:"comment_id"` // idempotency key
	AuthorID     string   `json:"author_id"`
	AuthorHandle string   `json:"author_handle"` // may be empty
	Text         string   `json:"text"`
}

// ReplyTarget returns the id the reply is addressed to: the comment itself for public
// replies, the author for direct messages.
func (e CommentEvent) ReplyTarget() string {
	if e.Platform == PlatformDirectMessage {
		if e.AuthorID != "" {
			return e.AuthorID
		}
		return e.AuthorHandle
	}
	return e.CommentID
}
