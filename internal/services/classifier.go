package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"autoreply/internal/models"
)

// Webhook object kinds
const (
	ObjectPage      = "page"
	ObjectInstagram = "instagram"
)

// Change fields we know how to turn into events
const (
	fieldFeed     = "feed"
	fieldComments = "comments"
	fieldMessages = "messages"
)

// ClassificationError means the delivery as a whole could not be recognized.
type ClassificationError struct {
	Object string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unrecognized webhook payload: %v", e.Err)
	}
	if e.Object == "" {
		return "unrecognized webhook payload: missing object"
	}
	return fmt.Sprintf("unrecognized webhook payload: object %q", e.Object)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// WebhookPayload is the envelope of every Graph webhook delivery.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID        string              `json:"id"`
	Time      int64               `json:"time"`
	Changes   []WebhookChange     `json:"changes"`
	Messaging []MessagingEnvelope `json:"messaging"`
}

type WebhookChange struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

type graphUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// feedChangeValue is the value of a Page "feed" change.
type feedChangeValue struct {
	Item       string    `json:"item"`
	Verb       string    `json:"verb"`
	CommentID  string    `json:"comment_id"`
	PostID     string    `json:"post_id"`
	ParentID   string    `json:"parent_id"`
	Message    string    `json:"message"`
	From       graphUser `json:"from"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
}

// mediaCommentValue is the value of an Instagram "comments" change.
type mediaCommentValue struct {
	ID       string    `json:"id"`
	Text     string    `json:"text"`
	ParentID string    `json:"parent_id"`
	From     graphUser `json:"from"`
	Media    struct {
		ID string `json:"id"`
	} `json:"media"`
}

// MessagingEnvelope is a direct message, either as a "messages" change value or an
// item of entry.messaging.
type MessagingEnvelope struct {
	Sender    graphUser `json:"sender"`
	Recipient graphUser `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *struct {
		MID    string `json:"mid"`
		Text   string `json:"text"`
		IsEcho bool   `json:"is_echo"`
	} `json:"message"`
}

// Classify turns a raw webhook body into events in payload order. Only an unknown or
// missing top-level object fails; anything unusable deeper down is skipped.
func Classify(raw []byte) ([]models.CommentEvent, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ClassificationError{Err: err}
	}
	return ClassifyPayload(payload)
}

func ClassifyPayload(payload WebhookPayload) ([]models.CommentEvent, error) {
	switch payload.Object {
	case ObjectPage, ObjectInstagram:
	default:
		return nil, &ClassificationError{Object: payload.Object}
	}

	events := make([]models.CommentEvent, 0)
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if evt, ok := classifyChange(change); ok {
				events = append(events, evt)
			}
		}
		for _, m := range entry.Messaging {
			if evt, ok := classifyMessage(m); ok {
				events = append(events, evt)
			}
		}
	}
	return events, nil
}

func classifyChange(change WebhookChange) (models.CommentEvent, bool) {
	switch change.Field {
	case fieldFeed:
		var v feedChangeValue
		if json.Unmarshal(change.Value, &v) != nil {
			return models.CommentEvent{}, false
		}
		return classifyFeedComment(v)
	case fieldComments:
		var v mediaCommentValue
		if json.Unmarshal(change.Value, &v) != nil {
			return models.CommentEvent{}, false
		}
		return classifyMediaComment(v)
	case fieldMessages:
		var v MessagingEnvelope
		if json.Unmarshal(change.Value, &v) != nil {
			return models.CommentEvent{}, false
		}
		return classifyMessage(v)
	default:
		return models.CommentEvent{}, false
	}
}

func classifyFeedComment(v feedChangeValue) (models.CommentEvent, bool) {
	// edits, hides and removals also arrive as feed changes
	if v.Item != "comment" || (v.Verb != "" && v.Verb != "add") || v.CommentID == "" {
		return models.CommentEvent{}, false
	}

	parent := v.ParentID
	if parent == v.PostID {
		parent = "" // top-level comment: its parent is the post itself
	}
	return models.CommentEvent{
		Platform:     models.PlatformFeedComment,
		ThreadID:     threadRoot(v.CommentID, parent),
		CommentID:    v.CommentID,
		AuthorID:     firstNonEmpty(v.From.ID, v.SenderID),
		AuthorHandle: firstNonEmpty(v.From.Name, v.SenderName),
		Text:         v.Message,
	}, true
}

func classifyMediaComment(v mediaCommentValue) (models.CommentEvent, bool) {
	if v.ID == "" {
		return models.CommentEvent{}, false
	}
	return models.CommentEvent{
		Platform:     models.PlatformMediaComment,
		ThreadID:     threadRoot(v.ID, v.ParentID),
		CommentID:    v.ID,
		AuthorID:     v.From.ID,
		AuthorHandle: v.From.Username,
		Text:         v.Text,
	}, true
}

func classifyMessage(m MessagingEnvelope) (models.CommentEvent, bool) {
	// echoes are copies of what the page itself sent
	if m.Message == nil || m.Message.IsEcho || m.Message.MID == "" || m.Sender.ID == "" {
		return models.CommentEvent{}, false
	}
	return models.CommentEvent{
		Platform:     models.PlatformDirectMessage,
		ThreadID:     m.Sender.ID,
		CommentID:    m.Message.MID,
		AuthorID:     m.Sender.ID,
		AuthorHandle: m.Sender.ID,
		Text:         m.Message.Text,
	}, true
}

func threadRoot(commentID, parentID string) string {
	if parentID = strings.TrimSpace(parentID); parentID != "" {
		return parentID
	}
	return commentID
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
