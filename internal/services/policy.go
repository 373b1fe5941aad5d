package services

import (
	"strings"

	"autoreply/internal/models"
)

// linkKeywords 命中任一关键词即视为索要链接/购买信息
var linkKeywords = []string{
	"link",
	"buy",
	"website",
	"url",
	"how to buy",
	"where can i get",
	"how to order",
}

// Owner identifies the account replies are sent from.
type Owner struct {
	Handle    string
	AccountID string
}

// AdmissionPolicy decides whether an event may get an automated reply.
type AdmissionPolicy struct {
	Owner               Owner
	MaxRepliesPerThread int
}

// Decide applies the rules in order and stops at the first deny. It only reads the
// snapshot; the store re-checks limit and duplicate at commit time.
func (p AdmissionPolicy) Decide(evt models.CommentEvent, snapshot models.ThreadState) models.Decision {
	if IsSelfAuthored(evt, p.Owner) {
		return models.Deny(models.ReasonSelfAuthored)
	}
	if IsLinkRequest(evt.Text) {
		return models.Deny(models.ReasonLinkRequest)
	}
	if snapshot.HasReplied(evt.CommentID) {
		return models.Deny(models.ReasonDuplicateComment)
	}
	if snapshot.ReplyCount >= p.MaxRepliesPerThread {
		return models.Deny(models.ReasonThreadLimitReached)
	}
	return models.Allow()
}

// IsSelfAuthored matches the handle exactly (case-sensitive). An empty handle never
// matches. The account id is an extra check when configured.
func IsSelfAuthored(evt models.CommentEvent, owner Owner) bool {
	if evt.AuthorHandle != "" && evt.AuthorHandle == owner.Handle {
		return true
	}
	return owner.AccountID != "" && evt.AuthorID == owner.AccountID
}

// IsLinkRequest reports whether the text asks for links or purchase details.
func IsLinkRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range linkKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return strings.Contains(lower, "send") && strings.Contains(lower, "link")
}
