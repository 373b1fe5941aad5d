package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"autoreply/internal/config"
	"autoreply/internal/models"

	"github.com/google/go-querystring/query"
	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/time/rate"
)

// ReplySender delivers a reply to the platform. No retries at this layer.
type ReplySender interface {
	SendReply(ctx context.Context, platform models.Platform, targetID, message string) error
}

// GraphAPIError is a non-2xx answer from the Graph API.
type GraphAPIError struct {
	StatusCode int
	Body       string
}

func (e *GraphAPIError) Error() string {
	return fmt.Sprintf("graph api status %d: %s", e.StatusCode, e.Body)
}

type commentReplyForm struct {
	Message     string `url:"message"`
	AccessToken string `url:"access_token"`
}

type directMessageRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	MessagingType string `json:"messaging_type"`
}

// GraphClient sends replies through the Facebook/Instagram Graph API.
type GraphClient struct {
	client  *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

var _ ReplySender = (*GraphClient)(nil)

func NewGraphClient(cfg config.GraphConfig) *GraphClient {
	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = int(math.Max(1, math.Ceil(cfg.RateLimit)))
	}
	return &GraphClient{
		client:  cleanhttp.DefaultPooledClient(),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/") + "/" + strings.Trim(cfg.APIVersion, "/"),
		token:   cfg.AccessToken,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// SendReply posts a public reply under a comment, or a direct message to a user.
func (c *GraphClient) SendReply(ctx context.Context, platform models.Platform, targetID, message string) error {
	if targetID == "" {
		return fmt.Errorf("send reply: empty target id")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for graph rate limit: %w", err)
	}

	var (
		req *http.Request
		err error
	)
	switch platform {
	case models.PlatformFeedComment:
		req, err = c.commentRequest(ctx, targetID, "comments", message)
	case models.PlatformMediaComment:
		req, err = c.commentRequest(ctx, targetID, "replies", message)
	case models.PlatformDirectMessage:
		req, err = c.messageRequest(ctx, targetID, message)
	default:
		return fmt.Errorf("send reply: unsupported platform %q", platform)
	}
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("graph request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &GraphAPIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}

func (c *GraphClient) commentRequest(ctx context.Context, commentID, edge, message string) (*http.Request, error) {
	form, err := query.Values(commentReplyForm{Message: message, AccessToken: c.token})
	if err != nil {
		return nil, fmt.Errorf("encoding reply form: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+url.PathEscape(commentID)+"/"+edge, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

func (c *GraphClient) messageRequest(ctx context.Context, recipientID, message string) (*http.Request, error) {
	var payload directMessageRequest
	payload.Recipient.ID = recipientID
	payload.Message.Text = message
	payload.MessagingType = "RESPONSE"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding message request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}
