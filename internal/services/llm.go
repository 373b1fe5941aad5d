package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"autoreply/internal/config"

	"github.com/hashicorp/go-cleanhttp"
)

// ErrEmptyReply is returned when the model answered with no usable text.
var ErrEmptyReply = errors.New("llm returned an empty reply")

// ReplyGenerator produces reply text for a comment.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, commentText, authorHandle string) (string, error)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse OpenAI 兼容接口的响应结构
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// LLMService calls an OpenAI-compatible chat completions endpoint.
type LLMService struct {
	client        *http.Client
	baseURL       string
	token         string
	model         string
	systemPrompt  string
	fallbackReply string
}

var _ ReplyGenerator = (*LLMService)(nil)

func NewLLMService(cfg config.LLMConfig) *LLMService {
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = config.DefaultSystemPrompt
	}
	return &LLMService{
		client:        cleanhttp.DefaultPooledClient(),
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		token:         cfg.Token,
		model:         cfg.Model,
		systemPrompt:  prompt,
		fallbackReply: cfg.FallbackReply,
	}
}

// GenerateReply asks the model for a reply. When a fallback reply is configured it is
// returned instead of an error.
func (s *LLMService) GenerateReply(ctx context.Context, commentText, authorHandle string) (string, error) {
	reply, err := s.complete(ctx, userPrompt(commentText, authorHandle))
	if err != nil {
		if s.fallbackReply != "" && ctx.Err() == nil {
			return s.fallbackReply, nil
		}
		return "", err
	}
	return reply, nil
}

func userPrompt(commentText, authorHandle string) string {
	if authorHandle == "" {
		return commentText
	}
	return fmt.Sprintf("Comment from @%s:\n%s", authorHandle, commentText)
}

func (s *LLMService) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ChatRequest{
		Model: s.model,
		Messages: []ChatMessage{
			{Role: "system", Content: s.systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat request status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyReply
	}
	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}
