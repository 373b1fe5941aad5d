package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"autoreply/internal/services"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds what we read from a single delivery
const maxWebhookBody = 1 << 20

// Deliverer processes one webhook body.
type Deliverer interface {
	Deliver(ctx context.Context, raw []byte) (int, error)
}

type WebhookHandler struct {
	verifyToken string
	deliverer   Deliverer
	logger      *slog.Logger
}

func NewWebhookHandler(verifyToken string, deliverer Deliverer, logger *slog.Logger) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{verifyToken: verifyToken, deliverer: deliverer, logger: logger}
}

// Verify answers the subscription handshake
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive handles a delivery. Once the payload is recognized the answer is always 200,
// whatever happened to individual events, so the sender does not redeliver.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("reading webhook body failed", "err", err)
		RenderError(c, http.StatusBadRequest, "unreadable body")
		return
	}

	if _, err := h.deliverer.Deliver(c.Request.Context(), raw); err != nil {
		var cerr *services.ClassificationError
		if errors.As(err, &cerr) {
			NotFound(c)
			return
		}
		h.logger.Error("webhook delivery failed", "err", err)
	}
	c.String(http.StatusOK, "EVENT_RECEIVED")
}
