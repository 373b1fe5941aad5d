package handlers

import (
	"net/http"
	"time"

	"autoreply/internal/models"

	"github.com/gin-gonic/gin"
)

// ThreadAdmin is the store surface exposed to operators.
type ThreadAdmin interface {
	Snapshot(threadID string) models.ThreadState
	ReleaseReply(threadID, commentID string) bool
	Len() int
}

type ThreadHandler struct {
	store ThreadAdmin
}

func NewThreadHandler(store ThreadAdmin) *ThreadHandler {
	return &ThreadHandler{store: store}
}

// Show returns the reply state of one thread
func (h *ThreadHandler) Show(c *gin.Context) {
	state := h.store.Snapshot(c.Param("threadID"))
	if state.IsEmpty() {
		RenderError(c, http.StatusNotFound, "thread not tracked")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"thread_id":       state.ThreadID,
		"reply_count":     state.ReplyCount,
		"comment_ids":     state.CommentIDs(),
		"created_at":      state.CreatedAt,
		"last_touched_at": state.LastTouchedAt,
		"expires_at":      state.ExpiresAt,
	})
}

// ReleaseReply frees a reply slot, e.g. after the reply was deleted on the platform
func (h *ThreadHandler) ReleaseReply(c *gin.Context) {
	if !h.store.ReleaseReply(c.Param("threadID"), c.Param("commentID")) {
		RenderError(c, http.StatusNotFound, "reply not recorded")
		return
	}
	c.Status(http.StatusNoContent)
}

// Health reports liveness and the number of tracked threads
func (h *ThreadHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"threads":   h.store.Len(),
	})
}
