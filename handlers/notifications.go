package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/advisorhub/backoffice/internal/models"
	"github.com/advisorhub/backoffice/internal/notify"
)

// NotificationsHandler lets admins review recently dispatched notifications.
// Only available when the persistent notifier is configured.
type NotificationsHandler struct {
	notifier *notify.MongoNotifier
}

func NewNotificationsHandler(n *notify.MongoNotifier) *NotificationsHandler {
	return &NotificationsHandler{notifier: n}
}

func (h *NotificationsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.Recent)
}

func (h *NotificationsHandler) Recent(c *gin.Context) {
	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	items, err := h.notifier.Recent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []models.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}
