// README: In-app notification inbox handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/notify"
	"localpro/internal/types"
)

type NotificationHandler struct {
	notify *notify.Service
}

func NewNotificationHandler(notifySvc *notify.Service) *NotificationHandler {
	return &NotificationHandler{notify: notifySvc}
}

func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notify.List(c.Request.Context(), middleware.CallerActor(c), queryLimit(c))
	if err != nil {
		writeNotifyError(c, err)
		return
	}
	if list == nil {
		list = []*notify.Notification{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := h.notify.MarkRead(c.Request.Context(), middleware.CallerActor(c), types.ID(id)); err != nil {
		writeNotifyError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
