// README: Caller profile and push device registration.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/profile"
)

type ProfileHandler struct {
	profile *profile.Service
}

func NewProfileHandler(profileSvc *profile.Service) *ProfileHandler {
	return &ProfileHandler{profile: profileSvc}
}

type deviceTokenReq struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
}

func (h *ProfileHandler) Me(c *gin.Context) {
	p, err := h.profile.Get(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeProfileError(c, err)
		return
	}
	actor := middleware.CallerActor(c)
	writeJSON(c, http.StatusOK, map[string]any{
		"user_id":      p.UserID,
		"display_name": p.DisplayName,
		"has_device":   p.FCMToken != nil,
		"provider":     actor.IsProvider,
		"admin":        actor.IsAdmin,
	})
}

func (h *ProfileHandler) RegisterDevice(c *gin.Context) {
	var req deviceTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.profile.RegisterDevice(c.Request.Context(), middleware.CallerActor(c), req.Token, req.DisplayName); err != nil {
		writeProfileError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
