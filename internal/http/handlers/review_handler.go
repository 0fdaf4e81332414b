// README: Review handlers; customers rate completed bookings, admins audit.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/review"
	"localpro/internal/types"
)

type ReviewHandler struct {
	review *review.Service
}

func NewReviewHandler(reviewSvc *review.Service) *ReviewHandler {
	return &ReviewHandler{review: reviewSvc}
}

type createReviewReq struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

func (h *ReviewHandler) Create(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req createReviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	r, err := h.review.Create(c.Request.Context(), review.CreateCommand{
		Actor:     middleware.CallerActor(c),
		BookingID: id,
		Rating:    req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		writeReviewError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, r)
}

func (h *ReviewHandler) ListByProvider(c *gin.Context) {
	providerID := c.Param("id")
	if !isValidID(providerID) {
		writeError(c, http.StatusBadRequest, "invalid provider id")
		return
	}
	ctx := c.Request.Context()
	list, err := h.review.ListByProvider(ctx, types.ID(providerID), queryLimit(c))
	if err != nil {
		writeReviewError(c, err)
		return
	}
	rating, err := h.review.ProviderRating(ctx, types.ID(providerID))
	if err != nil {
		writeReviewError(c, err)
		return
	}
	if list == nil {
		list = []*review.Review{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"reviews": list, "rating": rating})
}

func (h *ReviewHandler) Suspicious(c *gin.Context) {
	flagged, err := h.review.Suspicious(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeReviewError(c, err)
		return
	}
	if flagged == nil {
		flagged = []review.Flagged{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"flagged": flagged})
}
