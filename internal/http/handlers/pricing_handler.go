// README: Rate card and quote preview handlers.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"localpro/internal/modules/pricing"
)

type PricingHandler struct {
	pricing *pricing.Service
}

func NewPricingHandler(pricingSvc *pricing.Service) *PricingHandler {
	return &PricingHandler{pricing: pricingSvc}
}

type quoteResp struct {
	Category    string `json:"category"`
	Units       int    `json:"units"`
	Subtotal    int64  `json:"subtotal"`
	VisitCharge int64  `json:"visit_charge"`
	Tax         int64  `json:"tax"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

func (h *PricingHandler) Rates(c *gin.Context) {
	rates, err := h.pricing.Rates(c.Request.Context())
	if err != nil {
		writeInternal(c, err)
		return
	}
	out := make([]map[string]any, 0, len(rates))
	for _, r := range rates {
		out = append(out, map[string]any{
			"category":     r.Category,
			"unit_price":   r.UnitPrice,
			"visit_charge": r.VisitCharge,
			"currency":     r.Currency,
		})
	}
	writeJSON(c, http.StatusOK, map[string]any{"rates": out})
}

// Quote previews the amounts a booking would be created with.
func (h *PricingHandler) Quote(c *gin.Context) {
	category := c.Query("category")
	units, err := strconv.Atoi(c.DefaultQuery("units", "1"))
	if category == "" || err != nil {
		writeError(c, http.StatusBadRequest, "category and numeric units required")
		return
	}
	q, err := h.pricing.Quote(c.Request.Context(), category, units)
	if err != nil {
		if errors.Is(err, pricing.ErrUnknownCategory) || errors.Is(err, pricing.ErrInvalidUnits) {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		writeInternal(c, err)
		return
	}
	writeJSON(c, http.StatusOK, quoteResp{
		Category:    category,
		Units:       units,
		Subtotal:    q.Subtotal,
		VisitCharge: q.VisitCharge,
		Tax:         q.Tax,
		Total:       q.Total,
		Currency:    q.Currency,
	})
}
