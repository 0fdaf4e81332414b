// README: Earnings dashboards for providers and the platform.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/earnings"
)

type EarningsHandler struct {
	earnings *earnings.Service
}

func NewEarningsHandler(earningsSvc *earnings.Service) *EarningsHandler {
	return &EarningsHandler{earnings: earningsSvc}
}

type summaryResp struct {
	TotalEarnings      int64   `json:"total_earnings"`
	PaidEarnings       int64   `json:"paid_earnings"`
	PendingPayouts     int64   `json:"pending_payouts"`
	CompletedJobs      int     `json:"completed_jobs"`
	CommissionRate     float64 `json:"commission_rate"`
	PlatformCommission int64   `json:"platform_commission"`
	ProviderEarnings   int64   `json:"provider_earnings"`
	GrowthPercent      float64 `json:"growth_percent"`
	Currency           string  `json:"currency"`
}

type platformResp struct {
	summaryResp
	ActiveProviders int `json:"active_providers"`
}

func toSummaryResp(s earnings.ProviderSummary) summaryResp {
	return summaryResp{
		TotalEarnings:      s.TotalEarnings,
		PaidEarnings:       s.PaidEarnings,
		PendingPayouts:     s.PendingPayouts,
		CompletedJobs:      s.CompletedJobs,
		CommissionRate:     s.CommissionRate,
		PlatformCommission: s.PlatformCommission,
		ProviderEarnings:   s.ProviderEarnings,
		GrowthPercent:      s.GrowthPercent,
		Currency:           s.Currency,
	}
}

// Mine is the calling provider's own dashboard.
func (h *EarningsHandler) Mine(c *gin.Context) {
	w, ok := window(c)
	if !ok {
		return
	}
	actor := middleware.CallerActor(c)
	s, err := h.earnings.ProviderSummary(c.Request.Context(), actor, actor.UserID, w)
	if err != nil {
		writeEarningsError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toSummaryResp(s))
}

func (h *EarningsHandler) Platform(c *gin.Context) {
	w, ok := window(c)
	if !ok {
		return
	}
	s, err := h.earnings.PlatformSummary(c.Request.Context(), middleware.CallerActor(c), w)
	if err != nil {
		writeEarningsError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, platformResp{
		summaryResp:     toSummaryResp(s.ProviderSummary),
		ActiveProviders: s.ActiveProviders,
	})
}

// window reads from/to as calendar dates; both ends are inclusive.
func window(c *gin.Context) (earnings.Window, bool) {
	from, ok1 := queryDate(c, "from")
	to, ok2 := queryDate(c, "to")
	if !ok1 || !ok2 {
		writeError(c, http.StatusBadRequest, "from/to must be YYYY-MM-DD")
		return earnings.Window{}, false
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, 1)
	}
	return earnings.Window{From: from, To: to}, true
}
