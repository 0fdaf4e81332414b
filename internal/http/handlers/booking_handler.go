// README: Booking handlers for create, reads and lifecycle transitions.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/booking"
	"localpro/internal/types"
)

type BookingHandler struct {
	booking *booking.Service
}

func NewBookingHandler(bookingSvc *booking.Service) *BookingHandler {
	return &BookingHandler{booking: bookingSvc}
}

type createBookingReq struct {
	ProviderID      string `json:"provider_id"`
	ServiceCategory string `json:"service_category"`
	Units           int    `json:"units"`
	ScheduledDate   string `json:"scheduled_date"`
	ScheduledTime   string `json:"scheduled_time"`
	PaymentMethod   string `json:"payment_method"`
	Notes           string `json:"notes"`
}

type transitionReq struct {
	Target string `json:"target"`
	Reason string `json:"reason"`
}

type reasonReq struct {
	Reason string `json:"reason"`
}

type amountsResp struct {
	Subtotal    int64  `json:"subtotal"`
	VisitCharge int64  `json:"visit_charge"`
	Tax         int64  `json:"tax"`
	Total       int64  `json:"total"`
	Currency    string `json:"currency"`
}

type bookingResp struct {
	ID              types.ID    `json:"id"`
	Code            string      `json:"code"`
	CustomerID      types.ID    `json:"customer_id"`
	ProviderID      types.ID    `json:"provider_id"`
	ServiceCategory string      `json:"service_category"`
	ScheduledDate   string      `json:"scheduled_date"`
	ScheduledTime   string      `json:"scheduled_time"`
	Status          string      `json:"status"`
	StatusVersion   int         `json:"status_version"`
	PaymentMethod   string      `json:"payment_method"`
	PaymentStatus   string      `json:"payment_status"`
	Amounts         amountsResp `json:"amounts"`
	Notes           *string     `json:"notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	AcceptedAt      *time.Time  `json:"accepted_at,omitempty"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	CancelledBy     *types.ID   `json:"cancelled_by,omitempty"`
}

type eventResp struct {
	ID         int64     `json:"id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    *types.ID `json:"actor_id,omitempty"`
	ActorRole  string    `json:"actor_role,omitempty"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toBookingResp(b *booking.Booking) bookingResp {
	return bookingResp{
		ID:              b.ID,
		Code:            b.Code,
		CustomerID:      b.CustomerID,
		ProviderID:      b.ProviderID,
		ServiceCategory: b.ServiceCategory,
		ScheduledDate:   b.ScheduledDate.Format("2006-01-02"),
		ScheduledTime:   b.ScheduledTime,
		Status:          string(b.Status),
		StatusVersion:   b.StatusVersion,
		PaymentMethod:   string(b.PaymentMethod),
		PaymentStatus:   string(b.PaymentStatus),
		Amounts: amountsResp{
			Subtotal:    b.Amounts.Subtotal,
			VisitCharge: b.Amounts.VisitCharge,
			Tax:         b.Amounts.Tax,
			Total:       b.Amounts.Total,
			Currency:    b.Amounts.Currency,
		},
		Notes:       b.Notes,
		CreatedAt:   b.CreatedAt,
		AcceptedAt:  b.AcceptedAt,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
		CancelledAt: b.CancelledAt,
		CancelledBy: b.CancelledBy,
	}
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProviderID == "" || req.ServiceCategory == "" || req.ScheduledDate == "" || req.ScheduledTime == "" || req.PaymentMethod == "" {
		writeError(c, http.StatusBadRequest, "missing fields")
		return
	}
	if !isValidID(req.ProviderID) {
		writeError(c, http.StatusBadRequest, "invalid provider_id")
		return
	}
	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		writeError(c, http.StatusBadRequest, "scheduled_date must be YYYY-MM-DD")
		return
	}
	if req.Units == 0 {
		req.Units = 1
	}
	b, err := h.booking.Create(c.Request.Context(), booking.CreateCommand{
		Actor:           middleware.CallerActor(c),
		ProviderID:      types.ID(req.ProviderID),
		ServiceCategory: req.ServiceCategory,
		Units:           req.Units,
		ScheduledDate:   date,
		ScheduledTime:   req.ScheduledTime,
		PaymentMethod:   booking.PaymentMethod(req.PaymentMethod),
		Notes:           req.Notes,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, toBookingResp(b))
}

func (h *BookingHandler) List(c *gin.Context) {
	var role booking.Role
	switch c.DefaultQuery("role", "customer") {
	case "customer":
		role = booking.RoleCustomer
	case "provider":
		role = booking.RoleProvider
	case "all":
		role = booking.RoleAdmin
	default:
		writeError(c, http.StatusBadRequest, "role must be customer, provider or all")
		return
	}
	var statuses []booking.Status
	if v := c.Query("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			statuses = append(statuses, booking.Status(strings.TrimSpace(s)))
		}
	}
	list, err := h.booking.ListForActor(c.Request.Context(), middleware.CallerActor(c), booking.ListFilter{
		Role:     role,
		Statuses: statuses,
		Limit:    queryLimit(c),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]bookingResp, 0, len(list))
	for _, b := range list {
		out = append(out, toBookingResp(b))
	}
	writeJSON(c, http.StatusOK, map[string]any{"bookings": out})
}

func (h *BookingHandler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Get(c.Request.Context(), middleware.CallerActor(c), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

func (h *BookingHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		writeError(c, http.StatusBadRequest, "missing booking code")
		return
	}
	b, err := h.booking.GetByCode(c.Request.Context(), middleware.CallerActor(c), code)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

func (h *BookingHandler) Events(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	events, err := h.booking.Events(c.Request.Context(), middleware.CallerActor(c), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, eventResp{
			ID:         e.ID,
			FromStatus: string(e.FromStatus),
			ToStatus:   string(e.ToStatus),
			ActorID:    e.ActorID,
			ActorRole:  string(e.ActorRole),
			Reason:     e.Reason,
			CreatedAt:  e.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, map[string]any{"events": out})
}

func (h *BookingHandler) Transition(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Target == "" {
		writeError(c, http.StatusBadRequest, "missing target")
		return
	}
	b, err := h.booking.Transition(c.Request.Context(), booking.TransitionCommand{
		BookingID: id,
		Actor:     middleware.CallerActor(c),
		Target:    booking.Status(req.Target),
		Reason:    req.Reason,
	})
	h.respond(c, b, err)
}

func (h *BookingHandler) Accept(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Accept(c.Request.Context(), middleware.CallerActor(c), id)
	h.respond(c, b, err)
}

func (h *BookingHandler) Reject(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Reject(c.Request.Context(), middleware.CallerActor(c), id, optionalReason(c))
	h.respond(c, b, err)
}

func (h *BookingHandler) Start(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Start(c.Request.Context(), middleware.CallerActor(c), id)
	h.respond(c, b, err)
}

func (h *BookingHandler) Complete(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Complete(c.Request.Context(), middleware.CallerActor(c), id)
	h.respond(c, b, err)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.booking.Cancel(c.Request.Context(), middleware.CallerActor(c), id, optionalReason(c))
	h.respond(c, b, err)
}

func (h *BookingHandler) respond(c *gin.Context, b *booking.Booking, err error) {
	if err != nil {
		writeBookingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toBookingResp(b))
}

func bookingID(c *gin.Context) (types.ID, bool) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid booking id")
		return "", false
	}
	return types.ID(id), true
}

// optionalReason reads {"reason": "..."}; an empty body is allowed and the
// service decides whether a reason is required.
func optionalReason(c *gin.Context) string {
	if c.Request.ContentLength == 0 {
		return ""
	}
	var req reasonReq
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return req.Reason
}
