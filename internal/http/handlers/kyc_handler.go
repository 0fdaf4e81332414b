// README: KYC handlers for provider submission and admin review.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/kyc"
	"localpro/internal/types"
)

const maxKYCUpload = 10 << 20

type KYCHandler struct {
	kyc *kyc.Service
}

func NewKYCHandler(kycSvc *kyc.Service) *KYCHandler {
	return &KYCHandler{kyc: kycSvc}
}

type submitKYCReq struct {
	Documents []kyc.Document `json:"documents"`
}

type reviewKYCReq struct {
	Reason string `json:"reason"`
}

type verificationResp struct {
	UserID          types.ID       `json:"user_id"`
	Status          string         `json:"status"`
	Documents       []kyc.Document `json:"documents"`
	RejectionReason *string        `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	ReviewedAt      *time.Time     `json:"reviewed_at,omitempty"`
	ReviewedBy      *types.ID      `json:"reviewed_by,omitempty"`
}

func toVerificationResp(v *kyc.Verification) verificationResp {
	return verificationResp{
		UserID:          v.UserID,
		Status:          string(v.Status),
		Documents:       v.Documents,
		RejectionReason: v.RejectionReason,
		SubmittedAt:     v.SubmittedAt,
		ReviewedAt:      v.ReviewedAt,
		ReviewedBy:      v.ReviewedBy,
	}
}

// Mine returns the caller's own record.
func (h *KYCHandler) Mine(c *gin.Context) {
	actor := middleware.CallerActor(c)
	v, err := h.kyc.Get(c.Request.Context(), actor, actor.UserID)
	if err != nil {
		writeKYCError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toVerificationResp(v))
}

func (h *KYCHandler) Submit(c *gin.Context) {
	var req submitKYCReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Documents) == 0 {
		writeError(c, http.StatusBadRequest, "missing documents")
		return
	}
	v, err := h.kyc.Submit(c.Request.Context(), kyc.SubmitCommand{
		Actor:     middleware.CallerActor(c),
		Documents: req.Documents,
	})
	if err != nil {
		writeKYCError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toVerificationResp(v))
}

// UploadDocument takes a multipart form with "kind" and "file".
func (h *KYCHandler) UploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxKYCUpload)
	kind := kyc.DocumentKind(c.PostForm("kind"))
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "missing file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable file")
		return
	}
	defer f.Close()

	doc, err := h.kyc.UploadDocument(c.Request.Context(), middleware.CallerActor(c), kind, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		writeKYCError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, doc)
}

func (h *KYCHandler) List(c *gin.Context) {
	status := kyc.Status(c.DefaultQuery("status", string(kyc.StatusPending)))
	list, err := h.kyc.ListByStatus(c.Request.Context(), middleware.CallerActor(c), status, queryLimit(c))
	if err != nil {
		writeKYCError(c, err)
		return
	}
	out := make([]verificationResp, 0, len(list))
	for _, v := range list {
		out = append(out, toVerificationResp(v))
	}
	writeJSON(c, http.StatusOK, map[string]any{"verifications": out})
}

func (h *KYCHandler) StartReview(c *gin.Context) {
	h.decide(c, h.kyc.StartReview, kyc.StatusUnderReview)
}

func (h *KYCHandler) Approve(c *gin.Context) {
	h.decide(c, h.kyc.Approve, kyc.StatusApproved)
}

func (h *KYCHandler) Reject(c *gin.Context) {
	h.decide(c, h.kyc.Reject, kyc.StatusRejected)
}

func (h *KYCHandler) decide(c *gin.Context, fn func(context.Context, kyc.ReviewCommand) error, to kyc.Status) {
	userID := c.Param("userID")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user id")
		return
	}
	var req reviewKYCReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	err := fn(c.Request.Context(), kyc.ReviewCommand{
		Actor:      middleware.CallerActor(c),
		ProviderID: types.ID(userID),
		Reason:     req.Reason,
	})
	if err != nil {
		writeKYCError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"user_id": userID, "status": to})
}
