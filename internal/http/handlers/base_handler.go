// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"localpro/internal/modules/booking"
	"localpro/internal/modules/earnings"
	"localpro/internal/modules/kyc"
	"localpro/internal/modules/notify"
	"localpro/internal/modules/profile"
	"localpro/internal/modules/review"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts uuid-shaped and Firebase uid-shaped ids.
func isValidID(v string) bool {
	if v == "" || len(v) > 128 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeInternal(c *gin.Context, err error) {
	_ = c.Error(err)
	writeError(c, http.StatusInternalServerError, "please try again")
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrKYCNotApproved):
		writeError(c, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, booking.ErrReasonRequired):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeKYCError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, kyc.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, kyc.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, kyc.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, kyc.ErrInvalidState), errors.Is(err, kyc.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, kyc.ErrReasonRequired):
		writeError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, review.ErrBadRequest), errors.Is(err, review.ErrInvalidRating):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, review.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, review.ErrBookingNotCompleted), errors.Is(err, review.ErrAlreadyReviewed):
		writeError(c, http.StatusConflict, err.Error())
	default:
		// Booking lookups surface booking sentinels.
		writeBookingError(c, err)
	}
}

func writeEarningsError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, earnings.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, earnings.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeNotifyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notify.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, notify.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeInternal(c, err)
	}
}

func writeProfileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profile.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, profile.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, profile.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeInternal(c, err)
	}
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}

// queryDate parses YYYY-MM-DD; an absent value yields the zero time.
func queryDate(c *gin.Context, key string) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
