// README: Server-Sent Events stream of booking changes (snapshot, change, resync).
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"localpro/internal/http/middleware"
	"localpro/internal/modules/booking"
	"localpro/internal/modules/feed"
	"localpro/internal/types"
)

// Subscriber is satisfied by feed.RedisBus.
type Subscriber interface {
	Subscribe(ctx context.Context, f feed.Filter, onChange func(feed.Change), onResync func()) (func(), error)
}

const (
	streamBuffer    = 64
	streamHeartbeat = 25 * time.Second
)

type StreamHandler struct {
	booking *booking.Service
	feed    Subscriber
	log     *zap.Logger
}

func NewStreamHandler(bookingSvc *booking.Service, sub Subscriber, log *zap.Logger) *StreamHandler {
	return &StreamHandler{booking: bookingSvc, feed: sub, log: log}
}

// scope is what one stream watches and how its snapshot is read.
type scope struct {
	filter    feed.Filter
	bookingID types.ID
	role      booking.Role
}

// Stream subscribes first and reads the snapshot second, so no write between
// the two is lost. Duplicates are dropped by the view; a version gap or a
// dropped subscription triggers "resync" followed by a fresh snapshot.
func (h *StreamHandler) Stream(c *gin.Context) {
	actor := middleware.CallerActor(c)
	sc, ok := h.scopeFor(c, actor)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	changes := make(chan feed.Change, streamBuffer)
	resync := make(chan struct{}, 1)
	signalResync := func() {
		select {
		case resync <- struct{}{}:
		default:
		}
	}
	cancel, err := h.feed.Subscribe(ctx, sc.filter, func(ch feed.Change) {
		select {
		case changes <- ch:
		default:
			// Slow consumer; the next snapshot replaces whatever was dropped.
			signalResync()
		}
	}, signalResync)
	if err != nil {
		writeInternal(c, err)
		return
	}
	defer cancel()

	view := feed.NewView()
	snapshot, err := h.snapshot(ctx, actor, sc)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	view.Reset(snapshot)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-heartbeat.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		case ch := <-changes:
			switch view.Apply(ch) {
			case feed.Applied:
				c.SSEvent("change", ch)
			case feed.Gap:
				signalResync()
			}
			return true
		case <-resync:
			c.SSEvent("resync", gin.H{"reason": "gap"})
			snapshot, err := h.snapshot(ctx, actor, sc)
			if err != nil {
				h.log.Warn("stream snapshot failed", zap.String("uid", string(actor.UserID)), zap.Error(err))
				return false
			}
			view.Reset(snapshot)
			c.SSEvent("snapshot", snapshot)
			return true
		}
	})
}

func (h *StreamHandler) scopeFor(c *gin.Context, actor types.Actor) (scope, bool) {
	if !actor.Valid() {
		writeError(c, http.StatusUnauthorized, "unauthenticated")
		return scope{}, false
	}
	if id := c.Query("booking_id"); id != "" {
		if !isValidID(id) {
			writeError(c, http.StatusBadRequest, "invalid booking id")
			return scope{}, false
		}
		if _, err := h.booking.Get(c.Request.Context(), actor, types.ID(id)); err != nil {
			writeBookingError(c, err)
			return scope{}, false
		}
		return scope{filter: feed.Filter{BookingID: types.ID(id)}, bookingID: types.ID(id)}, true
	}
	switch c.DefaultQuery("role", "customer") {
	case "customer":
		return scope{filter: feed.Filter{CustomerID: actor.UserID}, role: booking.RoleCustomer}, true
	case "provider":
		return scope{filter: feed.Filter{ProviderID: actor.UserID}, role: booking.RoleProvider}, true
	case "all":
		if !actor.IsAdmin {
			writeError(c, http.StatusForbidden, "admin only")
			return scope{}, false
		}
		return scope{filter: feed.Filter{All: true}, role: booking.RoleAdmin}, true
	}
	writeError(c, http.StatusBadRequest, "role must be customer, provider or all")
	return scope{}, false
}

func (h *StreamHandler) snapshot(ctx context.Context, actor types.Actor, sc scope) ([]feed.Change, error) {
	now := time.Now().UTC()
	if sc.bookingID != "" {
		b, err := h.booking.Get(ctx, actor, sc.bookingID)
		if err != nil {
			return nil, err
		}
		return []feed.Change{booking.ChangeOf(b, now)}, nil
	}
	list, err := h.booking.ListForActor(ctx, actor, booking.ListFilter{Role: sc.role, Limit: 200})
	if err != nil {
		return nil, err
	}
	out := make([]feed.Change, 0, len(list))
	for _, b := range list {
		out = append(out, booking.ChangeOf(b, now))
	}
	return out, nil
}
