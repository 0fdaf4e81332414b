// README: Asynq consumer; stores the in-app row, then pushes to the user's device.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"localpro/internal/infra"
	"localpro/internal/types"
)

// ErrTokenInvalid is returned by a Sender when the device token is no longer registered.
var ErrTokenInvalid = errors.New("device token invalid")

type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// TokenResolver returns the user's push token, or "" when none is registered.
type TokenResolver interface {
	DeviceToken(ctx context.Context, userID types.ID) (string, error)
}

type InboxWriter interface {
	Insert(ctx context.Context, n *Notification) error
}

type Handler struct {
	inbox  InboxWriter
	tokens TokenResolver
	sender Sender
	log    *zap.Logger
	now    func() time.Time
}

func NewHandler(inbox InboxWriter, tokens TokenResolver, sender Sender, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{inbox: inbox, tokens: tokens, sender: sender, log: log, now: time.Now}
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var msg Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		h.log.Error("invalid notification payload", zap.Error(err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return h.Deliver(ctx, msg)
}

// Deliver persists the inbox row and pushes the message. A user without a
// device token only gets the inbox row.
func (h *Handler) Deliver(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		msg.ID = types.NewID()
	}
	n := &Notification{
		ID:        msg.ID,
		UserID:    msg.UserID,
		Title:     msg.Title,
		Body:      msg.Body,
		Category:  msg.Category,
		DeepLink:  msg.DeepLink,
		CreatedAt: h.now(),
	}
	if err := h.inbox.Insert(ctx, n); err != nil {
		infra.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("store notification: %w", err)
	}

	if h.sender == nil || h.tokens == nil {
		infra.Notifications.WithLabelValues("stored_only").Inc()
		return nil
	}
	token, err := h.tokens.DeviceToken(ctx, msg.UserID)
	if err != nil {
		infra.Notifications.WithLabelValues("failed").Inc()
		return fmt.Errorf("resolve device token: %w", err)
	}
	if token == "" {
		infra.Notifications.WithLabelValues("stored_only").Inc()
		return nil
	}

	if err := h.sender.Send(ctx, token, msg); err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			h.log.Info("device token no longer valid", zap.String("user_id", string(msg.UserID)))
			infra.Notifications.WithLabelValues("stored_only").Inc()
			return nil
		}
		infra.Notifications.WithLabelValues("failed").Inc()
		h.log.Warn("push delivery failed", zap.String("user_id", string(msg.UserID)), zap.Error(err))
		return err
	}
	infra.Notifications.WithLabelValues("delivered").Inc()
	return nil
}

func NewServer(opt asynq.RedisClientOpt, concurrency int, log *zap.Logger) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{QueueName: 1},
		Logger:      log.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Warn("notification task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
}

func NewMux(h *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeSend, h)
	return mux
}
