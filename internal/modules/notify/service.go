// README: Inbox reads for the signed-in user.
package notify

import (
	"context"
	"time"

	"localpro/internal/types"
)

type Inbox interface {
	List(ctx context.Context, userID types.ID, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id types.ID, at time.Time) (bool, error)
}

type Service struct {
	inbox Inbox
	now   func() time.Time
}

func NewService(inbox Inbox) *Service {
	return &Service{inbox: inbox, now: time.Now}
}

func (s *Service) List(ctx context.Context, actor types.Actor, limit int) ([]*Notification, error) {
	if !actor.Valid() {
		return nil, ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.inbox.List(ctx, actor.UserID, limit)
}

func (s *Service) MarkRead(ctx context.Context, actor types.Actor, id types.ID) error {
	if !actor.Valid() {
		return ErrForbidden
	}
	ok, err := s.inbox.MarkRead(ctx, actor.UserID, id, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
