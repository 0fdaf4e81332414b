// README: Review service; customers review their own completed bookings once.
package review

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"localpro/internal/modules/booking"
	"localpro/internal/modules/notify"
	"localpro/internal/types"
)

var (
	ErrBookingNotCompleted = errors.New("booking is not completed")
	ErrAlreadyReviewed     = errors.New("booking already reviewed")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrForbidden           = errors.New("forbidden")
	ErrBadRequest          = errors.New("bad request")
)

const maxFeedbackLen = 2000

type Repository interface {
	Create(ctx context.Context, r *Review) error
	ListByProvider(ctx context.Context, providerID types.ID, limit int) ([]*Review, error)
	ProviderRating(ctx context.Context, providerID types.ID) (Rating, error)
	All(ctx context.Context) ([]*Review, error)
}

type BookingReader interface {
	Get(ctx context.Context, actor types.Actor, id types.ID) (*booking.Booking, error)
}

type Service struct {
	store    Repository
	bookings BookingReader
	notifier notify.Dispatcher
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Repository, bookings BookingReader, notifier notify.Dispatcher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, bookings: bookings, notifier: notifier, log: log, now: time.Now}
}

type CreateCommand struct {
	Actor     types.Actor
	BookingID types.ID
	Rating    int
	Feedback  string
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Review, error) {
	b, err := s.bookings.Get(ctx, cmd.Actor, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != cmd.Actor.UserID {
		return nil, ErrForbidden
	}
	if b.Status != booking.StatusCompleted {
		return nil, ErrBookingNotCompleted
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return nil, ErrInvalidRating
	}
	feedback := strings.TrimSpace(cmd.Feedback)
	if len(feedback) > maxFeedbackLen {
		return nil, ErrBadRequest
	}

	r := &Review{
		ID:         types.NewID(),
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		ProviderID: b.ProviderID,
		Rating:     cmd.Rating,
		CreatedAt:  s.now(),
	}
	if feedback != "" {
		r.Feedback = &feedback
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		err := s.notifier.Notify(ctx, notify.Message{
			UserID:   b.ProviderID,
			Title:    "New review",
			Body:     fmt.Sprintf("You received %d stars for %s.", r.Rating, b.Code),
			Category: notify.CategoryReview,
			DeepLink: "/provider/reviews",
		})
		if err != nil {
			s.log.Warn("review notification failed", zap.String("booking_id", string(b.ID)), zap.Error(err))
		}
	}
	return r, nil
}

func (s *Service) ListByProvider(ctx context.Context, providerID types.ID, limit int) ([]*Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.ListByProvider(ctx, providerID, limit)
}

func (s *Service) ProviderRating(ctx context.Context, providerID types.ID) (Rating, error) {
	r, err := s.store.ProviderRating(ctx, providerID)
	if err != nil {
		return Rating{}, err
	}
	r.Average = math.Round(r.Average*10) / 10
	return r, nil
}

// Suspicious runs FlagSuspicious over every review.
func (s *Service) Suspicious(ctx context.Context, actor types.Actor) ([]Flagged, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, err
	}
	return FlagSuspicious(all), nil
}
