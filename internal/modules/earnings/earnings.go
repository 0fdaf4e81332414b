// README: Earnings and commission projection over completed bookings. Recomputed on every read.
package earnings

import (
	"context"
	"errors"
	"time"

	"localpro/internal/modules/booking"
	"localpro/internal/types"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
)

// Window bounds completion time, [From, To). Zero values leave that side open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Valid() bool {
	return w.From.IsZero() || w.To.IsZero() || w.From.Before(w.To)
}

// Totals are minor currency units.
type Totals struct {
	TotalEarnings  int64
	PaidEarnings   int64
	PendingPayouts int64
	CompletedJobs  int
}

// ProviderSummary is one provider's snapshot. Commission applies the platform
// rate to TotalEarnings; ProviderEarnings is what remains.
type ProviderSummary struct {
	Totals
	CommissionRate     float64
	PlatformCommission int64
	ProviderEarnings   int64
	GrowthPercent      float64
	Currency           string
}

// PlatformSummary is the same snapshot across every provider.
type PlatformSummary struct {
	ProviderSummary
	ActiveProviders int
}

type Source interface {
	ListCompleted(ctx context.Context, q booking.CompletedQuery) ([]*booking.Booking, error)
}

type Service struct {
	src            Source
	commissionRate float64
	commissionBps  int64
	currency       string
	now            func() time.Time
}

func NewService(src Source, commissionRate float64, currency string) *Service {
	return &Service{
		src:            src,
		commissionRate: commissionRate,
		commissionBps:  types.RateToBasisPoints(commissionRate),
		currency:       currency,
		now:            time.Now,
	}
}

func (s *Service) ProviderSummary(ctx context.Context, actor types.Actor, providerID types.ID, w Window) (ProviderSummary, error) {
	if actor.UserID != providerID && !actor.IsAdmin {
		return ProviderSummary{}, ErrForbidden
	}
	if providerID == "" || !w.Valid() {
		return ProviderSummary{}, ErrBadRequest
	}
	ps, _, err := s.summarize(ctx, providerID, w)
	return ps, err
}

func (s *Service) PlatformSummary(ctx context.Context, actor types.Actor, w Window) (PlatformSummary, error) {
	if !actor.IsAdmin {
		return PlatformSummary{}, ErrForbidden
	}
	if !w.Valid() {
		return PlatformSummary{}, ErrBadRequest
	}
	ps, inWindow, err := s.summarize(ctx, "", w)
	if err != nil {
		return PlatformSummary{}, err
	}
	providers := make(map[types.ID]struct{})
	for _, b := range inWindow {
		providers[b.ProviderID] = struct{}{}
	}
	return PlatformSummary{ProviderSummary: ps, ActiveProviders: len(providers)}, nil
}

// Commission splits total into the platform's cut and the provider's remainder.
func (s *Service) Commission(total int64) (platform, provider int64) {
	platform = types.ApplyBasisPoints(total, s.commissionBps)
	return platform, total - platform
}

func (s *Service) summarize(ctx context.Context, providerID types.ID, w Window) (ProviderSummary, []*booking.Booking, error) {
	inWindow, err := s.src.ListCompleted(ctx, booking.CompletedQuery{ProviderID: providerID, From: w.From, To: w.To})
	if err != nil {
		return ProviderSummary{}, nil, err
	}
	now := s.now()
	thisMonth := monthStart(now)
	recent, err := s.src.ListCompleted(ctx, booking.CompletedQuery{
		ProviderID: providerID,
		From:       thisMonth.AddDate(0, -1, 0),
		To:         thisMonth.AddDate(0, 1, 0),
	})
	if err != nil {
		return ProviderSummary{}, nil, err
	}
	totals := Summarize(inWindow)
	commission, net := s.Commission(totals.TotalEarnings)
	current, prior := MonthRevenue(recent, now)
	return ProviderSummary{
		Totals:             totals,
		CommissionRate:     s.commissionRate,
		PlatformCommission: commission,
		ProviderEarnings:   net,
		GrowthPercent:      Growth(current, prior),
		Currency:           s.currency,
	}, inWindow, nil
}

// Summarize totals completed bookings. Failed payments count toward TotalEarnings only.
func Summarize(bookings []*booking.Booking) Totals {
	var t Totals
	for _, b := range bookings {
		if b.Status != booking.StatusCompleted {
			continue
		}
		t.CompletedJobs++
		t.TotalEarnings += b.Amounts.Total
		switch b.PaymentStatus {
		case booking.PaymentPaid:
			t.PaidEarnings += b.Amounts.Total
		case booking.PaymentPending:
			t.PendingPayouts += b.Amounts.Total
		}
	}
	return t
}

// MonthRevenue splits completed revenue into now's calendar month and the one before.
func MonthRevenue(bookings []*booking.Booking, now time.Time) (current, prior int64) {
	thisMonth := monthStart(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	nextMonth := thisMonth.AddDate(0, 1, 0)
	for _, b := range bookings {
		if b.Status != booking.StatusCompleted {
			continue
		}
		at := b.CreatedAt
		if b.CompletedAt != nil {
			at = *b.CompletedAt
		}
		at = at.In(now.Location())
		switch {
		case !at.Before(thisMonth) && at.Before(nextMonth):
			current += b.Amounts.Total
		case !at.Before(lastMonth) && at.Before(thisMonth):
			prior += b.Amounts.Total
		}
	}
	return current, prior
}

// Growth is the month-over-month change in percent: 0 when both months are
// empty, 100 when only the current month has revenue.
func Growth(current, prior int64) float64 {
	if prior == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-prior) / float64(prior) * 100
}

func monthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
