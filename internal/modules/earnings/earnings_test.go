package earnings

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"localpro/internal/modules/booking"
	"localpro/internal/types"
)

type memSource struct {
	bookings []*booking.Booking
	queries  []booking.CompletedQuery
}

func (m *memSource) ListCompleted(ctx context.Context, q booking.CompletedQuery) ([]*booking.Booking, error) {
	m.queries = append(m.queries, q)
	var out []*booking.Booking
	for _, b := range m.bookings {
		if b.Status != booking.StatusCompleted {
			continue
		}
		if q.ProviderID != "" && b.ProviderID != q.ProviderID {
			continue
		}
		at := *b.CompletedAt
		if !q.From.IsZero() && at.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !at.Before(q.To) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

var now = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func completed(provider types.ID, total int64, ps booking.PaymentStatus, at time.Time) *booking.Booking {
	return &booking.Booking{
		ID:            types.NewID(),
		ProviderID:    provider,
		Status:        booking.StatusCompleted,
		PaymentStatus: ps,
		Amounts:       booking.Amounts{Subtotal: total, Total: total, Currency: "INR"},
		CreatedAt:     at.Add(-2 * time.Hour),
		CompletedAt:   &at,
	}
}

func newTestService(src Source) *Service {
	svc := NewService(src, 0.15, "INR")
	svc.now = func() time.Time { return now }
	return svc
}

// TestPlatformCommission covers bookings of 100, 250 and 75 at a 0.15 rate.
func TestPlatformCommission(t *testing.T) {
	src := &memSource{bookings: []*booking.Booking{
		completed("p1", 10000, booking.PaymentPaid, now.AddDate(0, 0, -1)),
		completed("p2", 25000, booking.PaymentPending, now.AddDate(0, 0, -2)),
		completed("p1", 7500, booking.PaymentPaid, now.AddDate(0, 0, -3)),
	}}
	got, err := newTestService(src).PlatformSummary(context.Background(), types.Actor{UserID: "a1", IsAdmin: true}, Window{})
	if err != nil {
		t.Fatalf("platform summary: %v", err)
	}
	if got.TotalEarnings != 42500 || got.PlatformCommission != 6375 || got.ProviderEarnings != 36125 {
		t.Fatalf("got total=%d commission=%d provider=%d, want 42500/6375/36125",
			got.TotalEarnings, got.PlatformCommission, got.ProviderEarnings)
	}
	if got.PaidEarnings != 17500 || got.PendingPayouts != 25000 || got.CompletedJobs != 3 {
		t.Fatalf("unexpected totals: %+v", got.Totals)
	}
	if got.ActiveProviders != 2 {
		t.Fatalf("active providers = %d, want 2", got.ActiveProviders)
	}
}

// TestProviderCommission covers one provider's own 100, 250 and 75 at a 0.15 rate.
func TestProviderCommission(t *testing.T) {
	src := &memSource{bookings: []*booking.Booking{
		completed("p1", 10000, booking.PaymentPaid, now.AddDate(0, 0, -1)),
		completed("p1", 25000, booking.PaymentPending, now.AddDate(0, 0, -2)),
		completed("p1", 7500, booking.PaymentPaid, now.AddDate(0, 0, -3)),
		completed("p2", 99900, booking.PaymentPaid, now.AddDate(0, 0, -1)),
	}}
	got, err := newTestService(src).ProviderSummary(context.Background(), types.Actor{UserID: "p1", IsProvider: true}, "p1", Window{})
	if err != nil {
		t.Fatalf("provider summary: %v", err)
	}
	if got.TotalEarnings != 42500 || got.PlatformCommission != 6375 || got.ProviderEarnings != 36125 {
		t.Fatalf("got total=%d commission=%d provider=%d, want 42500/6375/36125",
			got.TotalEarnings, got.PlatformCommission, got.ProviderEarnings)
	}
	if got.CommissionRate != 0.15 {
		t.Fatalf("commission rate = %v, want 0.15", got.CommissionRate)
	}
	if got.PlatformCommission+got.ProviderEarnings != got.TotalEarnings {
		t.Fatalf("split must add back to total: %+v", got)
	}
}

func TestGrowth(t *testing.T) {
	cases := []struct {
		current, prior int64
		want           float64
	}{
		{0, 0, 0},
		{500, 0, 100},
		{800, 1000, -20},
		{1500, 1000, 50},
		{0, 1000, -100},
	}
	for _, tc := range cases {
		if got := Growth(tc.current, tc.prior); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("Growth(%d, %d) = %v, want %v", tc.current, tc.prior, got, tc.want)
		}
	}
}

func TestProviderSummary(t *testing.T) {
	src := &memSource{bookings: []*booking.Booking{
		completed("p1", 80000, booking.PaymentPaid, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
		completed("p1", 100000, booking.PaymentPending, time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)),
		completed("p1", 5000, booking.PaymentFailed, time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC)),
		completed("p2", 99900, booking.PaymentPaid, time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)),
	}}
	svc := newTestService(src)

	got, err := svc.ProviderSummary(context.Background(), types.Actor{UserID: "p1", IsProvider: true}, "p1", Window{})
	if err != nil {
		t.Fatalf("provider summary: %v", err)
	}
	want := Totals{TotalEarnings: 185000, PaidEarnings: 80000, PendingPayouts: 100000, CompletedJobs: 3}
	if got.Totals != want {
		t.Fatalf("totals = %+v, want %+v", got.Totals, want)
	}
	if math.Abs(got.GrowthPercent-(-20)) > 1e-9 {
		t.Fatalf("growth = %v, want -20", got.GrowthPercent)
	}
}

func TestProviderSummaryWindow(t *testing.T) {
	src := &memSource{bookings: []*booking.Booking{
		completed("p1", 50000, booking.PaymentPaid, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)),
		completed("p1", 20000, booking.PaymentPaid, time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC)),
	}}
	w := Window{From: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	got, err := newTestService(src).ProviderSummary(context.Background(), types.Actor{UserID: "p1"}, "p1", w)
	if err != nil {
		t.Fatalf("provider summary: %v", err)
	}
	if got.TotalEarnings != 50000 || got.CompletedJobs != 1 {
		t.Fatalf("window not applied: %+v", got.Totals)
	}
	if got.GrowthPercent != 100 {
		t.Fatalf("growth with empty prior month = %v, want 100", got.GrowthPercent)
	}
}

// TestSummaryIsNotCached checks that a newly completed booking shows up on the next read.
func TestSummaryIsNotCached(t *testing.T) {
	src := &memSource{}
	svc := newTestService(src)
	actor := types.Actor{UserID: "p1"}

	first, _ := svc.ProviderSummary(context.Background(), actor, "p1", Window{})
	src.bookings = append(src.bookings, completed("p1", 41100, booking.PaymentPaid, now))
	second, _ := svc.ProviderSummary(context.Background(), actor, "p1", Window{})

	if first.CompletedJobs != 0 || second.CompletedJobs != 1 || second.TotalEarnings != 41100 {
		t.Fatalf("summary must reflect the new completion: first=%+v second=%+v", first.Totals, second.Totals)
	}
}

func TestAccessRules(t *testing.T) {
	svc := newTestService(&memSource{})
	ctx := context.Background()
	if _, err := svc.ProviderSummary(ctx, types.Actor{UserID: "p2"}, "p1", Window{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other provider: expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ProviderSummary(ctx, types.Actor{UserID: "a1", IsAdmin: true}, "p1", Window{}); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := svc.PlatformSummary(ctx, types.Actor{UserID: "p1"}, Window{}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin platform: expected ErrForbidden, got %v", err)
	}
	bad := Window{From: now, To: now.AddDate(0, 0, -1)}
	if _, err := svc.ProviderSummary(ctx, types.Actor{UserID: "p1"}, "p1", bad); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("inverted window: expected ErrBadRequest, got %v", err)
	}
}
