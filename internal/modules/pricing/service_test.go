package pricing

import (
	"context"
	"errors"
	"testing"
)

type stubRates struct {
	rates map[string]Rate
}

func (s stubRates) GetRate(_ context.Context, category string) (Rate, error) {
	r, ok := s.rates[category]
	if !ok {
		return Rate{}, ErrUnknownCategory
	}
	return r, nil
}

func (s stubRates) ListRates(_ context.Context) ([]Rate, error) {
	out := make([]Rate, 0, len(s.rates))
	for _, r := range s.rates {
		out = append(out, r)
	}
	return out, nil
}

func newTestService() *Service {
	return NewService(stubRates{rates: map[string]Rate{
		"plumbing":   {Category: "plumbing", UnitPrice: 29900, VisitCharge: 4900, Currency: "INR"},
		"electrical": {Category: "electrical", UnitPrice: 19900, VisitCharge: 0, Currency: "INR"},
	}}, 0.18)
}

func TestService_Quote(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		category string
		units    int
		want     Breakdown
	}{
		{
			// 299 + 49 = 348; 18% = 62.64 -> 63
			name:     "single unit with visit charge",
			category: "plumbing",
			units:    1,
			want:     Breakdown{Subtotal: 29900, VisitCharge: 4900, Tax: 6300, Total: 41100, Currency: "INR"},
		},
		{
			// 598 + 49 = 647; 18% = 116.46 -> 116
			name:     "two units",
			category: "plumbing",
			units:    2,
			want:     Breakdown{Subtotal: 59800, VisitCharge: 4900, Tax: 11600, Total: 76300, Currency: "INR"},
		},
		{
			// 199; 18% = 35.82 -> 36
			name:     "no visit charge",
			category: "electrical",
			units:    1,
			want:     Breakdown{Subtotal: 19900, VisitCharge: 0, Tax: 3600, Total: 23500, Currency: "INR"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Quote(ctx, tc.category, tc.units)
			if err != nil {
				t.Fatalf("quote: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
			if !got.Valid() {
				t.Fatalf("breakdown %+v does not sum", got)
			}
		})
	}
}

func TestService_QuoteErrors(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Quote(ctx, "gardening", 1); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := svc.Quote(ctx, "  ", 1); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory for blank category, got %v", err)
	}
	for _, units := range []int{0, -1, MaxUnits + 1, 1_000_000_000_000} {
		if _, err := svc.Quote(ctx, "plumbing", units); !errors.Is(err, ErrInvalidUnits) {
			t.Fatalf("units=%d: expected ErrInvalidUnits, got %v", units, err)
		}
	}
	got, err := svc.Quote(ctx, "plumbing", MaxUnits)
	if err != nil {
		t.Fatalf("quote at cap: %v", err)
	}
	if !got.Valid() || got.Tax <= 0 {
		t.Fatalf("breakdown at cap must stay positive and summed: %+v", got)
	}
}

func TestBreakdownValid(t *testing.T) {
	if !(Breakdown{Subtotal: 29900, VisitCharge: 4900, Tax: 6300, Total: 41100}).Valid() {
		t.Fatal("expected valid breakdown")
	}
	if (Breakdown{Subtotal: 29900, VisitCharge: 4900, Tax: 6300, Total: 41000}).Valid() {
		t.Fatal("expected invalid breakdown")
	}
	if (Breakdown{Subtotal: 100, VisitCharge: 0, Tax: -50, Total: 50}).Valid() {
		t.Fatal("negative tax must be invalid even when the sum matches")
	}
}
