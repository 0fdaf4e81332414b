// README: Pricing service computes the booking amount breakdown.
package pricing

import (
	"context"
	"strings"

	"localpro/internal/types"
)

type RateSource interface {
	GetRate(ctx context.Context, category string) (Rate, error)
	ListRates(ctx context.Context) ([]Rate, error)
}

type Service struct {
	rates  RateSource
	taxBps int64
}

func NewService(rates RateSource, taxRate float64) *Service {
	return &Service{rates: rates, taxBps: types.RateToBasisPoints(taxRate)}
}

// Quote prices units of a category. The result is stored on the booking once and never recomputed.
func (s *Service) Quote(ctx context.Context, category string, units int) (Breakdown, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return Breakdown{}, ErrUnknownCategory
	}
	if units <= 0 || units > MaxUnits {
		return Breakdown{}, ErrInvalidUnits
	}
	rate, err := s.rates.GetRate(ctx, category)
	if err != nil {
		return Breakdown{}, err
	}
	return Compute(rate, units, s.taxBps), nil
}

func (s *Service) Rates(ctx context.Context) ([]Rate, error) {
	return s.rates.ListRates(ctx)
}

// Compute applies taxBps to subtotal+visit charge; tax is rounded to whole currency units.
func Compute(rate Rate, units int, taxBps int64) Breakdown {
	subtotal := rate.UnitPrice * int64(units)
	taxable := subtotal + rate.VisitCharge
	tax := roundToMajor(taxable * taxBps)
	currency := rate.Currency
	if currency == "" {
		currency = types.DefaultCurrency
	}
	return Breakdown{
		Subtotal:    subtotal,
		VisitCharge: rate.VisitCharge,
		Tax:         tax,
		Total:       subtotal + rate.VisitCharge + tax,
		Currency:    currency,
	}
}

// roundToMajor takes minor units scaled by 10000 (basis points) and rounds to whole major units.
func roundToMajor(scaled int64) int64 {
	return ((scaled + 500_000) / 1_000_000) * 100
}
