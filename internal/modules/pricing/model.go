// README: Service rate card and quote breakdown per service category.
package pricing

import "errors"

// MaxUnits caps units on a single booking.
const MaxUnits = 100

var (
	ErrUnknownCategory = errors.New("unknown service category")
	ErrInvalidUnits    = errors.New("units must be between 1 and 100")
)

// Rate is the rate card for one service category, in minor units.
type Rate struct {
	Category    string
	UnitPrice   int64
	VisitCharge int64
	Currency    string
}

// Breakdown is the amount split stored on a booking at creation time.
type Breakdown struct {
	Subtotal    int64
	VisitCharge int64
	Tax         int64
	Total       int64
	Currency    string
}

// Valid reports whether every part is non-negative and Total equals their sum.
func (b Breakdown) Valid() bool {
	return b.Subtotal >= 0 && b.VisitCharge >= 0 && b.Tax >= 0 &&
		b.Total == b.Subtotal+b.VisitCharge+b.Tax
}
