// README: Booking change events and the publisher contract shared by every feed transport.
package feed

import (
	"context"
	"errors"
	"time"

	"localpro/internal/types"
)

var ErrEmptyFilter = errors.New("feed filter selects nothing")

// Change is the row-level patch published after every booking write.
// Version is the booking's status_version after the write.
type Change struct {
	BookingID     types.ID  `json:"booking_id"`
	Code          string    `json:"code"`
	CustomerID    types.ID  `json:"customer_id"`
	ProviderID    types.ID  `json:"provider_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	Version       int       `json:"version"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Filter selects the changes a subscriber wants. All is the admin firehose.
type Filter struct {
	BookingID  types.ID
	CustomerID types.ID
	ProviderID types.ID
	All        bool
}

func (f Filter) channels() []string {
	var out []string
	if f.BookingID != "" {
		out = append(out, bookingChannel(f.BookingID))
	}
	if f.CustomerID != "" {
		out = append(out, customerChannel(f.CustomerID))
	}
	if f.ProviderID != "" {
		out = append(out, providerChannel(f.ProviderID))
	}
	if f.All {
		out = append(out, adminChannel)
	}
	return out
}

const adminChannel = "admin"

func bookingChannel(id types.ID) string  { return "booking:" + string(id) }
func customerChannel(id types.ID) string { return "customer:" + string(id) }
func providerChannel(id types.ID) string { return "provider:" + string(id) }

// channelsFor lists every channel a change is published on.
func channelsFor(c Change) []string {
	return []string{
		bookingChannel(c.BookingID),
		customerChannel(c.CustomerID),
		providerChannel(c.ProviderID),
		adminChannel,
	}
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, c Change) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
