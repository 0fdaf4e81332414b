// README: Firebase RTDB mirror; clients listen on /bookings/<id> directly.
package feed

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
)

type rtdbBookingEntry struct {
	Code          string `json:"code"`
	CustomerID    string `json:"customer_id"`
	ProviderID    string `json:"provider_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Version       int    `json:"version"`
	UpdatedAt     int64  `json:"updated_at"`
}

type RTDBMirror struct {
	client *db.Client
}

func NewRTDBMirror(ctx context.Context, app *firebase.App) (*RTDBMirror, error) {
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase RTDB client: %w", err)
	}
	return &RTDBMirror{client: client}, nil
}

// Publish writes the entry unless the mirror already holds a newer version.
func (m *RTDBMirror) Publish(ctx context.Context, c Change) error {
	ref := m.client.NewRef("bookings/" + string(c.BookingID))
	next := entryFromChange(c)
	err := ref.Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var cur *rtdbBookingEntry
		if err := node.Unmarshal(&cur); err != nil {
			return nil, err
		}
		return newerEntry(cur, next), nil
	})
	if err != nil {
		return fmt.Errorf("mirror booking %s: %w", string(c.BookingID), err)
	}
	return nil
}

func entryFromChange(c Change) rtdbBookingEntry {
	return rtdbBookingEntry{
		Code:          c.Code,
		CustomerID:    string(c.CustomerID),
		ProviderID:    string(c.ProviderID),
		Status:        c.Status,
		PaymentStatus: c.PaymentStatus,
		Version:       c.Version,
		UpdatedAt:     c.OccurredAt.UnixMilli(),
	}
}

func newerEntry(cur *rtdbBookingEntry, next rtdbBookingEntry) rtdbBookingEntry {
	if cur != nil && cur.Version > next.Version {
		return *cur
	}
	return next
}
