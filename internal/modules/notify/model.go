// README: Notification message, in-app inbox row and the dispatcher contract.
package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"localpro/internal/types"
)

type Category string

const (
	CategoryBooking Category = "booking"
	CategoryKYC     Category = "kyc"
	CategoryReview  Category = "review"
	CategorySystem  Category = "system"
)

var (
	ErrNotFound       = errors.New("notification not found")
	ErrInvalidMessage = errors.New("invalid notification message")
	ErrForbidden      = errors.New("forbidden")
)

// Message is what callers hand to a Dispatcher. ID is assigned on enqueue and
// keeps worker retries from inserting the same inbox row twice.
type Message struct {
	ID       types.ID          `json:"id"`
	UserID   types.ID          `json:"user_id"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Category Category          `json:"category"`
	DeepLink string            `json:"deep_link,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

func (m Message) Validate() error {
	if m.UserID == "" || strings.TrimSpace(m.Title) == "" || m.Category == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Dispatcher delivers a message to a user. Implementations must not block on delivery.
type Dispatcher interface {
	Notify(ctx context.Context, msg Message) error
}

type Notification struct {
	ID        types.ID   `json:"id"`
	UserID    types.ID   `json:"user_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Category  Category   `json:"category"`
	DeepLink  string     `json:"deep_link,omitempty"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
