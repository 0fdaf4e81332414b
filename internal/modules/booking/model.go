// README: Booking aggregate, status graph and the role rules for each edge.
package booking

import (
	"time"

	"localpro/internal/types"
)

type Status string

const (
	StatusNone       Status = "none"
	StatusRequested  Status = "requested"
	StatusAccepted   Status = "accepted"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCash   PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentOnline || m == PaymentCash
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Amounts are minor currency units, fixed at creation.
type Amounts struct {
	Subtotal    int64
	VisitCharge int64
	Tax         int64
	Total       int64
	Currency    string
}

func (a Amounts) Valid() bool {
	return a.Subtotal >= 0 && a.VisitCharge >= 0 && a.Tax >= 0 &&
		a.Total == a.Subtotal+a.VisitCharge+a.Tax
}

type Booking struct {
	ID              types.ID
	Code            string
	CustomerID      types.ID
	ProviderID      types.ID
	ServiceCategory string
	ScheduledDate   time.Time
	ScheduledTime   string
	Status          Status
	StatusVersion   int
	PaymentMethod   PaymentMethod
	PaymentStatus   PaymentStatus
	Amounts         Amounts
	Notes           *string
	CreatedAt       time.Time
	AcceptedAt      *time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	CancelledBy     *types.ID
}

// Event is one row of the append-only transition history.
type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorID    *types.ID
	ActorRole  Role
	Reason     *string
	CreatedAt  time.Time
}

type edge struct {
	from, to Status
}

// transitionRules lists, per edge, the roles allowed to take it.
var transitionRules = map[edge][]Role{
	{StatusRequested, StatusAccepted}:   {RoleProvider},
	{StatusRequested, StatusCancelled}:  {RoleCustomer, RoleProvider, RoleAdmin},
	{StatusAccepted, StatusInProgress}:  {RoleProvider},
	{StatusInProgress, StatusCompleted}: {RoleProvider},
	{StatusAccepted, StatusCancelled}:   {RoleAdmin},
	{StatusInProgress, StatusCancelled}: {RoleAdmin},
}

// AllowedTransitions represents the booking state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusRequested:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// RoleFor returns the first of roles allowed to move from -> to, and false if none is.
func RoleFor(roles []Role, from, to Status) (Role, bool) {
	allowed := transitionRules[edge{from, to}]
	for _, r := range roles {
		for _, a := range allowed {
			if r == a {
				return r, true
			}
		}
	}
	return "", false
}

// RolesOf lists the actor's roles on b; owner roles come before admin.
func RolesOf(actor types.Actor, b *Booking) []Role {
	var roles []Role
	if actor.UserID == "" {
		return nil
	}
	if actor.UserID == b.CustomerID {
		roles = append(roles, RoleCustomer)
	}
	if actor.UserID == b.ProviderID {
		roles = append(roles, RoleProvider)
	}
	if actor.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	return roles
}
