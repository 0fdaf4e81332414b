// README: Booking lifecycle engine; the only code path that changes a booking's status.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"localpro/internal/infra"
	"localpro/internal/modules/feed"
	"localpro/internal/modules/notify"
	"localpro/internal/modules/pricing"
	"localpro/internal/types"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrUnauthorized      = errors.New("caller is not a party to this booking")
	ErrInvalidTransition = errors.New("invalid booking transition")
	ErrKYCNotApproved    = errors.New("provider kyc not approved")
	ErrConflict          = errors.New("booking state conflict")
	ErrReasonRequired    = errors.New("reason required")
	ErrBadRequest        = errors.New("bad request")
	ErrDuplicateCode     = errors.New("booking code already taken")
)

type Repository interface {
	Create(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	GetByCode(ctx context.Context, code string) (*Booking, error)
	List(ctx context.Context, q Query) ([]*Booking, error)
	// UpdateStatus applies u only if the booking is still at (u.From, u.Version).
	// With u.RequireKYC it re-checks the provider's KYC row inside the same
	// transaction and returns ErrKYCNotApproved when it is not approved.
	UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	Events(ctx context.Context, id types.ID) ([]*Event, error)
}

type Quoter interface {
	Quote(ctx context.Context, category string, units int) (pricing.Breakdown, error)
}

type KYCGate interface {
	IsApproved(ctx context.Context, providerID types.ID) (bool, error)
}

type Deps struct {
	Quoter   Quoter
	KYC      KYCGate
	Feed     feed.Publisher
	Notifier notify.Dispatcher
	Log      *zap.Logger
}

type Service struct {
	store    Repository
	quoter   Quoter
	kyc      KYCGate
	feed     feed.Publisher
	notifier notify.Dispatcher
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Repository, deps Deps) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:    store,
		quoter:   deps.Quoter,
		kyc:      deps.KYC,
		feed:     deps.Feed,
		notifier: deps.Notifier,
		log:      log,
		now:      time.Now,
	}
}

type CreateCommand struct {
	Actor           types.Actor
	ProviderID      types.ID
	ServiceCategory string
	Units           int
	ScheduledDate   time.Time
	ScheduledTime   string
	PaymentMethod   PaymentMethod
	Notes           string
}

// TransitionCommand asks to move a booking to Target. AsRole, when set, limits
// the caller to that one of their roles.
type TransitionCommand struct {
	BookingID types.ID
	Actor     types.Actor
	Target    Status
	Reason    string
	AsRole    Role
}

type StatusUpdate struct {
	BookingID     types.ID
	From          Status
	To            Status
	Version       int
	PaymentStatus PaymentStatus
	Notes         *string
	ActorID       types.ID
	RequireKYC    bool
	ProviderID    types.ID
	At            time.Time
}

type ListFilter struct {
	Role     Role
	Statuses []Status
	Limit    int
}

// Query is the store-level list filter. Empty ids mean "any".
type Query struct {
	CustomerID types.ID
	ProviderID types.ID
	Statuses   []Status
	Limit      int
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	if err := validateCreate(cmd, s.now()); err != nil {
		return nil, err
	}
	quote, err := s.quoter.Quote(ctx, cmd.ServiceCategory, cmd.Units)
	if errors.Is(err, pricing.ErrUnknownCategory) || errors.Is(err, pricing.ErrInvalidUnits) {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}
	if !quote.Valid() {
		return nil, fmt.Errorf("quote for %s does not add up: %+v", cmd.ServiceCategory, quote)
	}
	amounts := Amounts{
		Subtotal:    quote.Subtotal,
		VisitCharge: quote.VisitCharge,
		Tax:         quote.Tax,
		Total:       quote.Total,
		Currency:    quote.Currency,
	}

	now := s.now()
	b := &Booking{
		ID:              types.NewID(),
		CustomerID:      cmd.Actor.UserID,
		ProviderID:      cmd.ProviderID,
		ServiceCategory: cmd.ServiceCategory,
		ScheduledDate:   dateOnly(cmd.ScheduledDate),
		ScheduledTime:   cmd.ScheduledTime,
		Status:          StatusRequested,
		StatusVersion:   0,
		PaymentMethod:   cmd.PaymentMethod,
		PaymentStatus:   PaymentPending,
		Amounts:         amounts,
		CreatedAt:       now,
	}
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		b.Notes = &notes
	}
	for attempt := 0; attempt < 3; attempt++ {
		b.Code = newCode(now)
		err = s.store.Create(ctx, b)
		if !errors.Is(err, ErrDuplicateCode) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	sctx, cancel := sideEffectContext(ctx)
	defer cancel()
	s.appendEvent(sctx, &Event{
		BookingID:  b.ID,
		FromStatus: StatusNone,
		ToStatus:   StatusRequested,
		ActorID:    &b.CustomerID,
		ActorRole:  RoleCustomer,
		CreatedAt:  now,
	})
	s.publish(sctx, b)
	s.notify(sctx, notify.Message{
		UserID:   b.ProviderID,
		Title:    "New booking request",
		Body:     fmt.Sprintf("%s on %s at %s (%s)", categoryLabel(b.ServiceCategory), b.ScheduledDate.Format("02 Jan"), b.ScheduledTime, b.Code),
		Category: notify.CategoryBooking,
		DeepLink: "/provider/jobs/" + string(b.ID),
		Data:     map[string]string{"booking_id": string(b.ID), "status": string(b.Status)},
	})
	s.log.Info("booking created",
		zap.String("booking_id", string(b.ID)),
		zap.String("code", b.Code),
		zap.String("customer_id", string(b.CustomerID)),
		zap.String("provider_id", string(b.ProviderID)),
		zap.Int64("total", b.Amounts.Total),
	)
	return b, nil
}

// Transition checks, in order: existence, party membership, the edge for the
// caller's roles, the cancellation reason and the provider's KYC (read fresh).
// The write is a compare-and-set on (status, status_version).
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	updated, role, err := s.transition(ctx, b, cmd)
	infra.BookingTransitions.WithLabelValues(string(b.Status), string(cmd.Target), outcomeLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	sctx, cancel := sideEffectContext(ctx)
	defer cancel()
	reason := strings.TrimSpace(cmd.Reason)
	e := &Event{
		BookingID:  b.ID,
		FromStatus: b.Status,
		ToStatus:   updated.Status,
		ActorID:    &cmd.Actor.UserID,
		ActorRole:  role,
		CreatedAt:  s.now(),
	}
	if reason != "" {
		e.Reason = &reason
	}
	s.appendEvent(sctx, e)
	s.publish(sctx, updated)
	for _, msg := range transitionMessages(updated, role, reason) {
		s.notify(sctx, msg)
	}
	s.log.Info("booking transitioned",
		zap.String("booking_id", string(b.ID)),
		zap.String("from", string(b.Status)),
		zap.String("to", string(updated.Status)),
		zap.String("actor_id", string(cmd.Actor.UserID)),
		zap.String("role", string(role)),
	)
	return updated, nil
}

func (s *Service) transition(ctx context.Context, b *Booking, cmd TransitionCommand) (*Booking, Role, error) {
	roles := RolesOf(cmd.Actor, b)
	if len(roles) == 0 {
		return nil, "", ErrUnauthorized
	}
	if cmd.AsRole != "" {
		roles = onlyRole(roles, cmd.AsRole)
	}
	role, ok := RoleFor(roles, b.Status, cmd.Target)
	if !ok {
		return nil, "", ErrInvalidTransition
	}
	reason := strings.TrimSpace(cmd.Reason)
	if cmd.Target == StatusCancelled && reason == "" {
		return nil, "", ErrReasonRequired
	}
	if cmd.Target == StatusAccepted {
		approved, err := s.kyc.IsApproved(ctx, b.ProviderID)
		if err != nil {
			return nil, "", fmt.Errorf("kyc gate: %w", err)
		}
		if !approved {
			return nil, "", ErrKYCNotApproved
		}
	}

	u := StatusUpdate{
		BookingID:     b.ID,
		From:          b.Status,
		To:            cmd.Target,
		Version:       b.StatusVersion,
		PaymentStatus: b.PaymentStatus,
		Notes:         b.Notes,
		ActorID:       cmd.Actor.UserID,
		RequireKYC:    cmd.Target == StatusAccepted,
		ProviderID:    b.ProviderID,
		At:            s.now(),
	}
	if cmd.Target == StatusCompleted && b.PaymentMethod == PaymentCash {
		u.PaymentStatus = PaymentPaid
	}
	if cmd.Target == StatusCancelled {
		n := appendNote(b.Notes, fmt.Sprintf("Cancelled by %s: %s", role, reason))
		u.Notes = &n
	}

	ok, err := s.store.UpdateStatus(ctx, u)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrConflict
	}
	return applyUpdate(b, u), role, nil
}

func (s *Service) Accept(ctx context.Context, actor types.Actor, id types.ID) (*Booking, error) {
	return s.Transition(ctx, TransitionCommand{BookingID: id, Actor: actor, Target: StatusAccepted})
}

// Reject is the provider declining a request.
func (s *Service) Reject(ctx context.Context, actor types.Actor, id types.ID, reason string) (*Booking, error) {
	return s.Transition(ctx, TransitionCommand{BookingID: id, Actor: actor, Target: StatusCancelled, Reason: reason, AsRole: RoleProvider})
}

func (s *Service) Start(ctx context.Context, actor types.Actor, id types.ID) (*Booking, error) {
	return s.Transition(ctx, TransitionCommand{BookingID: id, Actor: actor, Target: StatusInProgress})
}

func (s *Service) Complete(ctx context.Context, actor types.Actor, id types.ID) (*Booking, error) {
	return s.Transition(ctx, TransitionCommand{BookingID: id, Actor: actor, Target: StatusCompleted})
}

func (s *Service) Cancel(ctx context.Context, actor types.Actor, id types.ID, reason string) (*Booking, error) {
	return s.Transition(ctx, TransitionCommand{BookingID: id, Actor: actor, Target: StatusCancelled, Reason: reason})
}

func (s *Service) Get(ctx context.Context, actor types.Actor, id types.ID) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(RolesOf(actor, b)) == 0 {
		return nil, ErrUnauthorized
	}
	return b, nil
}

func (s *Service) GetByCode(ctx context.Context, actor types.Actor, code string) (*Booking, error) {
	b, err := s.store.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if len(RolesOf(actor, b)) == 0 {
		return nil, ErrUnauthorized
	}
	return b, nil
}

// ListForActor returns the customer's bookings, the provider's job list, or
// every booking for an admin (Role = admin).
func (s *Service) ListForActor(ctx context.Context, actor types.Actor, f ListFilter) ([]*Booking, error) {
	if !actor.Valid() {
		return nil, ErrUnauthorized
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, ErrBadRequest
		}
	}
	q := Query{Statuses: f.Statuses, Limit: f.Limit}
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	switch f.Role {
	case "", RoleCustomer:
		q.CustomerID = actor.UserID
	case RoleProvider:
		q.ProviderID = actor.UserID
	case RoleAdmin:
		if !actor.IsAdmin {
			return nil, ErrUnauthorized
		}
	default:
		return nil, ErrBadRequest
	}
	return s.store.List(ctx, q)
}

// Events returns the booking's transition history, oldest first.
func (s *Service) Events(ctx context.Context, actor types.Actor, id types.ID) ([]*Event, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.store.Events(ctx, id)
}

func (s *Service) appendEvent(ctx context.Context, e *Event) {
	if err := s.store.AppendEvent(ctx, e); err != nil {
		s.log.Warn("append booking event failed", zap.String("booking_id", string(e.BookingID)), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, b *Booking) {
	if s.feed == nil {
		return
	}
	if err := s.feed.Publish(ctx, ChangeOf(b, s.now())); err != nil {
		s.log.Warn("publish booking change failed", zap.String("booking_id", string(b.ID)), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, msg notify.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn("booking notification failed",
			zap.String("user_id", string(msg.UserID)),
			zap.String("title", msg.Title),
			zap.Error(err),
		)
	}
}

// ChangeOf builds the feed patch for the booking's current state.
func ChangeOf(b *Booking, at time.Time) feed.Change {
	return feed.Change{
		BookingID:     b.ID,
		Code:          b.Code,
		CustomerID:    b.CustomerID,
		ProviderID:    b.ProviderID,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		Version:       b.StatusVersion,
		OccurredAt:    at,
	}
}

func applyUpdate(b *Booking, u StatusUpdate) *Booking {
	out := *b
	out.Status = u.To
	out.StatusVersion = b.StatusVersion + 1
	out.PaymentStatus = u.PaymentStatus
	out.Notes = u.Notes
	at := u.At
	switch u.To {
	case StatusAccepted:
		out.AcceptedAt = &at
	case StatusInProgress:
		out.StartedAt = &at
	case StatusCompleted:
		out.CompletedAt = &at
	case StatusCancelled:
		out.CancelledAt = &at
		by := u.ActorID
		out.CancelledBy = &by
	}
	return &out
}

func transitionMessages(b *Booking, role Role, reason string) []notify.Message {
	base := notify.Message{
		Category: notify.CategoryBooking,
		Data:     map[string]string{"booking_id": string(b.ID), "status": string(b.Status)},
	}
	toCustomer := base
	toCustomer.UserID = b.CustomerID
	toCustomer.DeepLink = "/bookings/" + string(b.ID)
	toProvider := base
	toProvider.UserID = b.ProviderID
	toProvider.DeepLink = "/provider/jobs/" + string(b.ID)

	label := categoryLabel(b.ServiceCategory)
	switch b.Status {
	case StatusAccepted:
		toCustomer.Title = "Booking confirmed"
		toCustomer.Body = fmt.Sprintf("Your %s booking %s was accepted.", label, b.Code)
	case StatusInProgress:
		toCustomer.Title = "Service started"
		toCustomer.Body = fmt.Sprintf("Your %s professional has started work on %s.", label, b.Code)
	case StatusCompleted:
		toCustomer.Title = "Service completed"
		toCustomer.Body = fmt.Sprintf("%s is complete. Tell us how it went.", b.Code)
		toCustomer.DeepLink = "/bookings/" + string(b.ID) + "/review"
	case StatusCancelled:
		toCustomer.Title = "Booking cancelled"
		toCustomer.Body = fmt.Sprintf("%s was cancelled: %s", b.Code, reason)
		toProvider.Title = toCustomer.Title
		toProvider.Body = toCustomer.Body
	}

	switch role {
	case RoleCustomer:
		if toProvider.Title == "" {
			return nil
		}
		return []notify.Message{toProvider}
	case RoleProvider:
		return []notify.Message{toCustomer}
	case RoleAdmin:
		out := []notify.Message{toCustomer}
		if toProvider.Title != "" {
			out = append(out, toProvider)
		}
		return out
	}
	return nil
}

func validateCreate(cmd CreateCommand, now time.Time) error {
	if !cmd.Actor.Valid() {
		return ErrUnauthorized
	}
	if cmd.ProviderID == "" || cmd.ProviderID == cmd.Actor.UserID {
		return ErrBadRequest
	}
	if strings.TrimSpace(cmd.ServiceCategory) == "" || cmd.Units <= 0 || cmd.Units > pricing.MaxUnits || !cmd.PaymentMethod.Valid() {
		return ErrBadRequest
	}
	if cmd.ScheduledDate.IsZero() || dateOnly(cmd.ScheduledDate).Before(dateOnly(now)) {
		return ErrBadRequest
	}
	if _, err := time.Parse("15:04", cmd.ScheduledTime); err != nil {
		return ErrBadRequest
	}
	return nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrReasonRequired):
		return "reason_required"
	case errors.Is(err, ErrKYCNotApproved):
		return "kyc_not_approved"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}
	return "error"
}

// sideEffectContext is detached from the caller's cancellation and bounded to 5s.
func sideEffectContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
}

func onlyRole(roles []Role, r Role) []Role {
	for _, have := range roles {
		if have == r {
			return []Role{r}
		}
	}
	return nil
}

func appendNote(notes *string, line string) string {
	if notes == nil || strings.TrimSpace(*notes) == "" {
		return line
	}
	return *notes + "\n" + line
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func categoryLabel(category string) string {
	return strings.ReplaceAll(category, "_", " ")
}
