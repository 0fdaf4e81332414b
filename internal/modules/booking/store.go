// README: Booking store backed by PostgreSQL; status writes are compare-and-set.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"localpro/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// CompletedQuery selects completed bookings by completion time, [From, To).
// Zero values leave that bound open; an empty ProviderID means every provider.
type CompletedQuery struct {
	ProviderID types.ID
	From       time.Time
	To         time.Time
}

const selectBooking = `
	SELECT id, code, customer_id, provider_id, service_category,
	       scheduled_date, scheduled_time, status, status_version,
	       payment_method, payment_status,
	       subtotal, visit_charge, tax, total, currency, notes,
	       created_at, accepted_at, started_at, completed_at, cancelled_at, cancelled_by
	FROM bookings`

func (s *Store) Create(ctx context.Context, b *Booking) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO bookings (
			id, code, customer_id, provider_id, service_category,
			scheduled_date, scheduled_time, status, status_version,
			payment_method, payment_status,
			subtotal, visit_charge, tax, total, currency, notes, created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15, $16, $17, $18
		)`,
		string(b.ID),
		b.Code,
		string(b.CustomerID),
		string(b.ProviderID),
		b.ServiceCategory,
		b.ScheduledDate,
		b.ScheduledTime,
		string(b.Status),
		b.StatusVersion,
		string(b.PaymentMethod),
		string(b.PaymentStatus),
		b.Amounts.Subtotal,
		b.Amounts.VisitCharge,
		b.Amounts.Tax,
		b.Amounts.Total,
		b.Amounts.Currency,
		b.Notes,
		b.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "bookings_code_key" {
		return ErrDuplicateCode
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, selectBooking+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Store) GetByCode(ctx context.Context, code string) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, selectBooking+` WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *Store) List(ctx context.Context, q Query) ([]*Booking, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.CustomerID != "" {
		add("customer_id = $%d", string(q.CustomerID))
	}
	if q.ProviderID != "" {
		add("provider_id = $%d", string(q.ProviderID))
	}
	if len(q.Statuses) > 0 {
		statuses := make([]string, len(q.Statuses))
		for i, st := range q.Statuses {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}

	sql := selectBooking
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, q.Limit)
	sql += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	return s.query(ctx, sql, args...)
}

func (s *Store) ListCompleted(ctx context.Context, q CompletedQuery) ([]*Booking, error) {
	var where = []string{"status = 'completed'"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q.ProviderID != "" {
		add("provider_id = $%d", string(q.ProviderID))
	}
	if !q.From.IsZero() {
		add("COALESCE(completed_at, created_at) >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("COALESCE(completed_at, created_at) < $%d", q.To)
	}
	return s.query(ctx, selectBooking+" WHERE "+strings.Join(where, " AND ")+" ORDER BY completed_at", args...)
}

func (s *Store) UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if u.RequireKYC {
		// FOR SHARE blocks a concurrent admin revocation until this transaction ends.
		var status string
		err := tx.QueryRow(ctx, `
			SELECT status FROM kyc_verifications
			WHERE user_id = $1
			FOR SHARE`, string(u.ProviderID),
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrKYCNotApproved
		}
		if err != nil {
			return false, err
		}
		if status != "approved" {
			return false, ErrKYCNotApproved
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    payment_status = $2,
		    notes = $3,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN $4 ELSE accepted_at END,
		    started_at = CASE WHEN $1 = 'in_progress' THEN $4 ELSE started_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN $4 ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN $4 ELSE cancelled_at END,
		    cancelled_by = CASE WHEN $1 = 'cancelled' THEN $5 ELSE cancelled_by END
		WHERE id = $6 AND status = $7 AND status_version = $8`,
		string(u.To),
		string(u.PaymentStatus),
		u.Notes,
		u.At,
		string(u.ActorID),
		string(u.BookingID),
		string(u.From),
		u.Version,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_events (
			booking_id, from_status, to_status, actor_id, actor_role, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(e.BookingID),
		string(e.FromStatus),
		string(e.ToStatus),
		toStringPtr(e.ActorID),
		string(e.ActorRole),
		e.Reason,
		e.CreatedAt,
	)
	return err
}

func (s *Store) Events(ctx context.Context, id types.ID) ([]*Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_id, actor_role, reason, created_at
		FROM booking_events
		WHERE booking_id = $1
		ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		var e Event
		var actorID *string
		if err := rows.Scan(&e.ID, &e.BookingID, &e.FromStatus, &e.ToStatus, &actorID, &e.ActorRole, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ActorID = toIDPtr(actorID)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]*Booking, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var cancelledBy *string
	err := row.Scan(
		&b.ID, &b.Code, &b.CustomerID, &b.ProviderID, &b.ServiceCategory,
		&b.ScheduledDate, &b.ScheduledTime, &b.Status, &b.StatusVersion,
		&b.PaymentMethod, &b.PaymentStatus,
		&b.Amounts.Subtotal, &b.Amounts.VisitCharge, &b.Amounts.Tax, &b.Amounts.Total, &b.Amounts.Currency, &b.Notes,
		&b.CreatedAt, &b.AcceptedAt, &b.StartedAt, &b.CompletedAt, &b.CancelledAt, &cancelledBy,
	)
	if err != nil {
		return nil, err
	}
	b.CancelledBy = toIDPtr(cancelledBy)
	return &b, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toIDPtr(v *string) *types.ID {
	if v == nil {
		return nil
	}
	id := types.ID(*v)
	return &id
}
