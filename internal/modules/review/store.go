// README: Review store backed by PostgreSQL (unique per booking).
package review

import (
	"context"
	"errors"

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

const selectReview = `
	SELECT id, booking_id, customer_id, provider_id, rating, feedback, created_at
	FROM reviews`

func (s *Store) Create(ctx context.Context, r *Review) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO reviews (id, booking_id, customer_id, provider_id, rating, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(r.ID),
		string(r.BookingID),
		string(r.CustomerID),
		string(r.ProviderID),
		r.Rating,
		r.Feedback,
		r.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyReviewed
	}
	return err
}

func (s *Store) ListByProvider(ctx context.Context, providerID types.ID, limit int) ([]*Review, error) {
	return s.query(ctx, selectReview+` WHERE provider_id = $1 ORDER BY created_at DESC LIMIT $2`, string(providerID), limit)
}

func (s *Store) All(ctx context.Context) ([]*Review, error) {
	return s.query(ctx, selectReview+` ORDER BY created_at`)
}

func (s *Store) ProviderRating(ctx context.Context, providerID types.ID) (Rating, error) {
	var r Rating
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating)::float8, 0), COUNT(*)
		FROM reviews
		WHERE provider_id = $1`, string(providerID),
	).Scan(&r.Average, &r.Count)
	return r, err
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]*Review, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.BookingID, &r.CustomerID, &r.ProviderID, &r.Rating, &r.Feedback, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
