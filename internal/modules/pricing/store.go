// README: Pricing store backed by PostgreSQL.
package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetRate(ctx context.Context, category string) (Rate, error) {
	var r Rate
	err := s.db.QueryRow(ctx, `
		SELECT category, unit_price, visit_charge, currency
		FROM service_rates
		WHERE category = $1 AND active`, category,
	).Scan(&r.Category, &r.UnitPrice, &r.VisitCharge, &r.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrUnknownCategory
	}
	if err != nil {
		return Rate{}, err
	}
	return r, nil
}

func (s *Store) ListRates(ctx context.Context) ([]Rate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT category, unit_price, visit_charge, currency
		FROM service_rates
		WHERE active
		ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Rate
	for rows.Next() {
		var r Rate
		if err := rows.Scan(&r.Category, &r.UnitPrice, &r.VisitCharge, &r.Currency); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
