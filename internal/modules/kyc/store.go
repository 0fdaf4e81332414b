// README: KYC store backed by PostgreSQL (one row per provider, overwritten in place).
package kyc

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"localpro/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const selectVerification = `
	SELECT user_id, status, documents, rejection_reason,
	       submitted_at, reviewed_at, reviewed_by, updated_at
	FROM kyc_verifications`

func (s *Store) Get(ctx context.Context, userID types.ID) (*Verification, error) {
	row := s.db.QueryRow(ctx, selectVerification+` WHERE user_id = $1`, string(userID))
	v, err := scanVerification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *Store) ListByStatus(ctx context.Context, status Status, limit int) ([]*Verification, error) {
	rows, err := s.db.Query(ctx, selectVerification+`
		WHERE status = $1
		ORDER BY submitted_at ASC
		LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Submit inserts the record or overwrites it when the current status allows re-submission.
// It reports false when an existing record is under review or approved.
func (s *Store) Submit(ctx context.Context, v *Verification) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO kyc_verifications (
			user_id, status, documents, rejection_reason,
			submitted_at, reviewed_at, reviewed_by, updated_at
		) VALUES ($1, $2, $3, NULL, $4, NULL, NULL, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			documents = EXCLUDED.documents,
			rejection_reason = NULL,
			submitted_at = EXCLUDED.submitted_at,
			reviewed_at = NULL,
			reviewed_by = NULL,
			updated_at = EXCLUDED.updated_at
		WHERE kyc_verifications.status IN ('pending', 'rejected')`,
		string(v.UserID),
		string(v.Status),
		v.Documents,
		v.SubmittedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus moves the record from -> to only if it is still in from.
func (s *Store) UpdateStatus(ctx context.Context, userID types.ID, from, to Status, reason *string, reviewer types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE kyc_verifications
		SET status = $1,
		    rejection_reason = $2,
		    reviewed_by = $3,
		    reviewed_at = $4,
		    updated_at = $4
		WHERE user_id = $5 AND status = $6`,
		string(to),
		reason,
		string(reviewer),
		at,
		string(userID),
		string(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanVerification(row pgx.Row) (*Verification, error) {
	var v Verification
	var reviewedBy *string
	err := row.Scan(
		&v.UserID, &v.Status, &v.Documents, &v.RejectionReason,
		&v.SubmittedAt, &v.ReviewedAt, &reviewedBy, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewedBy != nil {
		id := types.ID(*reviewedBy)
		v.ReviewedBy = &id
	}
	return &v, nil
}
