// README: In-app notification inbox backed by PostgreSQL.
package notify

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"localpro/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Insert is idempotent on the notification id.
func (s *Store) Insert(ctx context.Context, n *Notification) error {
	var deepLink *string
	if n.DeepLink != "" {
		deepLink = &n.DeepLink
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, body, category, deep_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		string(n.ID),
		string(n.UserID),
		n.Title,
		n.Body,
		string(n.Category),
		deepLink,
		n.CreatedAt,
	)
	return err
}

func (s *Store) List(ctx context.Context, userID types.ID, limit int) ([]*Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, body, category, COALESCE(deep_link, ''), read_at, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(userID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &n.DeepLink, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkRead keeps the first read timestamp; it reports false when the row does not belong to userID.
func (s *Store) MarkRead(ctx context.Context, userID, id types.ID, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE notifications
		SET read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2`,
		string(id), string(userID), at,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
