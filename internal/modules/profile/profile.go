// README: User profile rows (display name, push token). Role flags come from the identity token only.
package profile

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"localpro/internal/types"
)

var (
	ErrNotFound   = errors.New("profile not found")
	ErrBadRequest = errors.New("bad request")
	ErrForbidden  = errors.New("forbidden")
)

type Profile struct {
	UserID      types.ID  `json:"user_id"`
	DisplayName string    `json:"display_name"`
	FCMToken    *string   `json:"-"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, userID types.ID) (*Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `
		SELECT user_id, display_name, fcm_token, updated_at
		FROM profiles
		WHERE user_id = $1`, string(userID),
	).Scan(&p.UserID, &p.DisplayName, &p.FCMToken, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertDeviceToken creates the profile on first registration. An empty displayName keeps the stored one.
func (s *Store) UpsertDeviceToken(ctx context.Context, userID types.ID, token, displayName string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles (user_id, display_name, fcm_token, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			fcm_token = EXCLUDED.fcm_token,
			display_name = CASE WHEN EXCLUDED.display_name = '' THEN profiles.display_name ELSE EXCLUDED.display_name END,
			updated_at = EXCLUDED.updated_at`,
		string(userID), displayName, token, at,
	)
	return err
}

// DeviceToken returns "" when the user has no profile or no registered token.
func (s *Store) DeviceToken(ctx context.Context, userID types.ID) (string, error) {
	p, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if p.FCMToken == nil {
		return "", nil
	}
	return *p.FCMToken, nil
}

type Repository interface {
	Get(ctx context.Context, userID types.ID) (*Profile, error)
	UpsertDeviceToken(ctx context.Context, userID types.ID, token, displayName string, at time.Time) error
}

type Service struct {
	store Repository
	now   func() time.Time
}

func NewService(store Repository) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) Get(ctx context.Context, actor types.Actor) (*Profile, error) {
	if !actor.Valid() {
		return nil, ErrForbidden
	}
	return s.store.Get(ctx, actor.UserID)
}

func (s *Service) RegisterDevice(ctx context.Context, actor types.Actor, token, displayName string) error {
	if !actor.Valid() {
		return ErrForbidden
	}
	token = strings.TrimSpace(token)
	if token == "" || len(token) > 4096 {
		return ErrBadRequest
	}
	return s.store.UpsertDeviceToken(ctx, actor.UserID, token, strings.TrimSpace(displayName), s.now())
}
