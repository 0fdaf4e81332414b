// README: KYC service; provider submission, admin review and the booking acceptance gate.
package kyc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"localpro/internal/modules/notify"
	"localpro/internal/types"
)

var (
	ErrNotFound       = errors.New("kyc record not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidState   = errors.New("invalid kyc state transition")
	ErrConflict       = errors.New("kyc state conflict")
	ErrReasonRequired = errors.New("rejection reason required")
	ErrBadRequest     = errors.New("bad request")
)

type Repository interface {
	Get(ctx context.Context, userID types.ID) (*Verification, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Verification, error)
	Submit(ctx context.Context, v *Verification) (bool, error)
	UpdateStatus(ctx context.Context, userID types.ID, from, to Status, reason *string, reviewer types.ID, at time.Time) (bool, error)
}

// Uploader stores a KYC document and returns its storage path.
type Uploader interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
}

type Service struct {
	store    Repository
	uploader Uploader
	notifier notify.Dispatcher
	log      *zap.Logger
	now      func() time.Time
}

func NewService(store Repository, uploader Uploader, notifier notify.Dispatcher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, uploader: uploader, notifier: notifier, log: log, now: time.Now}
}

type SubmitCommand struct {
	Actor     types.Actor
	Documents []Document
}

type ReviewCommand struct {
	Actor      types.Actor
	ProviderID types.ID
	Reason     string
}

// IsApproved reads the provider's current KYC status. It is never cached: approval
// and revocation happen out of band while providers are acting on bookings.
func (s *Service) IsApproved(ctx context.Context, providerID types.ID) (bool, error) {
	v, err := s.store.Get(ctx, providerID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v.Status == StatusApproved, nil
}

func (s *Service) Get(ctx context.Context, actor types.Actor, providerID types.ID) (*Verification, error) {
	if actor.UserID != providerID && !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return s.store.Get(ctx, providerID)
}

func (s *Service) ListByStatus(ctx context.Context, actor types.Actor, status Status, limit int) ([]*Verification, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, ErrBadRequest
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListByStatus(ctx, status, limit)
}

// UploadDocument stores one document under kyc/<provider>/ and returns its reference.
func (s *Service) UploadDocument(ctx context.Context, actor types.Actor, kind DocumentKind, filename, contentType string, r io.Reader) (Document, error) {
	if !actor.IsProvider {
		return Document{}, ErrForbidden
	}
	if !kind.Valid() {
		return Document{}, ErrBadRequest
	}
	ext := strings.ToLower(path.Ext(filename))
	p := fmt.Sprintf("%s%s-%s%s", docPrefix(actor.UserID), kind, uuid.NewString(), ext)
	stored, err := s.uploader.Upload(ctx, p, r, contentType)
	if err != nil {
		return Document{}, fmt.Errorf("upload kyc document: %w", err)
	}
	return Document{Kind: kind, Path: stored}, nil
}

// Submit creates the provider's record or overwrites a pending/rejected one.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (*Verification, error) {
	if !cmd.Actor.IsProvider {
		return nil, ErrForbidden
	}
	if len(cmd.Documents) == 0 {
		return nil, ErrBadRequest
	}
	prefix := docPrefix(cmd.Actor.UserID)
	for _, d := range cmd.Documents {
		if !d.Kind.Valid() || !strings.HasPrefix(d.Path, prefix) {
			return nil, ErrBadRequest
		}
	}

	now := s.now()
	v := &Verification{
		UserID:      cmd.Actor.UserID,
		Status:      StatusPending,
		Documents:   cmd.Documents,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	ok, err := s.store.Submit(ctx, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	s.log.Info("kyc submitted", zap.String("provider_id", string(v.UserID)), zap.Int("documents", len(v.Documents)))
	return v, nil
}

func (s *Service) StartReview(ctx context.Context, cmd ReviewCommand) error {
	return s.review(ctx, cmd, StatusUnderReview)
}

func (s *Service) Approve(ctx context.Context, cmd ReviewCommand) error {
	return s.review(ctx, cmd, StatusApproved)
}

// Reject also serves as revocation of an approved record. Bookings already accepted
// or in progress are left untouched.
func (s *Service) Reject(ctx context.Context, cmd ReviewCommand) error {
	if strings.TrimSpace(cmd.Reason) == "" {
		return ErrReasonRequired
	}
	return s.review(ctx, cmd, StatusRejected)
}

func (s *Service) review(ctx context.Context, cmd ReviewCommand, to Status) error {
	if !cmd.Actor.IsAdmin {
		return ErrForbidden
	}
	v, err := s.store.Get(ctx, cmd.ProviderID)
	if err != nil {
		return err
	}
	if !CanTransition(v.Status, to) {
		return ErrInvalidState
	}
	var reason *string
	if to == StatusRejected {
		r := strings.TrimSpace(cmd.Reason)
		reason = &r
	}
	ok, err := s.store.UpdateStatus(ctx, v.UserID, v.Status, to, reason, cmd.Actor.UserID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	s.log.Info("kyc status changed",
		zap.String("provider_id", string(v.UserID)),
		zap.String("from", string(v.Status)),
		zap.String("to", string(to)),
		zap.String("admin_id", string(cmd.Actor.UserID)),
	)
	s.notifyDecision(ctx, v.UserID, to, cmd.Reason)
	return nil
}

func (s *Service) notifyDecision(ctx context.Context, providerID types.ID, to Status, reason string) {
	if s.notifier == nil {
		return
	}
	msg := notify.Message{
		UserID:   providerID,
		Category: notify.CategoryKYC,
		DeepLink: "/provider/kyc",
	}
	switch to {
	case StatusUnderReview:
		msg.Title = "Verification in review"
		msg.Body = "Our team has started reviewing your documents."
	case StatusApproved:
		msg.Title = "You're verified"
		msg.Body = "Your KYC is approved. You can now accept bookings."
	case StatusRejected:
		msg.Title = "Verification needs attention"
		msg.Body = "Your KYC was not approved: " + strings.TrimSpace(reason)
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.log.Warn("kyc notification failed", zap.String("provider_id", string(providerID)), zap.Error(err))
	}
}

func docPrefix(userID types.ID) string {
	return "kyc/" + string(userID) + "/"
}
