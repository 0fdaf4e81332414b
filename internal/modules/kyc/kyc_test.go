// README: KYC workflow tests (in-memory store, no database).
package kyc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"localpro/internal/modules/notify"
	"localpro/internal/types"
)

type memStore struct {
	mu   sync.Mutex
	rows map[types.ID]*Verification
}

func newMemStore() *memStore {
	return &memStore{rows: map[types.ID]*Verification{}}
}

func (m *memStore) Get(ctx context.Context, userID types.ID) (*Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) ListByStatus(ctx context.Context, status Status, limit int) ([]*Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Verification
	for _, v := range m.rows {
		if v.Status == status && len(out) < limit {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) Submit(ctx context.Context, v *Verification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rows[v.UserID]; ok && !CanResubmit(cur.Status) {
		return false, nil
	}
	cp := *v
	m.rows[v.UserID] = &cp
	return true, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, userID types.ID, from, to Status, reason *string, reviewer types.ID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[userID]
	if !ok || v.Status != from {
		return false, nil
	}
	v.Status = to
	v.RejectionReason = reason
	v.ReviewedBy = &reviewer
	v.ReviewedAt = &at
	v.UpdatedAt = at
	return true, nil
}

// set forces a status, simulating an admin acting out of band.
func (m *memStore) set(userID types.ID, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.rows[userID]; ok {
		v.Status = s
		return
	}
	m.rows[userID] = &Verification{UserID: userID, Status: s}
}

type memUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *memUploader) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	return path, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (r *recordingNotifier) Notify(ctx context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

var (
	provider = types.Actor{UserID: "prov-1", EmailVerified: true, IsProvider: true}
	admin    = types.Actor{UserID: "admin-1", EmailVerified: true, IsAdmin: true}
	customer = types.Actor{UserID: "cust-1", EmailVerified: true}
)

func newTestService(t *testing.T) (*Service, *memStore, *recordingNotifier) {
	t.Helper()
	store := newMemStore()
	n := &recordingNotifier{}
	return NewService(store, &memUploader{}, n, nil), store, n
}

func docs(uid types.ID) []Document {
	return []Document{
		{Kind: DocIDProof, Path: "kyc/" + string(uid) + "/id_proof-1.jpg"},
		{Kind: DocAddressProof, Path: "kyc/" + string(uid) + "/address_proof-1.pdf"},
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusUnderReview, true},
		{StatusPending, StatusApproved, true},
		{StatusUnderReview, StatusApproved, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusApproved, StatusRejected, true},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusPending, false},
		{StatusUnderReview, StatusUnderReview, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestSubmitAndReviewFlow(t *testing.T) {
	svc, _, n := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, SubmitCommand{Actor: provider, Documents: docs(provider.UserID)}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	assertApproved(t, svc, false)

	if err := svc.StartReview(ctx, ReviewCommand{Actor: admin, ProviderID: provider.UserID}); err != nil {
		t.Fatalf("start review: %v", err)
	}
	if err := svc.Approve(ctx, ReviewCommand{Actor: admin, ProviderID: provider.UserID}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	assertApproved(t, svc, true)

	if len(n.msgs) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(n.msgs))
	}
	if n.msgs[1].UserID != provider.UserID || n.msgs[1].Category != notify.CategoryKYC {
		t.Fatalf("unexpected notification: %+v", n.msgs[1])
	}
}

func TestResubmitAfterRejectionOverwrites(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, SubmitCommand{Actor: provider, Documents: docs(provider.UserID)}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Reject(ctx, ReviewCommand{Actor: admin, ProviderID: provider.UserID, Reason: "blurry id"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	v, _ := store.Get(ctx, provider.UserID)
	if v.RejectionReason == nil || *v.RejectionReason != "blurry id" {
		t.Fatalf("expected rejection reason, got %v", v.RejectionReason)
	}

	newDocs := []Document{{Kind: DocIDProof, Path: "kyc/prov-1/id_proof-2.jpg"}}
	if _, err := svc.Submit(ctx, SubmitCommand{Actor: provider, Documents: newDocs}); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	v, _ = store.Get(ctx, provider.UserID)
	if v.Status != StatusPending || v.RejectionReason != nil || len(v.Documents) != 1 {
		t.Fatalf("resubmission should overwrite in place, got %+v", v)
	}
	if len(store.rows) != 1 {
		t.Fatalf("expected a single record per provider, got %d", len(store.rows))
	}
}

func TestSubmitBlockedWhileUnderReviewOrApproved(t *testing.T) {
	for _, s := range []Status{StatusUnderReview, StatusApproved} {
		svc, store, _ := newTestService(t)
		store.set(provider.UserID, s)
		_, err := svc.Submit(context.Background(), SubmitCommand{Actor: provider, Documents: docs(provider.UserID)})
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("status %s: expected ErrInvalidState, got %v", s, err)
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		name string
		cmd  SubmitCommand
		want error
	}{
		{"customer cannot submit", SubmitCommand{Actor: customer, Documents: docs(customer.UserID)}, ErrForbidden},
		{"no documents", SubmitCommand{Actor: provider}, ErrBadRequest},
		{"foreign path", SubmitCommand{Actor: provider, Documents: []Document{{Kind: DocSelfie, Path: "kyc/other/selfie.jpg"}}}, ErrBadRequest},
		{"unknown kind", SubmitCommand{Actor: provider, Documents: []Document{{Kind: "passport_photo", Path: "kyc/prov-1/x.jpg"}}}, ErrBadRequest},
	}
	for _, tc := range cases {
		if _, err := svc.Submit(ctx, tc.cmd); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestReviewRequiresAdminAndReason(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.set(provider.UserID, StatusPending)

	if err := svc.Approve(ctx, ReviewCommand{Actor: provider, ProviderID: provider.UserID}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Reject(ctx, ReviewCommand{Actor: admin, ProviderID: provider.UserID, Reason: "  "}); !errors.Is(err, ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if err := svc.StartReview(ctx, ReviewCommand{Actor: admin, ProviderID: "nobody"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	store.set(provider.UserID, StatusRejected)
	if err := svc.Approve(ctx, ReviewCommand{Actor: admin, ProviderID: provider.UserID}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

// TestIsApprovedReadsCurrentState verifies the gate is never memoized.
func TestIsApprovedReadsCurrentState(t *testing.T) {
	svc, store, _ := newTestService(t)
	assertApproved(t, svc, false)

	store.set(provider.UserID, StatusApproved)
	assertApproved(t, svc, true)

	store.set(provider.UserID, StatusRejected)
	assertApproved(t, svc, false)
}

func TestNotificationFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemStore()
	store.set(provider.UserID, StatusPending)
	svc := NewService(store, &memUploader{}, &recordingNotifier{err: errors.New("queue down")}, zap.New(core))

	if err := svc.Approve(context.Background(), ReviewCommand{Actor: admin, ProviderID: provider.UserID}); err != nil {
		t.Fatalf("approve must succeed despite notifier failure: %v", err)
	}
	if logs.FilterMessage("kyc notification failed").Len() != 1 {
		t.Fatalf("expected notifier failure to be logged")
	}
}

func TestUploadDocumentPath(t *testing.T) {
	up := &memUploader{}
	svc := NewService(newMemStore(), up, nil, nil)

	doc, err := svc.UploadDocument(context.Background(), provider, DocSelfie, "Me.JPG", "image/jpeg", bytes.NewReader([]byte("img")))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(doc.Path, "kyc/prov-1/selfie-") || !strings.HasSuffix(doc.Path, ".jpg") {
		t.Fatalf("unexpected path %q", doc.Path)
	}
	if _, err := svc.UploadDocument(context.Background(), customer, DocSelfie, "a.jpg", "image/jpeg", bytes.NewReader(nil)); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func assertApproved(t *testing.T, svc *Service, want bool) {
	t.Helper()
	got, err := svc.IsApproved(context.Background(), provider.UserID)
	if err != nil {
		t.Fatalf("is approved: %v", err)
	}
	if got != want {
		t.Fatalf("IsApproved = %v, want %v", got, want)
	}
}
