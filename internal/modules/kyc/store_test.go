// README: KYC store tests against PostgreSQL (skipped without LOCALPRO_TEST_DSN).
package kyc

import (
	"context"
	"testing"
	"time"

	"localpro/internal/testutil"
)

func TestStoreSubmitOverwriteRules(t *testing.T) {
	store := NewStore(testutil.DB(t, "kyc_verifications"))
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	v := &Verification{UserID: "db-prov", Status: StatusPending, Documents: docs("db-prov"), SubmittedAt: now, UpdatedAt: now}
	ok, err := store.Submit(ctx, v)
	if err != nil || !ok {
		t.Fatalf("first submit: ok=%v err=%v", ok, err)
	}

	ok, err = store.UpdateStatus(ctx, "db-prov", StatusPending, StatusApproved, nil, "admin-1", now)
	if err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}
	ok, err = store.UpdateStatus(ctx, "db-prov", StatusPending, StatusRejected, nil, "admin-1", now)
	if err != nil || ok {
		t.Fatalf("stale CAS must not apply: ok=%v err=%v", ok, err)
	}

	ok, err = store.Submit(ctx, v)
	if err != nil || ok {
		t.Fatalf("submit over approved record must not apply: ok=%v err=%v", ok, err)
	}

	got, err := store.Get(ctx, "db-prov")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusApproved || len(got.Documents) != 2 || got.ReviewedBy == nil {
		t.Fatalf("unexpected record: %+v", got)
	}
}
