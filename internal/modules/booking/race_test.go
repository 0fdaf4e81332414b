// README: Concurrency tests for booking transitions (run with -race).
package booking

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"localpro/internal/testutil"
	"localpro/internal/types"
)

func TestConcurrentAcceptSameBooking(t *testing.T) {
	for name, h := range raceHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := h.create(t, PaymentCash)

			const attempts = 8
			var wg sync.WaitGroup
			errs := make(chan error, attempts)
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := h.svc.Accept(ctx, provider, b.ID)
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			success := countRaceOutcomes(t, errs)
			if success != 1 {
				t.Fatalf("expected exactly 1 success, got %d", success)
			}
			got, err := h.svc.Get(ctx, provider, b.ID)
			if err != nil {
				t.Fatalf("get booking: %v", err)
			}
			if got.Status != StatusAccepted || got.StatusVersion != 1 {
				t.Fatalf("unexpected final state: %s v%d", got.Status, got.StatusVersion)
			}
		})
	}
}

func TestConcurrentAcceptVsCancel(t *testing.T) {
	for name, h := range raceHarnesses(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			b := h.create(t, PaymentOnline)

			type result struct {
				target Status
				err    error
			}
			var wg sync.WaitGroup
			results := make(chan result, 2)

			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := h.svc.Accept(ctx, provider, b.ID)
				results <- result{StatusAccepted, err}
			}()
			go func() {
				defer wg.Done()
				_, err := h.svc.Cancel(ctx, customer, b.ID, "No longer needed")
				results <- result{StatusCancelled, err}
			}()
			wg.Wait()
			close(results)

			var winner Status
			success := 0
			for r := range results {
				if r.err == nil {
					success++
					winner = r.target
					continue
				}
				if r.err != ErrConflict && r.err != ErrInvalidTransition {
					t.Fatalf("unexpected error: %v", r.err)
				}
			}
			if success != 1 {
				t.Fatalf("expected exactly 1 success, got %d", success)
			}
			got, err := h.svc.Get(ctx, customer, b.ID)
			if err != nil {
				t.Fatalf("get booking: %v", err)
			}
			if got.Status != winner {
				t.Fatalf("final status %s does not match winner %s", got.Status, winner)
			}
		})
	}
}

func countRaceOutcomes(t *testing.T, errs <-chan error) int {
	t.Helper()
	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrConflict && err != ErrInvalidTransition {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return success
}

// raceHarnesses returns the in-memory harness, plus a PostgreSQL-backed one when
// LOCALPRO_TEST_DSN is set.
func raceHarnesses(t *testing.T) map[string]*harness {
	t.Helper()
	mem := newHarness()
	mem.store.setKYC(provider.UserID, true)
	out := map[string]*harness{"memory": mem}

	if h := dbHarness(t); h != nil {
		out["postgres"] = h
	}
	return out
}

func dbHarness(t *testing.T) *harness {
	t.Helper()
	if os.Getenv("LOCALPRO_TEST_DSN") == "" {
		return nil
	}
	db := testutil.DB(t, "booking_events", "reviews", "bookings", "kyc_verifications")
	_, err := db.Exec(context.Background(), `
		INSERT INTO kyc_verifications (user_id, status, documents, submitted_at, updated_at)
		VALUES ($1, 'approved', '[]'::jsonb, $2, $2)`, string(provider.UserID), time.Now())
	if err != nil {
		t.Fatalf("seed kyc: %v", err)
	}
	h := &harness{notifier: &recordingNotifier{}, feed: &recordingFeed{}}
	h.svc = NewService(NewStore(db), Deps{
		Quoter:   stubQuoter{},
		KYC:      gateFunc(func(types.ID) bool { return true }),
		Feed:     h.feed,
		Notifier: h.notifier,
	})
	h.svc.now = func() time.Time { return testNow }
	return h
}
