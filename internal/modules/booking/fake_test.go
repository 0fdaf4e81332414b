package booking

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"localpro/internal/modules/feed"
	"localpro/internal/modules/notify"
	"localpro/internal/modules/pricing"
	"localpro/internal/types"
)

// memStore is an in-memory Repository with the same compare-and-set semantics as Store.
type memStore struct {
	mu       sync.Mutex
	bookings map[types.ID]*Booking
	events   []*Event
	kyc      map[types.ID]bool
	eventErr error
}

func newMemStore() *memStore {
	return &memStore{bookings: map[types.ID]*Booking{}, kyc: map[types.ID]bool{}}
}

func (m *memStore) Create(ctx context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bookings {
		if existing.Code == b.Code {
			return ErrDuplicateCode
		}
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) GetByCode(ctx context.Context, code string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.Code == code {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) List(ctx context.Context, q Query) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if q.CustomerID != "" && b.CustomerID != q.CustomerID {
			continue
		}
		if q.ProviderID != "" && b.ProviderID != q.ProviderID {
			continue
		}
		if len(q.Statuses) > 0 && !containsStatus(q.Statuses, b.Status) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memStore) UpdateStatus(ctx context.Context, u StatusUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.RequireKYC && !m.kyc[u.ProviderID] {
		return false, ErrKYCNotApproved
	}
	b, ok := m.bookings[u.BookingID]
	if !ok || b.Status != u.From || b.StatusVersion != u.Version {
		return false, nil
	}
	*b = *applyUpdate(b, u)
	return true, nil
}

func (m *memStore) AppendEvent(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventErr != nil {
		return m.eventErr
	}
	cp := *e
	cp.ID = int64(len(m.events) + 1)
	m.events = append(m.events, &cp)
	return nil
}

func (m *memStore) Events(ctx context.Context, id types.ID) ([]*Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Event
	for _, e := range m.events {
		if e.BookingID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) setKYC(providerID types.ID, approved bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kyc[providerID] = approved
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// gateFunc adapts a function to KYCGate.
type gateFunc func(types.ID) bool

func (g gateFunc) IsApproved(ctx context.Context, providerID types.ID) (bool, error) {
	return g(providerID), nil
}

type stubQuoter struct{}

func (stubQuoter) Quote(ctx context.Context, category string, units int) (pricing.Breakdown, error) {
	if category != "plumbing" {
		return pricing.Breakdown{}, pricing.ErrUnknownCategory
	}
	return pricing.Breakdown{Subtotal: 29900, VisitCharge: 4900, Tax: 6300, Total: 41100, Currency: "INR"}, nil
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

func (r *recordingNotifier) recipients() []types.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ID, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.UserID
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

type recordingFeed struct {
	mu      sync.Mutex
	changes []feed.Change
}

func (r *recordingFeed) Publish(ctx context.Context, c feed.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
	return nil
}

var (
	customer = types.Actor{UserID: "cust-1", EmailVerified: true}
	provider = types.Actor{UserID: "prov-1", EmailVerified: true, IsProvider: true}
	admin    = types.Actor{UserID: "admin-1", EmailVerified: true, IsAdmin: true}
	stranger = types.Actor{UserID: "someone-else", EmailVerified: true, IsProvider: true}
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type harness struct {
	svc      *Service
	store    *memStore
	notifier *recordingNotifier
	feed     *recordingFeed
}

// newHarness wires the service with a KYC gate that reads the same map the
// store re-checks under its lock.
func newHarness() *harness {
	store := newMemStore()
	h := &harness{store: store, notifier: &recordingNotifier{}, feed: &recordingFeed{}}
	h.svc = NewService(store, Deps{
		Quoter: stubQuoter{},
		KYC: gateFunc(func(id types.ID) bool {
			store.mu.Lock()
			defer store.mu.Unlock()
			return store.kyc[id]
		}),
		Feed:     h.feed,
		Notifier: h.notifier,
	})
	h.svc.now = func() time.Time { return testNow }
	return h
}

func (h *harness) create(t *testing.T, method PaymentMethod) *Booking {
	t.Helper()
	b, err := h.svc.Create(context.Background(), CreateCommand{
		Actor:           customer,
		ProviderID:      provider.UserID,
		ServiceCategory: "plumbing",
		Units:           1,
		ScheduledDate:   testNow.AddDate(0, 0, 2),
		ScheduledTime:   "10:30",
		PaymentMethod:   method,
		Notes:           "Kitchen sink leaking",
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b
}
