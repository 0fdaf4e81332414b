// README: Subscriber-side view that applies changes as incremental patches keyed by booking id.
package feed

import (
	"sync"

	"localpro/internal/types"
)

type ApplyResult int

const (
	Applied ApplyResult = iota
	// Stale means the change repeats or predates what the view holds; it was dropped.
	Stale
	// Gap means at least one version was skipped. The change was applied but the
	// subscriber should re-read its full state.
	Gap
)

type View struct {
	mu   sync.Mutex
	rows map[types.ID]Change
}

func NewView() *View {
	return &View{rows: map[types.ID]Change{}}
}

// Reset replaces the view with a full snapshot.
func (v *View) Reset(snapshot []Change) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = make(map[types.ID]Change, len(snapshot))
	for _, c := range snapshot {
		v.rows[c.BookingID] = c
	}
}

func (v *View) Apply(c Change) ApplyResult {
	v.mu.Lock()
	defer v.mu.Unlock()
	cur, ok := v.rows[c.BookingID]
	if !ok {
		v.rows[c.BookingID] = c
		return Applied
	}
	if c.Version <= cur.Version {
		return Stale
	}
	v.rows[c.BookingID] = c
	if c.Version > cur.Version+1 {
		return Gap
	}
	return Applied
}

func (v *View) Get(id types.ID) (Change, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.rows[id]
	return c, ok
}

func (v *View) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.rows)
}
