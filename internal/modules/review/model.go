// README: Reviews of completed bookings and the suspicious-reviewer heuristic.
package review

import (
	"sort"
	"time"

	"localpro/internal/types"
)

type Review struct {
	ID         types.ID  `json:"id"`
	BookingID  types.ID  `json:"booking_id"`
	CustomerID types.ID  `json:"customer_id"`
	ProviderID types.ID  `json:"provider_id"`
	Rating     int       `json:"rating"`
	Feedback   *string   `json:"feedback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Rating struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

const (
	ReasonManyReviews      = "many_reviews"
	ReasonIdenticalRatings = "identical_ratings"
)

type Flagged struct {
	Review *Review `json:"review"`
	Reason string  `json:"reason"`
}

// FlagSuspicious flags every review by a customer who wrote at least three
// reviews, or at least two that all carry the same rating. It only surfaces
// candidates for a human to look at.
func FlagSuspicious(reviews []*Review) []Flagged {
	byCustomer := map[types.ID][]*Review{}
	var order []types.ID
	for _, r := range reviews {
		if _, seen := byCustomer[r.CustomerID]; !seen {
			order = append(order, r.CustomerID)
		}
		byCustomer[r.CustomerID] = append(byCustomer[r.CustomerID], r)
	}

	var out []Flagged
	for _, customerID := range order {
		rs := byCustomer[customerID]
		reason := ""
		switch {
		case len(rs) >= 3:
			reason = ReasonManyReviews
		case len(rs) >= 2 && sameRating(rs):
			reason = ReasonIdenticalRatings
		}
		if reason == "" {
			continue
		}
		for _, r := range rs {
			out = append(out, Flagged{Review: r, Reason: reason})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Review.CreatedAt.After(out[j].Review.CreatedAt) })
	return out
}

func sameRating(rs []*Review) bool {
	for _, r := range rs[1:] {
		if r.Rating != rs[0].Rating {
			return false
		}
	}
	return true
}
