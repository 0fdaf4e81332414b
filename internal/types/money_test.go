package types

import "testing"

func TestApplyBasisPoints(t *testing.T) {
	cases := []struct {
		amount, bps, want int64
	}{
		{42500, 1500, 6375},
		{0, 1500, 0},
		{1, 5000, 1},
		{3, 1500, 0},
		{4, 12500, 5},
		{-42500, 1500, -6375},
		{33333, 1800, 6000},
	}
	for _, tc := range cases {
		if got := ApplyBasisPoints(tc.amount, tc.bps); got != tc.want {
			t.Fatalf("ApplyBasisPoints(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestRateToBasisPoints(t *testing.T) {
	cases := map[float64]int64{0.15: 1500, 0.18: 1800, 0: 0, 0.075: 750, 0.1234: 1234}
	for rate, want := range cases {
		if got := RateToBasisPoints(rate); got != want {
			t.Fatalf("RateToBasisPoints(%v) = %d, want %d", rate, got, want)
		}
	}
}

func TestMoney(t *testing.T) {
	if got := FromMajor(425); got != 42500 {
		t.Fatalf("FromMajor(425) = %d", got)
	}
	if got := FromMajor(0.1 + 0.2); got != 30 {
		t.Fatalf("FromMajor(0.3) = %d", got)
	}
	if got := (Money{Amount: 41100}).String(); got != "INR 411.00" {
		t.Fatalf("String() = %q", got)
	}
}

func TestActorValid(t *testing.T) {
	if (Actor{}).Valid() {
		t.Fatal("zero actor must be invalid")
	}
	if !(Actor{UserID: "u1"}).Valid() {
		t.Fatal("actor with uid must be valid")
	}
	if NewID() == NewID() {
		t.Fatal("NewID must not repeat")
	}
}
