package seqnum

import "testing"

func TestWrapUnwrapRoundTrip(t *testing.T) {
	cases := []struct {
		n   Absolute
		isn Value
	}{
		{0, 0},
		{1, 0},
		{1, 12345},
		{4294967296, 0},          // n == 2^32, isn == 0
		{4294967296, 512},        // n == 2^32, isn nonzero
		{8589934592, 0},          // n == 2^33
		{8589934595, 4294967294}, // n == 2^33+3, isn == 2^32-2
	}
	for _, c := range cases {
		w := Wrap(c.n, c.isn)
		got := Unwrap(w, c.isn, c.n)
		if got != c.n {
			t.Errorf("Unwrap(Wrap(%d, %d), %d, checkpoint=%d): actual %d", c.n, c.isn, c.isn, c.n, got)
		}
	}
}

// TestWrapBoundaryUnwrap is spec.md §8 scenario 6: unwrapping must pick
// the absolute value closest to the checkpoint even when that value is
// on the far side of a 32-bit wraparound from the checkpoint's own
// wrapped form.
func TestWrapBoundaryUnwrap(t *testing.T) {
	isn := Value(4294967294) // 2^32 - 2
	n := Absolute(8589934595) // 2^33 + 3
	checkpoint := Absolute(8589934592) // 2^33

	w := Wrap(n, isn)
	got := Unwrap(w, isn, checkpoint)
	if got != n {
		t.Fatalf("actual %d want %d", got, n)
	}
}

// TestUnwrapExactTieBreaksTowardLargerN covers the case where w sits
// exactly 2^31 away from checkpoint on both sides of the wraparound:
// spec.md §4.3 requires the larger of the two equidistant candidates.
func TestUnwrapExactTieBreaksTowardLargerN(t *testing.T) {
	isn := Value(0)
	checkpoint := Absolute(4294967296) // 2^32
	w := Value(2147483648)             // 2^31
	got := Unwrap(w, isn, checkpoint)
	want := Absolute(6442450944) // checkpoint + 2^31, not checkpoint - 2^31
	if got != want {
		t.Fatalf("actual %d want %d", got, want)
	}
}

func TestUnwrapPicksClosestToCheckpoint(t *testing.T) {
	isn := Value(0)
	// Checkpoint sits just below a wraparound; the wrapped value 1 is
	// closer to checkpoint+2 than to checkpoint-(2^32-2).
	checkpoint := Absolute(4294967295) // 2^32 - 1
	w := Value(1)
	got := Unwrap(w, isn, checkpoint)
	want := Absolute(4294967297) // 2^32 + 1, not 1
	if got != want {
		t.Fatalf("actual %d want %d", got, want)
	}
}
