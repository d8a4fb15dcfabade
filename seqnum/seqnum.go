// Package seqnum implements the absolute/wrapped sequence number
// arithmetic a TCP endpoint needs: translating between the 64-bit
// zero-indexed stream position (ASN) that the engine reasons about and
// the 32-bit modular wire form (WSN) that travels in segment headers.
package seqnum

// Value is a 32-bit wrapped sequence number, the wire form of a TCP
// seqno/ackno. Arithmetic on Value wraps modulo 2^32 using Go's native
// unsigned-integer overflow, matching RFC 793's sequence space.
type Value uint32

// Absolute is a 64-bit, zero-indexed absolute sequence number (ASN): 0 at
// the SYN, 1 at the first payload byte, monotonically increasing for the
// life of the stream.
type Absolute uint64

// Wrap converts an absolute sequence number into its wrapped wire form
// relative to isn. Wrap is a homomorphism modulo 2^32: Wrap(a+b, isn) ==
// Wrap(a, Wrap(b, isn)).
func Wrap(n Absolute, isn Value) Value {
	return isn + Value(uint32(n))
}

// Unwrap returns the absolute sequence number n such that Wrap(n, isn) ==
// w and |n - checkpoint| is minimized, breaking ties toward the larger n.
// Every wire-to-absolute conversion in the engine calls this with a
// checkpoint that is the caller's best current estimate of progress
// (typically bytes_written of the relevant stream).
func Unwrap(w, isn Value, checkpoint Absolute) Absolute {
	checkpointWrapped := Wrap(checkpoint, isn)
	var diffUp, diffDown uint32
	if checkpointWrapped < w {
		diffUp = uint32(w - checkpointWrapped)
		diffDown = ^diffUp + 1 // 2^32 - diffUp, computed without overflowing a 33-bit value
	} else {
		diffDown = uint32(checkpointWrapped - w)
		diffUp = ^diffDown + 1
	}
	if diffUp <= diffDown || uint64(checkpoint) < uint64(diffDown) {
		return checkpoint + Absolute(diffUp)
	}
	return checkpoint - Absolute(diffDown)
}
