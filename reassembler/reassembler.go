// Package reassembler implements the out-of-order stream reassembler
// (spec.md §4.2): it accepts possibly-reordering, possibly-overlapping
// byte fragments addressed by absolute stream index and writes their
// contiguous prefix into a ByteStream as it becomes available.
package reassembler

import "github.com/nkoba/gotcp-endpoint/bytestream"

// Reassembler owns a ByteStream ("assembled output") and a capacity-
// bounded ring of bytes that have arrived but cannot yet be delivered
// because earlier bytes are still missing. It uses a per-byte presence
// ring (one of the two equivalent representations spec.md §9 allows)
// rather than an interval map: simpler to keep correct, and the
// capacity bound keeps the O(n) per-fragment merge cheap in practice.
type Reassembler struct {
	capacity int
	ring     []byte
	used     []bool
	usedSize int
	startPos int // ring slot that corresponds to output.BytesWritten()

	eofIndex  uint64
	haveEOF   bool
	output    *bytestream.ByteStream
}

// New constructs a Reassembler that admits at most capacity bytes of
// assembled-plus-unassembled data at a time.
func New(capacity int) *Reassembler {
	return &Reassembler{
		capacity: capacity,
		ring:     make([]byte, capacity),
		used:     make([]bool, capacity),
		output:   bytestream.New(capacity),
	}
}

// StreamOut is the reassembled, in-order byte stream.
func (r *Reassembler) StreamOut() *bytestream.ByteStream {
	return r.output
}

// UnassembledBytes is the count of bytes held but not yet delivered. A
// byte received more than once counts once.
func (r *Reassembler) UnassembledBytes() int {
	return r.usedSize
}

// Empty reports whether there are no unassembled bytes waiting.
func (r *Reassembler) Empty() bool {
	return r.usedSize == 0
}

// PushSubstring accepts a fragment whose first byte is at absolute
// stream index index, writing any newly contiguous prefix into the
// output stream. If eof is true, the last byte of data is the last byte
// of the entire stream. The end is recorded only if none of data's
// trailing bytes were cut off by the capacity bound below; once
// recorded it latches, and later eof flags are ignored.
func (r *Reassembler) PushSubstring(data []byte, index uint64, eof bool) {
	firstUnassembled := r.output.BytesWritten()

	// Wholly stale: every byte of data has already been delivered.
	if index+uint64(len(data)) < firstUnassembled {
		return
	}
	if index < firstUnassembled {
		data = data[firstUnassembled-index:]
		index = firstUnassembled
	}

	// Bound admission so assembled + unassembled never exceeds capacity.
	firstUnacceptable := firstUnassembled + uint64(r.capacity) - uint64(r.output.BufferSize())
	tailCut := false
	if index >= firstUnacceptable {
		tailCut = len(data) > 0
		data = nil
	} else if room := firstUnacceptable - index; uint64(len(data)) > room {
		data = data[:room]
		tailCut = true
	}

	if eof && !tailCut && !r.haveEOF {
		r.eofIndex = index + uint64(len(data))
		r.haveEOF = true
	}

	if len(data) > 0 {
		offset := int(index - firstUnassembled)
		for i, b := range data {
			pos := (r.startPos + offset + i) % r.capacity
			if !r.used[pos] {
				r.ring[pos] = b
				r.used[pos] = true
				r.usedSize++
			}
		}
	}

	r.drain()

	if r.haveEOF && r.output.BytesWritten() == r.eofIndex {
		r.output.EndInput()
	}
}

// drain extracts the contiguous run starting at startPos into output.
func (r *Reassembler) drain() {
	var popped []byte
	for r.used[r.startPos] {
		popped = append(popped, r.ring[r.startPos])
		r.used[r.startPos] = false
		r.usedSize--
		r.startPos = (r.startPos + 1) % r.capacity
	}
	if len(popped) > 0 {
		r.output.Write(popped)
	}
}
