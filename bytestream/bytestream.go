// Package bytestream implements a bounded, FIFO byte buffer: the
// application-facing interface on both ends of a TCP connection
// (spec.md §4.1).
package bytestream

// ByteStream is a fixed-capacity circular buffer with an EOF marker and
// a sticky error flag. The zero value is not usable; construct with
// New. All operations run in O(1) or O(n) in the bytes moved. Write and
// Pop never allocate once constructed; Peek and Read return a newly
// allocated slice.
type ByteStream struct {
	buf          []byte
	start        int
	used         int
	bytesWritten uint64
	bytesRead    uint64
	inputEnded   bool
	hasError     bool
}

// New constructs a ByteStream that holds at most capacity bytes at a
// time.
func New(capacity int) *ByteStream {
	return &ByteStream{buf: make([]byte, capacity)}
}

// Capacity is the fixed maximum number of bytes the stream can hold at
// once.
func (s *ByteStream) Capacity() int {
	return len(s.buf)
}

// Write appends as many bytes of data as fit within RemainingCapacity
// and returns the count actually written. It is a no-op once EndInput
// has been called: the writer-side contract is "no more writes after
// end of input."
func (s *ByteStream) Write(data []byte) int {
	if s.inputEnded {
		return 0
	}
	n := len(data)
	if free := s.RemainingCapacity(); n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	end := (s.start + s.used) % len(s.buf)
	copy1 := len(s.buf) - end
	if copy1 > n {
		copy1 = n
	}
	copy(s.buf[end:end+copy1], data[:copy1])
	if copy1 < n {
		copy(s.buf[0:n-copy1], data[copy1:n])
	}
	s.used += n
	s.bytesWritten += uint64(n)
	return n
}

// Peek returns up to n bytes from the front of the stream without
// consuming them.
func (s *ByteStream) Peek(n int) []byte {
	if n > s.used {
		n = s.used
	}
	out := make([]byte, n)
	copy1 := len(s.buf) - s.start
	if copy1 > n {
		copy1 = n
	}
	copy(out[:copy1], s.buf[s.start:s.start+copy1])
	if copy1 < n {
		copy(out[copy1:], s.buf[0:n-copy1])
	}
	return out
}

// Pop removes up to n bytes from the front of the stream.
func (s *ByteStream) Pop(n int) {
	if n > s.used {
		n = s.used
	}
	s.start = (s.start + n) % len(s.buf)
	s.used -= n
	s.bytesRead += uint64(n)
}

// Read copies and then removes up to n bytes from the front of the
// stream.
func (s *ByteStream) Read(n int) []byte {
	out := s.Peek(n)
	s.Pop(len(out))
	return out
}

// EndInput marks that no further bytes will ever be written. Once set,
// it never clears.
func (s *ByteStream) EndInput() {
	s.inputEnded = true
}

// SetError marks the stream as faulted. Once set, it never clears.
func (s *ByteStream) SetError() {
	s.hasError = true
}

// Error reports whether the stream has been faulted.
func (s *ByteStream) Error() bool {
	return s.hasError
}

// InputEnded reports whether EndInput has been called.
func (s *ByteStream) InputEnded() bool {
	return s.inputEnded
}

// Eof reports whether input has ended and every byte has been read.
func (s *ByteStream) Eof() bool {
	return s.inputEnded && s.used == 0
}

// BufferSize is the number of bytes currently held (written but not
// yet read).
func (s *ByteStream) BufferSize() int {
	return s.used
}

// RemainingCapacity is how many more bytes can be written before the
// stream is full.
func (s *ByteStream) RemainingCapacity() int {
	return len(s.buf) - s.used
}

// BytesWritten is the total number of bytes ever written, regardless of
// how many have since been read.
func (s *ByteStream) BytesWritten() uint64 {
	return s.bytesWritten
}

// BytesRead is the total number of bytes ever read.
func (s *ByteStream) BytesRead() uint64 {
	return s.bytesRead
}
