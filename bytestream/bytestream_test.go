package bytestream

import (
	"bytes"
	"testing"
)

func TestWriteReadBasic(t *testing.T) {
	s := New(10)
	n := s.Write([]byte("abcd"))
	if n != 4 {
		t.Fatalf("actual %d", n)
	}
	if s.BufferSize() != 4 {
		t.Fatalf("buffer size actual %d", s.BufferSize())
	}
	out := s.Read(2)
	if !bytes.Equal(out, []byte("ab")) {
		t.Fatalf("actual %q", out)
	}
	if s.BytesRead() != 2 {
		t.Fatalf("bytes read actual %d", s.BytesRead())
	}
}

func TestWriteCapacityBound(t *testing.T) {
	s := New(4)
	n := s.Write([]byte("abcdef"))
	if n != 4 {
		t.Fatalf("actual %d", n)
	}
	if s.RemainingCapacity() != 0 {
		t.Fatalf("actual %d", s.RemainingCapacity())
	}
}

func TestWrapAround(t *testing.T) {
	s := New(4)
	s.Write([]byte("ab"))
	s.Pop(2)
	n := s.Write([]byte("cdef"))
	if n != 4 {
		t.Fatalf("actual %d", n)
	}
	out := s.Read(4)
	if !bytes.Equal(out, []byte("cdef")) {
		t.Fatalf("actual %q", out)
	}
}

func TestEndInputStopsWrites(t *testing.T) {
	s := New(10)
	s.EndInput()
	if n := s.Write([]byte("x")); n != 0 {
		t.Fatalf("actual %d", n)
	}
	if !s.InputEnded() {
		t.Fatal("expected input ended to stick")
	}
}

func TestEof(t *testing.T) {
	s := New(4)
	s.Write([]byte("ab"))
	s.EndInput()
	if s.Eof() {
		t.Fatal("should not be eof with unread bytes")
	}
	s.Read(2)
	if !s.Eof() {
		t.Fatal("expected eof once drained")
	}
}

func TestErrorSticky(t *testing.T) {
	s := New(4)
	s.SetError()
	if !s.Error() {
		t.Fatal("expected error to stick")
	}
}

func TestInvariantBytesWrittenMinusRead(t *testing.T) {
	s := New(8)
	s.Write([]byte("abcdef"))
	s.Read(3)
	if s.BytesWritten()-s.BytesRead() != uint64(s.BufferSize()) {
		t.Fatalf("invariant violated: written=%d read=%d buffer=%d", s.BytesWritten(), s.BytesRead(), s.BufferSize())
	}
}
