package segment

import (
	"bytes"
	"testing"

	"github.com/nkoba/gotcp-endpoint/seqnum"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := TCPSegment{
		SeqNum:  seqnum.Value(1000),
		AckNum:  seqnum.Value(2000),
		Window:  4096,
		SYN:     true,
		ACK:     true,
		Payload: []byte("hello"),
	}
	wire := Encode(original, 1234, 5678, 0)
	decoded, err := Decode(wire)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.SeqNum != original.SeqNum {
		t.Fatalf("seqnum: actual %d", decoded.SeqNum)
	}
	if decoded.AckNum != original.AckNum {
		t.Fatalf("acknum: actual %d", decoded.AckNum)
	}
	if decoded.Window != original.Window {
		t.Fatalf("window: actual %d", decoded.Window)
	}
	if !decoded.SYN || !decoded.ACK || decoded.FIN || decoded.RST {
		t.Fatalf("flags: actual %s", decoded.String())
	}
	if !bytes.Equal(decoded.Payload, original.Payload) {
		t.Fatalf("payload: actual %q", decoded.Payload)
	}
}

func TestLengthInSequenceSpace(t *testing.T) {
	cases := []struct {
		seg  TCPSegment
		want int
	}{
		{TCPSegment{SYN: true}, 1},
		{TCPSegment{Payload: []byte("abcd")}, 4},
		{TCPSegment{SYN: true, Payload: []byte("ab"), FIN: true}, 4},
		{TCPSegment{}, 0},
	}
	for _, c := range cases {
		if got := c.seg.LengthInSequenceSpace(); got != c.want {
			t.Errorf("%v: actual %d want %d", c.seg, got, c.want)
		}
	}
}

func TestDecodeShortHeader(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x02}); err == nil {
		t.Fatal("expected error for short header")
	}
}
