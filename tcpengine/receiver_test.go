package tcpengine

import "testing"

func TestReceiverListenDropsNonSyn(t *testing.T) {
	r := NewReceiver(4096, nil)
	r.SegmentReceived(Segment{Payload: []byte("x")})
	if r.State() != ReceiverListen {
		t.Fatalf("actual %s", r.State())
	}
}

func TestReceiverSynThenPayload(t *testing.T) {
	r := NewReceiver(4096, nil)
	r.SegmentReceived(Segment{SYN: true, SeqNum: 0})
	if r.State() != ReceiverSynRecv {
		t.Fatalf("actual %s", r.State())
	}
	ackno, ok := r.Ackno()
	if !ok || ackno != 1 {
		t.Fatalf("actual %v ok=%v", ackno, ok)
	}

	r.SegmentReceived(Segment{SeqNum: 1, Payload: []byte("abcd")})
	ackno, ok = r.Ackno()
	if !ok || ackno != 5 {
		t.Fatalf("actual %v ok=%v", ackno, ok)
	}
	out := r.StreamOut().Read(4)
	if string(out) != "abcd" {
		t.Fatalf("actual %q", out)
	}
}

func TestReceiverSynDataFin(t *testing.T) {
	r := NewReceiver(4096, nil)
	r.SegmentReceived(Segment{SYN: true, SeqNum: 100, Payload: []byte("hi"), FIN: true})
	if r.State() != ReceiverFinRecv {
		t.Fatalf("actual %s", r.State())
	}
	ackno, ok := r.Ackno()
	// isn=100, abs_ack_no = bytes_written(2)+1+1(fin)=4
	if !ok || ackno != WSN(104) {
		t.Fatalf("actual %v ok=%v", ackno, ok)
	}
}

func TestReceiverWindowSize(t *testing.T) {
	r := NewReceiver(8, nil)
	r.SegmentReceived(Segment{SYN: true, SeqNum: 0})
	if r.WindowSize() != 8 {
		t.Fatalf("actual %d", r.WindowSize())
	}
	r.SegmentReceived(Segment{SeqNum: 1, Payload: []byte("abcd")})
	if r.WindowSize() != 4 {
		t.Fatalf("actual %d", r.WindowSize())
	}
}

func TestReceiverKeepAliveSeqnoEqualsAcknoMinusOne(t *testing.T) {
	r := NewReceiver(4096, nil)
	r.SegmentReceived(Segment{SYN: true, SeqNum: 0})
	ackno, _ := r.Ackno()
	// A zero-length segment whose seqno is ackno-1 is a keep-alive;
	// pushing it through the reassembler must not advance anything.
	r.SegmentReceived(Segment{SeqNum: WSN(uint32(ackno) - 1)})
	if r.StreamOut().BytesWritten() != 0 {
		t.Fatalf("actual %d", r.StreamOut().BytesWritten())
	}
}
