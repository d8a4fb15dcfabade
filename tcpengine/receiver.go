package tcpengine

import (
	"github.com/nkoba/gotcp-endpoint/bytestream"
	"github.com/nkoba/gotcp-endpoint/logger"
	"github.com/nkoba/gotcp-endpoint/reassembler"
	"github.com/nkoba/gotcp-endpoint/seqnum"
)

// ReceiverState is the Receiver's derived state (spec.md §4.4). It is
// never stored, always computed from the underlying fields, so it can
// never drift from them.
type ReceiverState int

const (
	ReceiverListen ReceiverState = iota
	ReceiverSynRecv
	ReceiverFinRecv
	ReceiverError
)

func (s ReceiverState) String() string {
	switch s {
	case ReceiverListen:
		return "LISTEN"
	case ReceiverSynRecv:
		return "SYN_RECV"
	case ReceiverFinRecv:
		return "FIN_RECV"
	case ReceiverError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Receiver demultiplexes inbound segments into SYN/payload/FIN and
// feeds the payload to a StreamReassembler, computing the ackno and
// window size the Connection will stamp onto outbound segments.
type Receiver struct {
	capacity    int
	isn         WSN
	haveISN     bool
	reassembler *reassembler.Reassembler
	log         *logger.Logger
}

// NewReceiver constructs a Receiver that reassembles up to capacity
// bytes of inbound data at a time.
func NewReceiver(capacity int, log *logger.Logger) *Receiver {
	if log == nil {
		log = logger.New(false, "tcp-receiver")
	}
	return &Receiver{
		capacity:    capacity,
		reassembler: reassembler.New(capacity),
		log:         log,
	}
}

// StreamOut is the reassembled inbound byte stream.
func (r *Receiver) StreamOut() *bytestream.ByteStream {
	return r.reassembler.StreamOut()
}

// UnassembledBytes forwards to the underlying reassembler.
func (r *Receiver) UnassembledBytes() int {
	return r.reassembler.UnassembledBytes()
}

// State is the Receiver's derived state.
func (r *Receiver) State() ReceiverState {
	if r.reassembler.StreamOut().Error() {
		return ReceiverError
	}
	if !r.haveISN {
		return ReceiverListen
	}
	if r.reassembler.StreamOut().InputEnded() {
		return ReceiverFinRecv
	}
	return ReceiverSynRecv
}

// SegmentReceived demultiplexes seg: the first SYN establishes the
// ISN, payload bytes are handed to the reassembler at their absolute
// stream index, and a FIN is forwarded as the eof marker on whichever
// fragment carries it.
func (r *Receiver) SegmentReceived(seg Segment) {
	if !r.haveISN {
		if !seg.SYN {
			return
		}
		r.isn = seg.SeqNum
		r.haveISN = true
		r.log.Debugf("receiver: captured isn=%d", r.isn)
	}

	checkpoint := ASN(r.reassembler.StreamOut().BytesWritten()) + 1
	if r.State() == ReceiverFinRecv {
		checkpoint++
	}

	payloadSeqNo := seg.SeqNum
	if seg.SYN {
		payloadSeqNo++
	}
	absSeqNo := seqnum.Unwrap(payloadSeqNo, r.isn, checkpoint)
	if absSeqNo > 0 {
		r.reassembler.PushSubstring(seg.Payload, uint64(absSeqNo-1), seg.FIN)
	}
}

// Ackno is the next sequence number the receiver expects, or false if
// no SYN has been seen yet or the inbound stream has errored.
func (r *Receiver) Ackno() (WSN, bool) {
	switch r.State() {
	case ReceiverListen, ReceiverError:
		return 0, false
	}
	absAckNo := ASN(r.reassembler.StreamOut().BytesWritten()) + 1
	if r.State() == ReceiverFinRecv {
		absAckNo++
	}
	return seqnum.Wrap(absAckNo, r.isn), true
}

// WindowSize is the number of additional bytes the receiver is
// willing to accept right now.
func (r *Receiver) WindowSize() int {
	return r.capacity - r.reassembler.StreamOut().BufferSize()
}
