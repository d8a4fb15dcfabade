package tcpengine

import (
	"container/list"

	"github.com/nkoba/gotcp-endpoint/bytestream"
	"github.com/nkoba/gotcp-endpoint/logger"
	"github.com/nkoba/gotcp-endpoint/seqnum"
)

// SenderState is the Sender's derived state (spec.md §4.5), always
// computed from the underlying counters.
type SenderState int

const (
	SenderClosed SenderState = iota
	SenderSynSent
	SenderSynAcked
	SenderFinSent
	SenderFinAcked
	SenderError
)

func (s SenderState) String() string {
	switch s {
	case SenderClosed:
		return "CLOSED"
	case SenderSynSent:
		return "SYN_SENT"
	case SenderSynAcked:
		return "SYN_ACKED"
	case SenderFinSent:
		return "FIN_SENT"
	case SenderFinAcked:
		return "FIN_ACKED"
	case SenderError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Sender segmentizes an outbound ByteStream, tracks the in-flight
// queue, and retransmits on timer expiry with exponential backoff
// (spec.md §4.5).
type Sender struct {
	isn WSN

	outbound *bytestream.ByteStream

	segmentsOut []Segment
	inFlight    *list.List // of Segment

	rtoInitial uint64
	rtoCurrent uint64
	timer      *timer
	retxCount  int

	nextASN       ASN
	lastAckASN    ASN
	bytesInFlight uint64
	windowSize    uint64

	maxPayload int
	log        *logger.Logger
}

// NewSender constructs a Sender with outbound capacity capacity. If
// fixedISN is non-nil it is used verbatim; otherwise a random ISN is
// drawn.
func NewSender(capacity int, rtoInitialMs uint64, maxPayload int, fixedISN *WSN, log *logger.Logger) *Sender {
	if log == nil {
		log = logger.New(false, "tcp-sender")
	}
	isn := fixedISN
	var chosen WSN
	if isn != nil {
		chosen = *isn
	} else {
		chosen = randomISN()
	}
	return &Sender{
		isn:        chosen,
		outbound:   bytestream.New(capacity),
		inFlight:   list.New(),
		rtoInitial: rtoInitialMs,
		rtoCurrent: rtoInitialMs,
		timer:      newTimer(rtoInitialMs),
		windowSize: 1,
		maxPayload: maxPayload,
		log:        log,
	}
}

// StreamIn is the outbound byte stream the caller writes into.
func (s *Sender) StreamIn() *bytestream.ByteStream {
	return s.outbound
}

// BytesInFlight is the total sequence-space length of segments sent
// but not yet fully acknowledged.
func (s *Sender) BytesInFlight() uint64 {
	return s.bytesInFlight
}

// ConsecutiveRetransmissions is the number of consecutive
// retransmissions that have occurred without an intervening ACK of new
// data.
func (s *Sender) ConsecutiveRetransmissions() int {
	return s.retxCount
}

// NextSeqnoAbsolute is the absolute sequence number of the next byte
// to be sent.
func (s *Sender) NextSeqnoAbsolute() ASN {
	return s.nextASN
}

// NextSeqno is the wire form of NextSeqnoAbsolute.
func (s *Sender) NextSeqno() WSN {
	return seqnum.Wrap(s.nextASN, s.isn)
}

// SegmentsOut drains and returns every segment enqueued for
// transmission since the last call.
func (s *Sender) SegmentsOut() []Segment {
	out := s.segmentsOut
	s.segmentsOut = nil
	return out
}

// HasSegmentsOut reports whether any segment is waiting to be drained.
func (s *Sender) HasSegmentsOut() bool {
	return len(s.segmentsOut) > 0
}

// State is the Sender's derived state.
func (s *Sender) State() SenderState {
	if s.outbound.Error() {
		return SenderError
	}
	if s.nextASN == 0 {
		return SenderClosed
	}
	if uint64(s.nextASN) == s.bytesInFlight {
		return SenderSynSent
	}
	if !s.outbound.Eof() || uint64(s.nextASN) < s.outbound.BytesWritten()+2 {
		return SenderSynAcked
	}
	if s.bytesInFlight > 0 {
		return SenderFinSent
	}
	return SenderFinAcked
}

func (s *Sender) sendSegment(seg Segment) {
	n := uint64(seg.LengthInSequenceSpace())
	s.nextASN += ASN(n)
	s.bytesInFlight += n
	s.segmentsOut = append(s.segmentsOut, seg)
	s.inFlight.PushBack(seg)
	if !s.timer.running {
		s.timer.restart()
	}
}

// freeWindow is the number of sequence numbers still available to
// send before exhausting the peer's advertised window: the usual
// window minus what's already in flight, except that a genuinely
// zero window with nothing outstanding is treated as a window of one
// (a zero-window probe).
func (s *Sender) freeWindow() uint64 {
	inFlightLen := uint64(s.nextASN - s.lastAckASN)
	if s.windowSize == 0 && inFlightLen == 0 {
		return 1
	}
	if s.windowSize <= inFlightLen {
		return 0
	}
	return s.windowSize - inFlightLen
}

// FillWindow segmentizes as much of the outbound stream as the
// advertised window and MaxPayloadSize allow, sending a SYN first if
// the connection hasn't started yet and a FIN once input has ended,
// every byte of the stream has been read into a segment, and the
// window has a sequence number to spare for it.
func (s *Sender) FillWindow() {
	if s.State() == SenderClosed {
		s.sendSegment(Segment{SYN: true, SeqNum: s.isn})
		return
	}
	for {
		free := s.freeWindow()
		if free == 0 {
			return
		}

		streamSize := uint64(s.outbound.BufferSize())
		pendingFin := s.outbound.InputEnded() && s.State() == SenderSynAcked
		if streamSize == 0 && !pendingFin {
			return
		}

		toSend := streamSize
		if free < toSend {
			toSend = free
		}
		if uint64(s.maxPayload) < toSend {
			toSend = uint64(s.maxPayload)
		}

		payload := s.outbound.Read(int(toSend))
		seg := Segment{SeqNum: seqnum.Wrap(s.nextASN, s.isn), Payload: payload}

		if pendingFin && s.outbound.Eof() && free > toSend {
			seg.FIN = true
		}

		if toSend == 0 && !seg.FIN {
			return
		}
		s.sendSegment(seg)
	}
}

// AckReceived updates the sender's notion of progress from a peer ACK:
// stale or impossible acks are ignored (except for refreshing the
// advertised window on a repeat of the last ack), otherwise fully
// acknowledged segments are retired from the in-flight queue and the
// retransmission timer is reset.
func (s *Sender) AckReceived(ackno WSN, windowSize uint16) {
	abs := seqnum.Unwrap(ackno, s.isn, s.lastAckASN)
	if abs <= s.lastAckASN || abs > s.nextASN {
		if abs == s.lastAckASN {
			s.windowSize = uint64(windowSize)
		}
		return
	}

	s.timer.reset(s.rtoInitial)
	s.rtoCurrent = s.rtoInitial
	s.retxCount = 0

	for e := s.inFlight.Front(); e != nil; {
		seg := e.Value.(Segment)
		segAbs := seqnum.Unwrap(seg.SeqNum, s.isn, s.lastAckASN)
		if ASN(segAbs)+ASN(seg.LengthInSequenceSpace()) > abs {
			break
		}
		s.bytesInFlight -= uint64(seg.LengthInSequenceSpace())
		next := e.Next()
		s.inFlight.Remove(e)
		e = next
	}
	if s.inFlight.Len() > 0 {
		s.timer.restart()
	}

	s.windowSize = uint64(windowSize)
	s.lastAckASN = abs
}

// Tick advances the retransmission timer by dt milliseconds and, if it
// has expired, retransmits the oldest in-flight segment, backing off
// the RTO unless the peer's advertised window is zero (a zero-window
// probe never counts against the retransmission limit).
func (s *Sender) Tick(dt uint64) {
	s.timer.tick(dt)
	if !s.timer.expired() {
		return
	}
	front := s.inFlight.Front()
	if front == nil {
		s.timer.stop()
		return
	}
	seg := front.Value.(Segment)
	s.segmentsOut = append(s.segmentsOut, seg)
	if s.windowSize > 0 {
		s.retxCount++
		s.rtoCurrent *= 2
		s.timer.reset(s.rtoCurrent)
		s.log.Debugf("sender: retransmitting, retx_count=%d rto=%dms", s.retxCount, s.rtoCurrent)
	}
	s.timer.restart()
}

// SendEmptySegment enqueues a flagless segment carrying the current
// sequence number, used to carry an ACK-only reply or a keep-alive.
// It does not enter the in-flight queue and is not counted against
// bytes in flight. Mirrors the original's guard of only doing this
// when nothing else is already queued to go out.
func (s *Sender) SendEmptySegment() {
	if len(s.segmentsOut) == 0 {
		s.segmentsOut = append(s.segmentsOut, Segment{SeqNum: seqnum.Wrap(s.nextASN, s.isn)})
	}
}
