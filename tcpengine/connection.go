package tcpengine

import (
	"math"

	"github.com/nkoba/gotcp-endpoint/bytestream"
	"github.com/nkoba/gotcp-endpoint/logger"
)

// lingerMultiplier is how many multiples of the initial RTO the active
// closer waits, after seeing the peer's FIN, before declaring the
// connection closed (spec.md §4.6).
const lingerMultiplier = 10

// Connection is the state machine and glue that wires a Receiver and a
// Sender to implement a full TCP connection lifecycle: routing inbound
// segments, stamping and enqueuing outbound ones, advancing time, and
// clean/unclean teardown (spec.md §4.6). A Connection owns its Sender
// and Receiver exclusively; there is no back-reference from Sender to
// Receiver — stamping happens here, at dequeue time.
type Connection struct {
	cfg      Config
	sender   *Sender
	receiver *Receiver

	segmentsOut []Segment

	msSinceLastRecv uint64
	linger          bool
	active          bool
	needRST         bool

	log *logger.Logger
}

// NewConnection constructs a Connection from cfg, setting any zero
// Capacity, RtTimeoutMillis, MaxPayloadSize or MaxRetxAttempts to the
// same default NewConfig uses, and validating the result.
func NewConnection(cfg Config, log *logger.Logger) (*Connection, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.RtTimeoutMillis == 0 {
		cfg.RtTimeoutMillis = DefaultRtTimeoutMillis
	}
	if cfg.MaxPayloadSize == 0 {
		cfg.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if cfg.MaxRetxAttempts == 0 {
		cfg.MaxRetxAttempts = DefaultMaxRetxAttempts
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.New(false, "tcp-connection")
	}
	return &Connection{
		cfg:      cfg,
		sender:   NewSender(cfg.Capacity, cfg.RtTimeoutMillis, cfg.MaxPayloadSize, cfg.FixedISN, logger.New(log.DebugMode(), "tcp-sender")),
		receiver: NewReceiver(cfg.Capacity, logger.New(log.DebugMode(), "tcp-receiver")),
		linger:   true,
		active:   true,
		log:      log,
	}, nil
}

// Active reports whether the connection still considers itself open.
// It transitions from true to false exactly once.
func (c *Connection) Active() bool {
	return c.active
}

// RemainingOutboundCapacity is how much more the caller can Write
// before the sender's outbound stream is full.
func (c *Connection) RemainingOutboundCapacity() int {
	return c.sender.StreamIn().RemainingCapacity()
}

// BytesInFlight forwards to the Sender.
func (c *Connection) BytesInFlight() uint64 {
	return c.sender.BytesInFlight()
}

// UnassembledBytes forwards to the Receiver.
func (c *Connection) UnassembledBytes() int {
	return c.receiver.UnassembledBytes()
}

// TimeSinceLastSegmentReceived is the milliseconds elapsed since the
// last segment SegmentReceived accepted, accumulated across Tick calls.
// Segments dropped while still in LISTEN do not reset it.
func (c *Connection) TimeSinceLastSegmentReceived() uint64 {
	return c.msSinceLastRecv
}

// InboundStream is the application-facing read side: bytes the peer
// has sent, reassembled in order.
func (c *Connection) InboundStream() *bytestream.ByteStream {
	return c.receiver.StreamOut()
}

// OutboundStream is the application-facing write side. Prefer Write,
// which also drives the sender and the outbound queue; this accessor
// exists for callers that need direct stream state (e.g. Error()).
func (c *Connection) OutboundStream() *bytestream.ByteStream {
	return c.sender.StreamIn()
}

// SegmentsOut drains and returns every segment enqueued for
// transmission since the last call, fully stamped and ready for the
// caller's datagram layer.
func (c *Connection) SegmentsOut() []Segment {
	out := c.segmentsOut
	c.segmentsOut = nil
	return out
}

func (c *Connection) uncleanShutdown() {
	c.receiver.StreamOut().SetError()
	c.sender.StreamIn().SetError()
	c.linger = false
	c.active = false
	c.log.Warn("connection: unclean shutdown")
}

// tryCleanShutdown declares the connection closed once either closer
// path's condition is met: the active closer, having seen the peer's
// FIN, has lingered long enough to absorb late segments; or the
// passive closer has seen its own FIN fully acknowledged.
func (c *Connection) tryCleanShutdown() {
	activeCloserDone := c.linger &&
		c.receiver.State() == ReceiverFinRecv &&
		c.msSinceLastRecv >= lingerMultiplier*c.cfg.RtTimeoutMillis
	passiveCloserDone := !c.linger && c.sender.State() == SenderFinAcked
	if activeCloserDone || passiveCloserDone {
		c.active = false
		c.log.Debug("connection: clean shutdown")
	}
}

// enqueueSegments drains the sender's outbound queue, stamping each
// segment with the receiver's current ack/window before handing it to
// the caller, and degrades the whole batch to a single RST if one is
// owed.
func (c *Connection) enqueueSegments() {
	for _, seg := range c.sender.SegmentsOut() {
		if c.needRST {
			seg.RST = true
			c.segmentsOut = append(c.segmentsOut, seg)
			return
		}
		if ackno, ok := c.receiver.Ackno(); ok {
			seg.ACK = true
			seg.AckNum = ackno
			win := c.receiver.WindowSize()
			if win > math.MaxUint16 {
				win = math.MaxUint16
			}
			seg.Window = uint16(win)
		}
		c.segmentsOut = append(c.segmentsOut, seg)
	}
}

// SegmentReceived routes an inbound segment to the receiver and
// sender, replies as needed, and attempts a clean shutdown.
func (c *Connection) SegmentReceived(seg Segment) {
	if c.receiver.State() == ReceiverListen && c.sender.State() == SenderClosed {
		if !seg.SYN || seg.ACK || seg.RST {
			return
		}
	}
	c.msSinceLastRecv = 0

	if seg.RST {
		c.uncleanShutdown()
		return
	}

	c.receiver.SegmentReceived(seg)
	if seg.ACK {
		c.sender.AckReceived(seg.AckNum, seg.Window)
	}

	if c.receiver.State() == ReceiverFinRecv && c.sender.State() == SenderSynAcked {
		c.linger = false
	}

	c.sender.FillWindow()

	ackno, _ := c.receiver.Ackno()
	keepAlive := c.receiver.State() == ReceiverSynRecv && seg.SeqNum == ackno-1
	if seg.LengthInSequenceSpace() > 0 || keepAlive {
		c.sender.SendEmptySegment()
	}

	c.tryCleanShutdown()
	c.enqueueSegments()
}

// Write appends data to the sender's outbound stream, fills the
// window, and enqueues whatever that produced.
func (c *Connection) Write(data []byte) int {
	n := c.sender.StreamIn().Write(data)
	c.sender.FillWindow()
	c.enqueueSegments()
	return n
}

// Tick advances the connection's clock by dt milliseconds: it ages the
// retransmission timer, aborts with an RST once the retransmission
// limit is exceeded, and otherwise attempts a clean shutdown.
func (c *Connection) Tick(dt uint64) {
	c.msSinceLastRecv += dt
	c.sender.Tick(dt)
	if c.sender.ConsecutiveRetransmissions() > c.cfg.MaxRetxAttempts {
		c.uncleanShutdown()
		c.needRST = true
		c.sender.SendEmptySegment()
	} else {
		c.tryCleanShutdown()
	}
	c.enqueueSegments()
}

// EndInputStream signals that the application has no more data to
// send, fills the window (which may produce the FIN), and enqueues
// the result.
func (c *Connection) EndInputStream() {
	c.sender.StreamIn().EndInput()
	c.sender.FillWindow()
	c.enqueueSegments()
}

// Connect begins the handshake by filling the window, which emits the
// initial SYN.
func (c *Connection) Connect() {
	c.sender.FillWindow()
	c.enqueueSegments()
}

// Close is the Go-idiomatic rendering of the original's best-effort
// destructor RST: call it when discarding a still-active Connection.
// Any segment it produces must still be drained with SegmentsOut.
func (c *Connection) Close() {
	if !c.active {
		return
	}
	c.uncleanShutdown()
	c.needRST = true
	c.sender.SendEmptySegment()
	c.enqueueSegments()
	c.log.Warn("connection: closed while active, emitting RST")
}
