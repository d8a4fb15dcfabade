package cmd

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"

	"github.com/nkoba/gotcp-endpoint/logger"
	"github.com/nkoba/gotcp-endpoint/segment"
	"github.com/nkoba/gotcp-endpoint/tcpengine"
	"github.com/nkoba/gotcp-endpoint/util"
)

// encodeSegment serializes seg and stamps it with a checksum over the
// resulting bytes. There is no IP pseudo-header available over this
// demo's UDP transport, so the checksum covers the TCP header and
// payload only: it catches in-flight corruption but is not RFC 793
// wire-compatible.
func encodeSegment(seg tcpengine.Segment) []byte {
	wire := segment.Encode(seg, 0, 0, 0)
	sum := util.InternetChecksum(wire, 0)
	return segment.Encode(seg, 0, 0, sum)
}

// decodeSegment verifies the checksum encodeSegment stamped, by zeroing
// the checksum field and recomputing it the same way encodeSegment did.
func decodeSegment(wire []byte) (tcpengine.Segment, error) {
	if len(wire) < header.TCPMinimumSize {
		return tcpengine.Segment{}, errors.Errorf("pump: short datagram, got %d bytes", len(wire))
	}
	zeroed := append([]byte(nil), wire...)
	header.TCP(zeroed).SetChecksum(0)
	if util.InternetChecksum(zeroed, 0) != header.TCP(wire).Checksum() {
		return tcpengine.Segment{}, errors.New("pump: checksum mismatch")
	}
	return segment.Decode(wire)
}

// tickInterval is the longest the pump waits for a datagram before it
// advances the connection's clock, so retransmission timers keep
// running while nothing arrives. The clock is also advanced after
// every datagram that does arrive.
const tickInterval = 50 * time.Millisecond

// pump drives conn end to end over sock: it relays stdin into the
// connection's outbound stream, relays the connection's inbound stream
// to stdout, shuttles segments to and from the wire, and ticks the
// connection's retransmission clock. It returns once the connection
// goes inactive.
func pump(conn *tcpengine.Connection, sock net.Conn, log *logger.Logger) error {
	if err := sock.SetReadDeadline(time.Now().Add(tickInterval)); err != nil {
		return err
	}

	stdinBuf := make(chan []byte, 16)
	go func() {
		defer close(stdinBuf)
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				stdinBuf <- append([]byte(nil), buf[:n]...)
			}
			if err != nil {
				return
			}
		}
	}()

	readBuf := make([]byte, 65536)
	lastTick := time.Now()

	for conn.Active() {
		for _, seg := range conn.SegmentsOut() {
			if _, err := sock.Write(encodeSegment(seg)); err != nil {
				log.Warnf("pump: write failed: %v", err)
			}
		}

		select {
		case data, ok := <-stdinBuf:
			if ok {
				conn.Write(data)
			} else {
				conn.EndInputStream()
			}
		default:
		}

		if err := sock.SetReadDeadline(time.Now().Add(tickInterval)); err != nil {
			return err
		}
		n, err := sock.Read(readBuf)
		if n > 0 {
			seg, decodeErr := decodeSegment(readBuf[:n])
			if decodeErr != nil {
				log.Warnf("pump: dropping malformed segment: %v", decodeErr)
			} else {
				conn.SegmentReceived(seg)
			}
		}
		if err != nil && !isTimeout(err) {
			if err != io.EOF {
				log.Warnf("pump: read failed: %v", err)
			}
		}

		out := conn.InboundStream()
		if avail := out.BufferSize(); avail > 0 {
			os.Stdout.Write(out.Read(avail))
		}

		now := time.Now()
		conn.Tick(uint64(now.Sub(lastTick).Milliseconds()))
		lastTick = now
	}
	for _, seg := range conn.SegmentsOut() {
		sock.Write(encodeSegment(seg))
	}
	return nil
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}
