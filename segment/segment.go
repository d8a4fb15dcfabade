// Package segment defines the TCP segment value type the engine passes
// between its components and the datagram layer, and the wire codec for
// it. Per the engine's contract, segment parsing/serialization is a
// boundary concern: this package delegates the header layout to
// gVisor's TCP header implementation rather than hand-rolling one, and
// leaves pseudo-header checksum ownership (which needs the IP
// addresses) to the caller's datagram layer.
package segment

import (
	"fmt"
	"strings"

	"github.com/google/netstack/tcpip/header"
	"github.com/pkg/errors"

	"github.com/nkoba/gotcp-endpoint/seqnum"
)

// TCPSegment is the value type spec.md §3 describes: a header plus
// payload bytes. It carries no connection identity (ports are supplied
// by the caller's datagram layer at Encode time, and Decode drops them)
// since the engine is scoped to a single already-demultiplexed
// connection.
type TCPSegment struct {
	SeqNum  seqnum.Value
	AckNum  seqnum.Value
	Window  uint16
	SYN     bool
	ACK     bool
	FIN     bool
	RST     bool
	Payload []byte
}

// LengthInSequenceSpace is the number of sequence-space positions this
// segment occupies: payload length plus one for SYN and one for FIN.
func (s TCPSegment) LengthInSequenceSpace() int {
	n := len(s.Payload)
	if s.SYN {
		n++
	}
	if s.FIN {
		n++
	}
	return n
}

func (s TCPSegment) String() string {
	var flags []string
	if s.SYN {
		flags = append(flags, "SYN")
	}
	if s.ACK {
		flags = append(flags, "ACK")
	}
	if s.FIN {
		flags = append(flags, "FIN")
	}
	if s.RST {
		flags = append(flags, "RST")
	}
	return fmt.Sprintf("seq=%d ack=%d win=%d [%s] len=%d",
		s.SeqNum, s.AckNum, s.Window, strings.Join(flags, "|"), len(s.Payload))
}

func (s TCPSegment) flags() uint8 {
	var f uint8
	if s.FIN {
		f |= header.TCPFlagFin
	}
	if s.SYN {
		f |= header.TCPFlagSyn
	}
	if s.RST {
		f |= header.TCPFlagRst
	}
	if s.ACK {
		f |= header.TCPFlagAck
	}
	return f
}

// Encode serializes the segment into a TCP header (in gVisor's
// header.TCPMinimumSize layout, no options) followed by its payload.
// srcPort/dstPort are supplied by the caller because the engine never
// learns or owns port numbers. checksum is whatever the caller's
// pseudo-header-aware datagram layer computed; pass 0 to leave it
// unset (e.g. in tests that never traverse real sockets).
func Encode(s TCPSegment, srcPort, dstPort uint16, checksum uint16) []byte {
	buf := make([]byte, header.TCPMinimumSize+len(s.Payload))
	fields := header.TCPFields{
		SrcPort:       srcPort,
		DstPort:       dstPort,
		SeqNum:        uint32(s.SeqNum),
		AckNum:        uint32(s.AckNum),
		DataOffset:    header.TCPMinimumSize,
		Flags:         s.flags(),
		WindowSize:    s.Window,
		Checksum:      checksum,
		UrgentPointer: 0,
	}
	h := header.TCP(buf[:header.TCPMinimumSize])
	h.Encode(&fields)
	copy(buf[header.TCPMinimumSize:], s.Payload)
	return buf
}

// Decode parses wire bytes into a TCPSegment. It does not verify the
// checksum: checksum verification needs the pseudo-header, which is
// the datagram layer's responsibility (spec.md §1); a checksum-failed
// segment is expected to never reach Decode in the first place.
func Decode(data []byte) (TCPSegment, error) {
	if len(data) < header.TCPMinimumSize {
		return TCPSegment{}, errors.Errorf("segment: short header, got %d bytes, want at least %d", len(data), header.TCPMinimumSize)
	}
	h := header.TCP(data)
	offset := int(h.DataOffset())
	if offset < header.TCPMinimumSize || offset > len(data) {
		return TCPSegment{}, errors.Errorf("segment: invalid data offset %d for %d byte segment", offset, len(data))
	}
	flags := h.Flags()
	return TCPSegment{
		SeqNum:  seqnum.Value(h.SequenceNumber()),
		AckNum:  seqnum.Value(h.AckNumber()),
		Window:  h.WindowSize(),
		SYN:     flags&header.TCPFlagSyn != 0,
		ACK:     flags&header.TCPFlagAck != 0,
		FIN:     flags&header.TCPFlagFin != 0,
		RST:     flags&header.TCPFlagRst != 0,
		Payload: append([]byte(nil), data[offset:]...),
	}, nil
}
