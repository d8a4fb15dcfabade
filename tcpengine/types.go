package tcpengine

import (
	"github.com/nkoba/gotcp-endpoint/seqnum"
	"github.com/nkoba/gotcp-endpoint/segment"
)

// WSN and ASN are the wrapped/absolute sequence number types, re-exported
// from seqnum so callers of this package never need to import it
// directly.
type (
	WSN = seqnum.Value
	ASN = seqnum.Absolute
)

// Segment is the wire-level value type the engine exchanges with its
// caller's datagram layer.
type Segment = segment.TCPSegment
