package tcpengine

import "testing"

func newTestConnection(t *testing.T, isn uint32) *Connection {
	t.Helper()
	v := WSN(isn)
	c, err := NewConnection(Config{
		Capacity:        4096,
		RtTimeoutMillis: 20,
		MaxRetxAttempts: 4,
		MaxPayloadSize:  1000,
		FixedISN:        &v,
	}, nil)
	if err != nil {
		t.Fatalf("NewConnection: %v", err)
	}
	return c
}

// deliver feeds every segment in segs to dst; dst's replies stay queued
// for its next SegmentsOut call.
func deliver(dst *Connection, segs []Segment) {
	for _, seg := range segs {
		dst.SegmentReceived(seg)
	}
}

func TestConnectionHandshakeAndDataTransfer(t *testing.T) {
	client := newTestConnection(t, 0)
	server := newTestConnection(t, 100)

	client.Connect()
	syn := client.SegmentsOut()
	if len(syn) != 1 || !syn[0].SYN || syn[0].ACK {
		t.Fatalf("expected bare SYN, actual %v", syn)
	}

	deliver(server, syn)
	synAck := server.SegmentsOut()
	if len(synAck) != 1 || !synAck[0].SYN || !synAck[0].ACK {
		t.Fatalf("expected SYN|ACK, actual %v", synAck)
	}

	deliver(client, synAck)
	ack := client.SegmentsOut()
	if len(ack) != 1 || ack[0].SYN || !ack[0].ACK {
		t.Fatalf("expected bare ACK, actual %v", ack)
	}

	deliver(server, ack)
	if len(server.SegmentsOut()) != 0 {
		t.Fatal("server must not ack a pure ack")
	}

	client.Write([]byte("hello"))
	data := client.SegmentsOut()
	if len(data) != 1 || string(data[0].Payload) != "hello" {
		t.Fatalf("actual %v", data)
	}

	deliver(server, data)
	out := server.InboundStream().Read(5)
	if string(out) != "hello" {
		t.Fatalf("actual %q", out)
	}
	dataAck := server.SegmentsOut()
	if len(dataAck) != 1 || !dataAck[0].ACK {
		t.Fatalf("actual %v", dataAck)
	}

	deliver(client, dataAck)
	if client.BytesInFlight() != 0 {
		t.Fatalf("actual %d", client.BytesInFlight())
	}
}

// run pumps segments between client and server, advancing both clocks by
// dtMs each round, until both connections report inactive or the round
// budget is exhausted.
func run(client, server *Connection, dtMs uint64, maxRounds int) {
	for i := 0; i < maxRounds; i++ {
		if !client.Active() && !server.Active() {
			return
		}
		fromClient := client.SegmentsOut()
		fromServer := server.SegmentsOut()
		deliver(server, fromClient)
		deliver(client, fromServer)
		client.Tick(dtMs)
		server.Tick(dtMs)
	}
}

func TestConnectionCleanShutdownBothSides(t *testing.T) {
	client := newTestConnection(t, 0)
	server := newTestConnection(t, 100)

	client.Connect()
	run(client, server, 5, 5)

	client.Write([]byte("bye"))
	client.EndInputStream()
	run(client, server, 5, 10)

	if got := string(server.InboundStream().Read(3)); got != "bye" {
		t.Fatalf("server inbound: actual %q", got)
	}
	if server.InboundStream().Eof() != true {
		t.Fatal("server should have seen eof")
	}
	server.EndInputStream()

	run(client, server, 5, 200)

	if client.Active() {
		t.Fatal("client should be inactive after linger elapses")
	}
	if server.Active() {
		t.Fatal("server should be inactive once its fin is acked")
	}
}

func TestConnectionRSTAbortsBothSides(t *testing.T) {
	client := newTestConnection(t, 0)
	server := newTestConnection(t, 100)

	client.Connect()
	run(client, server, 5, 5)

	client.Close()
	rst := client.SegmentsOut()
	if len(rst) != 1 || !rst[0].RST {
		t.Fatalf("expected a single RST, actual %v", rst)
	}

	server.SegmentReceived(rst[0])
	if server.Active() {
		t.Fatal("server should go inactive on RST")
	}
	if !server.InboundStream().Error() {
		t.Fatal("server inbound stream should be errored")
	}
}

func TestConnectionRetransmissionLimitAbortsWithRST(t *testing.T) {
	client := newTestConnection(t, 0)
	server := newTestConnection(t, 100)

	client.Connect()
	syn := client.SegmentsOut()
	deliver(server, syn)
	server.SegmentsOut()
	// Server never acks again; client's SYN keeps timing out until the
	// retransmission limit is exceeded. Each retransmission doubles the
	// RTO, so the budget below comfortably covers the five expiries
	// (MaxRetxAttempts=4, aborting on the fifth) needed at a 20ms
	// initial RTO.
	var last []Segment
	for i := 0; i < 60 && client.Active(); i++ {
		client.Tick(25)
		last = client.SegmentsOut()
	}
	if client.Active() {
		t.Fatal("expected client to abort after exceeding the retransmission limit")
	}
	if len(last) != 1 || !last[0].RST {
		t.Fatalf("expected the aborting tick to emit a single RST, actual %v", last)
	}
}
