package cmd

import (
	"context"
	"flag"
	"net"
	"time"

	"github.com/google/subcommands"

	"github.com/nkoba/gotcp-endpoint/logger"
	"github.com/nkoba/gotcp-endpoint/tcpengine"
)

// ListenCommand drives a server-side Connection over a UDP socket: it
// waits for the first datagram (expected to carry a SYN), pins that
// sender as its peer, and then behaves like ConnectCommand's pump.
type ListenCommand struct {
	Port  int
	Debug bool
}

func (c *ListenCommand) Name() string     { return "listen" }
func (c *ListenCommand) Synopsis() string { return "accept one connection and pipe stdio through it" }
func (c *ListenCommand) Usage() string {
	return `gotcp listen -port <port>:
	wait for a peer on port, relay stdin to the connection and the connection to stdout
`
}

func (c *ListenCommand) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.Port, "port", 0, "local port to listen on")
	f.BoolVar(&c.Debug, "debug", false, "output debug messages")
}

func (c *ListenCommand) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logger.New(c.Debug, "listen")

	laddr := &net.UDPAddr{Port: c.Port}
	sock, err := net.ListenUDP("udp", laddr)
	if err != nil {
		log.Errorf("listen: %v", err)
		return subcommands.ExitFailure
	}
	defer sock.Close()

	buf := make([]byte, 65536)
	n, peer, err := sock.ReadFromUDP(buf)
	if err != nil {
		log.Errorf("listen: %v", err)
		return subcommands.ExitFailure
	}
	first := append([]byte(nil), buf[:n]...)

	pinned := &pinnedUDPConn{sock: sock, peer: peer, prefill: first}

	conn, err := tcpengine.NewConnection(tcpengine.NewConfig(), logger.New(c.Debug, "tcp-connection"))
	if err != nil {
		log.Errorf("listen: %v", err)
		return subcommands.ExitFailure
	}

	if err := pump(conn, pinned, log); err != nil {
		log.Errorf("listen: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// pinnedUDPConn adapts a connectionless *net.UDPConn to the net.Conn
// surface pump needs, fixing the remote address to the first peer seen
// and replaying the datagram that was consumed to discover it.
type pinnedUDPConn struct {
	sock    *net.UDPConn
	peer    *net.UDPAddr
	prefill []byte
}

func (p *pinnedUDPConn) Read(b []byte) (int, error) {
	if len(p.prefill) > 0 {
		n := copy(b, p.prefill)
		p.prefill = p.prefill[n:]
		return n, nil
	}
	for {
		n, from, err := p.sock.ReadFromUDP(b)
		if err != nil {
			return n, err
		}
		if from.String() == p.peer.String() {
			return n, nil
		}
	}
}

func (p *pinnedUDPConn) Write(b []byte) (int, error) {
	return p.sock.WriteToUDP(b, p.peer)
}

func (p *pinnedUDPConn) Close() error                      { return nil }
func (p *pinnedUDPConn) LocalAddr() net.Addr               { return p.sock.LocalAddr() }
func (p *pinnedUDPConn) RemoteAddr() net.Addr              { return p.peer }
func (p *pinnedUDPConn) SetDeadline(t time.Time) error     { return p.sock.SetDeadline(t) }
func (p *pinnedUDPConn) SetReadDeadline(t time.Time) error { return p.sock.SetReadDeadline(t) }
func (p *pinnedUDPConn) SetWriteDeadline(t time.Time) error { return p.sock.SetWriteDeadline(t) }
