package cmd

import (
	"context"
	"flag"
	"net"

	"github.com/google/subcommands"

	"github.com/nkoba/gotcp-endpoint/logger"
	"github.com/nkoba/gotcp-endpoint/tcpengine"
)

// ConnectCommand drives a client-side Connection over a UDP socket,
// standing in for the raw IP/Ethernet transport the engine itself does
// not own.
type ConnectCommand struct {
	Addr  string
	Debug bool
}

func (c *ConnectCommand) Name() string     { return "connect" }
func (c *ConnectCommand) Synopsis() string { return "open a connection and pipe stdio through it" }
func (c *ConnectCommand) Usage() string {
	return `gotcp connect -addr <host:port>:
	dial addr, relay stdin to the connection and the connection to stdout
`
}

func (c *ConnectCommand) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.Addr, "addr", "", "destination host:port")
	f.BoolVar(&c.Debug, "debug", false, "output debug messages")
}

func (c *ConnectCommand) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	log := logger.New(c.Debug, "connect")

	sock, err := net.Dial("udp", c.Addr)
	if err != nil {
		log.Errorf("connect: dial %s: %v", c.Addr, err)
		return subcommands.ExitFailure
	}
	defer sock.Close()

	conn, err := tcpengine.NewConnection(tcpengine.NewConfig(), logger.New(c.Debug, "tcp-connection"))
	if err != nil {
		log.Errorf("connect: %v", err)
		return subcommands.ExitFailure
	}
	conn.Connect()

	if err := pump(conn, sock, log); err != nil {
		log.Errorf("connect: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
