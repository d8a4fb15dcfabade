package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/nkoba/gotcp-endpoint/cmd"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	subcommands.Register(&cmd.ConnectCommand{}, "")
	subcommands.Register(&cmd.ListenCommand{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
