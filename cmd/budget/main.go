package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"budgetapp/internal/commands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commands.Register(commander, commands.DefaultEnv())

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
