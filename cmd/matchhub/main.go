package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "matchhub",
		Usage: "normalize osu! multiplayer match results and store them in Postgres",
		Commands: []*cli.Command{
			newProcessCommand(),
			newScoresCommand(),
			newMigrateCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
