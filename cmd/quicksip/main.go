package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/quicksip/cmd/quicksip/commands"
	ferrors "git.home.luguber.info/inful/quicksip/internal/foundation/errors"
	"git.home.luguber.info/inful/quicksip/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("quicksip"),
		kong.Description("Front-end asset pipeline: clean, compile styles, copy resources and bundle scripts."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)
	if err := ctx.Run(&commands.Global{Out: os.Stdout}, cli); err != nil {
		ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
