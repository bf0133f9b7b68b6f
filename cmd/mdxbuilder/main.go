package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/mdxbuilder/cmd/mdxbuilder/commands"
	"git.home.luguber.info/inful/mdxbuilder/internal/build"
	foundationerrors "git.home.luguber.info/inful/mdxbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mdxbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	global := &commands.Global{}
	parser := kong.Parse(&cli,
		kong.Name("mdxbuilder"),
		kong.Description("Build static sites from MDX content."),
		kong.UsageOnError(),
		kong.Bind(global),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(global, &cli)
	if build.IsRestart(err) && !build.Restarted() {
		code, rerr := build.Restart(context.Background())
		if rerr == nil {
			os.Exit(code)
		}
		err = rerr
	}
	if err != nil {
		foundationerrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
