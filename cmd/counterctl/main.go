// counterctl reads and drives a counter contract deployed on StarkNet.
package main

import (
	"os"

	"github.com/tos-network/starkcounter/cmd/utils"
	"github.com/tos-network/starkcounter/internal/flags"
	"github.com/urfave/cli/v2"
)

// Git SHA1 commit hash of the release (set via linker flags)
var gitCommit = ""
var gitDate = ""

var app = newApp()

func flagsWithoutLogging() []cli.Flag {
	return flags.Merge(
		[]cli.Flag{utils.ConfigFileFlag, utils.DataDirFlag},
		utils.NetworkFlags,
		utils.TransactionFlags,
		utils.GatewayFlags,
		utils.MetricsFlags,
	)
}

func newApp() *cli.App {
	app := flags.NewApp(gitCommit, gitDate, "the StarkNet counter command line interface")
	app.Flags = flags.Merge(
		[]cli.Flag{utils.ConfigFileFlag, utils.DataDirFlag, utils.JSONFlag},
		utils.NetworkFlags,
		utils.TransactionFlags,
		utils.LoggingFlags,
		utils.MetricsFlags,
	)
	app.Commands = []*cli.Command{
		statusCommand,
		increaseCommand,
		decreaseCommand,
		resetCommand,
		setCommand,
		eventsCommand,
		watchCommand,
		serveCommand,
		dumpConfigCommand,
		versionCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		return utils.SetupLogging(ctx)
	}
	return app
}

func main() {
	if err := app.Run(os.Args); err != nil {
		utils.Fatalf("%v", err)
	}
}
