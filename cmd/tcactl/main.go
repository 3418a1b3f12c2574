// Command tcactl is a single-binary demo harness for the threshold-CA
// scenarios of spec §8: it deals key material, runs an in-process
// committee per level, issues and revokes certificates, and validates
// chains, all inside one process rather than over a real network
// transport (spec §1 leaves wire transport to a collaborator).
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threshca/threshca/internal/log"
)

var version = "dev"

func main() {
	app := CLI()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// CLI builds the tcactl application.
func CLI() *cli.App {
	app := cli.NewApp()
	app.Name = "tcactl"
	app.Version = version
	app.Usage = "threshold certificate authority demo harness"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "folder",
			Value: "./threshca-data",
			Usage: "folder to keep dealt share records and trust anchors in",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug-level logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("verbose") {
			log.DefaultLevel = log.DebugLevel
		}
		return nil
	}
	app.Commands = []*cli.Command{
		setupCommand,
		issueCommand,
		revokeCommand,
		statusCommand,
		validateCommand,
	}
	return app
}
