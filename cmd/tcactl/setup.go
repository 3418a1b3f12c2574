package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threshca/threshca/internal/keymat"
)

var setupCommand = &cli.Command{
	Name:  "setup",
	Usage: "deal key material for every CA level and write share records + trust anchors to --folder",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "levels", Value: 2, Usage: "number of CA levels (NUM_LEVELS)"},
		&cli.IntFlag{Name: "nodes", Value: 3, Usage: "nodes per level (NODES_PER_LEVEL)"},
		&cli.IntFlag{Name: "threshold", Value: 2, Usage: "signing threshold (THRESHOLD)"},
	},
	Action: setupAction,
}

func setupAction(c *cli.Context) error {
	folder := c.String("folder")
	levels := c.Int("levels")
	n := c.Int("nodes")
	t := c.Int("threshold")

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}

	all, err := keymat.DealAllLevels(levels, n, t)
	if err != nil {
		return err
	}
	for _, m := range all {
		if err := writeLevel(folder, m); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "level %d: dealt %d-of-%d shares, trust anchor written\n", m.Level, t, n)
	}
	return nil
}
