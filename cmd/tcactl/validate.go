package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/chainvalidate"
	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/rpc"
)

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "validate a certificate bundle's chain, validity window, and revocation status",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "bundle", Required: true, Usage: "path to the bundle PEM file"},
		&cli.IntFlag{Name: "nodes", Value: 3, Usage: "nodes per level"},
		&cli.IntFlag{Name: "threshold", Value: 2, Usage: "OCSP consensus threshold"},
		&cli.BoolFlag{Name: "use-trust-anchor", Usage: "verify the root against <folder>/level1_master_pk.hex rather than its own embedded key"},
	},
	Action: validateAction,
}

func validateAction(c *cli.Context) error {
	folder := c.String("folder")
	raw, err := os.ReadFile(c.String("bundle"))
	if err != nil {
		return err
	}
	bundle, err := certificate.ParseBundle(string(raw))
	if err != nil {
		return err
	}

	n := c.Int("nodes")
	resolver := func(level int) ([]rpc.NodeTransport, error) {
		nodes, _, err := loadLevelNodes(folder, level, n)
		return nodes, err
	}
	v := chainvalidate.New(resolver, c.Int("threshold"))

	var anchor *curve.G1
	if c.Bool("use-trust-anchor") {
		a, err := loadTrustAnchor(folder, 1)
		if err != nil {
			return err
		}
		anchor = &a
	}

	if err := v.Validate(bundle, anchor, time.Now()); err != nil {
		fmt.Fprintf(c.App.Writer, "INVALID: %v\n", err)
		return err
	}
	fmt.Fprintln(c.App.Writer, "VALID")
	return nil
}
