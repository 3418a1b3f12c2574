package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/revoker"
)

var statusCommand = &cli.Command{
	Name:  "status",
	Usage: "query t-of-n OCSP consensus status for a bundle's leaf serial",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "bundle", Required: true, Usage: "path to the bundle PEM file"},
		&cli.IntFlag{Name: "nodes", Value: 3, Usage: "nodes in the issuing level's committee"},
		&cli.IntFlag{Name: "threshold", Value: 2, Usage: "OCSP consensus threshold"},
	},
	Action: statusAction,
}

func statusAction(c *cli.Context) error {
	folder := c.String("folder")
	raw, err := os.ReadFile(c.String("bundle"))
	if err != nil {
		return err
	}
	bundle, err := certificate.ParseBundle(string(raw))
	if err != nil {
		return err
	}
	leaf := bundle[0]

	level, err := issuingLevelFromCN(leaf.IssuerCN)
	if err != nil {
		return err
	}
	nodes, _, err := loadLevelNodes(folder, level, c.Int("nodes"))
	if err != nil {
		return fmt.Errorf("load issuing committee: %w", err)
	}

	status := revoker.CheckRevocationStatus(leaf.Serial, nodes, c.Int("threshold"))
	fmt.Fprintf(c.App.Writer, "serial %s: %s\n", leaf.Serial, status)
	return nil
}
