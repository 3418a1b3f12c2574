package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/revoker"
)

var revokeCommand = &cli.Command{
	Name:  "revoke",
	Usage: "revoke a certificate, identified by its bundle's leaf serial",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "bundle", Required: true, Usage: "path to the bundle PEM file whose leaf serial should be revoked"},
		&cli.IntFlag{Name: "nodes", Value: 3, Usage: "nodes in the issuing level's committee"},
		&cli.IntFlag{Name: "threshold", Value: 2, Usage: "signing threshold"},
	},
	Action: revokeAction,
}

func revokeAction(c *cli.Context) error {
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

	nodes, masterPK, err := loadLevelNodes(folder, level, c.Int("nodes"))
	if err != nil {
		return fmt.Errorf("load issuing committee: %w", err)
	}

	rev := revoker.New(nil)
	t := c.Int("threshold")
	signers := nodes
	if len(signers) > t {
		signers = signers[:t]
	}
	result, err := rev.Revoke(leaf.Serial, signers, t, masterPK, nodes)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "revoked serial %s, contributing nodes %v\n", leaf.Serial, result.ContributingIndices)
	return nil
}

// issuingLevelFromCN mirrors config.LevelCN's Level<N>CA convention for
// locating a certificate's issuing committee from its bundle alone.
func issuingLevelFromCN(cn string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(cn, "Level%dCA", &n); err != nil {
		return 0, fmt.Errorf("cannot locate issuing committee from issuer_cn %q: %w", cn, err)
	}
	return n, nil
}
