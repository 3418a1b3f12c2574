package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/config"
	"github.com/threshca/threshca/internal/issuer"
)

var issueCommand = &cli.Command{
	Name:  "issue",
	Usage: "issue a certificate at the given level",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "level", Required: true, Usage: "level to issue at"},
		&cli.StringFlag{Name: "cn", Required: true, Usage: "subject common name"},
		&cli.BoolFlag{Name: "ca", Usage: "issue a CA certificate rather than an end-entity one"},
		&cli.IntFlag{Name: "nodes", Value: 3, Usage: "nodes in the issuing level's committee"},
		&cli.IntFlag{Name: "threshold", Value: 2, Usage: "signing threshold"},
		&cli.StringFlag{Name: "parent-bundle", Usage: "path to the parent bundle PEM file (omit for a root issuance)"},
		&cli.StringFlag{Name: "out", Usage: "path to write the new bundle to (defaults to <folder>/<cn>.bundle.pem)"},
	},
	Action: issueAction,
}

func issueAction(c *cli.Context) error {
	folder := c.String("folder")
	level := c.Int("level")
	issuingLevel := config.IssuingLevel(level)

	nodes, masterPK, err := loadLevelNodes(folder, issuingLevel, c.Int("nodes"))
	if err != nil {
		return fmt.Errorf("load issuing committee: %w", err)
	}

	subjectMasterPK := masterPK
	if c.Bool("ca") && level != issuingLevel {
		subjectMasterPK, err = loadTrustAnchor(folder, level)
		if err != nil {
			return fmt.Errorf("load level %d trust anchor: %w", level, err)
		}
	}

	var parentBundle certificate.Bundle
	if p := c.String("parent-bundle"); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		parentBundle, err = certificate.ParseBundle(string(raw))
		if err != nil {
			return err
		}
	}

	issuerCN := config.LevelCN(issuingLevel)
	if level == 1 {
		issuerCN = c.String("cn")
	}

	iss := issuer.New(nil)
	bundle, err := iss.Issue(issuer.Request{
		Level:           level,
		CN:              c.String("cn"),
		IsCA:            c.Bool("ca"),
		Threshold:       c.Int("threshold"),
		IssuingNodes:    nodes,
		MasterPK:        masterPK,
		SubjectMasterPK: subjectMasterPK,
		IssuerCN:        issuerCN,
		ParentBundle:    parentBundle,
	})
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		out = bundlePath(folder, c.String("cn"))
	}
	if err := os.WriteFile(out, []byte(bundle.Encode()), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "issued %s, serial %s, bundle written to %s\n", c.String("cn"), bundle[0].Serial, out)
	return nil
}
