// Package chainvalidate implements the chain validator of spec §4.7:
// signature verification down a certificate bundle, validity-window checks,
// and per-level OCSP consensus queries.
package chainvalidate

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/errs"
	"github.com/threshca/threshca/internal/revoker"
	"github.com/threshca/threshca/internal/rpc"
)

// levelCNPattern extracts the level number from an issuer_cn of the form
// "Level<N>CA" (spec §4.7).
var levelCNPattern = regexp.MustCompile(`Level(\d+)CA`)

// NodeSetForLevel resolves the endpoint transport list for the issuing
// level named in a certificate's issuer_cn; the collaborator boundary spec
// §4.7 leaves to configuration.
type NodeSetForLevel func(level int) ([]rpc.NodeTransport, error)

// Validator runs the chain-validation procedure against a fixed node-set
// resolver and OCSP quorum threshold.
type Validator struct {
	nodesForLevel NodeSetForLevel
	threshold     int
}

// New returns a Validator. threshold is the t used for OCSP consensus
// (spec §4.6).
func New(nodesForLevel NodeSetForLevel, threshold int) *Validator {
	return &Validator{nodesForLevel: nodesForLevel, threshold: threshold}
}

// Validate runs spec §4.7 end to end: bundle must be ordered
// [leaf, inter_1, ..., inter_k, root]. trustAnchor, if non-nil, is verified
// against the root; otherwise the root is checked as self-signed against
// its own embedded key.
func (v *Validator) Validate(bundle certificate.Bundle, trustAnchor *curve.G1, now time.Time) error {
	if len(bundle) == 0 {
		return fmt.Errorf("%w: empty bundle", errs.ErrChainBroken)
	}
	if now.IsZero() {
		now = time.Now()
	}

	for i, child := range bundle {
		var parentPK curve.G1
		isRoot := i == len(bundle)-1

		if isRoot {
			if trustAnchor != nil {
				parentPK = *trustAnchor
			} else {
				pk, err := child.EmbeddedMasterPK()
				if err != nil {
					return err
				}
				parentPK = pk
			}
		} else {
			parent := bundle[i+1]
			pk, err := parent.EmbeddedMasterPK()
			if err != nil {
				return err
			}
			parentPK = pk
		}

		sig, err := curve.DecodeG2(child.Signature)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrChainBroken, err)
		}
		h := curve.HashToG2(child.TBS())
		ok, err := curve.VerifyPairing(parentPK, h, sig)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrChainBroken, err)
		}
		if !ok {
			return fmt.Errorf("%w: signature verification failed at position %d", errs.ErrChainBroken, i)
		}
	}

	for _, cert := range bundle {
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			return fmt.Errorf("%w: serial %s", errs.ErrExpired, cert.Serial)
		}
	}

	for i, cert := range bundle {
		isRoot := i == len(bundle)-1
		if isRoot {
			continue
		}
		level, err := issuingLevelOf(cert.IssuerCN)
		if err != nil {
			return err
		}
		nodes, err := v.nodesForLevel(level)
		if err != nil {
			return err
		}
		status := revoker.CheckRevocationStatus(cert.Serial, nodes, v.threshold)
		switch status {
		case revoker.StatusRevoked:
			return fmt.Errorf("%w: serial %s", errs.ErrRevokedByCommittee, cert.Serial)
		case revoker.StatusUnknown:
			return fmt.Errorf("%w: serial %s", errs.ErrStatusUnknown, cert.Serial)
		}
	}

	return nil
}

// issuingLevelOf extracts the level number from an issuer_cn matching
// Level<N>CA. A non-matching CN is treated as ErrChainBroken: the validator
// has no way to locate the issuing committee's node set and so cannot
// complete the OCSP step, which is itself a validation failure rather than
// something to silently skip.
func issuingLevelOf(issuerCN string) (int, error) {
	m := levelCNPattern.FindStringSubmatch(issuerCN)
	if m == nil {
		return 0, fmt.Errorf("%w: issuer_cn %q does not match Level<N>CA", errs.ErrChainBroken, issuerCN)
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: issuer_cn %q has unparseable level: %v", errs.ErrChainBroken, issuerCN, err)
	}
	return level, nil
}
