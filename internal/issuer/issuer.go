// Package issuer implements the client issuance flow of spec §4.5: build a
// TBS certificate, fan out to the issuing level's nodes for partial
// signatures, aggregate, verify locally, and emit a bundle.
package issuer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/config"
	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/errs"
	"github.com/threshca/threshca/internal/log"
	"github.com/threshca/threshca/internal/metrics"
	"github.com/threshca/threshca/internal/rpc"
	"github.com/threshca/threshca/internal/rsakey"
	"github.com/threshca/threshca/internal/shamir"
)

// PerNodeDeadline is the per-node deadline value for sequential SignPartial
// calls. Nothing in this module applies it: rpc.NodeTransport methods take
// no deadline or context, so collectPartials waits on each call for as long
// as the transport takes to return.
const PerNodeDeadline = 5 * time.Second

// Request describes one certificate to issue.
type Request struct {
	Level     int
	CN        string
	IsCA      bool
	Threshold int

	// IssuingNodes is the ordered endpoint transport list for the issuing
	// level (level-1, or level itself for the root), contacted sequentially
	// per spec §4.5 step 4 and §5's scheduling model.
	IssuingNodes []rpc.NodeTransport

	// MasterPK is the issuing level's published master public key
	// (masterPK_issuerLevel): the committee that actually signs this cert,
	// used for the local pairing check of step 7. This is NOT the key
	// embedded in the new certificate when it is itself a CA.
	MasterPK curve.G1

	// SubjectMasterPK is the target level's own master public key
	// (masterPK_level, spec §4.5 step 1): what gets embedded in a CA
	// certificate's subject field. Equal to MasterPK only for a root
	// issuance, where level == issuing level. Ignored when IsCA is false.
	SubjectMasterPK curve.G1

	// IssuerCN is the issuing level's CN (config.LevelCN(issuingLevel), or
	// the caller-supplied root CN).
	IssuerCN string

	// ParentBundle is the parent chain loaded from disk, empty for a root
	// issuance (step 3).
	ParentBundle certificate.Bundle

	Now time.Time
}

// Issuer runs issuance flows with a fixed logger; the threshold is taken
// from each Request.
type Issuer struct {
	log log.Logger
}

// New returns an Issuer.
func New(logger log.Logger) *Issuer {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Issuer{log: logger.Named("issuer")}
}

// Issue runs spec §4.5 end to end and returns the freshly minted
// certificate prepended to the parent chain.
func (iss *Issuer) Issue(req Request) (certificate.Bundle, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	subjectBlob, err := subjectPubBlob(req.IsCA, req.SubjectMasterPK)
	if err != nil {
		metrics.ClientIssuances.WithLabelValues("bad_subject_key").Inc()
		return nil, err
	}

	cert := &certificate.Certificate{
		Serial:         uuid.NewString(),
		SubjectCN:      req.CN,
		IssuerCN:       req.IssuerCN,
		NotBefore:      now,
		NotAfter:       now.Add(config.DefaultValidityPeriod),
		SubjectPubBlob: subjectBlob,
		IsCA:           req.IsCA,
	}
	tbs := cert.TBS()

	partials, indices, err := iss.collectPartials(tbs, req.IssuingNodes, req.Threshold)
	if err != nil {
		metrics.ClientIssuances.WithLabelValues("insufficient_partials").Inc()
		return nil, err
	}

	agg, err := shamir.CombineG2(indices, partials)
	if err != nil {
		metrics.ClientIssuances.WithLabelValues("aggregation_error").Inc()
		return nil, fmt.Errorf("%w: %v", errs.ErrAggregationFailed, err)
	}

	h := curve.HashToG2(tbs)
	ok, err := curve.VerifyPairing(req.MasterPK, h, agg)
	if err != nil || !ok {
		metrics.ClientIssuances.WithLabelValues("pairing_mismatch").Inc()
		return nil, errs.ErrAggregationFailed
	}
	cert.Signature = agg.Encode()

	bundle := append(certificate.Bundle{cert}, req.ParentBundle...)
	metrics.ClientIssuances.WithLabelValues("ok").Inc()
	iss.log.Infow("issued certificate", "serial", cert.Serial, "cn", cert.SubjectCN, "level", req.Level)
	return bundle, nil
}

// collectPartials contacts nodes in list order, stopping once t
// (req.Threshold) successes have been gathered (spec §4.5 step 4).
func (iss *Issuer) collectPartials(tbs []byte, nodes []rpc.NodeTransport, t int) ([]curve.G2, []int, error) {
	var (
		sigs    []curve.G2
		indices []int
		errs2   *multierror.Error
		reqID   = uuid.NewString()
	)
	for _, n := range nodes {
		if len(sigs) >= t {
			break
		}
		resp, err := n.SignPartial(rpc.SignPartialRequest{TBSCert: tbs, ReqID: reqID})
		if err != nil {
			errs2 = multierror.Append(errs2, fmt.Errorf("node %d: %w", n.Index(), err))
			continue
		}
		if !resp.OK {
			errs2 = multierror.Append(errs2, fmt.Errorf("node %d: %s: %w", n.Index(), resp.Msg, errs.ErrNodeUnavailable))
			continue
		}
		p, err := curve.DecodeG2(resp.PartialSig)
		if err != nil {
			errs2 = multierror.Append(errs2, fmt.Errorf("node %d: %w", n.Index(), err))
			continue
		}
		sigs = append(sigs, p)
		indices = append(indices, resp.NodeIndex)
	}
	if len(sigs) < t {
		if errs2 != nil {
			return nil, nil, fmt.Errorf("%w: collected %d/%d partials (%v)", errs.ErrInsufficientPartials, len(sigs), t, errs2)
		}
		return nil, nil, fmt.Errorf("%w: collected %d/%d partials", errs.ErrInsufficientPartials, len(sigs), t)
	}
	return sigs, indices, nil
}

// subjectPubBlob implements spec §4.5 step 1.
func subjectPubBlob(isCA bool, masterPK curve.G1) (string, error) {
	if isCA {
		b, err := masterPK.Encode()
		if err != nil {
			return "", err
		}
		return certificate.BLSPubKeyPrefix + string(b), nil
	}
	kp, err := rsakey.Generate()
	if err != nil {
		return "", err
	}
	return kp.PublicKeyPEM()
}
