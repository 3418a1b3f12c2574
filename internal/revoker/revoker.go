// Package revoker implements the client revocation and status-query flow of
// spec §4.6: fan out for partials exactly as issuer does, but broadcast the
// aggregated proof to every known node, and separately support t-of-n OCSP
// consensus queries.
package revoker

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/errs"
	"github.com/threshca/threshca/internal/log"
	"github.com/threshca/threshca/internal/metrics"
	"github.com/threshca/threshca/internal/rpc"
	"github.com/threshca/threshca/internal/shamir"
)

const revokeMsgPrefix = "REVOKE:"

// Revoker runs revocation and status-query flows.
type Revoker struct {
	log log.Logger
}

// New returns a Revoker.
func New(logger log.Logger) *Revoker {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Revoker{log: logger.Named("revoker")}
}

// Result is the outcome of a successful Revoke call.
type Result struct {
	// ContributingIndices are the 1-based node indices whose partial
	// revocation signatures were combined into the broadcast proof, in
	// the original client/revoke.py's print-to-caller convention.
	ContributingIndices []int
}

// Revoke collects t partial revocation signatures from issuingNodes,
// aggregates them, verifies locally, and broadcasts the proof to every node
// in allNodes (which typically, but need not, include issuingNodes). A
// broadcast failure to any individual node is logged and otherwise ignored
// (spec §4.6: "non-fatal... may learn later via a repeated broadcast").
func (r *Revoker) Revoke(serial string, issuingNodes []rpc.NodeTransport, threshold int, masterPK curve.G1, allNodes []rpc.NodeTransport) (Result, error) {
	sigs, indices, err := r.collectRevokePartials(serial, issuingNodes, threshold)
	if err != nil {
		metrics.ClientRevocations.WithLabelValues("insufficient_partials").Inc()
		return Result{}, err
	}

	agg, err := shamir.CombineG2(indices, sigs)
	if err != nil {
		metrics.ClientRevocations.WithLabelValues("aggregation_error").Inc()
		return Result{}, fmt.Errorf("%w: %v", errs.ErrAggregationFailed, err)
	}

	h := curve.HashToG2([]byte(revokeMsgPrefix + serial))
	ok, err := curve.VerifyPairing(masterPK, h, agg)
	if err != nil || !ok {
		metrics.ClientRevocations.WithLabelValues("pairing_mismatch").Inc()
		return Result{}, errs.ErrAggregationFailed
	}

	aggBytes := agg.Encode()
	var broadcastErrs *multierror.Error
	for _, n := range allNodes {
		resp, err := n.ApplyRevocation(rpc.ApplyRevocationRequest{Serial: serial, ThresholdSig: aggBytes})
		if err != nil {
			broadcastErrs = multierror.Append(broadcastErrs, fmt.Errorf("node %d: %w", n.Index(), err))
			continue
		}
		if !resp.OK {
			broadcastErrs = multierror.Append(broadcastErrs, fmt.Errorf("node %d: %s", n.Index(), resp.Msg))
		}
	}
	if broadcastErrs != nil {
		r.log.Warnw("revocation broadcast had partial failures", "serial", serial, "err", broadcastErrs.Error())
	}
	metrics.ClientRevocations.WithLabelValues("ok").Inc()
	r.log.Infow("revoked certificate", "serial", serial, "contributing_indices", indices)
	return Result{ContributingIndices: indices}, nil
}

func (r *Revoker) collectRevokePartials(serial string, nodes []rpc.NodeTransport, t int) ([]curve.G2, []int, error) {
	var (
		sigs    []curve.G2
		indices []int
		errs2   *multierror.Error
	)
	for _, n := range nodes {
		if len(sigs) >= t {
			break
		}
		resp, err := n.SignRevokePartial(rpc.SignRevokePartialRequest{Serial: serial})
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

// Status is the t-of-n OCSP consensus verdict of spec §4.6.
type Status int

const (
	StatusGood Status = iota
	StatusRevoked
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusRevoked:
		return "REVOKED"
	case StatusUnknown:
		return "UNKNOWN"
	default:
		return "GOOD"
	}
}

// CheckRevocationStatus queries OCSP on every node in nodes and applies the
// t-of-n consensus rule: REVOKED if revoked_count >= t, UNKNOWN if nothing
// responded, GOOD otherwise.
func CheckRevocationStatus(serial string, nodes []rpc.NodeTransport, t int) Status {
	var responded, revoked int
	for _, n := range nodes {
		resp, err := n.OCSP(rpc.OCSPRequest{Serial: serial})
		if err != nil {
			continue
		}
		responded++
		if resp.Status == rpc.StatusRevoked {
			revoked++
		}
	}
	metrics.ClientRevocations.WithLabelValues("status_query").Inc()
	switch {
	case revoked >= t:
		return StatusRevoked
	case responded == 0:
		return StatusUnknown
	default:
		return StatusGood
	}
}
