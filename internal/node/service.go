package node

import (
	"fmt"
	"strconv"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/log"
	"github.com/threshca/threshca/internal/metrics"
	"github.com/threshca/threshca/internal/rpc"
)

// revokeMsgPrefix is prepended to a serial to build the message a node
// signs for revocation, per spec §4.4.
const revokeMsgPrefix = "REVOKE:"

// Service is one CA node: it holds a fixed 1-based index and scalar share
// for its level, and is otherwise purely reactive — it never initiates
// RPCs, never rate-limits, and performs no TBS policy validation (spec
// §4.4: "the node has no policy and issues whatever the client asks").
type Service struct {
	index     int
	share     curve.Scalar
	level     int
	threshold int
	masterPK  curve.G1

	store RevocationStore
	log   log.Logger
}

// New constructs a node Service. share and masterPK are fixed at
// construction (spec §3's lifecycle: "shares are fixed at node startup").
func New(index int, share curve.Scalar, level, threshold int, masterPK curve.G1, store RevocationStore, logger log.Logger) *Service {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	return &Service{
		index:     index,
		share:     share,
		level:     level,
		threshold: threshold,
		masterPK:  masterPK,
		store:     store,
		log:       logger.Named("node").With("index", index, "level", level),
	}
}

var _ rpc.NodeTransport = (*Service)(nil)

// Index implements rpc.NodeTransport.
func (s *Service) Index() int { return s.index }

// SignPartial computes sig = H2(TBS) * share and returns it serialized as a
// G2 point. It performs no validation of the TBS bytes: per spec §4.4 the
// node has no certificate policy. Any crypto failure (which cannot occur on
// well-formed input, since H2 and scalar multiplication are total
// functions) is reported as ok=false rather than a panic.
func (s *Service) SignPartial(req rpc.SignPartialRequest) (rpc.SignResponse, error) {
	h := curve.HashToG2(req.TBSCert)
	sig := h.Mul(s.share)
	metrics.PartialsSigned.WithLabelValues(strconv.Itoa(s.level)).Inc()
	s.log.Debugw("signed partial", "req_id", req.ReqID)
	return rpc.SignResponse{
		OK:         true,
		Msg:        "ok",
		PartialSig: sig.Encode(),
		NodeIndex:  s.index,
	}, nil
}

// SignRevokePartial computes sig = H2("REVOKE:"+serial) * share and, as a
// side effect, optimistically marks serial revoked in this node's local
// set before the threshold proof is ever assembled (spec §4.4, §9). A
// single node signing a revocation partial can therefore make that node
// report REVOKED even if the aggregate is never produced; this is benign
// under the t-of-n OCSP rule (§4.6) and is the design the reference
// implementation uses.
func (s *Service) SignRevokePartial(req rpc.SignRevokePartialRequest) (rpc.SignResponse, error) {
	msg := []byte(revokeMsgPrefix + req.Serial)
	h := curve.HashToG2(msg)
	sig := h.Mul(s.share)

	if err := s.store.Add(req.Serial); err != nil {
		return rpc.SignResponse{OK: false, Msg: err.Error(), NodeIndex: s.index}, nil
	}

	metrics.RevokePartialsSigned.WithLabelValues(strconv.Itoa(s.level)).Inc()
	s.log.Debugw("signed revoke partial, marked locally revoked", "serial", req.Serial)
	return rpc.SignResponse{
		OK:         true,
		Msg:        "ok",
		PartialSig: sig.Encode(),
		NodeIndex:  s.index,
	}, nil
}

// ApplyRevocation verifies the threshold signature over "REVOKE:"+serial
// against this level's master public key; on success it inserts serial
// into the local revocation set, on failure it leaves state untouched.
// This is the canonical path by which a node with no partial-signing
// involvement learns of a revocation (spec §4.4).
func (s *Service) ApplyRevocation(req rpc.ApplyRevocationRequest) (rpc.ApplyRevocationResponse, error) {
	sig, err := curve.DecodeG2(req.ThresholdSig)
	if err != nil {
		return rpc.ApplyRevocationResponse{OK: false, Msg: fmt.Sprintf("malformed threshold signature: %v", err)}, nil
	}
	msg := []byte(revokeMsgPrefix + req.Serial)
	h := curve.HashToG2(msg)

	ok, err := curve.VerifyPairing(s.masterPK, h, sig)
	if err != nil {
		return rpc.ApplyRevocationResponse{OK: false, Msg: fmt.Sprintf("pairing error: %v", err)}, nil
	}
	if !ok {
		metrics.RevocationsRejected.WithLabelValues(strconv.Itoa(s.level)).Inc()
		return rpc.ApplyRevocationResponse{OK: false, Msg: "invalid threshold revocation proof"}, nil
	}

	if err := s.store.Add(req.Serial); err != nil {
		return rpc.ApplyRevocationResponse{OK: false, Msg: err.Error()}, nil
	}
	metrics.RevocationsApplied.WithLabelValues(strconv.Itoa(s.level)).Inc()
	s.log.Infow("applied verified threshold revocation", "serial", req.Serial)
	return rpc.ApplyRevocationResponse{OK: true, Msg: "revocation applied"}, nil
}

// OCSP reports this node's own local revocation-set membership; it never
// consults other nodes (spec §4.4, §4.6).
func (s *Service) OCSP(req rpc.OCSPRequest) (rpc.OCSPResponse, error) {
	revoked, err := s.store.Contains(req.Serial)
	if err != nil {
		return rpc.OCSPResponse{}, err
	}
	status := rpc.StatusGood
	if revoked {
		status = rpc.StatusRevoked
	}
	metrics.OCSPQueries.WithLabelValues(strconv.Itoa(s.level), status.String()).Inc()
	return rpc.OCSPResponse{Status: status}, nil
}
