// Package errs declares the error taxonomy of the threshold-CA protocol.
// Node-side crypto failures are folded into RPC responses (ok=false, msg)
// and never surface as Go errors; client-side flows wrap these sentinels
// with fmt.Errorf("...: %w", ...) and abort cleanly.
package errs

import "errors"

var (
	// ErrInsufficientPartials is returned by a client fan-out that could not
	// collect threshold-many partial signatures before running out of nodes.
	ErrInsufficientPartials = errors.New("insufficient partials: quorum not reached")

	// ErrAggregationFailed is returned when the locally-recomputed pairing
	// check on an aggregated signature does not hold.
	ErrAggregationFailed = errors.New("aggregation failed: pairing check mismatch")

	// ErrMalformedPoint is returned by a decoder given input of the wrong
	// fixed width, or bytes that do not describe a point on the curve.
	ErrMalformedPoint = errors.New("malformed point encoding")

	// ErrPointAtInfinity is returned when affine conversion is attempted on
	// a Jacobian point with z = 0.
	ErrPointAtInfinity = errors.New("point at infinity has no affine form")

	// ErrDegenerateInterpolation is returned by Lagrange interpolation given
	// duplicate indices (a vanishing denominator).
	ErrDegenerateInterpolation = errors.New("degenerate interpolation: duplicate share index")

	// ErrBadIssuerKey is returned when a parent certificate's subject field
	// does not carry a well-formed BLS-PUBKEY: prefix.
	ErrBadIssuerKey = errors.New("bad issuer key: parent certificate has no usable BLS public key")

	// ErrChainBroken is returned when a certificate bundle cannot be parsed
	// into a valid parent/child chain, including when issuer_cn does not
	// match the Level<N>CA pattern a chain validator needs to locate a
	// level's node set.
	ErrChainBroken = errors.New("chain broken: certificate bundle is not a valid parent/child chain")

	// ErrExpired is returned when now is outside [not_before, not_after].
	ErrExpired = errors.New("certificate is outside its validity window")

	// ErrRevokedByCommittee is returned when the t-of-n OCSP consensus
	// declares a serial revoked.
	ErrRevokedByCommittee = errors.New("revoked by committee")

	// ErrStatusUnknown is returned when zero nodes answered an OCSP query;
	// the validator treats this as a hard failure since it cannot prove
	// absence of revocation.
	ErrStatusUnknown = errors.New("revocation status unknown: no node responded")

	// ErrNodeUnavailable marks a single node as unreachable during fan-out;
	// tolerated silently until quorum cannot be reached.
	ErrNodeUnavailable = errors.New("node unavailable")

	// ErrConfigMissing is returned when a required configuration option or
	// on-disk record is absent.
	ErrConfigMissing = errors.New("required configuration is missing")
)
