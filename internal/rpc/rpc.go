// Package rpc defines the CA node RPC surface (spec §6) as Go interfaces.
// Wire framing is an explicit collaborator boundary (spec §1's "transport
// wire framing... interfaces only") — this package defines the four
// operations' request/response shapes and a NodeTransport a client fans out
// over; it does not define any bytes-on-the-wire encoding. NodeTransport is
// implemented in-process by internal/node for tests and single-binary
// demos; a real deployment plugs in its own network transport behind the
// same interface.
package rpc

// SignPartialRequest carries the bytes a node is asked to sign a partial
// over, plus a client-chosen request id for logging/correlation.
type SignPartialRequest struct {
	TBSCert []byte
	ReqID   string
}

// SignRevokePartialRequest names the serial a node is asked to produce a
// revocation partial for.
type SignRevokePartialRequest struct {
	Serial string
}

// SignResponse is the common shape of SignPartial and SignRevokePartial
// responses (spec §6).
type SignResponse struct {
	OK         bool
	Msg        string
	PartialSig []byte
	NodeIndex  int
}

// ApplyRevocationRequest carries a threshold-aggregated revocation proof
// for a serial.
type ApplyRevocationRequest struct {
	Serial       string
	ThresholdSig []byte
}

// ApplyRevocationResponse reports whether the proof verified.
type ApplyRevocationResponse struct {
	OK  bool
	Msg string
}

// Status is an OCSP-style revocation verdict.
type Status int

const (
	StatusGood Status = iota
	StatusRevoked
)

func (s Status) String() string {
	if s == StatusRevoked {
		return "REVOKED"
	}
	return "GOOD"
}

// OCSPRequest names the serial being queried.
type OCSPRequest struct {
	Serial string
}

// OCSPResponse is a single node's point-in-time revocation verdict.
type OCSPResponse struct {
	Status       Status
	ThresholdSig []byte
}

// NodeTransport is the client-facing view of a single CA node: the four
// operations of spec §6, transport-agnostic. node.Service is the in-process
// implementation; a gRPC, HTTP, or any other wire transport would implement
// the same interface.
type NodeTransport interface {
	SignPartial(req SignPartialRequest) (SignResponse, error)
	SignRevokePartial(req SignRevokePartialRequest) (SignResponse, error)
	ApplyRevocation(req ApplyRevocationRequest) (ApplyRevocationResponse, error)
	OCSP(req OCSPRequest) (OCSPResponse, error)

	// Index identifies which node in its level this transport reaches;
	// clients use it purely for logging since SignResponse.NodeIndex is
	// authoritative.
	Index() int
}
