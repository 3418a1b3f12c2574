package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/keymat"
	"github.com/threshca/threshca/internal/rpc"
	"github.com/threshca/threshca/internal/shamir"
)

func newTestCommittee(t *testing.T, n, threshold int) (curve.G1, []*Service) {
	t.Helper()
	m, err := keymat.Deal(1, n, threshold)
	require.NoError(t, err)

	services := make([]*Service, 0, n)
	for _, rec := range m.Records {
		share, err := rec.Scalar()
		require.NoError(t, err)
		services = append(services, New(rec.NodeID, share, rec.Level, rec.Threshold, m.MasterPK, NewMemRevocationStore(), nil))
	}
	return m.MasterPK, services
}

func TestSignPartialCombinesToValidThresholdSignature(t *testing.T) {
	masterPK, services := newTestCommittee(t, 3, 2)

	tbs := []byte("fake-tbs-bytes")
	indices := []int{1, 2}
	partials := make([]curve.G2, 0, 2)
	for _, idx := range indices {
		resp, err := services[idx-1].SignPartial(rpc.SignPartialRequest{TBSCert: tbs, ReqID: "r1"})
		require.NoError(t, err)
		require.True(t, resp.OK)
		require.Equal(t, idx, resp.NodeIndex)

		p, err := curve.DecodeG2(resp.PartialSig)
		require.NoError(t, err)
		partials = append(partials, p)
	}

	agg, err := shamir.CombineG2(indices, partials)
	require.NoError(t, err)

	h := curve.HashToG2(tbs)
	ok, err := curve.VerifyPairing(masterPK, h, agg)
	require.NoError(t, err)
	require.True(t, ok)
}

// TestSignPartialBelowThresholdFailsPairingCheck is the threshold security
// counter-test: combining only t-1 partials interpolates the wrong
// polynomial, so the resulting "aggregate" must not satisfy the pairing
// check against the real masterPK.
func TestSignPartialBelowThresholdFailsPairingCheck(t *testing.T) {
	masterPK, services := newTestCommittee(t, 5, 3)

	tbs := []byte("fake-tbs-bytes")
	indices := []int{1, 2}
	partials := make([]curve.G2, 0, len(indices))
	for _, idx := range indices {
		resp, err := services[idx-1].SignPartial(rpc.SignPartialRequest{TBSCert: tbs, ReqID: "r1"})
		require.NoError(t, err)
		require.True(t, resp.OK)

		p, err := curve.DecodeG2(resp.PartialSig)
		require.NoError(t, err)
		partials = append(partials, p)
	}

	agg, err := shamir.CombineG2(indices, partials)
	require.NoError(t, err)

	h := curve.HashToG2(tbs)
	ok, err := curve.VerifyPairing(masterPK, h, agg)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestApplyRevocationRejectsForgedProof(t *testing.T) {
	_, services := newTestCommittee(t, 3, 2)

	forged := curve.HashToG2([]byte("not-a-valid-sig")).Encode()
	resp, err := services[0].ApplyRevocation(rpc.ApplyRevocationRequest{Serial: "serial-1", ThresholdSig: forged})
	require.NoError(t, err)
	require.False(t, resp.OK)

	ocsp, err := services[0].OCSP(rpc.OCSPRequest{Serial: "serial-1"})
	require.NoError(t, err)
	require.Equal(t, rpc.StatusGood, ocsp.Status)
}

func TestApplyRevocationAcceptsValidThresholdProof(t *testing.T) {
	masterPK, services := newTestCommittee(t, 3, 2)

	serial := "serial-42"
	indices := []int{2, 3}
	partials := make([]curve.G2, 0, 2)
	for _, idx := range indices {
		resp, err := services[idx-1].SignRevokePartial(rpc.SignRevokePartialRequest{Serial: serial})
		require.NoError(t, err)
		require.True(t, resp.OK)
		p, err := curve.DecodeG2(resp.PartialSig)
		require.NoError(t, err)
		partials = append(partials, p)
	}

	agg, err := shamir.CombineG2(indices, partials)
	require.NoError(t, err)

	h := curve.HashToG2([]byte(revokeMsgPrefix + serial))
	ok, err := curve.VerifyPairing(masterPK, h, agg)
	require.NoError(t, err)
	require.True(t, ok)

	// A node that never signed a partial still learns the revocation via
	// ApplyRevocation with the aggregated proof.
	untouched := services[0]
	status, err := untouched.OCSP(rpc.OCSPRequest{Serial: serial})
	require.NoError(t, err)
	require.Equal(t, rpc.StatusGood, status.Status)

	applyResp, err := untouched.ApplyRevocation(rpc.ApplyRevocationRequest{Serial: serial, ThresholdSig: agg.Encode()})
	require.NoError(t, err)
	require.True(t, applyResp.OK)

	status, err = untouched.OCSP(rpc.OCSPRequest{Serial: serial})
	require.NoError(t, err)
	require.Equal(t, rpc.StatusRevoked, status.Status)
}

func TestSignRevokePartialOptimisticallyMarksLocal(t *testing.T) {
	_, services := newTestCommittee(t, 3, 2)
	serial := "serial-7"

	node := services[0]
	status, err := node.OCSP(rpc.OCSPRequest{Serial: serial})
	require.NoError(t, err)
	require.Equal(t, rpc.StatusGood, status.Status)

	_, err = node.SignRevokePartial(rpc.SignRevokePartialRequest{Serial: serial})
	require.NoError(t, err)

	status, err = node.OCSP(rpc.OCSPRequest{Serial: serial})
	require.NoError(t, err)
	require.Equal(t, rpc.StatusRevoked, status.Status)
}
