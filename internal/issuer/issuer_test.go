package issuer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/threshca/threshca/internal/certificate"
	"github.com/threshca/threshca/internal/keymat"
	"github.com/threshca/threshca/internal/node"
	"github.com/threshca/threshca/internal/rpc"
)

func newRootCommittee(t *testing.T, n, threshold int) (m *keymat.LevelKeyMaterial, nodes []rpc.NodeTransport) {
	t.Helper()
	m, err := keymat.Deal(1, n, threshold)
	require.NoError(t, err)
	for _, rec := range m.Records {
		share, err := rec.Scalar()
		require.NoError(t, err)
		nodes = append(nodes, node.New(rec.NodeID, share, rec.Level, rec.Threshold, m.MasterPK, node.NewMemRevocationStore(), nil))
	}
	return m, nodes
}

func TestIssueRootCertificate(t *testing.T) {
	m, nodes := newRootCommittee(t, 3, 2)

	iss := New(nil)
	bundle, err := iss.Issue(Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    nodes,
		MasterPK:        m.MasterPK,
		SubjectMasterPK: m.MasterPK,
		IssuerCN:        "Level1CA",
		Now:             time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, bundle, 1)
	require.True(t, bundle[0].IsCA)
	require.NotEmpty(t, bundle[0].Signature)

	embedded, err := bundle[0].EmbeddedMasterPK()
	require.NoError(t, err)
	require.True(t, embedded.Equal(m.MasterPK))
}

func TestIssueFailsBelowThreshold(t *testing.T) {
	m, nodes := newRootCommittee(t, 3, 2)
	// Make every node unreachable by handing the issuer an empty list,
	// simulating a fan-out that cannot reach quorum.
	_ = nodes

	iss := New(nil)
	_, err := iss.Issue(Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    nil,
		MasterPK:        m.MasterPK,
		SubjectMasterPK: m.MasterPK,
		IssuerCN:        "Level1CA",
	})
	require.Error(t, err)
}

func TestIssueChildCertificateChainsToParent(t *testing.T) {
	root, rootNodes := newRootCommittee(t, 3, 2)

	iss := New(nil)
	rootBundle, err := iss.Issue(Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    rootNodes,
		MasterPK:        root.MasterPK,
		SubjectMasterPK: root.MasterPK,
		IssuerCN:        "Level1CA",
	})
	require.NoError(t, err)

	leafBundle, err := iss.Issue(Request{
		Level:        2,
		CN:           "leaf.example",
		IsCA:         false,
		Threshold:    2,
		IssuingNodes: rootNodes,
		MasterPK:     root.MasterPK,
		IssuerCN:     "Level1CA",
		ParentBundle: rootBundle,
	})
	require.NoError(t, err)
	require.Len(t, leafBundle, 2)
	require.False(t, leafBundle[0].IsCA)
	require.Equal(t, rootBundle[0].Serial, leafBundle[1].Serial)

	encoded := leafBundle.Encode()
	decoded, err := certificate.ParseBundle(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
}

// TestIssueIntermediateCAEmbedsOwnMasterPKNotIssuerPK exercises a CA
// issuance above level 1, where the issuing committee's master PK
// (masterPK_issuerLevel) and the subject level's own master PK
// (masterPK_level) are distinct values. Regression test: an earlier
// version reused MasterPK for both, embedding the wrong key into the
// intermediate CA's subject field.
func TestIssueIntermediateCAEmbedsOwnMasterPKNotIssuerPK(t *testing.T) {
	root, rootNodes := newRootCommittee(t, 3, 2)
	level2, err := keymat.Deal(2, 3, 2)
	require.NoError(t, err)
	require.False(t, level2.MasterPK.Equal(root.MasterPK), "test fixture must use distinct master keys per level")

	iss := New(nil)
	rootBundle, err := iss.Issue(Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    rootNodes,
		MasterPK:        root.MasterPK,
		SubjectMasterPK: root.MasterPK,
		IssuerCN:        "Level1CA",
	})
	require.NoError(t, err)

	intermediateBundle, err := iss.Issue(Request{
		Level:           2,
		CN:              "Level2CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    rootNodes,
		MasterPK:        root.MasterPK,
		SubjectMasterPK: level2.MasterPK,
		IssuerCN:        "Level1CA",
		ParentBundle:    rootBundle,
	})
	require.NoError(t, err)
	require.Len(t, intermediateBundle, 2)

	embedded, err := intermediateBundle[0].EmbeddedMasterPK()
	require.NoError(t, err)
	require.True(t, embedded.Equal(level2.MasterPK))
	require.False(t, embedded.Equal(root.MasterPK))
}
