package chainvalidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/threshca/threshca/internal/issuer"
	"github.com/threshca/threshca/internal/keymat"
	"github.com/threshca/threshca/internal/node"
	"github.com/threshca/threshca/internal/revoker"
	"github.com/threshca/threshca/internal/rpc"
)

// testFixture wires a single root committee in-process. Leaves are issued
// directly by that committee, and nodesForLevel returns the same committee
// for every level.
type testFixture struct {
	rootMaterial *keymat.LevelKeyMaterial
	rootNodes    []rpc.NodeTransport
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	m, err := keymat.Deal(1, 3, 2)
	require.NoError(t, err)
	var nodes []rpc.NodeTransport
	for _, rec := range m.Records {
		share, err := rec.Scalar()
		require.NoError(t, err)
		nodes = append(nodes, node.New(rec.NodeID, share, rec.Level, rec.Threshold, m.MasterPK, node.NewMemRevocationStore(), nil))
	}
	return &testFixture{rootMaterial: m, rootNodes: nodes}
}

func (f *testFixture) nodesForLevel(level int) ([]rpc.NodeTransport, error) {
	return f.rootNodes, nil
}

func TestValidateFreshChainIsGood(t *testing.T) {
	f := newFixture(t)
	iss := issuer.New(nil)

	rootBundle, err := iss.Issue(issuer.Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    f.rootNodes,
		MasterPK:        f.rootMaterial.MasterPK,
		SubjectMasterPK: f.rootMaterial.MasterPK,
		IssuerCN:        "Level1CA",
	})
	require.NoError(t, err)

	leafBundle, err := iss.Issue(issuer.Request{
		Level:        2,
		CN:           "leaf.example",
		IsCA:         false,
		Threshold:    2,
		IssuingNodes: f.rootNodes,
		MasterPK:     f.rootMaterial.MasterPK,
		IssuerCN:     "Level1CA",
		ParentBundle: rootBundle,
	})
	require.NoError(t, err)

	v := New(f.nodesForLevel, 2)
	err = v.Validate(leafBundle, &f.rootMaterial.MasterPK, time.Now())
	require.NoError(t, err)
}

func TestValidateRejectsExpiredCertificate(t *testing.T) {
	f := newFixture(t)
	iss := issuer.New(nil)

	past := time.Now().Add(-400 * 24 * time.Hour)
	rootBundle, err := iss.Issue(issuer.Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    f.rootNodes,
		MasterPK:        f.rootMaterial.MasterPK,
		SubjectMasterPK: f.rootMaterial.MasterPK,
		IssuerCN:        "Level1CA",
		Now:             past,
	})
	require.NoError(t, err)

	v := New(f.nodesForLevel, 2)
	err = v.Validate(rootBundle, &f.rootMaterial.MasterPK, time.Now())
	require.Error(t, err)
}

func TestValidateCatchesRevokedLeaf(t *testing.T) {
	f := newFixture(t)
	iss := issuer.New(nil)

	rootBundle, err := iss.Issue(issuer.Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       2,
		IssuingNodes:    f.rootNodes,
		MasterPK:        f.rootMaterial.MasterPK,
		SubjectMasterPK: f.rootMaterial.MasterPK,
		IssuerCN:        "Level1CA",
	})
	require.NoError(t, err)

	leafBundle, err := iss.Issue(issuer.Request{
		Level:        2,
		CN:           "leaf.example",
		IsCA:         false,
		Threshold:    2,
		IssuingNodes: f.rootNodes,
		MasterPK:     f.rootMaterial.MasterPK,
		IssuerCN:     "Level1CA",
		ParentBundle: rootBundle,
	})
	require.NoError(t, err)

	rev := revoker.New(nil)
	_, err = rev.Revoke(leafBundle[0].Serial, f.rootNodes[:2], 2, f.rootMaterial.MasterPK, f.rootNodes)
	require.NoError(t, err)

	v := New(f.nodesForLevel, 2)
	err = v.Validate(leafBundle, &f.rootMaterial.MasterPK, time.Now())
	require.Error(t, err)
}
