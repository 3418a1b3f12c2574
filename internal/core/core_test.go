// Package core holds integration-style tests that wire node, issuer,
// revoker, and chainvalidate together in-process, the way a real
// deployment's levels would interact over the network.
package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/threshca/threshca/internal/chainvalidate"
	"github.com/threshca/threshca/internal/issuer"
	"github.com/threshca/threshca/internal/keymat"
	"github.com/threshca/threshca/internal/node"
	"github.com/threshca/threshca/internal/revoker"
	"github.com/threshca/threshca/internal/rpc"
)

// committee deals a fresh threshold committee for one level and spins up an
// in-process node.Service per share, each with its own in-memory
// RevocationStore; a revocation reaches the other nodes only through the
// revoker's ApplyRevocation broadcast.
func committee(t *testing.T, level, n, threshold int) (m *keymat.LevelKeyMaterial, nodes []rpc.NodeTransport) {
	t.Helper()
	m, err := keymat.Deal(level, n, threshold)
	require.NoError(t, err)
	for _, rec := range m.Records {
		share, err := rec.Scalar()
		require.NoError(t, err)
		nodes = append(nodes, node.New(rec.NodeID, share, rec.Level, rec.Threshold, m.MasterPK, node.NewMemRevocationStore(), nil))
	}
	return m, nodes
}

// TestThreeLevelIssueValidateRevokeValidate builds a root committee, an
// intermediate CA committee one level below it, issues a leaf signed by the
// intermediate committee, and runs a full issue -> validate -> revoke ->
// validate cycle across all three levels. This is the path that a reused
// Request.MasterPK field (instead of separate issuing-level and
// subject-level keys) would silently break: the intermediate CA cert's
// embedded key must be its own committee's master PK, not the root's.
func TestThreeLevelIssueValidateRevokeValidate(t *testing.T) {
	const threshold = 2

	root, rootNodes := committee(t, 1, 3, threshold)
	mid, midNodes := committee(t, 2, 3, threshold)

	iss := issuer.New(nil)

	rootBundle, err := iss.Issue(issuer.Request{
		Level:           1,
		CN:              "Level1CA",
		IsCA:            true,
		Threshold:       threshold,
		IssuingNodes:    rootNodes,
		MasterPK:        root.MasterPK,
		SubjectMasterPK: root.MasterPK,
		IssuerCN:        "Level1CA",
	})
	require.NoError(t, err)

	midBundle, err := iss.Issue(issuer.Request{
		Level:           2,
		CN:              "Level2CA",
		IsCA:            true,
		Threshold:       threshold,
		IssuingNodes:    rootNodes,
		MasterPK:        root.MasterPK,
		SubjectMasterPK: mid.MasterPK,
		IssuerCN:        "Level1CA",
		ParentBundle:    rootBundle,
	})
	require.NoError(t, err)

	leafBundle, err := iss.Issue(issuer.Request{
		Level:        3,
		CN:           "endpoint.example",
		IsCA:         false,
		Threshold:    threshold,
		IssuingNodes: midNodes,
		MasterPK:     mid.MasterPK,
		IssuerCN:     "Level2CA",
		ParentBundle: midBundle,
	})
	require.NoError(t, err)
	require.Len(t, leafBundle, 3)

	nodesForLevel := func(level int) ([]rpc.NodeTransport, error) {
		switch level {
		case 1:
			return rootNodes, nil
		case 2:
			return midNodes, nil
		default:
			return nil, nil
		}
	}

	v := chainvalidate.New(nodesForLevel, threshold)
	require.NoError(t, v.Validate(leafBundle, &root.MasterPK, time.Now()))

	rev := revoker.New(nil)
	result, err := rev.Revoke(leafBundle[0].Serial, midNodes[:threshold], threshold, mid.MasterPK, midNodes)
	require.NoError(t, err)
	require.Len(t, result.ContributingIndices, threshold)

	err = v.Validate(leafBundle, &root.MasterPK, time.Now())
	require.Error(t, err)
}
