package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/threshca/threshca/internal/curve"
	"github.com/threshca/threshca/internal/keymat"
	"github.com/threshca/threshca/internal/node"
	"github.com/threshca/threshca/internal/rpc"
)

func levelDir(folder string, level int) string {
	return filepath.Join(folder, fmt.Sprintf("level%d", level))
}

func shareRecordPath(folder string, level, nodeID int) string {
	return filepath.Join(levelDir(folder, level), fmt.Sprintf("node%d.toml", nodeID))
}

func trustAnchorPath(folder string, level int) string {
	return filepath.Join(folder, fmt.Sprintf("level%d_master_pk.hex", level))
}

func bundlePath(folder, cn string) string {
	return filepath.Join(folder, cn+".bundle.pem")
}

// writeLevel persists one level's dealt key material to folder: one TOML
// share record per node, plus the level's trust-anchor hex file (spec §6).
func writeLevel(folder string, m *keymat.LevelKeyMaterial) error {
	dir := levelDir(folder, m.Level)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, rec := range m.Records {
		raw, err := keymat.MarshalShareRecord(rec)
		if err != nil {
			return err
		}
		if err := os.WriteFile(shareRecordPath(folder, m.Level, rec.NodeID), raw, 0o600); err != nil {
			return err
		}
	}
	pkHex, err := m.MasterPKHex()
	if err != nil {
		return err
	}
	return os.WriteFile(trustAnchorPath(folder, m.Level), []byte(pkHex), 0o644)
}

// loadLevelNodes reconstructs every node.Service for one level from its
// on-disk share records and a per-node persistent revocation store, so that
// a revocation applied by one tcactl invocation is visible to the next.
func loadLevelNodes(folder string, level, n int) ([]rpc.NodeTransport, curve.G1, error) {
	var masterPK curve.G1
	nodes := make([]rpc.NodeTransport, 0, n)
	for i := 1; i <= n; i++ {
		raw, err := os.ReadFile(shareRecordPath(folder, level, i))
		if err != nil {
			return nil, curve.G1{}, fmt.Errorf("load level %d node %d share: %w", level, i, err)
		}
		rec, err := keymat.UnmarshalShareRecord(raw)
		if err != nil {
			return nil, curve.G1{}, err
		}
		share, err := rec.Scalar()
		if err != nil {
			return nil, curve.G1{}, err
		}
		pk, err := rec.MasterPK()
		if err != nil {
			return nil, curve.G1{}, err
		}
		masterPK = pk

		nodeDir := filepath.Join(levelDir(folder, level), "node"+strconv.Itoa(i))
		if err := os.MkdirAll(nodeDir, 0o755); err != nil {
			return nil, curve.G1{}, err
		}
		store, err := node.OpenBoltRevocationStore(nodeDir)
		if err != nil {
			return nil, curve.G1{}, err
		}
		nodes = append(nodes, node.New(rec.NodeID, share, rec.Level, rec.Threshold, pk, store, nil))
	}
	return nodes, masterPK, nil
}

func loadTrustAnchor(folder string, level int) (curve.G1, error) {
	raw, err := os.ReadFile(trustAnchorPath(folder, level))
	if err != nil {
		return curve.G1{}, err
	}
	return keymat.ParseTrustAnchorHex(string(raw))
}
