package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/threshca/threshca/internal/errs"
)

func TestDefaults(t *testing.T) {
	c := New()
	require.Equal(t, DefaultConfigFolder, c.ConfigPath())
	require.Equal(t, DefaultGRPCPort, c.GRPCPort())
}

func TestWithLevelNodes(t *testing.T) {
	c := New(
		WithNumLevels(2),
		WithThreshold(2),
		WithNodesPerLevel(3),
		WithLevelNodes(1, []string{"node1:4444", "node2:4444", "node3:4444"}),
	)
	require.Equal(t, 2, c.NumLevels())

	nodes, err := c.LevelNodes(1)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	_, err = c.LevelNodes(2)
	require.ErrorIs(t, err, errs.ErrConfigMissing)
}

func TestIssuingLevel(t *testing.T) {
	require.Equal(t, 1, IssuingLevel(1))
	require.Equal(t, 1, IssuingLevel(2))
	require.Equal(t, 2, IssuingLevel(3))
}

func TestLevelCN(t *testing.T) {
	require.Equal(t, "Level3CA", LevelCN(3))
}
