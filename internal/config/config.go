// Package config holds the functional-options Config struct consumed by
// clients and nodes (spec §6's configuration options table), mirroring the
// teacher's core.Config/ConfigOption pattern. Delivery of these options
// (env vars, flags, files) is a collaborator boundary owned by cmd/tcactl;
// this package only defines the shape and sane defaults.
package config

import (
	"fmt"
	"time"

	"github.com/threshca/threshca/internal/errs"
	"github.com/threshca/threshca/internal/log"
)

// DefaultValidityPeriod is the 365-day certificate lifetime of spec §4.5
// step 2.
const DefaultValidityPeriod = 365 * 24 * time.Hour

// DefaultConfigFolder is the default on-disk location for share records,
// trust anchors, and issued bundles.
const DefaultConfigFolder = "./threshca-data"

// DefaultGRPCPort is the default control-plane port a node listens on, in
// deployments that wire internal/rpc.NodeTransport to a real network
// transport (which this module does not itself implement — spec §1).
const DefaultGRPCPort = "4444"

// Option applies one setting to a Config.
type Option func(*Config)

// Config is the resolved set of options of spec §6: NUM_LEVELS,
// NODES_PER_LEVEL, THRESHOLD, LEVEL<ℓ>_NODES, TRUST_ANCHOR, CN, GRPC_PORT,
// CONFIG_PATH.
type Config struct {
	numLevels     int
	nodesPerLevel int
	threshold     int
	levelNodes    map[int][]string
	trustAnchor   string
	cn            string
	grpcPort      string
	configPath    string
	logger        log.Logger
}

// New builds a Config from defaults plus the given options.
func New(opts ...Option) *Config {
	c := &Config{
		levelNodes: make(map[int][]string),
		configPath: DefaultConfigFolder,
		grpcPort:   DefaultGRPCPort,
		logger:     log.DefaultLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func WithNumLevels(n int) Option { return func(c *Config) { c.numLevels = n } }

func WithNodesPerLevel(n int) Option { return func(c *Config) { c.nodesPerLevel = n } }

func WithThreshold(t int) Option { return func(c *Config) { c.threshold = t } }

// WithLevelNodes sets the endpoint list for a single level (LEVEL<ℓ>_NODES).
func WithLevelNodes(level int, endpoints []string) Option {
	return func(c *Config) { c.levelNodes[level] = endpoints }
}

func WithTrustAnchor(path string) Option { return func(c *Config) { c.trustAnchor = path } }

func WithCN(cn string) Option { return func(c *Config) { c.cn = cn } }

func WithGRPCPort(port string) Option { return func(c *Config) { c.grpcPort = port } }

func WithConfigPath(path string) Option { return func(c *Config) { c.configPath = path } }

func WithLogger(l log.Logger) Option { return func(c *Config) { c.logger = l } }

func (c *Config) NumLevels() int     { return c.numLevels }
func (c *Config) NodesPerLevel() int { return c.nodesPerLevel }
func (c *Config) Threshold() int     { return c.threshold }
func (c *Config) TrustAnchor() string { return c.trustAnchor }
func (c *Config) CN() string          { return c.cn }
func (c *Config) GRPCPort() string    { return c.grpcPort }
func (c *Config) ConfigPath() string  { return c.configPath }
func (c *Config) Logger() log.Logger  { return c.logger }

// LevelNodes returns the endpoint list configured for level, or
// ErrConfigMissing if none was set.
func (c *Config) LevelNodes(level int) ([]string, error) {
	nodes, ok := c.levelNodes[level]
	if !ok || len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no endpoints configured for level %d", errs.ErrConfigMissing, level)
	}
	return nodes, nil
}

// IssuingLevel returns the level whose committee signs on behalf of level:
// level-1 for any non-root level, or level itself for the root (spec §4.5:
// "a root signs its own first certificate").
func IssuingLevel(level int) int {
	if level <= 1 {
		return 1
	}
	return level - 1
}

// LevelCN renders the canonical issuer CN for a level, "Level<K>CA".
func LevelCN(level int) string {
	return fmt.Sprintf("Level%dCA", level)
}
