package analysis

import (
	"os"
	"strconv"
	"strings"
)

// CentralityConfig controls the eigenvector power iteration.
type CentralityConfig struct {
	// MaxIterations bounds the power iteration before the metric is
	// reported unavailable.
	MaxIterations int `yaml:"max_iterations" toml:"max_iterations"`
	// Tolerance is the per-node convergence threshold; iteration stops when
	// the summed absolute change falls below n*Tolerance.
	Tolerance float64 `yaml:"tolerance" toml:"tolerance"`
	// Weighted uses edge size instead of 1 as the adjacency weight.
	Weighted bool `yaml:"weighted" toml:"weighted"`
}

// CommunityConfig controls community detection.
type CommunityConfig struct {
	// Seed drives the Louvain node ordering and, when Colors is nil, the
	// community palette.
	Seed uint64 `yaml:"seed" toml:"seed"`
	// Weighted uses edge size instead of 1 as the modularity weight.
	Weighted bool `yaml:"weighted" toml:"weighted"`
	// Colors supplies one colour per community. Nil means a palette seeded
	// from Seed.
	Colors ColorSource `yaml:"-" toml:"-"`
}

// Config bundles both analysis configs.
type Config struct {
	Centrality CentralityConfig `yaml:"centrality" toml:"centrality"`
	Community  CommunityConfig  `yaml:"community" toml:"community"`
}

// DefaultCentralityConfig returns the stock power-iteration parameters.
func DefaultCentralityConfig() CentralityConfig {
	return CentralityConfig{MaxIterations: 100, Tolerance: 1e-6}
}

// DefaultCommunityConfig returns unweighted detection with a fixed seed.
func DefaultCommunityConfig() CommunityConfig {
	return CommunityConfig{Seed: 1}
}

// DefaultConfig returns the stock analysis configuration.
func DefaultConfig() Config {
	return Config{
		Centrality: DefaultCentralityConfig(),
		Community:  DefaultCommunityConfig(),
	}
}

func (c CentralityConfig) withDefaults() CentralityConfig {
	d := DefaultCentralityConfig()
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = d.Tolerance
	}
	return c
}

// Environment variable names for analysis tunables.
const (
	EnvEigenMaxIterations = "COGRAPH_EIGEN_MAX_ITER"
	EnvCommunitySeed      = "COGRAPH_COMMUNITY_SEED"
	EnvWeighted           = "COGRAPH_WEIGHTED"
)

// ApplyEnvOverrides applies environment-variable tunables to the analysis config.
//
// Supported:
//   - COGRAPH_EIGEN_MAX_ITER=N: override the eigenvector iteration bound (must be >0).
//   - COGRAPH_COMMUNITY_SEED=N: override the community seed.
//   - COGRAPH_WEIGHTED=1: weight both centrality and communities by edge size.
func ApplyEnvOverrides(cfg Config) Config {
	if n, ok := envPositiveInt(EnvEigenMaxIterations); ok {
		cfg.Centrality.MaxIterations = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvCommunitySeed)); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Community.Seed = seed
		}
	}
	if envBool(EnvWeighted) {
		cfg.Centrality.Weighted = true
		cfg.Community.Weighted = true
	}
	return cfg
}

func envPositiveInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func envBool(name string) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return false
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
