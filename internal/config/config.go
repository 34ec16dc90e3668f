// Package config provides configuration loading for climate-net runs.
// Documents are YAML (JSON is accepted as a YAML subset), checked against
// an embedded JSON schema, decoded onto defaults and validated once.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talgya/climate-net/internal/climate"
	"github.com/talgya/climate-net/internal/heterogeneity"
	"github.com/talgya/climate-net/internal/network"
	"github.com/talgya/climate-net/internal/world"
)

// Config contains every setting of a run.
type Config struct {
	// Simulation contains run-level settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Network selects and parameterizes the topology strategy.
	Network network.Config `json:"network" yaml:"network"`

	// Climate holds chronic and acute stress rules.
	Climate climate.Config `json:"climate" yaml:"climate"`

	// Heterogeneity controls per-agent trait sampling.
	Heterogeneity heterogeneity.Config `json:"heterogeneity" yaml:"heterogeneity"`

	// Agents maps type names to templates, in document order.
	Agents AgentTypes `json:"agents" yaml:"agents"`

	// Regions is the location catalogue agents are assigned to.
	Regions []string `json:"regions" yaml:"regions"`

	// Logging contains settings for operational logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig holds run-level settings.
type SimulationConfig struct {
	Seed   int64 `json:"random_seed" yaml:"random_seed"`
	Rounds int   `json:"rounds" yaml:"rounds"`

	// ResultPath is the directory exports are written to.
	ResultPath string `json:"result_path" yaml:"result_path"`

	// ReplaceBankrupt keeps per-type population constant by replacing
	// insolvent agents.
	ReplaceBankrupt bool `json:"replace_bankrupt" yaml:"replace_bankrupt"`

	// InsolvencyFloor is the money level below which an agent goes bankrupt.
	InsolvencyFloor float64 `json:"insolvency_floor" yaml:"insolvency_floor"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	Level string `json:"level" yaml:"level"`

	// Format is "text", "json", or "auto" (text on a terminal, JSON otherwise).
	Format string `json:"format" yaml:"format"`
}

// Default returns a configuration with defaults and no agent types.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Seed:            42,
			Rounds:          10,
			ResultPath:      "results",
			ReplaceBankrupt: true,
		},
		Network:       network.DefaultConfig(),
		Climate:       climate.Config{StressEnabled: true},
		Heterogeneity: heterogeneity.DefaultConfig(),
		Regions:       append([]string(nil), world.DefaultRegions...),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// LoadFromFile reads, checks and validates a configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", filepath.Base(path), err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// Parse checks a document against the schema, decodes it onto the
// defaults, applies environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ValidationError{Field: "document", Err: err}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies CLIMATESIM_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("CLIMATESIM_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &ValidationError{Field: "CLIMATESIM_SEED", Err: err}
		}
		c.Simulation.Seed = seed
	}
	if v := os.Getenv("CLIMATESIM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// Validate checks the configuration. Every problem is reported as a
// *ValidationError; several are joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, &ValidationError{Field: field, Err: err})
		}
	}

	if c.Simulation.Rounds < 0 {
		add("simulation.rounds", fmt.Errorf("must be >= 0, got %d", c.Simulation.Rounds))
	}
	add("network", c.Network.Validate())
	add("climate", c.Climate.Validate())
	add("heterogeneity", c.Heterogeneity.Validate())

	regions := make(map[string]bool, len(c.Regions))
	if len(c.Regions) == 0 {
		add("regions", errors.New("at least one region is required"))
	}
	for _, r := range c.Regions {
		if r == "" || r == climate.All {
			add("regions", fmt.Errorf("invalid region name %q", r))
		}
		if regions[r] {
			add("regions", fmt.Errorf("duplicate region %q", r))
		}
		regions[r] = true
	}

	if len(c.Agents) == 0 {
		add("agents", errors.New("at least one agent type is required"))
	}
	seen := make(map[string]bool, len(c.Agents))
	for i := range c.Agents {
		t := &c.Agents[i]
		field := "agents." + t.Name
		if seen[t.Name] {
			add(field, errors.New("duplicate agent type"))
		}
		seen[t.Name] = true
		add(field, t.Validate())
		for _, r := range t.Regions {
			if r != climate.All && !regions[r] {
				add(field+".geographical_distribution", fmt.Errorf("unknown region %q", r))
			}
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "info", "debug", "trace":
	default:
		add("logging.level", fmt.Errorf("unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "", "text", "json", "auto":
	default:
		add("logging.format", fmt.Errorf("unknown format %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// Digest returns a stable hash of the configuration, used to derive run IDs.
func (c *Config) Digest() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
