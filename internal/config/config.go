package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/danielpatrickdp/recon-engine/internal/eval"
	"github.com/danielpatrickdp/recon-engine/internal/field"
	"github.com/danielpatrickdp/recon-engine/internal/gate"
	"github.com/danielpatrickdp/recon-engine/internal/mathx"
	"github.com/danielpatrickdp/recon-engine/internal/policy"
	"github.com/danielpatrickdp/recon-engine/internal/strike"
	"github.com/danielpatrickdp/recon-engine/internal/update"
	"github.com/danielpatrickdp/recon-engine/internal/voi"
	"gopkg.in/yaml.v3"
)

// #region types
// EngineConfig is the full configuration record. Together with the seed and
// an ordered action list it determines every engine output.
type EngineConfig struct {
	Seed          string              `json:"seed" yaml:"seed"`
	Grid          GridConfig          `json:"grid" yaml:"grid"`
	Field         field.Config        `json:"field" yaml:"field"`
	Update        update.UpdateConfig `json:"update" yaml:"update"`
	Eval          eval.EvalConfig     `json:"eval" yaml:"eval"`
	Strike        strike.Config       `json:"strike" yaml:"strike"`
	Gate          gate.GateConfig     `json:"gate" yaml:"gate"`
	VOI           voi.Config          `json:"voi" yaml:"voi"`
	Risk          RiskConfig          `json:"risk" yaml:"risk"`
	Recon         ReconConfig         `json:"recon" yaml:"recon"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
	Server        ServerConfig        `json:"server" yaml:"server"`
	Store         StoreConfig         `json:"store" yaml:"store"`
}

// GridConfig fixes the grid extent for an episode.
type GridConfig struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// RiskConfig sizes the Monte Carlo draws.
type RiskConfig struct {
	Lambda        float64 `json:"lambda" yaml:"lambda"`
	Samples       int     `json:"samples" yaml:"samples"`               // worlds for risk queries and heatmaps
	PolicySamples int     `json:"policy_samples" yaml:"policy_samples"` // smaller draw used by the risk-averse policy
	Workers       int     `json:"workers" yaml:"workers"`
}

// ReconConfig bounds reconnaissance.
type ReconConfig struct {
	Budget          float64 `json:"budget" yaml:"budget"`
	RecentWindow    int     `json:"recent_window" yaml:"recent_window"`
	MaxRecentRecons int     `json:"max_recent_recons" yaml:"max_recent_recons"`
}

// ObservabilityConfig controls logs and metrics.
type ObservabilityConfig struct {
	LogLevel    string `json:"log_level" yaml:"log_level"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
}

// ServerConfig is the gRPC listener.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// #endregion types

// #region defaults
// Default returns the baseline configuration.
func Default() EngineConfig {
	return EngineConfig{
		Seed:   "recon-default",
		Grid:   GridConfig{Width: 12, Height: 12},
		Field:  field.DefaultConfig(),
		Update: update.DefaultUpdateConfig(),
		Eval:   eval.DefaultEvalConfig(),
		Strike: strike.DefaultConfig(),
		Gate:   gate.DefaultGateConfig(),
		VOI:    voi.DefaultConfig(),
		Risk: RiskConfig{
			Lambda:        0.5,
			Samples:       1000,
			PolicySamples: 200,
			Workers:       4,
		},
		Recon: ReconConfig{
			Budget:          100,
			RecentWindow:    3,
			MaxRecentRecons: 2,
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			MetricsAddr: ":9464",
		},
		Server: ServerConfig{Addr: ":7443"},
		Store:  StoreConfig{Path: "recon.db"},
	}
}

// #endregion defaults

// #region load
// Load applies, in order: defaults, the YAML or JSON file at path (skipped
// when path is empty or missing), RECON_* environment overrides, Validate.
func Load(path string) (EngineConfig, error) {
	config := Default()

	if path != "" {
		if err := loadConfigFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	loadConfigFromEnv(&config)

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadConfigFile(path string, config *EngineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if jsonErr := json.Unmarshal(data, config); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadConfigFromEnv(config *EngineConfig) {
	if v := os.Getenv("RECON_SEED"); v != "" {
		config.Seed = v
	}
	envInt("RECON_GRID_WIDTH", &config.Grid.Width)
	envInt("RECON_GRID_HEIGHT", &config.Grid.Height)

	envFloat("RECON_REWARD", &config.Strike.Reward)
	envFloat("RECON_PENALTY", &config.Strike.Penalty)
	envFloat("RECON_STRIKE_COST", &config.Strike.Cost)
	envInt("RECON_STRIKE_RADIUS", &config.Strike.Radius)
	envFloat("RECON_COLLATERAL_THRESHOLD", &config.Strike.CollateralThreshold)

	envFloat("RECON_LAMBDA", &config.Risk.Lambda)
	envInt("RECON_SAMPLES", &config.Risk.Samples)
	envInt("RECON_POLICY_SAMPLES", &config.Risk.PolicySamples)
	envInt("RECON_WORKERS", &config.Risk.Workers)

	envInt("RECON_VOI_SAMPLES", &config.VOI.Samples)
	if v := os.Getenv("RECON_VOI_OUTCOME_MODEL"); v != "" {
		config.VOI.OutcomeModel = v
	}

	envFloat("RECON_BUDGET", &config.Recon.Budget)
	envInt("RECON_RECENT_WINDOW", &config.Recon.RecentWindow)

	if v := os.Getenv("RECON_LOG_LEVEL"); v != "" {
		config.Observability.LogLevel = v
	}
	if v := os.Getenv("RECON_METRICS_ADDR"); v != "" {
		config.Observability.MetricsAddr = v
	}
	if v := os.Getenv("RECON_LISTEN_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv("RECON_DB_PATH"); v != "" {
		config.Store.Path = v
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func envFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// #endregion load

// #region validate
// Validate checks structural constraints. It does not touch the filesystem.
func (c EngineConfig) Validate() error {
	if c.Seed == "" {
		return fmt.Errorf("seed must not be empty: %w", mathx.ErrInvalidParameter)
	}
	if c.Grid.Width < 1 || c.Grid.Height < 1 {
		return fmt.Errorf("grid must be at least 1x1, got %dx%d: %w", c.Grid.Width, c.Grid.Height, mathx.ErrInvalidParameter)
	}
	if c.Strike.Radius < 0 {
		return fmt.Errorf("strike radius must be >= 0: %w", mathx.ErrInvalidParameter)
	}
	if c.Strike.CollateralThreshold < 0 || c.Strike.CollateralThreshold > 1 {
		return fmt.Errorf("collateral_threshold must be between 0 and 1: %w", mathx.ErrInvalidParameter)
	}
	if c.Field.PriorAlpha <= 0 || c.Field.PriorBeta <= 0 {
		return fmt.Errorf("prior_alpha and prior_beta must be > 0: %w", mathx.ErrInvalidParameter)
	}
	if c.Update.KernelRadius < 0 || c.Update.DistanceDecay <= 0 {
		return fmt.Errorf("kernel_radius must be >= 0 and distance_decay > 0: %w", mathx.ErrInvalidParameter)
	}
	if c.Eval.Bins < 1 {
		return fmt.Errorf("eval bins must be >= 1: %w", mathx.ErrInvalidParameter)
	}
	if c.Risk.Lambda < 0 {
		return fmt.Errorf("lambda must be >= 0: %w", mathx.ErrInvalidParameter)
	}
	if c.Risk.Samples < 1 || c.Risk.PolicySamples < 1 {
		return fmt.Errorf("samples and policy_samples must be >= 1: %w", mathx.ErrInvalidParameter)
	}
	if c.VOI.Samples < 1 {
		return fmt.Errorf("voi samples must be >= 1: %w", mathx.ErrInvalidParameter)
	}
	if c.VOI.OutcomeModel != voi.OutcomeBelief && c.VOI.OutcomeModel != voi.OutcomeTruth {
		return fmt.Errorf("voi outcome_model must be %q or %q: %w", voi.OutcomeBelief, voi.OutcomeTruth, mathx.ErrInvalidParameter)
	}
	if c.Recon.RecentWindow < 0 || c.Recon.MaxRecentRecons < 0 {
		return fmt.Errorf("recent_window and max_recent_recons must be >= 0: %w", mathx.ErrInvalidParameter)
	}
	return nil
}

// #endregion validate

// #region derived
// Policy assembles the advisor configuration. The strike section's collateral
// threshold is authoritative and overrides the gate section's.
func (c EngineConfig) Policy() policy.Config {
	g := c.Gate
	g.CollateralThreshold = c.Strike.CollateralThreshold
	return policy.Config{
		Strike:          c.Strike,
		Gate:            g,
		VOI:             c.VOI,
		Lambda:          c.Risk.Lambda,
		PolicySamples:   c.Risk.PolicySamples,
		MaxRecentRecons: c.Recon.MaxRecentRecons,
		Workers:         c.Risk.Workers,
	}
}

// #endregion derived
