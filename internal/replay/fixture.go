package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/recon-engine/internal/config"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Config is
// overlaid on the defaults, so a fixture only lists what it changes.
type Fixture struct {
	Description     string                  `json:"description"`
	Seed            string                  `json:"seed"`
	Config          config.EngineConfig     `json:"config"`
	Actions         []Action                `json:"actions"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`
}

// FixtureExpectedResult captures the expected outcome per turn.
type FixtureExpectedResult struct {
	Turn    int    `json:"turn"`
	Outcome string `json:"outcome"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return f, nil
}

// ParseFixture decodes a fixture. The seed field, when set, replaces
// config.seed.
func ParseFixture(data []byte) (*Fixture, error) {
	f := Fixture{Config: config.Default()}
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Seed != "" {
		f.Config.Seed = f.Seed
	}
	f.Seed = f.Config.Seed
	if err := f.Config.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// #endregion fixture-loader
