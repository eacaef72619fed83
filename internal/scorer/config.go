// Package scorer converts Hebrew sales-call transcripts into deterministic
// category scores, detected objections, a confidence value, and generated
// analysis notes. Scoring is pure rule evaluation over a lexicon; identical
// inputs always produce identical output.
package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Config holds every tunable of the scoring heuristic. Weights are relative
// (normalized by their sum), so {1,2,2,1} and {10,20,20,10} are equivalent.
type Config struct {
	// Overall-score weights per category.
	UrgencyWeight    float64 `yaml:"urgency_weight" mapstructure:"urgency_weight"`
	BudgetWeight     float64 `yaml:"budget_weight" mapstructure:"budget_weight"`
	InterestWeight   float64 `yaml:"interest_weight" mapstructure:"interest_weight"`
	EngagementWeight float64 `yaml:"engagement_weight" mapstructure:"engagement_weight"`

	// Per-category salience points.
	NoSignalFloor int `yaml:"no_signal_floor" mapstructure:"no_signal_floor"` // score with zero matches
	MatchBase     int `yaml:"match_base" mapstructure:"match_base"`           // points per matched phrase
	PerExtraWord  int `yaml:"per_extra_word" mapstructure:"per_extra_word"`   // extra points per word beyond the first

	// Confidence inputs.
	MinReliableWords int     `yaml:"min_reliable_words" mapstructure:"min_reliable_words"`
	TargetDensity    float64 `yaml:"target_density" mapstructure:"target_density"` // matches per word considered full signal

	// Notes thresholds on the overall score.
	HighPotential int `yaml:"high_potential" mapstructure:"high_potential"`
	LowPotential  int `yaml:"low_potential" mapstructure:"low_potential"`
}

// DefaultConfig returns the production defaults. They are tuned against the
// reference conversations in the engine tests; change them together with
// those fixtures.
func DefaultConfig() Config {
	return Config{
		UrgencyWeight:    1,
		BudgetWeight:     2,
		InterestWeight:   2,
		EngagementWeight: 1,

		NoSignalFloor: 40,
		MatchBase:     20,
		PerExtraWord:  10,

		MinReliableWords: 15,
		TargetDensity:    0.25,

		HighPotential: 75,
		LowPotential:  45,
	}
}

// WeightSum returns the sum of the four category weights.
func (c Config) WeightSum() float64 {
	return c.UrgencyWeight + c.BudgetWeight + c.InterestWeight + c.EngagementWeight
}

// Validate checks that the config is internally consistent.
func (c Config) Validate() error {
	var errs []string

	weights := map[string]float64{
		"urgency_weight":    c.UrgencyWeight,
		"budget_weight":     c.BudgetWeight,
		"interest_weight":   c.InterestWeight,
		"engagement_weight": c.EngagementWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, name+" must be >= 0")
		}
	}
	if c.WeightSum() <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	if c.NoSignalFloor < 0 || c.NoSignalFloor > 100 {
		errs = append(errs, "no_signal_floor must be between 0 and 100")
	}
	if c.MatchBase < 0 {
		errs = append(errs, "match_base must be >= 0")
	}
	if c.PerExtraWord < 0 {
		errs = append(errs, "per_extra_word must be >= 0")
	}

	if c.MinReliableWords < 1 {
		errs = append(errs, "min_reliable_words must be >= 1")
	}
	if c.TargetDensity <= 0 || c.TargetDensity > 1 {
		errs = append(errs, fmt.Sprintf("target_density must be in (0, 1], got %.2f", c.TargetDensity))
	}

	if c.HighPotential < 0 || c.HighPotential > 100 {
		errs = append(errs, "high_potential must be between 0 and 100")
	}
	if c.LowPotential < 0 || c.LowPotential > 100 {
		errs = append(errs, "low_potential must be between 0 and 100")
	}
	if c.LowPotential >= c.HighPotential {
		errs = append(errs, "low_potential must be below high_potential")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
