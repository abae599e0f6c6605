package surety

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

const configObjectType = "Config"

// Unit is the number of base units in one currency unit.
var Unit = uint256.NewInt(1_000_000_000_000_000_000)

// Units returns n currency units expressed in base units.
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), Unit)
}

// Config holds the thresholds and policies of the engine.
type Config struct {
	MinFunding    *uint256.Int // Minimum stake accepted by Fund
	OracleFee     *uint256.Int // Oracle registration fee
	MaxPremium    *uint256.Int // Largest premium Buy accepts
	PayoutPercent uint64       // Payout as a percentage of the premium

	DirectAdmissionLimit int   // Airlines admitted without governance votes
	IndexRange           uint8 // Oracle and request indexes are drawn from [0, IndexRange)
	ConsensusThreshold   int   // Identical responses needed to finalize a request

	// DistinctIndexes forces the three indexes of an oracle to differ.
	DistinctIndexes bool
	// ReevaluateOnShrink re-checks pending proposals when an airline is
	// unregistered. Otherwise they are re-checked on their next vote.
	ReevaluateOnShrink bool
}

// DefaultConfig returns the deployment defaults.
func DefaultConfig() Config {
	return Config{
		MinFunding:           Units(10),
		OracleFee:            Units(1),
		MaxPremium:           Units(1),
		PayoutPercent:        150,
		DirectAdmissionLimit: 4,
		IndexRange:           10,
		ConsensusThreshold:   3,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.MinFunding == nil || c.OracleFee == nil || c.MaxPremium == nil:
		return fmt.Errorf("%w: amounts must be set", ErrInvalidArgument)
	case c.MaxPremium.IsZero():
		return fmt.Errorf("%w: maxPremium must be positive", ErrInvalidArgument)
	case c.PayoutPercent == 0:
		return fmt.Errorf("%w: payoutPercent must be positive", ErrInvalidArgument)
	case c.DirectAdmissionLimit < 1:
		return fmt.Errorf("%w: directAdmissionLimit must be at least 1", ErrInvalidArgument)
	case c.IndexRange < 3:
		return fmt.Errorf("%w: indexRange must be at least 3", ErrInvalidArgument)
	case c.ConsensusThreshold < 1:
		return fmt.Errorf("%w: consensusThreshold must be at least 1", ErrInvalidArgument)
	}
	return nil
}

// configRecord is the ledger form of Config; amounts are decimal strings.
// Operators may also write it as YAML.
type configRecord struct {
	ObjectType           string `json:"objectType" yaml:"-"`
	MinFunding           string `json:"minFunding,omitempty" yaml:"minFunding"`
	OracleFee            string `json:"oracleFee,omitempty" yaml:"oracleFee"`
	MaxPremium           string `json:"maxPremium,omitempty" yaml:"maxPremium"`
	PayoutPercent        uint64 `json:"payoutPercent,omitempty" yaml:"payoutPercent"`
	DirectAdmissionLimit int    `json:"directAdmissionLimit,omitempty" yaml:"directAdmissionLimit"`
	IndexRange           uint8  `json:"indexRange,omitempty" yaml:"indexRange"`
	ConsensusThreshold   int    `json:"consensusThreshold,omitempty" yaml:"consensusThreshold"`
	DistinctIndexes      bool   `json:"distinctIndexes" yaml:"distinctIndexes"`
	ReevaluateOnShrink   bool   `json:"reevaluateOnShrink" yaml:"reevaluateOnShrink"`
}

// ParseConfig overlays a JSON document on the defaults. Missing fields keep
// their default value.
func ParseConfig(raw []byte) (Config, error) {
	if len(raw) == 0 {
		return DefaultConfig(), nil
	}
	var rec configRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Config{}, fmt.Errorf("%w: invalid config JSON: %v", ErrInvalidArgument, err)
	}
	return rec.overlay(DefaultConfig())
}

// ParseConfigYAML is ParseConfig for YAML documents.
func ParseConfigYAML(raw []byte) (Config, error) {
	var rec configRecord
	if err := yaml.Unmarshal(raw, &rec); err != nil {
		return Config{}, fmt.Errorf("%w: invalid config YAML: %v", ErrInvalidArgument, err)
	}
	return rec.overlay(DefaultConfig())
}

func (rec configRecord) overlay(cfg Config) (Config, error) {
	var err error
	if rec.MinFunding != "" {
		if cfg.MinFunding, err = ParseAmount(rec.MinFunding); err != nil {
			return Config{}, err
		}
	}
	if rec.OracleFee != "" {
		if cfg.OracleFee, err = ParseAmount(rec.OracleFee); err != nil {
			return Config{}, err
		}
	}
	if rec.MaxPremium != "" {
		if cfg.MaxPremium, err = ParseAmount(rec.MaxPremium); err != nil {
			return Config{}, err
		}
	}
	if rec.PayoutPercent != 0 {
		cfg.PayoutPercent = rec.PayoutPercent
	}
	if rec.DirectAdmissionLimit != 0 {
		cfg.DirectAdmissionLimit = rec.DirectAdmissionLimit
	}
	if rec.IndexRange != 0 {
		cfg.IndexRange = rec.IndexRange
	}
	if rec.ConsensusThreshold != 0 {
		cfg.ConsensusThreshold = rec.ConsensusThreshold
	}
	cfg.DistinctIndexes = rec.DistinctIndexes
	cfg.ReevaluateOnShrink = rec.ReevaluateOnShrink
	return cfg, cfg.Validate()
}

// SaveConfig persists cfg so later transactions can reload it.
func SaveConfig(store Store, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	rec := configRecord{
		ObjectType:           configObjectType,
		MinFunding:           cfg.MinFunding.Dec(),
		OracleFee:            cfg.OracleFee.Dec(),
		MaxPremium:           cfg.MaxPremium.Dec(),
		PayoutPercent:        cfg.PayoutPercent,
		DirectAdmissionLimit: cfg.DirectAdmissionLimit,
		IndexRange:           cfg.IndexRange,
		ConsensusThreshold:   cfg.ConsensusThreshold,
		DistinctIndexes:      cfg.DistinctIndexes,
		ReevaluateOnShrink:   cfg.ReevaluateOnShrink,
	}
	return putRecord(store, configObjectType, nil, &rec)
}

// LoadConfig returns the persisted config, or the defaults when none was saved.
func LoadConfig(store Store) (Config, error) {
	raw, err := store.GetState(configObjectType, nil)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseAmount parses a non-negative decimal amount in base units.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: amount '%s': %v", ErrInvalidArgument, s, err)
	}
	return v, nil
}
