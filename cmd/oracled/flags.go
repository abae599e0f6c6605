package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/maxmedina05/flight-surety-udacity-project/surety"
)

const (
	OraclesKey            = "oracles"
	AirlinesKey           = "airlines"
	FlightsKey            = "flights"
	PassengersKey         = "passengers"
	SeedKey               = "seed"
	ThresholdKey          = "threshold"
	ConcurrencyKey        = "concurrency"
	DistinctIndexesKey    = "distinct-indexes"
	ReevaluateOnShrinkKey = "reevaluate-on-shrink"
	MetricsAddrKey        = "metrics-addr"
	LogLevelKey           = "log-level"
	ConfigKey             = "config"
)

func AddFlags(flags *pflag.FlagSet) {
	defaults := surety.DefaultConfig()
	flags.Int(OraclesKey, 20, "Number of oracles operated by the service")
	flags.Int(AirlinesKey, 5, "Number of airlines to admit, the owner included")
	flags.Int(FlightsKey, 3, "Number of flights to register and request status for")
	flags.Int(PassengersKey, 6, "Number of insured passengers")
	flags.Int64(SeedKey, 0, "Seed for index entropy and simulated statuses (0 draws a random seed)")
	flags.Int(ThresholdKey, defaults.ConsensusThreshold, "Identical responses needed to finalize a request")
	flags.Int(ConcurrencyKey, 8, "Concurrent submissions per request")
	flags.Bool(DistinctIndexesKey, defaults.DistinctIndexes, "Assign three distinct indexes to every oracle")
	flags.Bool(ReevaluateOnShrinkKey, defaults.ReevaluateOnShrink, "Re-check pending airline proposals when an airline is unregistered")
	flags.String(MetricsAddrKey, "", "Serve prometheus metrics on this address and keep running until interrupted")
	flags.String(LogLevelKey, "info", "flogging spec, e.g. info or flightsurety.oracle=debug:warning")
	flags.String(ConfigKey, "", "YAML file with engine settings; explicit flags take precedence")
}

type Config struct {
	Oracles     int
	Airlines    int
	Flights     int
	Passengers  int
	Seed        int64
	Concurrency int
	MetricsAddr string
	LogLevel    string
	Engine      surety.Config
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	c := &Config{Engine: surety.DefaultConfig()}
	path, err := flags.GetString(ConfigKey)
	if err != nil {
		return nil, err
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if c.Engine, err = surety.ParseConfigYAML(raw); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if c.Oracles, err = flags.GetInt(OraclesKey); err != nil {
		return nil, err
	}
	if c.Airlines, err = flags.GetInt(AirlinesKey); err != nil {
		return nil, err
	}
	if c.Flights, err = flags.GetInt(FlightsKey); err != nil {
		return nil, err
	}
	if c.Passengers, err = flags.GetInt(PassengersKey); err != nil {
		return nil, err
	}
	if c.Seed, err = flags.GetInt64(SeedKey); err != nil {
		return nil, err
	}
	if c.Concurrency, err = flags.GetInt(ConcurrencyKey); err != nil {
		return nil, err
	}
	if c.MetricsAddr, err = flags.GetString(MetricsAddrKey); err != nil {
		return nil, err
	}
	if c.LogLevel, err = flags.GetString(LogLevelKey); err != nil {
		return nil, err
	}
	if flags.Changed(ThresholdKey) {
		if c.Engine.ConsensusThreshold, err = flags.GetInt(ThresholdKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(DistinctIndexesKey) {
		if c.Engine.DistinctIndexes, err = flags.GetBool(DistinctIndexesKey); err != nil {
			return nil, err
		}
	}
	if flags.Changed(ReevaluateOnShrinkKey) {
		if c.Engine.ReevaluateOnShrink, err = flags.GetBool(ReevaluateOnShrinkKey); err != nil {
			return nil, err
		}
	}

	switch {
	case c.Oracles < 1:
		return nil, fmt.Errorf("--%s must be at least 1", OraclesKey)
	case c.Airlines < 1:
		return nil, fmt.Errorf("--%s must be at least 1", AirlinesKey)
	case c.Flights < 0 || c.Passengers < 0:
		return nil, fmt.Errorf("--%s and --%s must not be negative", FlightsKey, PassengersKey)
	}
	if err := c.Engine.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
