// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/modifier"
	"github.com/luxfi/bidagent/pkg/policy"
	"github.com/luxfi/bidagent/pkg/rank"
	"github.com/luxfi/bidagent/pkg/spike"
)

// EnvPrefix prefixes every environment override, e.g. BIDAGENT_SERVER_URL
const EnvPrefix = "BIDAGENT"

// Configuration is the daemon configuration
type Configuration struct {
	Server  Server  `mapstructure:"server"`
	Ops     Ops     `mapstructure:"ops"`
	Log     Log     `mapstructure:"log"`
	Policy  Policy  `mapstructure:"policy"`
	Journal Journal `mapstructure:"journal"`
}

// Server is the simulation server connection
type Server struct {
	URL                 string `mapstructure:"url"`
	AgentName           string `mapstructure:"agent_name"`
	Codec               string `mapstructure:"codec"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// Ops is the health, status and metrics HTTP surface
type Ops struct {
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Policy tunes the bidding engine
type Policy struct {
	Bid          policy.Params   `mapstructure:"bid"`
	Modifiers    modifier.Params `mapstructure:"modifiers"`
	Spike        spike.Config    `mapstructure:"spike"`
	BidRank      string          `mapstructure:"bid_rank"`
	AdRank       string          `mapstructure:"ad_rank"`
	ProfitSource string          `mapstructure:"profit_source"`
}

// Journal persists daily bids to postgres when enabled
type Journal struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// SetupViper registers defaults, config file search paths and environment
// overrides on v
func SetupViper(v *viper.Viper, filename string) {
	v.SetConfigName(filename)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bidagent")

	v.SetDefault("server.url", "ws://localhost:6502/agent")
	v.SetDefault("server.agent_name", "bidagent")
	v.SetDefault("server.codec", "native")
	v.SetDefault("server.write_timeout_seconds", 10)

	v.SetDefault("ops.listen", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", log.FormatJSON)

	bid := policy.DefaultParams()
	v.SetDefault("policy.bid.base_fraction", bid.BaseFraction)
	v.SetDefault("policy.bid.placeholder_profit", bid.PlaceholderProfit)
	v.SetDefault("policy.bid.ceiling_multiplier", bid.CeilingMultiplier)
	v.SetDefault("policy.bid.ceiling_floor", bid.CeilingFloor)
	v.SetDefault("policy.bid.initial_days", bid.InitialDays)
	v.SetDefault("policy.bid.initial_boost", bid.InitialBoost)
	v.SetDefault("policy.bid.spike_boost", bid.SpikeBoost)

	mods := modifier.DefaultParams()
	v.SetDefault("policy.modifiers.lambda", mods.Lambda)
	v.SetDefault("policy.modifiers.special_both", mods.SpecialBoth)
	v.SetDefault("policy.modifiers.special_one", mods.SpecialOne)
	v.SetDefault("policy.modifiers.type_f0", mods.TypeF0)
	v.SetDefault("policy.modifiers.type_f1", mods.TypeF1)
	v.SetDefault("policy.modifiers.type_f2", mods.TypeF2)
	v.SetDefault("policy.modifiers.capacity_scale", mods.CapacityScale)

	sp := spike.DefaultConfig()
	v.SetDefault("policy.spike.threshold", sp.Threshold)
	v.SetDefault("policy.spike.min_history", sp.MinHistory)
	v.SetDefault("policy.spike.max_iterations", sp.MaxIterations)

	v.SetDefault("policy.bid_rank", string(rank.ImpressionsRevenue))
	v.SetDefault("policy.ad_rank", string(rank.Impressions))
	v.SetDefault("policy.profit_source", policy.ProfitConstant)

	v.SetDefault("journal.enabled", false)
	v.SetDefault("journal.dsn", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// New reads the config file, if any, and unmarshals and validates v
func New(v *viper.Viper) (*Configuration, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports every invalid setting
func (c *Configuration) Validate() error {
	var errs []error

	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	}
	switch c.Server.Codec {
	case "", "native", "openrtb":
	default:
		errs = append(errs, fmt.Errorf("server.codec %q must be native or openrtb", c.Server.Codec))
	}
	switch c.Log.Format {
	case "", log.FormatJSON, log.FormatConsole:
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	if _, err := rank.ParseStrategy(c.Policy.BidRank); err != nil {
		errs = append(errs, fmt.Errorf("policy.bid_rank: %w", err))
	}
	if _, err := rank.ParseStrategy(c.Policy.AdRank); err != nil {
		errs = append(errs, fmt.Errorf("policy.ad_rank: %w", err))
	}
	if _, err := policy.NewProfitSource(c.Policy.ProfitSource, c.Policy.Bid.PlaceholderProfit, nil); err != nil {
		errs = append(errs, fmt.Errorf("policy.profit_source: %w", err))
	}
	if err := c.Policy.Bid.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy.bid: %w", err))
	}
	if err := c.Policy.Modifiers.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy.modifiers: %w", err))
	}
	if err := c.Policy.Spike.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy.spike: %w", err))
	}
	if c.Journal.Enabled && c.Journal.DSN == "" {
		errs = append(errs, errors.New("journal.dsn is required when the journal is enabled"))
	}

	return errors.Join(errs...)
}
