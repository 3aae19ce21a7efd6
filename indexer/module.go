// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package indexer is the staked intent registry. Traders stake the staking
// token on a token pair to advertise a locator; takers page through a
// pair's locators in descending stake order.
package indexer

import (
	"errors"
	"fmt"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/modules"
	"github.com/luxfi/lightswap/precompileconfig"
	"github.com/luxfi/lightswap/registry"
)

var _ contract.Configurator = (*configurator)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "indexerConfig"

// Address is where the Indexer is accessible.
var Address = common.HexToAddress(registry.Indexer)

// Precompile is the singleton instance
var Precompile = &Indexer{}

// Module is the precompile module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      Address,
	Contract:     Precompile,
	Configurator: &configurator{},
}

var (
	errNoOwner        = errors.New("owner must be set")
	errNoStakingToken = errors.New("staking token must be set")
)

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

type configurator struct{}

func (*configurator) MakeConfig() precompileconfig.Config {
	return new(Config)
}

func (*configurator) Configure(
	_ precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	_ contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	contract.SetAddress(state, Address, ownerSlot, config.Owner)
	contract.SetAddress(state, Address, stakingTokenSlot, config.StakingToken)
	contract.SetAddress(state, Address, whitelistSlot, config.LocatorWhitelist)
	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade          precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Owner            common.Address           `json:"owner"`
	StakingToken     common.Address           `json:"stakingToken"`
	LocatorWhitelist common.Address           `json:"locatorWhitelist,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.Owner == other.Owner &&
		c.StakingToken == other.StakingToken &&
		c.LocatorWhitelist == other.LocatorWhitelist
}

func (c *Config) Verify(precompileconfig.ChainConfig) error {
	switch {
	case c.Owner == (common.Address{}):
		return errNoOwner
	case c.StakingToken == (common.Address{}):
		return errNoStakingToken
	}
	return nil
}
