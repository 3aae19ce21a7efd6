// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package erc20 is a multi-token ERC-20 ledger living in contract storage.
// Settlement and staking move tokens through it, so a reverted call undoes
// its transfers along with every other write.
package erc20

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
const ConfigKey = "tokenBankConfig"

// Address is where the token bank is accessible.
var Address = common.HexToAddress(registry.TokenBank)

// Precompile is the singleton instance
var Precompile = &TokenBank{}

// Module is the precompile module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      Address,
	Contract:     Precompile,
	Configurator: &configurator{},
}

var errNoMinter = errors.New("minter must be set")

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
	contract.SetAddress(state, Address, minterSlot, config.Minter)
	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Minter  common.Address           `json:"minter"`
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
	return c.Upgrade.Equal(&other.Upgrade) && c.Minter == other.Minter
}

func (c *Config) Verify(precompileconfig.ChainConfig) error {
	if c.Minter == (common.Address{}) {
		return errNoMinter
	}
	return nil
}
