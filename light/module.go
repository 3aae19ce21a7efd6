// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package light settles signed RFQ orders. A signer signs an EIP-712 order
// off-chain; the counterparty submits it and the contract checks expiry,
// chain, signature, nonce and delegation before moving both legs and the
// protocol fee through the token bank.
package light

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/modules"
	"github.com/luxfi/lightswap/precompileconfig"
	"github.com/luxfi/lightswap/registry"
)

var _ contract.Configurator = (*configurator)(nil)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "lightConfig"

// Address is where the Light contract is accessible.
var Address = common.HexToAddress(registry.LightSwap)

// Precompile is the singleton instance
var Precompile = &Light{}

// Module is the precompile module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      Address,
	Contract:     Precompile,
	Configurator: &configurator{},
}

var (
	errNoOwner   = errors.New("owner must be set")
	errNoChainID = errors.New("chain id must be set")
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

// Configure stores the fee settings and captures the chain id the domain
// separator is built for.
func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	_ contract.ConfigurationBlockContext,
) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	chainID := chainConfig.ChainID()
	if chainID == nil {
		return errNoChainID
	}
	chain, overflow := uint256.FromBig(chainID)
	if overflow || chainID.Sign() < 0 {
		return fmt.Errorf("chain id %s out of range", chainID)
	}

	contract.SetAddress(state, Address, ownerSlot, config.Owner)
	contract.SetUint256(state, Address, protocolFeeSlot, uint256.NewInt(config.ProtocolFee))
	contract.SetAddress(state, Address, feeWalletSlot, config.ProtocolFeeWallet)
	contract.SetUint256(state, Address, chainIDSlot, chain)
	state.SetState(Address, domainSeparatorSlot, DomainSeparator(chainID, Address))
	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade           precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Owner             common.Address           `json:"owner"`
	ProtocolFee       uint64                   `json:"protocolFee"`
	ProtocolFeeWallet common.Address           `json:"protocolFeeWallet"`
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
		c.ProtocolFee == other.ProtocolFee &&
		c.ProtocolFeeWallet == other.ProtocolFeeWallet
}

func (c *Config) Verify(precompileconfig.ChainConfig) error {
	switch {
	case c.Owner == (common.Address{}):
		return errNoOwner
	case c.ProtocolFee >= FeeDivisor:
		return fmt.Errorf("%w: %d not below %d", ErrInvalidFee, c.ProtocolFee, FeeDivisor)
	case c.ProtocolFeeWallet == (common.Address{}):
		return ErrInvalidFeeWallet
	}
	return nil
}
