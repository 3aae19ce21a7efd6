// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package allowlist is an owner-managed set of locators. The indexer
// consults it before accepting an intent.
package allowlist

import (
	"errors"
	"fmt"
	"slices"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/modules"
	"github.com/luxfi/lightswap/precompileconfig"
	"github.com/luxfi/lightswap/registry"
)

var (
	_ contract.Configurator                = (*configurator)(nil)
	_ contract.StatefulPrecompiledContract = (*AllowList)(nil)
)

// ConfigKey is the key used in json config files to specify this precompile config.
const ConfigKey = "allowListConfig"

// Gas costs
const (
	GasIsAllowed      uint64 = 2_100
	GasUpdatePerEntry uint64 = 20_000
)

var (
	ErrNotOwner = errors.New("caller is not the owner")
	errNoOwner  = errors.New("owner must be set")
)

// Address is where the allow-list is accessible.
var Address = common.HexToAddress(registry.LocatorAllowList)

// Precompile is the singleton instance
var Precompile = &AllowList{}

// Module is the precompile module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      Address,
	Contract:     Precompile,
	Configurator: &configurator{},
}

// ABI is the allow-list's calling surface.
const ABI = `[
	{"type":"function","name":"allow","stateMutability":"nonpayable",
	 "inputs":[{"name":"locators","type":"bytes32[]"}],"outputs":[]},
	{"type":"function","name":"disallow","stateMutability":"nonpayable",
	 "inputs":[{"name":"locators","type":"bytes32[]"}],"outputs":[]},
	{"type":"function","name":"isAllowed","stateMutability":"view",
	 "inputs":[{"name":"locator","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Allow","anonymous":false,
	 "inputs":[{"name":"locator","type":"bytes32","indexed":true}]},
	{"type":"event","name":"Disallow","anonymous":false,
	 "inputs":[{"name":"locator","type":"bytes32","indexed":true}]}
]`

var listABI = contract.ParseABI(ABI)

// ListABI returns the parsed allow-list ABI.
func ListABI() contract.ExtendedABI {
	return listABI
}

var ownerSlot = contract.StorageKey("owner")

func locatorSlot(locator [32]byte) common.Hash {
	return contract.StorageKey("locator", locator[:])
}

// IsAllowed reports whether locator is in the allow-list stored at list.
func IsAllowed(stateDB contract.StateDB, list common.Address, locator [32]byte) bool {
	return contract.GetBool(stateDB, list, locatorSlot(locator))
}

// Owner returns the account allowed to edit the list.
func Owner(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, ownerSlot)
}

// set flips locators to allowed, emitting only for entries that change.
func set(stateDB contract.StateDB, locators [][32]byte, allowed bool) error {
	event := "Disallow"
	if allowed {
		event = "Allow"
	}
	for _, locator := range locators {
		if IsAllowed(stateDB, Address, locator) == allowed {
			continue
		}
		contract.SetBool(stateDB, Address, locatorSlot(locator), allowed)
		if err := listABI.EmitEvent(stateDB, Address, event, locator); err != nil {
			return err
		}
	}
	return nil
}

// AllowList is the allow-list precompile.
type AllowList struct{}

// Run executes the precompile
func (l *AllowList) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	method, args, err := listABI.MethodFor(input)
	if err != nil {
		return nil, suppliedGas, err
	}
	stateDB := accessibleState.GetStateDB()
	in, err := listABI.UnpackInput(method.Name, args, false)
	if err != nil {
		return nil, suppliedGas, err
	}

	switch method.Name {
	case "isAllowed":
		if remainingGas, err = contract.DeductGas(suppliedGas, GasIsAllowed); err != nil {
			return nil, 0, err
		}
		ret, err = listABI.PackOutput(method.Name, IsAllowed(stateDB, Address, in[0].([32]byte)))
		return ret, remainingGas, err

	case "owner":
		if remainingGas, err = contract.DeductGas(suppliedGas, GasIsAllowed); err != nil {
			return nil, 0, err
		}
		ret, err = listABI.PackOutput(method.Name, Owner(stateDB))
		return ret, remainingGas, err

	case "allow", "disallow":
		locators := in[0].([][32]byte)
		cost := GasUpdatePerEntry * uint64(max(len(locators), 1))
		if remainingGas, err = contract.DeductGas(suppliedGas, cost); err != nil {
			return nil, 0, err
		}
		if readOnly {
			return nil, remainingGas, contract.ErrWriteProtection
		}
		if caller != Owner(stateDB) {
			return nil, remainingGas, fmt.Errorf("%w: %s", ErrNotOwner, caller)
		}
		return nil, remainingGas, set(stateDB, locators, method.Name == "allow")
	}
	return nil, suppliedGas, fmt.Errorf("unsupported method %s", method.Name)
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

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
	locators := make([][32]byte, len(config.Locators))
	for i, l := range config.Locators {
		locators[i] = l
	}
	return set(state, locators, true)
}

// Config implements the precompileconfig.Config interface
type Config struct {
	Upgrade  precompileconfig.Upgrade `json:"upgrade,omitempty"`
	Owner    common.Address           `json:"owner"`
	Locators []common.Hash            `json:"locators,omitempty"`
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
		slices.Equal(c.Locators, other.Locators)
}

func (c *Config) Verify(precompileconfig.ChainConfig) error {
	if c.Owner == (common.Address{}) {
		return errNoOwner
	}
	return nil
}
