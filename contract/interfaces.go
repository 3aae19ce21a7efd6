// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the execution surface shared by the market
// precompiles: the state they mutate, the block they run in and the
// calling convention the host uses to dispatch into them.
package contract

import (
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/lightswap/precompileconfig"
)

// StateDB is the subset of EVM state a precompile may touch.
// Snapshot/RevertToSnapshot give the host all-or-nothing call semantics.
type StateDB interface {
	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)

	AddLog(log *types.Log)

	Snapshot() int
	RevertToSnapshot(id int)
}

// ConfigurationBlockContext is the block information available while a
// module config is applied.
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// BlockContext is the block information available during a call.
type BlockContext interface {
	ConfigurationBlockContext
}

// AccessibleState is handed to Run on every call.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
	// GetChainID returns the chain id the call executes under. It can
	// diverge from the id captured at configuration after a fork.
	GetChainID() *big.Int
}

// StatefulPrecompiledContract is implemented by every module contract.
type StatefulPrecompiledContract interface {
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)
}

// Configurator builds and applies a module's configuration.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		cfg precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}
