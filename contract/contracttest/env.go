// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contracttest provides an in-memory execution environment for
// precompile tests.
package contracttest

import (
	"math/big"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/state"
)

var (
	_ contract.AccessibleState = (*Env)(nil)
	_ contract.BlockContext    = (*Env)(nil)
)

// Env is an AccessibleState and BlockContext over a fresh memdb.
type Env struct {
	State  *state.StateDB
	Height uint64
	Time   uint64
	Chain  *big.Int
}

// NewEnv returns an Env at height 1, the given time and chain id.
func NewEnv(time uint64, chainID int64) *Env {
	return &Env{
		State:  state.New(memdb.New()),
		Height: 1,
		Time:   time,
		Chain:  big.NewInt(chainID),
	}
}

func (e *Env) GetStateDB() contract.StateDB { return e.State }

func (e *Env) GetBlockContext() contract.BlockContext { return e }

func (e *Env) GetChainID() *big.Int { return new(big.Int).Set(e.Chain) }

func (e *Env) Number() *big.Int { return new(big.Int).SetUint64(e.Height) }

func (e *Env) Timestamp() uint64 { return e.Time }

// ChainID lets Env stand in for a precompileconfig.ChainConfig.
func (e *Env) ChainID() *big.Int { return e.GetChainID() }

// Call runs c as caller and reverts its writes when it fails, the way the
// host does.
func (e *Env) Call(c contract.StatefulPrecompiledContract, caller, addr common.Address, input []byte) ([]byte, error) {
	snap := e.State.Snapshot()
	ret, _, err := c.Run(e, caller, addr, input, 10_000_000, false)
	if err != nil {
		e.State.RevertToSnapshot(snap)
	}
	return ret, err
}

// StaticCall runs c read-only.
func (e *Env) StaticCall(c contract.StatefulPrecompiledContract, caller, addr common.Address, input []byte) ([]byte, error) {
	ret, _, err := c.Run(e, caller, addr, input, 10_000_000, true)
	return ret, err
}
