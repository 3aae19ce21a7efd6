// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"fmt"
	"math"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/contract"
)

// Gas costs
const (
	GasCreateIndex      uint64 = 40_000
	GasBlacklistToken   uint64 = 20_000 // per token
	GasSetIntent        uint64 = 80_000
	GasUnsetIntent      uint64 = 50_000
	GasSetWhitelist     uint64 = 25_000
	GasView             uint64 = 2_100
	GasPerLocatorReturn uint64 = 800
)

// ABI is the Indexer's calling surface.
const ABI = `[
	{"type":"function","name":"createIndex","stateMutability":"nonpayable",
	 "inputs":[{"name":"signerToken","type":"address"},{"name":"senderToken","type":"address"}],
	 "outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"addTokensToBlacklist","stateMutability":"nonpayable",
	 "inputs":[{"name":"tokens","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"removeTokensFromBlacklist","stateMutability":"nonpayable",
	 "inputs":[{"name":"tokens","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"setIntent","stateMutability":"nonpayable",
	 "inputs":[{"name":"signerToken","type":"address"},{"name":"senderToken","type":"address"},
	           {"name":"stakingAmount","type":"uint256"},{"name":"locator","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"unsetIntent","stateMutability":"nonpayable",
	 "inputs":[{"name":"signerToken","type":"address"},{"name":"senderToken","type":"address"}],"outputs":[]},
	{"type":"function","name":"setLocatorWhitelist","stateMutability":"nonpayable",
	 "inputs":[{"name":"whitelist","type":"address"}],"outputs":[]},
	{"type":"function","name":"getLocators","stateMutability":"view",
	 "inputs":[{"name":"signerToken","type":"address"},{"name":"senderToken","type":"address"},
	           {"name":"cursor","type":"address"},{"name":"limit","type":"uint256"}],
	 "outputs":[{"name":"locators","type":"bytes32[]"},{"name":"scores","type":"uint256[]"},
	            {"name":"nextCursor","type":"address"}]},
	{"type":"function","name":"getStakedAmount","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"},{"name":"signerToken","type":"address"},{"name":"senderToken","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"indexExists","stateMutability":"view",
	 "inputs":[{"name":"signerToken","type":"address"},{"name":"senderToken","type":"address"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"isBlacklisted","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"stakingToken","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"locatorWhitelist","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"CreateIndex","anonymous":false,"inputs":[
		{"name":"signerToken","type":"address","indexed":true},
		{"name":"senderToken","type":"address","indexed":true},
		{"name":"indexId","type":"bytes32","indexed":false}]},
	{"type":"event","name":"Stake","anonymous":false,"inputs":[
		{"name":"staker","type":"address","indexed":true},
		{"name":"signerToken","type":"address","indexed":true},
		{"name":"senderToken","type":"address","indexed":true},
		{"name":"stakeAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Unstake","anonymous":false,"inputs":[
		{"name":"staker","type":"address","indexed":true},
		{"name":"signerToken","type":"address","indexed":true},
		{"name":"senderToken","type":"address","indexed":true},
		{"name":"stakeAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"AddTokenToBlacklist","anonymous":false,"inputs":[
		{"name":"token","type":"address","indexed":true}]},
	{"type":"event","name":"RemoveTokenFromBlacklist","anonymous":false,"inputs":[
		{"name":"token","type":"address","indexed":true}]},
	{"type":"event","name":"SetLocator","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"indexId","type":"bytes32","indexed":true},
		{"name":"score","type":"uint256","indexed":false},
		{"name":"locator","type":"bytes32","indexed":false}]},
	{"type":"event","name":"UnsetLocator","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"indexId","type":"bytes32","indexed":true}]},
	{"type":"event","name":"SetLocatorWhitelist","anonymous":false,"inputs":[
		{"name":"whitelist","type":"address","indexed":true}]}
]`

var indexerABI = contract.ParseABI(ABI)

// IndexerABI returns the parsed Indexer ABI.
func IndexerABI() contract.ExtendedABI {
	return indexerABI
}

// Indexer is the staked intent registry precompile.
type Indexer struct{}

var _ contract.StatefulPrecompiledContract = (*Indexer)(nil)

// Run executes the precompile
func (x *Indexer) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	method, args, err := indexerABI.MethodFor(input)
	if err != nil {
		return nil, suppliedGas, err
	}
	in, err := indexerABI.UnpackInput(method.Name, args, false)
	if err != nil {
		return nil, suppliedGas, err
	}
	stateDB := accessibleState.GetStateDB()

	if method.IsConstant() {
		return x.view(stateDB, method.Name, in, suppliedGas)
	}

	var cost uint64
	switch method.Name {
	case "createIndex":
		cost = GasCreateIndex
	case "addTokensToBlacklist", "removeTokensFromBlacklist":
		cost = GasBlacklistToken * uint64(max(len(in[0].([]common.Address)), 1))
	case "setIntent":
		cost = GasSetIntent
	case "unsetIntent":
		cost = GasUnsetIntent
	case "setLocatorWhitelist":
		cost = GasSetWhitelist
	default:
		return nil, suppliedGas, fmt.Errorf("unsupported method %s", method.Name)
	}
	if remainingGas, err = contract.DeductGas(suppliedGas, cost); err != nil {
		return nil, 0, err
	}
	if readOnly {
		return nil, remainingGas, contract.ErrWriteProtection
	}

	switch method.Name {
	case "createIndex":
		id, err := CreateIndex(stateDB, in[0].(common.Address), in[1].(common.Address))
		if err != nil {
			return nil, remainingGas, err
		}
		ret, err = indexerABI.PackOutput(method.Name, [32]byte(id))
		return ret, remainingGas, err
	case "addTokensToBlacklist":
		err = SetBlacklisted(stateDB, caller, in[0].([]common.Address), true)
	case "removeTokensFromBlacklist":
		err = SetBlacklisted(stateDB, caller, in[0].([]common.Address), false)
	case "setIntent":
		err = SetIntent(stateDB, caller, in[0].(common.Address), in[1].(common.Address),
			contract.Uint256Arg(in[2]), in[3].([32]byte))
	case "unsetIntent":
		err = UnsetIntent(stateDB, caller, in[0].(common.Address), in[1].(common.Address))
	case "setLocatorWhitelist":
		err = SetLocatorWhitelist(stateDB, caller, in[0].(common.Address))
	}
	return nil, remainingGas, err
}

func (x *Indexer) view(stateDB contract.StateDB, name string, in []interface{}, suppliedGas uint64) ([]byte, uint64, error) {
	remainingGas, err := contract.DeductGas(suppliedGas, GasView)
	if err != nil {
		return nil, 0, err
	}
	var ret []byte
	switch name {
	case "getLocators":
		limit := uint64(math.MaxUint64)
		if l := contract.Uint256Arg(in[3]); l.IsUint64() {
			limit = l.Uint64()
		}
		// never walk further than the remaining gas can pay for
		if affordable := remainingGas / GasPerLocatorReturn; limit > affordable {
			if affordable == 0 {
				return nil, 0, contract.ErrOutOfGas
			}
			limit = affordable
		}
		locators, scores, next := GetLocators(stateDB, in[0].(common.Address), in[1].(common.Address), in[2].(common.Address), limit)
		if remainingGas, err = contract.DeductGas(remainingGas, GasPerLocatorReturn*uint64(len(locators))); err != nil {
			return nil, 0, err
		}
		bigScores := make([]*big.Int, len(scores))
		for i, s := range scores {
			bigScores[i] = s.ToBig()
		}
		ret, err = indexerABI.PackOutput(name, locators, bigScores, next)
	case "getStakedAmount":
		amount := GetStakedAmount(stateDB, in[0].(common.Address), in[1].(common.Address), in[2].(common.Address))
		ret, err = indexerABI.PackOutput(name, amount.ToBig())
	case "indexExists":
		ret, err = indexerABI.PackOutput(name, IndexExists(stateDB, in[0].(common.Address), in[1].(common.Address)))
	case "isBlacklisted":
		ret, err = indexerABI.PackOutput(name, IsBlacklisted(stateDB, in[0].(common.Address)))
	case "stakingToken":
		ret, err = indexerABI.PackOutput(name, StakingToken(stateDB))
	case "locatorWhitelist":
		ret, err = indexerABI.PackOutput(name, LocatorWhitelist(stateDB))
	case "owner":
		ret, err = indexerABI.PackOutput(name, Owner(stateDB))
	default:
		err = fmt.Errorf("unsupported view %s", name)
	}
	return ret, remainingGas, err
}
