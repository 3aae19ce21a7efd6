// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erc20

import (
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/lightswap/contract"
)

// Gas costs
const (
	GasBalanceOf    uint64 = 2_100
	GasAllowance    uint64 = 2_100
	GasApprove      uint64 = 22_000
	GasTransfer     uint64 = 30_000
	GasTransferFrom uint64 = 35_000
	GasMint         uint64 = 30_000
)

// ABI is the token bank's calling surface. Every method takes the token
// address first: one bank holds the ledgers of many tokens.
const ABI = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"},{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"},{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"mint","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"},{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"token","type":"address"},{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"minter","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"token","type":"address","indexed":true},{"name":"from","type":"address","indexed":true},
	           {"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,
	 "inputs":[{"name":"token","type":"address","indexed":true},{"name":"owner","type":"address","indexed":true},
	           {"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

var bankABI = contract.ParseABI(ABI)

// BankABI returns the parsed token bank ABI.
func BankABI() contract.ExtendedABI {
	return bankABI
}

// TokenBank is the token bank precompile.
type TokenBank struct{}

var _ contract.StatefulPrecompiledContract = (*TokenBank)(nil)

// Run executes the precompile
func (b *TokenBank) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	method, args, err := bankABI.MethodFor(input)
	if err != nil {
		return nil, suppliedGas, err
	}
	stateDB := accessibleState.GetStateDB()

	switch method.Name {
	case "balanceOf":
		if remainingGas, err = contract.DeductGas(suppliedGas, GasBalanceOf); err != nil {
			return nil, 0, err
		}
		in, err := bankABI.UnpackInput(method.Name, args, true)
		if err != nil {
			return nil, remainingGas, err
		}
		bal := BalanceOf(stateDB, in[0].(common.Address), in[1].(common.Address))
		ret, err = bankABI.PackOutput(method.Name, bal.ToBig())
		return ret, remainingGas, err

	case "allowance":
		if remainingGas, err = contract.DeductGas(suppliedGas, GasAllowance); err != nil {
			return nil, 0, err
		}
		in, err := bankABI.UnpackInput(method.Name, args, true)
		if err != nil {
			return nil, remainingGas, err
		}
		allowance := Allowance(stateDB, in[0].(common.Address), in[1].(common.Address), in[2].(common.Address))
		ret, err = bankABI.PackOutput(method.Name, allowance.ToBig())
		return ret, remainingGas, err

	case "minter":
		if remainingGas, err = contract.DeductGas(suppliedGas, GasBalanceOf); err != nil {
			return nil, 0, err
		}
		ret, err = bankABI.PackOutput(method.Name, Minter(stateDB))
		return ret, remainingGas, err
	}

	// state-changing methods
	var cost uint64
	switch method.Name {
	case "transfer":
		cost = GasTransfer
	case "transferFrom":
		cost = GasTransferFrom
	case "approve":
		cost = GasApprove
	case "mint":
		cost = GasMint
	default:
		return nil, suppliedGas, fmt.Errorf("unsupported method %s", method.Name)
	}
	if remainingGas, err = contract.DeductGas(suppliedGas, cost); err != nil {
		return nil, 0, err
	}
	if readOnly {
		return nil, remainingGas, contract.ErrWriteProtection
	}
	in, err := bankABI.UnpackInput(method.Name, args, true)
	if err != nil {
		return nil, remainingGas, err
	}
	token := in[0].(common.Address)

	switch method.Name {
	case "transfer":
		err = Transfer(stateDB, token, caller, in[1].(common.Address), contract.Uint256Arg(in[2]))
	case "transferFrom":
		err = TransferFrom(stateDB, token, caller, in[1].(common.Address), in[2].(common.Address), contract.Uint256Arg(in[3]))
	case "approve":
		err = Approve(stateDB, token, caller, in[1].(common.Address), contract.Uint256Arg(in[2]))
	case "mint":
		if caller != Minter(stateDB) {
			return nil, remainingGas, fmt.Errorf("%w: %s", ErrNotMinter, caller)
		}
		if err = Mint(stateDB, token, in[1].(common.Address), contract.Uint256Arg(in[2])); err != nil {
			return nil, remainingGas, err
		}
		return nil, remainingGas, nil
	}
	if err != nil {
		return nil, remainingGas, err
	}
	ret, err = bankABI.PackOutput(method.Name, true)
	return ret, remainingGas, err
}

