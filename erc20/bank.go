// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erc20

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/lightswap/contract"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrNotMinter             = errors.New("caller is not the minter")
	ErrSupplyOverflow        = errors.New("balance overflow")
)

var minterSlot = contract.StorageKey("minter")

func balanceSlot(token, owner common.Address) common.Hash {
	return contract.StorageKey("balance", token.Bytes(), owner.Bytes())
}

func allowanceSlot(token, owner, spender common.Address) common.Hash {
	return contract.StorageKey("allowance", token.Bytes(), owner.Bytes(), spender.Bytes())
}

// BalanceOf returns owner's balance of token.
func BalanceOf(stateDB contract.StateDB, token, owner common.Address) *uint256.Int {
	return contract.GetUint256(stateDB, Address, balanceSlot(token, owner))
}

// Allowance returns how much of owner's token spender may move.
func Allowance(stateDB contract.StateDB, token, owner, spender common.Address) *uint256.Int {
	return contract.GetUint256(stateDB, Address, allowanceSlot(token, owner, spender))
}

// Minter returns the account allowed to mint.
func Minter(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, minterSlot)
}

// Transfer moves amount of token from one account to another.
func Transfer(stateDB contract.StateDB, token, from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer to %w", ErrZeroAddress)
	}
	fromBal := BalanceOf(stateDB, token, from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s of %s, needs %s", ErrInsufficientBalance, from, fromBal, token, amount)
	}
	if from != to {
		toBal := BalanceOf(stateDB, token, to)
		newTo, overflow := new(uint256.Int).AddOverflow(toBal, amount)
		if overflow {
			return fmt.Errorf("%w: %s of %s", ErrSupplyOverflow, to, token)
		}
		contract.SetUint256(stateDB, Address, balanceSlot(token, from), new(uint256.Int).Sub(fromBal, amount))
		contract.SetUint256(stateDB, Address, balanceSlot(token, to), newTo)
	}
	return bankABI.EmitEvent(stateDB, Address, "Transfer", token, from, to, amount.ToBig())
}

// TransferFrom moves amount of token from one account to another on behalf
// of spender, consuming allowance. A maximal allowance is never consumed.
func TransferFrom(stateDB contract.StateDB, token, spender, from, to common.Address, amount *uint256.Int) error {
	allowance := Allowance(stateDB, token, from, spender)
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %s may spend %s of %s's %s, needs %s",
			ErrInsufficientAllowance, spender, allowance, from, token, amount)
	}
	if !isUnlimited(allowance) {
		contract.SetUint256(stateDB, Address, allowanceSlot(token, from, spender), new(uint256.Int).Sub(allowance, amount))
	}
	return Transfer(stateDB, token, from, to, amount)
}

// Approve sets spender's allowance over owner's token.
func Approve(stateDB contract.StateDB, token, owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("approve %w", ErrZeroAddress)
	}
	contract.SetUint256(stateDB, Address, allowanceSlot(token, owner, spender), amount)
	return bankABI.EmitEvent(stateDB, Address, "Approval", token, owner, spender, amount.ToBig())
}

// Mint credits amount of token to an account. The Transfer event is
// emitted from the zero address.
func Mint(stateDB contract.StateDB, token, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint to %w", ErrZeroAddress)
	}
	bal, overflow := new(uint256.Int).AddOverflow(BalanceOf(stateDB, token, to), amount)
	if overflow {
		return fmt.Errorf("%w: %s of %s", ErrSupplyOverflow, to, token)
	}
	contract.SetUint256(stateDB, Address, balanceSlot(token, to), bal)
	return bankABI.EmitEvent(stateDB, Address, "Transfer", token, common.Address{}, to, amount.ToBig())
}

func isUnlimited(v *uint256.Int) bool {
	return v.Eq(maxUint256)
}

var maxUint256 = new(uint256.Int).SetAllOne()
