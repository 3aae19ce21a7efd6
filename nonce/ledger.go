// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package nonce records which order nonces each signer has consumed.
//
// Nonces are packed 256 to a storage word: word (signer, nonce>>8) holds
// bit nonce&0xff. A set bit is never cleared. Each signer also has a
// minimum nonce below which every nonce counts as consumed.
package nonce

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/lightswap/contract"
)

// Ledger is the nonce state of one contract.
type Ledger struct {
	owner common.Address
}

// New returns the ledger kept in owner's storage.
func New(owner common.Address) Ledger {
	return Ledger{owner: owner}
}

func wordSlot(signer common.Address, nonce *uint256.Int) common.Hash {
	word := new(uint256.Int).Rsh(nonce, 8).Bytes32()
	return contract.StorageKey("nonce", signer.Bytes(), word[:])
}

func minimumSlot(signer common.Address) common.Hash {
	return contract.StorageKey("minNonce", signer.Bytes())
}

func bitMask(nonce *uint256.Int) *uint256.Int {
	pos := nonce.Uint64() & 0xff
	return new(uint256.Int).Lsh(uint256.NewInt(1), uint(pos))
}

// IsUsed reports whether signer has consumed nonce.
func (l Ledger) IsUsed(stateDB contract.StateDB, signer common.Address, nonce *uint256.Int) bool {
	word := contract.GetUint256(stateDB, l.owner, wordSlot(signer, nonce))
	return !new(uint256.Int).And(word, bitMask(nonce)).IsZero()
}

// MarkUsed consumes nonce for signer. It returns false, leaving state
// untouched, if the nonce was already used.
func (l Ledger) MarkUsed(stateDB contract.StateDB, signer common.Address, nonce *uint256.Int) bool {
	slot := wordSlot(signer, nonce)
	word := contract.GetUint256(stateDB, l.owner, slot)
	mask := bitMask(nonce)
	if !new(uint256.Int).And(word, mask).IsZero() {
		return false
	}
	contract.SetUint256(stateDB, l.owner, slot, word.Or(word, mask))
	return true
}

// MinimumNonce returns the lowest nonce signer may still settle.
func (l Ledger) MinimumNonce(stateDB contract.StateDB, signer common.Address) *uint256.Int {
	return contract.GetUint256(stateDB, l.owner, minimumSlot(signer))
}

// RaiseMinimumNonce sets signer's minimum nonce to floor if it is higher
// than the current one and reports whether it changed.
func (l Ledger) RaiseMinimumNonce(stateDB contract.StateDB, signer common.Address, floor *uint256.Int) bool {
	if !floor.Gt(l.MinimumNonce(stateDB, signer)) {
		return false
	}
	contract.SetUint256(stateDB, l.owner, minimumSlot(signer), floor)
	return true
}
