// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"encoding/binary"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// StorageKey derives a storage slot from a prefix and identifying parts.
// The prefix and each part carry a 4-byte length so ("ab","c") and
// ("a","bc") never collide.
func StorageKey(prefix string, parts ...[]byte) common.Hash {
	h := blake3.New()
	buf := binary.BigEndian.AppendUint32(nil, uint32(len(prefix)))
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(part)))
		buf = append(buf, part...)
	}
	h.Write(buf)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// GetAddress reads an address stored right-aligned in slot.
func GetAddress(stateDB StateDB, addr common.Address, slot common.Hash) common.Address {
	val := stateDB.GetState(addr, slot)
	return common.BytesToAddress(val[12:])
}

// SetAddress stores a right-aligned address in slot.
func SetAddress(stateDB StateDB, addr common.Address, slot common.Hash, value common.Address) {
	var val common.Hash
	copy(val[12:], value.Bytes())
	stateDB.SetState(addr, slot, val)
}

// GetUint256 reads a big-endian 256-bit integer from slot.
func GetUint256(stateDB StateDB, addr common.Address, slot common.Hash) *uint256.Int {
	val := stateDB.GetState(addr, slot)
	return new(uint256.Int).SetBytes32(val[:])
}

// SetUint256 stores a big-endian 256-bit integer in slot.
func SetUint256(stateDB StateDB, addr common.Address, slot common.Hash, value *uint256.Int) {
	stateDB.SetState(addr, slot, common.Hash(value.Bytes32()))
}

// GetBool reads a flag from slot.
func GetBool(stateDB StateDB, addr common.Address, slot common.Hash) bool {
	val := stateDB.GetState(addr, slot)
	return val[31] != 0
}

// SetBool stores a flag in slot. false clears the slot.
func SetBool(stateDB StateDB, addr common.Address, slot common.Hash, value bool) {
	var val common.Hash
	if value {
		val[31] = 1
	}
	stateDB.SetState(addr, slot, val)
}
