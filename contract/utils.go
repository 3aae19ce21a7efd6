// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contract

import (
	"errors"
	"fmt"
)

// SelectorLen is the length of an ABI function selector.
const SelectorLen = 4

var (
	ErrOutOfGas        = errors.New("out of gas")
	ErrWriteProtection = errors.New("write protection")
	ErrInputTooShort   = errors.New("input too short")
)

// DeductGas subtracts cost from suppliedGas, failing when it does not cover it.
func DeductGas(suppliedGas uint64, cost uint64) (uint64, error) {
	if suppliedGas < cost {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrOutOfGas, cost, suppliedGas)
	}
	return suppliedGas - cost, nil
}

// SplitSelector separates the 4-byte method id from the packed arguments.
func SplitSelector(input []byte) ([]byte, []byte, error) {
	if len(input) < SelectorLen {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrInputTooShort, len(input))
	}
	return input[:SelectorLen], input[SelectorLen:], nil
}
