// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package light

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/contract"
)

// Gas costs
const (
	GasSwap         uint64 = 120_000 // recovery, nonce write, three transfers
	GasAuthorize    uint64 = 25_000
	GasRevoke       uint64 = 10_000
	GasCancel       uint64 = 22_000 // per nonce
	GasCancelUpTo   uint64 = 25_000
	GasSetFeeConfig uint64 = 25_000
	GasView         uint64 = 2_100
)

// ABI is the Light contract's calling surface.
const ABI = `[
	{"type":"function","name":"swap","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"nonce","type":"uint256"},
		{"name":"expiry","type":"uint256"},
		{"name":"signerWallet","type":"address"},
		{"name":"signerToken","type":"address"},
		{"name":"signerAmount","type":"uint256"},
		{"name":"senderToken","type":"address"},
		{"name":"senderAmount","type":"uint256"},
		{"name":"v","type":"uint8"},
		{"name":"r","type":"bytes32"},
		{"name":"s","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"authorize","stateMutability":"nonpayable",
	 "inputs":[{"name":"signer","type":"address"}],"outputs":[]},
	{"type":"function","name":"revoke","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"cancel","stateMutability":"nonpayable",
	 "inputs":[{"name":"nonces","type":"uint256[]"}],"outputs":[]},
	{"type":"function","name":"cancelUpTo","stateMutability":"nonpayable",
	 "inputs":[{"name":"minimumNonce","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setProtocolFee","stateMutability":"nonpayable",
	 "inputs":[{"name":"protocolFee","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setProtocolFeeWallet","stateMutability":"nonpayable",
	 "inputs":[{"name":"protocolFeeWallet","type":"address"}],"outputs":[]},
	{"type":"function","name":"nonceUsed","stateMutability":"view",
	 "inputs":[{"name":"signer","type":"address"},{"name":"nonce","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"authorized","stateMutability":"view",
	 "inputs":[{"name":"wallet","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"signerMinimumNonce","stateMutability":"view",
	 "inputs":[{"name":"signer","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"protocolFee","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"protocolFeeWallet","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"domainSeparator","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"owner","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"event","name":"Swap","anonymous":false,"inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"timestamp","type":"uint256","indexed":false},
		{"name":"signerWallet","type":"address","indexed":true},
		{"name":"signerToken","type":"address","indexed":false},
		{"name":"signerAmount","type":"uint256","indexed":false},
		{"name":"protocolFee","type":"uint256","indexed":false},
		{"name":"senderWallet","type":"address","indexed":true},
		{"name":"senderToken","type":"address","indexed":false},
		{"name":"senderAmount","type":"uint256","indexed":false}]},
	{"type":"event","name":"Cancel","anonymous":false,"inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"signerWallet","type":"address","indexed":true}]},
	{"type":"event","name":"CancelUpTo","anonymous":false,"inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"signerWallet","type":"address","indexed":true}]},
	{"type":"event","name":"Authorize","anonymous":false,"inputs":[
		{"name":"signer","type":"address","indexed":true},
		{"name":"signerWallet","type":"address","indexed":true}]},
	{"type":"event","name":"Revoke","anonymous":false,"inputs":[
		{"name":"signer","type":"address","indexed":true},
		{"name":"signerWallet","type":"address","indexed":true}]},
	{"type":"event","name":"SetProtocolFee","anonymous":false,"inputs":[
		{"name":"protocolFee","type":"uint256","indexed":false}]},
	{"type":"event","name":"SetProtocolFeeWallet","anonymous":false,"inputs":[
		{"name":"feeWallet","type":"address","indexed":true}]}
]`

var lightABI = contract.ParseABI(ABI)

// LightABI returns the parsed Light ABI.
func LightABI() contract.ExtendedABI {
	return lightABI
}

// Light is the signed-order settlement precompile.
type Light struct{}

var _ contract.StatefulPrecompiledContract = (*Light)(nil)

// Run executes the precompile
func (l *Light) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	method, args, err := lightABI.MethodFor(input)
	if err != nil {
		return nil, suppliedGas, err
	}
	in, err := lightABI.UnpackInput(method.Name, args, false)
	if err != nil {
		return nil, suppliedGas, err
	}
	stateDB := accessibleState.GetStateDB()

	if method.IsConstant() {
		if remainingGas, err = contract.DeductGas(suppliedGas, GasView); err != nil {
			return nil, 0, err
		}
		ret, err = l.view(stateDB, method.Name, in)
		return ret, remainingGas, err
	}

	cost := GasSwap
	switch method.Name {
	case "authorize":
		cost = GasAuthorize
	case "revoke":
		cost = GasRevoke
	case "cancel":
		cost = GasCancel * uint64(max(len(in[0].([]*big.Int)), 1))
	case "cancelUpTo":
		cost = GasCancelUpTo
	case "setProtocolFee", "setProtocolFeeWallet":
		cost = GasSetFeeConfig
	}
	if remainingGas, err = contract.DeductGas(suppliedGas, cost); err != nil {
		return nil, 0, err
	}
	if readOnly {
		return nil, remainingGas, contract.ErrWriteProtection
	}

	switch method.Name {
	case "swap":
		order, recipient, sig := decodeSwap(in)
		err = Swap(accessibleState, caller, recipient, order, sig)
	case "authorize":
		err = Authorize(stateDB, caller, in[0].(common.Address))
	case "revoke":
		err = Revoke(stateDB, caller)
	case "cancel":
		raw := in[0].([]*big.Int)
		nonces := make([]*uint256.Int, len(raw))
		for i, n := range raw {
			nonces[i] = uint256.MustFromBig(n)
		}
		err = Cancel(stateDB, caller, nonces)
	case "cancelUpTo":
		err = CancelUpTo(stateDB, caller, contract.Uint256Arg(in[0]))
	case "setProtocolFee":
		err = SetProtocolFee(stateDB, caller, contract.Uint256Arg(in[0]))
	case "setProtocolFeeWallet":
		err = SetProtocolFeeWallet(stateDB, caller, in[0].(common.Address))
	default:
		err = fmt.Errorf("unsupported method %s", method.Name)
	}
	return nil, remainingGas, err
}

func (l *Light) view(stateDB contract.StateDB, name string, in []interface{}) ([]byte, error) {
	switch name {
	case "nonceUsed":
		return lightABI.PackOutput(name, NonceUsed(stateDB, in[0].(common.Address), contract.Uint256Arg(in[1])))
	case "authorized":
		return lightABI.PackOutput(name, Authorized(stateDB, in[0].(common.Address)))
	case "signerMinimumNonce":
		return lightABI.PackOutput(name, SignerMinimumNonce(stateDB, in[0].(common.Address)).ToBig())
	case "protocolFee":
		return lightABI.PackOutput(name, ProtocolFee(stateDB).ToBig())
	case "protocolFeeWallet":
		return lightABI.PackOutput(name, ProtocolFeeWallet(stateDB))
	case "domainSeparator":
		return lightABI.PackOutput(name, [32]byte(StoredDomainSeparator(stateDB)))
	case "owner":
		return lightABI.PackOutput(name, Owner(stateDB))
	}
	return nil, fmt.Errorf("unsupported view %s", name)
}

func decodeSwap(in []interface{}) (*Order, common.Address, Signature) {
	order := &Order{
		Nonce:        contract.Uint256Arg(in[1]),
		Expiry:       contract.Uint256Arg(in[2]),
		SignerWallet: in[3].(common.Address),
		SignerToken:  in[4].(common.Address),
		SignerAmount: contract.Uint256Arg(in[5]),
		SenderToken:  in[6].(common.Address),
		SenderAmount: contract.Uint256Arg(in[7]),
	}
	sig := Signature{
		V: in[8].(uint8),
		R: in[9].([32]byte),
		S: in[10].([32]byte),
	}
	return order, in[0].(common.Address), sig
}

// PackSwap encodes a swap call for order signed with sig.
func PackSwap(recipient common.Address, order *Order, sig Signature) ([]byte, error) {
	return lightABI.Pack("swap",
		recipient,
		order.Nonce.ToBig(),
		order.Expiry.ToBig(),
		order.SignerWallet,
		order.SignerToken,
		order.SignerAmount.ToBig(),
		order.SenderToken,
		order.SenderAmount.ToBig(),
		sig.V,
		sig.R,
		sig.S,
	)
}
