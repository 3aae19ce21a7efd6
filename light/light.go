// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package light

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/erc20"
	"github.com/luxfi/lightswap/nonce"
)

// FeeDivisor is the denominator of the protocol fee rate.
const FeeDivisor = 10_000

var (
	ErrExpiryPassed     = errors.New("expiry passed")
	ErrChainIDChanged   = errors.New("chain id changed")
	ErrNonceTooLow      = errors.New("nonce too low")
	ErrNonceAlreadyUsed = errors.New("nonce already used")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidFeeWallet = errors.New("invalid fee wallet")
	ErrInvalidFee       = errors.New("invalid fee")
	ErrInvalidSigner    = errors.New("invalid signer")
	ErrNotOwner         = errors.New("caller is not the owner")
)

// Storage slots
var (
	ownerSlot           = contract.StorageKey("owner")
	protocolFeeSlot     = contract.StorageKey("protocolFee")
	feeWalletSlot       = contract.StorageKey("protocolFeeWallet")
	chainIDSlot         = contract.StorageKey("chainId")
	domainSeparatorSlot = contract.StorageKey("domainSeparator")
)

func delegateSlot(wallet common.Address) common.Hash {
	return contract.StorageKey("authorized", wallet.Bytes())
}

var ledger = nonce.New(Address)

// Owner returns the account that may change fee settings.
func Owner(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, ownerSlot)
}

// ProtocolFee returns the fee rate in units of 1/FeeDivisor.
func ProtocolFee(stateDB contract.StateDB) *uint256.Int {
	return contract.GetUint256(stateDB, Address, protocolFeeSlot)
}

// ProtocolFeeWallet returns the account that collects fees.
func ProtocolFeeWallet(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, feeWalletSlot)
}

// CapturedChainID returns the chain id the domain separator was built for.
func CapturedChainID(stateDB contract.StateDB) *big.Int {
	return contract.GetUint256(stateDB, Address, chainIDSlot).ToBig()
}

// StoredDomainSeparator returns the separator computed at configuration.
func StoredDomainSeparator(stateDB contract.StateDB) common.Hash {
	return stateDB.GetState(Address, domainSeparatorSlot)
}

// Authorized returns the signer wallet has delegated to, if any.
func Authorized(stateDB contract.StateDB, wallet common.Address) common.Address {
	return contract.GetAddress(stateDB, Address, delegateSlot(wallet))
}

// NonceUsed reports whether signer has consumed n, individually or by
// raising its minimum nonce above it.
func NonceUsed(stateDB contract.StateDB, signer common.Address, n *uint256.Int) bool {
	return n.Lt(ledger.MinimumNonce(stateDB, signer)) || ledger.IsUsed(stateDB, signer, n)
}

// SignerMinimumNonce returns the lowest nonce signer may still settle.
func SignerMinimumNonce(stateDB contract.StateDB, signer common.Address) *uint256.Int {
	return ledger.MinimumNonce(stateDB, signer)
}

// Swap settles order on behalf of sender, delivering the signer's tokens
// to recipient. Any failure leaves the caller to revert every write.
func Swap(
	accessibleState contract.AccessibleState,
	sender common.Address,
	recipient common.Address,
	order *Order,
	sig Signature,
) error {
	stateDB := accessibleState.GetStateDB()
	now := accessibleState.GetBlockContext().Timestamp()

	if !order.Expiry.GtUint64(now) {
		return fmt.Errorf("%w: expiry %s, now %d", ErrExpiryPassed, order.Expiry, now)
	}
	if captured, current := CapturedChainID(stateDB), accessibleState.GetChainID(); captured.Cmp(current) != 0 {
		return fmt.Errorf("%w: configured for %s, running on %s", ErrChainIDChanged, captured, current)
	}

	order.SenderWallet = sender
	fee := ProtocolFee(stateDB)
	signer, err := RecoverSigner(HashOrder(StoredDomainSeparator(stateDB), order, fee), sig)
	if err != nil {
		return err
	}

	if minimum := ledger.MinimumNonce(stateDB, signer); order.Nonce.Lt(minimum) {
		return fmt.Errorf("%w: %s below %s for %s", ErrNonceTooLow, order.Nonce, minimum, signer)
	}
	if !ledger.MarkUsed(stateDB, signer, order.Nonce) {
		return fmt.Errorf("%w: %s for %s", ErrNonceAlreadyUsed, order.Nonce, signer)
	}
	if order.SignerWallet != signer && Authorized(stateDB, order.SignerWallet) != signer {
		return fmt.Errorf("%w: %s may not sign for %s", ErrUnauthorized, signer, order.SignerWallet)
	}

	if err := erc20.TransferFrom(stateDB, order.SenderToken, Address, sender, order.SignerWallet, order.SenderAmount); err != nil {
		return fmt.Errorf("sender transfer: %w", err)
	}
	// the fee comes out of signerAmount, so the signer wallet never pays
	// more than it signed for
	feeAmount := CalculateProtocolFee(order.SignerAmount, fee)
	proceeds := new(uint256.Int).Sub(order.SignerAmount, feeAmount)
	if err := erc20.TransferFrom(stateDB, order.SignerToken, Address, order.SignerWallet, recipient, proceeds); err != nil {
		return fmt.Errorf("signer transfer: %w", err)
	}
	if !fee.IsZero() {
		if err := erc20.TransferFrom(stateDB, order.SignerToken, Address, order.SignerWallet, ProtocolFeeWallet(stateDB), feeAmount); err != nil {
			return fmt.Errorf("fee transfer: %w", err)
		}
	}

	return lightABI.EmitEvent(stateDB, Address, "Swap",
		order.Nonce.ToBig(),
		new(big.Int).SetUint64(now),
		order.SignerWallet,
		order.SignerToken,
		order.SignerAmount.ToBig(),
		fee.ToBig(),
		sender,
		order.SenderToken,
		order.SenderAmount.ToBig(),
	)
}

// CalculateProtocolFee returns floor(amount * rate / FeeDivisor).
func CalculateProtocolFee(amount, rate *uint256.Int) *uint256.Int {
	fee, _ := new(uint256.Int).MulDivOverflow(amount, rate, uint256.NewInt(FeeDivisor))
	return fee
}

// Authorize lets signer sign orders for wallet, replacing any prior delegate.
func Authorize(stateDB contract.StateDB, wallet, signer common.Address) error {
	if signer == (common.Address{}) {
		return ErrInvalidSigner
	}
	contract.SetAddress(stateDB, Address, delegateSlot(wallet), signer)
	return lightABI.EmitEvent(stateDB, Address, "Authorize", signer, wallet)
}

// Revoke clears wallet's delegate.
func Revoke(stateDB contract.StateDB, wallet common.Address) error {
	prev := Authorized(stateDB, wallet)
	contract.SetAddress(stateDB, Address, delegateSlot(wallet), common.Address{})
	return lightABI.EmitEvent(stateDB, Address, "Revoke", prev, wallet)
}

// Cancel consumes each nonce for signer. Nonces already used are skipped
// without an event.
func Cancel(stateDB contract.StateDB, signer common.Address, nonces []*uint256.Int) error {
	for _, n := range nonces {
		if !ledger.MarkUsed(stateDB, signer, n) {
			continue
		}
		if err := lightABI.EmitEvent(stateDB, Address, "Cancel", n.ToBig(), signer); err != nil {
			return err
		}
	}
	return nil
}

// CancelUpTo raises signer's minimum nonce. The minimum never decreases: a
// value at or below the current one changes nothing and emits nothing.
func CancelUpTo(stateDB contract.StateDB, signer common.Address, minimumNonce *uint256.Int) error {
	if !ledger.RaiseMinimumNonce(stateDB, signer, minimumNonce) {
		return nil
	}
	return lightABI.EmitEvent(stateDB, Address, "CancelUpTo", minimumNonce.ToBig(), signer)
}

// SetProtocolFee updates the fee rate.
func SetProtocolFee(stateDB contract.StateDB, caller common.Address, rate *uint256.Int) error {
	if caller != Owner(stateDB) {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	if !rate.LtUint64(FeeDivisor) {
		return fmt.Errorf("%w: %s not below %d", ErrInvalidFee, rate, FeeDivisor)
	}
	contract.SetUint256(stateDB, Address, protocolFeeSlot, rate)
	return lightABI.EmitEvent(stateDB, Address, "SetProtocolFee", rate.ToBig())
}

// SetProtocolFeeWallet updates the fee collector.
func SetProtocolFeeWallet(stateDB contract.StateDB, caller, wallet common.Address) error {
	if caller != Owner(stateDB) {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	if wallet == (common.Address{}) {
		return ErrInvalidFeeWallet
	}
	contract.SetAddress(stateDB, Address, feeWalletSlot, wallet)
	return lightABI.EmitEvent(stateDB, Address, "SetProtocolFeeWallet", wallet)
}
