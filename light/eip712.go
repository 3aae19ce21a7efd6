// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package light

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/geth/common"
)

// Typed-data schema. The strings are hashed verbatim; any change breaks
// every signature issued against the old schema.
const (
	DomainName    = "SWAP_LIGHT"
	DomainVersion = "3"

	domainType = "EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"
	orderType  = "LightOrder(uint256 nonce,uint256 expiry,address signerWallet,address signerToken," +
		"uint256 signerAmount,uint256 protocolFee,address senderWallet,address senderToken,uint256 senderAmount)"
)

var (
	domainTypeHash    = common.BytesToHash(crypto.Keccak256([]byte(domainType)))
	orderTypeHash     = common.BytesToHash(crypto.Keccak256([]byte(orderType)))
	domainNameHash    = common.BytesToHash(crypto.Keccak256([]byte(DomainName)))
	domainVersionHash = common.BytesToHash(crypto.Keccak256([]byte(DomainVersion)))

	// secp256k1 group order divided by two; larger s values are malleable.
	secp256k1HalfN = uint256.MustFromHex("0x7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a0")
)

// Order is a signed offer to trade signerAmount of signerToken for
// senderAmount of senderToken. It lives for one settlement call.
type Order struct {
	Nonce        *uint256.Int
	Expiry       *uint256.Int
	SignerWallet common.Address
	SignerToken  common.Address
	SignerAmount *uint256.Int
	SenderWallet common.Address
	SenderToken  common.Address
	SenderAmount *uint256.Int
}

// Signature is a detached secp256k1 signature. V is 27 or 28.
type Signature struct {
	V uint8
	R [32]byte
	S [32]byte
}

// DomainSeparator binds signatures to one chain and one contract.
func DomainSeparator(chainID *big.Int, verifyingContract common.Address) common.Hash {
	chain, overflow := uint256.FromBig(chainID)
	if overflow {
		panic(fmt.Sprintf("chain id %s overflows uint256", chainID))
	}
	return common.BytesToHash(crypto.Keccak256(
		domainTypeHash.Bytes(),
		domainNameHash.Bytes(),
		domainVersionHash.Bytes(),
		word(chain),
		addressWord(verifyingContract),
	))
}

// HashOrder returns the EIP-712 digest a signer signs for order when the
// contract charges protocolFee.
func HashOrder(domainSeparator common.Hash, order *Order, protocolFee *uint256.Int) common.Hash {
	structHash := crypto.Keccak256(
		orderTypeHash.Bytes(),
		word(order.Nonce),
		word(order.Expiry),
		addressWord(order.SignerWallet),
		addressWord(order.SignerToken),
		word(order.SignerAmount),
		word(protocolFee),
		addressWord(order.SenderWallet),
		addressWord(order.SenderToken),
		word(order.SenderAmount),
	)
	return common.BytesToHash(crypto.Keccak256([]byte{0x19, 0x01}, domainSeparator.Bytes(), structHash))
}

// SignOrder signs order with key. Clients and tests use it to produce
// signatures the contract accepts.
func SignOrder(key *ecdsa.PrivateKey, domainSeparator common.Hash, order *Order, protocolFee *uint256.Int) (Signature, error) {
	digest := HashOrder(domainSeparator, order, protocolFee)
	raw, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return Signature{}, fmt.Errorf("signing order %s: %w", order.Nonce, err)
	}
	var sig Signature
	copy(sig.R[:], raw[:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64] + 27
	return sig, nil
}

// RecoverSigner returns the address that produced sig over digest.
func RecoverSigner(digest common.Hash, sig Signature) (common.Address, error) {
	v := sig.V
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return common.Address{}, fmt.Errorf("%w: v=%d", ErrInvalidSignature, sig.V)
	}
	s := new(uint256.Int).SetBytes32(sig.S[:])
	if s.IsZero() || s.Gt(secp256k1HalfN) {
		return common.Address{}, fmt.Errorf("%w: s out of range", ErrInvalidSignature)
	}
	if new(uint256.Int).SetBytes32(sig.R[:]).IsZero() {
		return common.Address{}, fmt.Errorf("%w: r is zero", ErrInvalidSignature)
	}

	raw := make([]byte, 65)
	copy(raw[:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = v
	pub, err := crypto.Ecrecover(digest.Bytes(), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	signer := pubkeyAddress(pub)
	if signer == (common.Address{}) {
		return common.Address{}, ErrInvalidSignature
	}
	return signer, nil
}

// pubkeyAddress derives an account address from an uncompressed public key.
func pubkeyAddress(pub []byte) common.Address {
	if len(pub) != 65 {
		return common.Address{}
	}
	return common.BytesToAddress(crypto.Keccak256(pub[1:])[12:])
}

// KeyAddress returns the account address of key.
func KeyAddress(key *ecdsa.PrivateKey) common.Address {
	return pubkeyAddress(crypto.FromECDSAPub(&key.PublicKey))
}

func word(v *uint256.Int) []byte {
	b := v.Bytes32()
	return b[:]
}

func addressWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}
