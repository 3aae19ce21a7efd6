// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lightswap/allowlist"
	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/erc20"
)

var (
	ErrLocatorNotWhitelisted = errors.New("locator not whitelisted")
	ErrPairIsBlacklisted     = errors.New("pair is blacklisted")
	ErrIndexDoesNotExist     = errors.New("index does not exist")
	ErrLocatorDoesNotExist   = errors.New("locator does not exist")
	ErrUnableToStake         = errors.New("unable to stake")
	ErrNotOwner              = errors.New("caller is not the owner")
	ErrReservedStaker        = errors.New("reserved staker address")
)

// Storage slots
var (
	ownerSlot        = contract.StorageKey("owner")
	stakingTokenSlot = contract.StorageKey("stakingToken")
	whitelistSlot    = contract.StorageKey("locatorWhitelist")
)

func blacklistSlot(token common.Address) common.Hash {
	return contract.StorageKey("blacklist", token.Bytes())
}

func createdSlot(id common.Hash) common.Hash {
	return contract.StorageKey("created", id.Bytes())
}

// Owner returns the account that may edit the blacklist.
func Owner(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, ownerSlot)
}

// StakingToken returns the token intents are staked in.
func StakingToken(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, stakingTokenSlot)
}

// LocatorWhitelist returns the allow-list consulted by SetIntent, or the
// zero address when locators are not restricted.
func LocatorWhitelist(stateDB contract.StateDB) common.Address {
	return contract.GetAddress(stateDB, Address, whitelistSlot)
}

// IsBlacklisted reports whether token is blacklisted.
func IsBlacklisted(stateDB contract.StateDB, token common.Address) bool {
	return contract.GetBool(stateDB, Address, blacklistSlot(token))
}

// IndexExists reports whether the pair's index was created.
func IndexExists(stateDB contract.StateDB, signerToken, senderToken common.Address) bool {
	return contract.GetBool(stateDB, Address, createdSlot(IndexID(signerToken, senderToken)))
}

// CreateIndex creates the pair's index unless it exists and returns its id.
func CreateIndex(stateDB contract.StateDB, signerToken, senderToken common.Address) (common.Hash, error) {
	id := IndexID(signerToken, senderToken)
	if contract.GetBool(stateDB, Address, createdSlot(id)) {
		return id, nil
	}
	contract.SetBool(stateDB, Address, createdSlot(id), true)
	return id, indexerABI.EmitEvent(stateDB, Address, "CreateIndex", signerToken, senderToken, id)
}

// SetBlacklisted moves tokens into or out of the blacklist. Only tokens
// whose membership changes are announced.
func SetBlacklisted(stateDB contract.StateDB, caller common.Address, tokens []common.Address, blacklisted bool) error {
	if caller != Owner(stateDB) {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	event := "RemoveTokenFromBlacklist"
	if blacklisted {
		event = "AddTokenToBlacklist"
	}
	for _, token := range tokens {
		if IsBlacklisted(stateDB, token) == blacklisted {
			continue
		}
		contract.SetBool(stateDB, Address, blacklistSlot(token), blacklisted)
		if err := indexerABI.EmitEvent(stateDB, Address, event, token); err != nil {
			return err
		}
	}
	return nil
}

// SetLocatorWhitelist points SetIntent at a new allow-list. The zero
// address lifts the restriction.
func SetLocatorWhitelist(stateDB contract.StateDB, caller, whitelist common.Address) error {
	if caller != Owner(stateDB) {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}
	contract.SetAddress(stateDB, Address, whitelistSlot, whitelist)
	return indexerABI.EmitEvent(stateDB, Address, "SetLocatorWhitelist", whitelist)
}

// SetIntent stakes amount on the pair and advertises locator for user.
// Re-staking an existing intent moves only the difference between the old
// and new stake.
func SetIntent(stateDB contract.StateDB, user, signerToken, senderToken common.Address, amount *uint256.Int, locator [32]byte) error {
	if user == Head || user == (common.Address{}) {
		return fmt.Errorf("%w: %s", ErrReservedStaker, user)
	}
	if whitelist := LocatorWhitelist(stateDB); whitelist != (common.Address{}) && !allowlist.IsAllowed(stateDB, whitelist, locator) {
		return fmt.Errorf("%w: %x", ErrLocatorNotWhitelisted, locator)
	}
	if IsBlacklisted(stateDB, signerToken) || IsBlacklisted(stateDB, senderToken) {
		return fmt.Errorf("%w: %s/%s", ErrPairIsBlacklisted, signerToken, senderToken)
	}
	if !IndexExists(stateDB, signerToken, senderToken) {
		return fmt.Errorf("%w: %s/%s", ErrIndexDoesNotExist, signerToken, senderToken)
	}

	index := OpenIndex(stateDB, IndexID(signerToken, senderToken))
	staked := index.GetScore(user)
	stakingToken := StakingToken(stateDB)
	switch {
	case amount.Gt(staked):
		delta := new(uint256.Int).Sub(amount, staked)
		if err := erc20.TransferFrom(stateDB, stakingToken, Address, user, Address, delta); err != nil {
			return fmt.Errorf("%w: %w", ErrUnableToStake, err)
		}
	case amount.Lt(staked):
		delta := new(uint256.Int).Sub(staked, amount)
		if err := erc20.Transfer(stateDB, stakingToken, Address, user, delta); err != nil {
			return fmt.Errorf("refunding stake: %w", err)
		}
	}
	if err := indexerABI.EmitEvent(stateDB, Address, "Stake", user, signerToken, senderToken, amount.ToBig()); err != nil {
		return err
	}

	index.SetLocator(user, amount, locator)
	return indexerABI.EmitEvent(stateDB, Address, "SetLocator", user, index.ID(), amount.ToBig(), locator)
}

// UnsetIntent removes user's intent from the pair and refunds its stake.
// It works on blacklisted pairs so stake is never stranded.
func UnsetIntent(stateDB contract.StateDB, user, signerToken, senderToken common.Address) error {
	if !IndexExists(stateDB, signerToken, senderToken) {
		return fmt.Errorf("%w: %s/%s", ErrIndexDoesNotExist, signerToken, senderToken)
	}
	index := OpenIndex(stateDB, IndexID(signerToken, senderToken))
	entry := index.GetLocator(user)
	if entry.User != user {
		return fmt.Errorf("%w: %s on %s/%s", ErrLocatorDoesNotExist, user, signerToken, senderToken)
	}

	index.UnsetLocator(user)
	if !entry.Score.IsZero() {
		if err := erc20.Transfer(stateDB, StakingToken(stateDB), Address, user, entry.Score); err != nil {
			return fmt.Errorf("refunding stake: %w", err)
		}
	}
	if err := indexerABI.EmitEvent(stateDB, Address, "Unstake", user, signerToken, senderToken, entry.Score.ToBig()); err != nil {
		return err
	}
	return indexerABI.EmitEvent(stateDB, Address, "UnsetLocator", user, index.ID())
}

// GetLocators pages through the pair's intents. Blacklisted or missing
// pairs read as empty.
func GetLocators(stateDB contract.StateDB, signerToken, senderToken, cursor common.Address, limit uint64) ([][32]byte, []*uint256.Int, common.Address) {
	if IsBlacklisted(stateDB, signerToken) || IsBlacklisted(stateDB, senderToken) ||
		!IndexExists(stateDB, signerToken, senderToken) {
		return [][32]byte{}, []*uint256.Int{}, common.Address{}
	}
	return OpenIndex(stateDB, IndexID(signerToken, senderToken)).FetchLocators(cursor, limit)
}

// GetStakedAmount returns what user has staked on the pair.
func GetStakedAmount(stateDB contract.StateDB, user, signerToken, senderToken common.Address) *uint256.Int {
	if !IndexExists(stateDB, signerToken, senderToken) {
		return new(uint256.Int)
	}
	return OpenIndex(stateDB, IndexID(signerToken, senderToken)).GetScore(user)
}
