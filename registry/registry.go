// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"github.com/luxfi/geth/common"
)

// ============================================================================
// MARKET PRECOMPILE ADDRESSES - Aligned with LP Numbering
// ============================================================================
//
// Addresses are trailing-significant: 0x0000000000000000000000000000000000LPNUM
// The address ends with the LP number of the contract it hosts.
//
// LP-909x is the peer-to-peer RFQ block of the DEX/Markets page:
//   9090  Light       signed-order settlement
//   9091  Indexer     staked intent registry
//   9092  TokenBank   ERC-20 ledger used for settlement and staking
//   9093  AllowList   locator allow-list consulted by the Indexer

const (
	LightSwap        = "0x0000000000000000000000000000000000009090" // LP-9090 Light (signed-order settlement)
	Indexer          = "0x0000000000000000000000000000000000009091" // LP-9091 Indexer (staked intents)
	TokenBank        = "0x0000000000000000000000000000000000009092" // LP-9092 TokenBank (ERC-20 ledger)
	LocatorAllowList = "0x0000000000000000000000000000000000009093" // LP-9093 AllowList (locator whitelist)
)

// PrecompileInfo contains metadata about a precompile
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	LPRange     string
}

// AllPrecompiles lists the market precompiles
var AllPrecompiles = []PrecompileInfo{
	{LightSwap, "LIGHT", "Atomic settlement of signed RFQ orders", "LP-9090"},
	{Indexer, "INDEXER", "Staked trading intents per token pair", "LP-9091"},
	{TokenBank, "TOKEN_BANK", "Multi-token ERC-20 ledger", "LP-9092"},
	{LocatorAllowList, "ALLOW_LIST", "Locator allow-list", "LP-9093"},
}

// GetPrecompileAddress returns the address for a precompile by name
func GetPrecompileAddress(name string) common.Address {
	for _, p := range AllPrecompiles {
		if p.Name == name {
			return common.HexToAddress(p.Address)
		}
	}
	return common.Address{}
}

// NameOf returns the registered name of the precompile at addr.
func NameOf(addr common.Address) (string, bool) {
	for _, p := range AllPrecompiles {
		if common.HexToAddress(p.Address) == addr {
			return p.Name, true
		}
	}
	return "", false
}
