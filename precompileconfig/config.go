// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the configuration contract every module
// config satisfies.
package precompileconfig

import "math/big"

// Config is the json-decoded configuration of a single module.
type Config interface {
	// Key returns the json key the config is stored under.
	Key() string
	// Timestamp is the activation time, nil when active from genesis.
	Timestamp() *uint64
	IsDisabled() bool
	Equal(Config) bool
	// Verify checks the config is internally consistent for chainConfig.
	Verify(chainConfig ChainConfig) error
}

// ChainConfig exposes the chain parameters a config may depend on.
type ChainConfig interface {
	ChainID() *big.Int
}

// Upgrade holds activation parameters shared by every module config.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the activation timestamp.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal reports whether both upgrades activate identically.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	switch {
	case u.BlockTimestamp == nil && other.BlockTimestamp == nil:
		return true
	case u.BlockTimestamp == nil || other.BlockTimestamp == nil:
		return false
	default:
		return *u.BlockTimestamp == *other.BlockTimestamp
	}
}
