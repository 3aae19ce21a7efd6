// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func withCleanRegistry(t *testing.T) {
	saved := registeredModules
	registeredModules = make([]Module, 0)
	t.Cleanup(func() { registeredModules = saved })
}

func TestReservedAddress(t *testing.T) {
	require.True(t, ReservedAddress(common.HexToAddress("0x0000000000000000000000000000000000009000")))
	require.True(t, ReservedAddress(common.HexToAddress("0x0000000000000000000000000000000000009fff")))
	require.False(t, ReservedAddress(common.HexToAddress("0x000000000000000000000000000000000000a000")))
	require.False(t, ReservedAddress(common.Address{}))
}

func TestRegisterModuleOrdering(t *testing.T) {
	withCleanRegistry(t)

	high := Module{ConfigKey: "high", Address: common.HexToAddress("0x0000000000000000000000000000000000009093")}
	low := Module{ConfigKey: "low", Address: common.HexToAddress("0x0000000000000000000000000000000000009090")}

	require.NoError(t, RegisterModule(high))
	require.NoError(t, RegisterModule(low))

	mods := RegisteredModules()
	require.Len(t, mods, 2)
	require.Equal(t, "low", mods[0].ConfigKey)
	require.Equal(t, "high", mods[1].ConfigKey)

	got, ok := GetPrecompileModule("high")
	require.True(t, ok)
	require.Equal(t, high.Address, got.Address)

	got, ok = GetPrecompileModuleByAddress(low.Address)
	require.True(t, ok)
	require.Equal(t, "low", got.ConfigKey)
}

func TestRegisterModuleRejects(t *testing.T) {
	withCleanRegistry(t)

	addr := common.HexToAddress("0x0000000000000000000000000000000000009090")
	require.NoError(t, RegisterModule(Module{ConfigKey: "a", Address: addr}))

	require.ErrorContains(t, RegisterModule(Module{ConfigKey: "a", Address: common.HexToAddress("0x0000000000000000000000000000000000009091")}), "already used")
	require.ErrorContains(t, RegisterModule(Module{ConfigKey: "b", Address: addr}), "already used")
	require.ErrorContains(t, RegisterModule(Module{ConfigKey: "c", Address: common.HexToAddress("0x1234")}), "not in a reserved range")
	require.ErrorContains(t, RegisterModule(Module{ConfigKey: "d", Address: BlackholeAddr}), "blackhole")
}
