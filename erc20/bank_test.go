// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package erc20

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/contract/contracttest"
)

var (
	tokenX = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	minter = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func newBank(t *testing.T) *contracttest.Env {
	t.Helper()
	env := contracttest.NewEnv(1_700_000_000, 1)
	cfg := &Config{Minter: minter}
	require.NoError(t, cfg.Verify(env))
	require.NoError(t, Module.Configure(env, cfg, env.State, env))
	return env
}

func TestTransfer(t *testing.T) {
	require := require.New(t)
	env := newBank(t)
	require.NoError(Mint(env.State, tokenX, alice, uint256.NewInt(100)))

	require.NoError(Transfer(env.State, tokenX, alice, bob, uint256.NewInt(40)))
	require.Equal(uint256.NewInt(60), BalanceOf(env.State, tokenX, alice))
	require.Equal(uint256.NewInt(40), BalanceOf(env.State, tokenX, bob))

	err := Transfer(env.State, tokenX, alice, bob, uint256.NewInt(61))
	require.ErrorIs(err, ErrInsufficientBalance)

	err = Transfer(env.State, tokenX, alice, common.Address{}, uint256.NewInt(1))
	require.ErrorIs(err, ErrZeroAddress)
}

func TestSelfTransferKeepsBalance(t *testing.T) {
	require := require.New(t)
	env := newBank(t)
	require.NoError(Mint(env.State, tokenX, alice, uint256.NewInt(5)))

	require.NoError(Transfer(env.State, tokenX, alice, alice, uint256.NewInt(5)))
	require.Equal(uint256.NewInt(5), BalanceOf(env.State, tokenX, alice))
}

func TestTransferFromConsumesAllowance(t *testing.T) {
	require := require.New(t)
	env := newBank(t)
	require.NoError(Mint(env.State, tokenX, alice, uint256.NewInt(100)))
	require.NoError(Approve(env.State, tokenX, alice, bob, uint256.NewInt(30)))

	require.NoError(TransferFrom(env.State, tokenX, bob, alice, bob, uint256.NewInt(20)))
	require.Equal(uint256.NewInt(10), Allowance(env.State, tokenX, alice, bob))

	err := TransferFrom(env.State, tokenX, bob, alice, bob, uint256.NewInt(11))
	require.ErrorIs(err, ErrInsufficientAllowance)
}

func TestUnlimitedAllowance(t *testing.T) {
	require := require.New(t)
	env := newBank(t)
	require.NoError(Mint(env.State, tokenX, alice, uint256.NewInt(100)))
	require.NoError(Approve(env.State, tokenX, alice, bob, maxUint256))

	require.NoError(TransferFrom(env.State, tokenX, bob, alice, bob, uint256.NewInt(100)))
	require.Equal(maxUint256, Allowance(env.State, tokenX, alice, bob))
}

func TestTokensAreIsolated(t *testing.T) {
	require := require.New(t)
	env := newBank(t)
	tokenY := common.HexToAddress("0x00000000000000000000000000000000000000f2")
	require.NoError(Mint(env.State, tokenX, alice, uint256.NewInt(100)))

	require.True(BalanceOf(env.State, tokenY, alice).IsZero())
	require.ErrorIs(Transfer(env.State, tokenY, alice, bob, uint256.NewInt(1)), ErrInsufficientBalance)
}

func TestRunTransferAndViews(t *testing.T) {
	require := require.New(t)
	env := newBank(t)

	input, err := bankABI.Pack("mint", tokenX, alice, big.NewInt(50))
	require.NoError(err)
	_, err = env.Call(Precompile, minter, Address, input)
	require.NoError(err)

	input, err = bankABI.Pack("transfer", tokenX, bob, big.NewInt(20))
	require.NoError(err)
	ret, err := env.Call(Precompile, alice, Address, input)
	require.NoError(err)
	out, err := bankABI.Unpack("transfer", ret)
	require.NoError(err)
	require.Equal(true, out[0])

	input, err = bankABI.Pack("balanceOf", tokenX, bob)
	require.NoError(err)
	ret, err = env.StaticCall(Precompile, alice, Address, input)
	require.NoError(err)
	out, err = bankABI.Unpack("balanceOf", ret)
	require.NoError(err)
	require.Equal(big.NewInt(20), out[0])

	// Mint, Transfer
	logs := env.State.Logs()
	require.Len(logs, 2)
	require.Equal(bankABI.Events["Transfer"].ID, logs[1].Topics[0])
}

func TestRunRejects(t *testing.T) {
	require := require.New(t)
	env := newBank(t)

	input, err := bankABI.Pack("mint", tokenX, alice, big.NewInt(50))
	require.NoError(err)
	_, err = env.Call(Precompile, alice, Address, input)
	require.ErrorIs(err, ErrNotMinter)

	_, err = env.StaticCall(Precompile, minter, Address, input)
	require.ErrorIs(err, contract.ErrWriteProtection)

	input, err = bankABI.Pack("transfer", tokenX, bob, big.NewInt(1))
	require.NoError(err)
	_, _, err = Precompile.Run(env, alice, Address, input, GasTransfer-1, false)
	require.ErrorIs(err, contract.ErrOutOfGas)

	_, err = env.Call(Precompile, alice, Address, input)
	require.ErrorIs(err, ErrInsufficientBalance)
	require.Empty(env.State.Logs())
}

func TestConfigVerify(t *testing.T) {
	require := require.New(t)

	require.ErrorIs((&Config{}).Verify(nil), errNoMinter)
	require.True((&Config{Minter: minter}).Equal(&Config{Minter: minter}))
	require.False((&Config{Minter: minter}).Equal(&Config{Minter: alice}))
}
