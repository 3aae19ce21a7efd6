// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package indexer

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lightswap/allowlist"
	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/contract/contracttest"
	"github.com/luxfi/lightswap/erc20"
)

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	minter     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob        = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	stakeToken = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	tokenX     = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	tokenY     = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	tokenZ     = common.HexToAddress("0x00000000000000000000000000000000000000f3")

	aliceLoc = common.HexToHash("0xa11ce")
	bobLoc   = common.HexToHash("0xb0b")
)

type fixture struct {
	env *contracttest.Env
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	require := require.New(t)
	env := contracttest.NewEnv(1_700_000_000, 1)

	require.NoError(erc20.Module.Configure(env, &erc20.Config{Minter: minter}, env.State, env))
	require.NoError(allowlist.Module.Configure(env, &allowlist.Config{Owner: owner, Locators: []common.Hash{aliceLoc}}, env.State, env))
	cfg := &Config{Owner: owner, StakingToken: stakeToken}
	require.NoError(cfg.Verify(env))
	require.NoError(Module.Configure(env, cfg, env.State, env))

	unlimited := new(uint256.Int).SetAllOne()
	for _, u := range []common.Address{alice, bob} {
		require.NoError(erc20.Mint(env.State, stakeToken, u, uint256.NewInt(1_000)))
		require.NoError(erc20.Approve(env.State, stakeToken, u, Address, unlimited))
	}
	require.NoError(env.State.Commit())
	return &fixture{env: env}
}

func (f *fixture) call(t *testing.T, caller common.Address, method string, args ...interface{}) error {
	t.Helper()
	input, err := indexerABI.Pack(method, args...)
	require.NoError(t, err)
	_, err = f.env.Call(Precompile, caller, Address, input)
	return err
}

func (f *fixture) setIntent(t *testing.T, caller, signerToken, senderToken common.Address, amount int64, locator common.Hash) error {
	t.Helper()
	return f.call(t, caller, "setIntent", signerToken, senderToken, big.NewInt(amount), [32]byte(locator))
}

func (f *fixture) locators(t *testing.T, signerToken, senderToken common.Address) [][32]byte {
	t.Helper()
	input, err := indexerABI.Pack("getLocators", signerToken, senderToken, common.Address{}, big.NewInt(10))
	require.NoError(t, err)
	ret, err := f.env.StaticCall(Precompile, alice, Address, input)
	require.NoError(t, err)
	out, err := indexerABI.Unpack("getLocators", ret)
	require.NoError(t, err)
	return out[0].([][32]byte)
}

func (f *fixture) stakeBalance(u common.Address) uint64 {
	return erc20.BalanceOf(f.env.State, stakeToken, u).Uint64()
}

func TestHigherStakeListedFirst(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))

	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 50, aliceLoc))
	require.NoError(f.setIntent(t, bob, tokenX, tokenY, 200, bobLoc))

	require.Equal([][32]byte{bobLoc, aliceLoc}, f.locators(t, tokenX, tokenY))
	require.Equal(uint64(250), f.stakeBalance(Address))
}

func TestIntentRoundTripRefundsStake(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))

	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 100, aliceLoc))
	require.Contains(f.locators(t, tokenX, tokenY), [32]byte(aliceLoc))
	before := f.stakeBalance(alice)

	require.NoError(f.call(t, alice, "unsetIntent", tokenX, tokenY))
	require.NotContains(f.locators(t, tokenX, tokenY), [32]byte(aliceLoc))
	require.Equal(before+100, f.stakeBalance(alice))

	logs := f.env.State.Logs()
	unstake := logs[len(logs)-2]
	require.Equal(indexerABI.Events["Unstake"].ID, unstake.Topics[0])
	fields, err := indexerABI.Unpack("Unstake", unstake.Data)
	require.NoError(err)
	require.Equal(big.NewInt(100), fields[0])
}

func TestBlacklistHidesIntents(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))
	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 100, aliceLoc))

	require.NoError(f.call(t, owner, "addTokensToBlacklist", []common.Address{tokenY}))
	require.Empty(f.locators(t, tokenX, tokenY))
	require.Equal(uint64(1), OpenIndex(f.env.State, IndexID(tokenX, tokenY)).Length())
	require.ErrorIs(f.setIntent(t, bob, tokenX, tokenY, 10, bobLoc), ErrPairIsBlacklisted)

	require.NoError(f.call(t, owner, "removeTokensFromBlacklist", []common.Address{tokenY}))
	require.Equal([][32]byte{aliceLoc}, f.locators(t, tokenX, tokenY))

	// unstaking is allowed while blacklisted
	require.NoError(f.call(t, owner, "addTokensToBlacklist", []common.Address{tokenX}))
	require.NoError(f.call(t, alice, "unsetIntent", tokenX, tokenY))
	require.Equal(uint64(1_000), f.stakeBalance(alice))
}

func TestBlacklistEventsOnlyOnChange(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.NoError(f.call(t, owner, "addTokensToBlacklist", []common.Address{tokenX, tokenY}))
	require.Len(f.env.State.Logs(), 2)
	require.NoError(f.call(t, owner, "addTokensToBlacklist", []common.Address{tokenY, tokenZ}))
	require.Len(f.env.State.Logs(), 3)
	require.NoError(f.call(t, owner, "removeTokensFromBlacklist", []common.Address{tokenZ, tokenZ}))
	require.Len(f.env.State.Logs(), 4)

	require.ErrorIs(f.call(t, alice, "addTokensToBlacklist", []common.Address{tokenZ}), ErrNotOwner)
	require.False(IsBlacklisted(f.env.State, tokenZ))
}

func TestCreateIndexIsIdempotent(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	first, err := CreateIndex(f.env.State, tokenX, tokenY)
	require.NoError(err)
	second, err := CreateIndex(f.env.State, tokenX, tokenY)
	require.NoError(err)
	require.Equal(first, second)
	require.Len(f.env.State.Logs(), 1)

	// pairs are ordered
	require.False(IndexExists(f.env.State, tokenY, tokenX))
	require.NotEqual(first, IndexID(tokenY, tokenX))
}

func TestIntentErrors(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	require.ErrorIs(f.setIntent(t, alice, tokenX, tokenY, 10, aliceLoc), ErrIndexDoesNotExist)
	require.ErrorIs(f.call(t, alice, "unsetIntent", tokenX, tokenY), ErrIndexDoesNotExist)

	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))
	require.ErrorIs(f.call(t, alice, "unsetIntent", tokenX, tokenY), ErrLocatorDoesNotExist)

	err := f.setIntent(t, alice, tokenX, tokenY, 5_000, aliceLoc)
	require.ErrorIs(err, ErrUnableToStake)
	require.ErrorIs(err, erc20.ErrInsufficientBalance)
	require.Empty(f.locators(t, tokenX, tokenY))
	require.Equal(uint64(1_000), f.stakeBalance(alice))

	require.ErrorIs(SetIntent(f.env.State, Head, tokenX, tokenY, uint256.NewInt(1), aliceLoc), ErrReservedStaker)
	require.ErrorIs(SetIntent(f.env.State, common.Address{}, tokenX, tokenY, uint256.NewInt(1), aliceLoc), ErrReservedStaker)
	require.Zero(OpenIndex(f.env.State, IndexID(tokenX, tokenY)).Length())
}

func TestLocatorWhitelist(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))

	require.ErrorIs(f.call(t, alice, "setLocatorWhitelist", allowlist.Address), ErrNotOwner)
	require.NoError(f.call(t, owner, "setLocatorWhitelist", allowlist.Address))
	require.Equal(allowlist.Address, LocatorWhitelist(f.env.State))

	require.ErrorIs(f.setIntent(t, bob, tokenX, tokenY, 10, bobLoc), ErrLocatorNotWhitelisted)
	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 10, aliceLoc))

	require.NoError(f.call(t, owner, "setLocatorWhitelist", common.Address{}))
	require.NoError(f.setIntent(t, bob, tokenX, tokenY, 10, bobLoc))
}

func TestRestakeMovesDifference(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))

	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 100, aliceLoc))
	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 150, aliceLoc))
	require.Equal(uint64(850), f.stakeBalance(alice))

	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 30, aliceLoc))
	require.Equal(uint64(970), f.stakeBalance(alice))
	require.Equal(uint256.NewInt(30), GetStakedAmount(f.env.State, alice, tokenX, tokenY))

	// a zero stake still lists the intent and still announces the stake
	require.NoError(f.env.State.Commit())
	require.NoError(f.setIntent(t, bob, tokenX, tokenY, 0, bobLoc))
	require.Equal([][32]byte{aliceLoc, bobLoc}, f.locators(t, tokenX, tokenY))
	logs := f.env.State.Logs()
	require.Len(logs, 2)
	require.Equal(indexerABI.Events["Stake"].ID, logs[0].Topics[0])
	require.Equal(indexerABI.Events["SetLocator"].ID, logs[1].Topics[0])
}

func TestGetLocatorsPaging(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	require.NoError(f.call(t, alice, "createIndex", tokenX, tokenY))
	require.NoError(f.setIntent(t, alice, tokenX, tokenY, 50, aliceLoc))
	require.NoError(f.setIntent(t, bob, tokenX, tokenY, 200, bobLoc))

	input, err := indexerABI.Pack("getLocators", tokenX, tokenY, common.Address{}, big.NewInt(1))
	require.NoError(err)
	ret, err := f.env.StaticCall(Precompile, alice, Address, input)
	require.NoError(err)
	out, err := indexerABI.Unpack("getLocators", ret)
	require.NoError(err)
	require.Equal([][32]byte{bobLoc}, out[0])
	require.Equal([]*big.Int{big.NewInt(200)}, out[1])
	require.Equal(bob, out[2])

	input, err = indexerABI.Pack("getLocators", tokenX, tokenY, bob, big.NewInt(1))
	require.NoError(err)
	ret, err = f.env.StaticCall(Precompile, alice, Address, input)
	require.NoError(err)
	out, err = indexerABI.Unpack("getLocators", ret)
	require.NoError(err)
	require.Equal([][32]byte{aliceLoc}, out[0])
	require.Equal(common.Address{}, out[2])

	require.Empty(f.locators(t, tokenX, tokenZ))
}

func TestGetLocatorsBoundedByGas(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	_, err := CreateIndex(f.env.State, tokenX, tokenY)
	require.NoError(err)
	index := OpenIndex(f.env.State, IndexID(tokenX, tokenY))
	users := make([]common.Address, 50)
	for i := range users {
		users[i] = common.BigToAddress(big.NewInt(int64(0x1000 + i)))
		index.SetLocator(users[i], uint256.NewInt(uint64(100-i)), [32]byte{byte(i)})
	}

	input, err := indexerABI.Pack("getLocators", tokenX, tokenY, common.Address{}, new(big.Int).Lsh(big.NewInt(1), 255))
	require.NoError(err)

	// enough gas for three entries
	ret, remaining, err := Precompile.Run(f.env, alice, Address, input, GasView+3*GasPerLocatorReturn+GasPerLocatorReturn/2, true)
	require.NoError(err)
	require.Less(remaining, GasPerLocatorReturn)
	out, err := indexerABI.Unpack("getLocators", ret)
	require.NoError(err)
	require.Len(out[0], 3)
	require.Equal(users[2], out[2])

	_, _, err = Precompile.Run(f.env, alice, Address, input, GasView+GasPerLocatorReturn-1, true)
	require.ErrorIs(err, contract.ErrOutOfGas)
}

func TestWritesRejectedInStaticCall(t *testing.T) {
	f := newFixture(t)
	input, err := indexerABI.Pack("createIndex", tokenX, tokenY)
	require.NoError(t, err)
	_, err = f.env.StaticCall(Precompile, alice, Address, input)
	require.ErrorIs(t, err, contract.ErrWriteProtection)
}

func TestConfigVerify(t *testing.T) {
	require := require.New(t)
	require.ErrorIs((&Config{StakingToken: stakeToken}).Verify(nil), errNoOwner)
	require.ErrorIs((&Config{Owner: owner}).Verify(nil), errNoStakingToken)
	require.NoError((&Config{Owner: owner, StakingToken: stakeToken}).Verify(nil))
}
