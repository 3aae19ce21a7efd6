// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package host

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/crypto"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lightswap/allowlist"
	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/erc20"
	"github.com/luxfi/lightswap/indexer"
	"github.com/luxfi/lightswap/light"
)

const (
	genesisTime = 1_700_000_000
	chainID     = 96369
)

var (
	owner      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	feeWallet  = common.HexToAddress("0x00000000000000000000000000000000000000fe")
	minter     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	taker      = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	stakeToken = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	tokenX     = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	tokenY     = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	makerLoc   = common.HexToHash("0x6d616b6572")
)

func genesisJSON(extra string) []byte {
	return []byte(fmt.Sprintf(`{
		"chainId": %d,
		"timestamp": %d,
		"lightConfig": {"owner": "%s", "protocolFee": 30, "protocolFeeWallet": "%s"},
		"indexerConfig": {"owner": "%s", "stakingToken": "%s"%s},
		"tokenBankConfig": {"minter": "%s"}
	}`, chainID, genesisTime, owner, feeWallet, owner, stakeToken, extra, minter))
}

func newChain(t *testing.T, opts ...Option) *Chain {
	t.Helper()
	g, err := ParseGenesis(genesisJSON(""))
	require.NoError(t, err)
	opts = append([]Option{WithLogger(log.NewTestLogger(log.InfoLevel))}, opts...)
	c, err := New(g, opts...)
	require.NoError(t, err)
	return c
}

type maker struct {
	key    *ecdsa.PrivateKey
	wallet common.Address
}

func newMaker(t *testing.T, c *Chain) maker {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	m := maker{key: key, wallet: light.KeyAddress(key)}
	unlimited := new(uint256.Int).SetAllOne()
	require.NoError(t, c.Do(func(stateDB contract.StateDB) error {
		if err := erc20.Mint(stateDB, tokenX, m.wallet, uint256.NewInt(100_000)); err != nil {
			return err
		}
		if err := erc20.Mint(stateDB, stakeToken, m.wallet, uint256.NewInt(1_000)); err != nil {
			return err
		}
		if err := erc20.Mint(stateDB, tokenY, taker, uint256.NewInt(5_000)); err != nil {
			return err
		}
		if err := erc20.Approve(stateDB, tokenX, m.wallet, light.Address, unlimited); err != nil {
			return err
		}
		if err := erc20.Approve(stateDB, stakeToken, m.wallet, indexer.Address, unlimited); err != nil {
			return err
		}
		return erc20.Approve(stateDB, tokenY, taker, light.Address, unlimited)
	}))
	return m
}

func (m maker) order(t *testing.T, c *Chain, nonce uint64) (*light.Order, light.Signature) {
	t.Helper()
	order := &light.Order{
		Nonce:        uint256.NewInt(nonce),
		Expiry:       uint256.NewInt(genesisTime + 60),
		SignerWallet: m.wallet,
		SignerToken:  tokenX,
		SignerAmount: uint256.NewInt(10_000),
		SenderWallet: taker,
		SenderToken:  tokenY,
		SenderAmount: uint256.NewInt(500),
	}
	domain := light.DomainSeparator(big.NewInt(chainID), light.Address)
	sig, err := light.SignOrder(m.key, domain, order, uint256.NewInt(30))
	require.NoError(t, err)
	return order, sig
}

func pack(t *testing.T, a contract.ExtendedABI, method string, args ...interface{}) []byte {
	t.Helper()
	input, err := a.Pack(method, args...)
	require.NoError(t, err)
	return input
}

func balanceOf(t *testing.T, c *Chain, token, who common.Address) *big.Int {
	t.Helper()
	bank := erc20.BankABI()
	ret, err := c.StaticCall(who, erc20.Address, pack(t, bank, "balanceOf", token, who))
	require.NoError(t, err)
	out, err := bank.Unpack("balanceOf", ret)
	require.NoError(t, err)
	return out[0].(*big.Int)
}

func TestDiscoverThenSettle(t *testing.T) {
	require := require.New(t)
	c := newChain(t)
	m := newMaker(t, c)
	idx := indexer.IndexerABI()

	_, err := c.Call(m.wallet, indexer.Address, pack(t, idx, "createIndex", tokenX, tokenY))
	require.NoError(err)
	_, err = c.Call(m.wallet, indexer.Address, pack(t, idx, "setIntent", tokenX, tokenY, big.NewInt(100), [32]byte(makerLoc)))
	require.NoError(err)

	ret, err := c.StaticCall(taker, indexer.Address, pack(t, idx, "getLocators", tokenX, tokenY, common.Address{}, big.NewInt(10)))
	require.NoError(err)
	out, err := idx.Unpack("getLocators", ret)
	require.NoError(err)
	require.Equal([][32]byte{makerLoc}, out[0])

	order, sig := m.order(t, c, 1)
	input, err := light.PackSwap(taker, order, sig)
	require.NoError(err)
	res, err := c.Call(taker, light.Address, input)
	require.NoError(err)
	require.NotZero(res.GasUsed)
	require.Len(res.Logs, 4)

	require.Equal(big.NewInt(9_970), balanceOf(t, c, tokenX, taker))
	require.Equal(big.NewInt(30), balanceOf(t, c, tokenX, feeWallet))
	require.Equal(big.NewInt(500), balanceOf(t, c, tokenY, m.wallet))

	_, err = c.Call(taker, light.Address, input)
	require.ErrorIs(err, light.ErrNonceAlreadyUsed)
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	require := require.New(t)
	c := newChain(t)
	m := newMaker(t, c)

	order, sig := m.order(t, c, 1)
	input, err := light.PackSwap(taker, order, sig)
	require.NoError(err)

	// the taker cannot cover the sender leg
	require.NoError(c.Do(func(stateDB contract.StateDB) error {
		return erc20.Transfer(stateDB, tokenY, taker, owner, uint256.NewInt(4_900))
	}))
	_, err = c.Call(taker, light.Address, input)
	require.ErrorIs(err, erc20.ErrInsufficientBalance)

	ret, err := c.StaticCall(taker, light.Address, pack(t, light.LightABI(), "nonceUsed", m.wallet, big.NewInt(1)))
	require.NoError(err)
	out, err := light.LightABI().Unpack("nonceUsed", ret)
	require.NoError(err)
	require.Equal(false, out[0])
	require.Equal(big.NewInt(100_000), balanceOf(t, c, tokenX, m.wallet))
}

func TestExpiryFollowsBlockTime(t *testing.T) {
	require := require.New(t)
	c := newChain(t)
	m := newMaker(t, c)
	order, sig := m.order(t, c, 1)
	input, err := light.PackSwap(taker, order, sig)
	require.NoError(err)

	require.NoError(c.AdvanceTime(60))
	_, err = c.Call(taker, light.Address, input)
	require.ErrorIs(err, light.ErrExpiryPassed)

	require.Error(c.SetTimestamp(genesisTime))
	require.Equal(uint64(1), c.BlockNumber())
}

func TestForkedChainRejectsSwaps(t *testing.T) {
	require := require.New(t)
	c := newChain(t)
	m := newMaker(t, c)
	order, sig := m.order(t, c, 1)
	input, err := light.PackSwap(taker, order, sig)
	require.NoError(err)

	c.SetChainID(big.NewInt(chainID + 1))
	_, err = c.Call(taker, light.Address, input)
	require.ErrorIs(err, light.ErrChainIDChanged)
}

func TestConcurrentSwapsSettleOnce(t *testing.T) {
	require := require.New(t)
	c := newChain(t)
	m := newMaker(t, c)
	order, sig := m.order(t, c, 1)
	input, err := light.PackSwap(taker, order, sig)
	require.NoError(err)

	const attempts = 8
	var (
		wg   sync.WaitGroup
		errs = make([]error, attempts)
	)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Call(taker, light.Address, input)
		}()
	}
	wg.Wait()

	var settled int
	for _, err := range errs {
		if err == nil {
			settled++
			continue
		}
		require.ErrorIs(err, light.ErrNonceAlreadyUsed)
	}
	require.Equal(1, settled)
	require.Equal(big.NewInt(9_970), balanceOf(t, c, tokenX, taker))
}

func TestRouting(t *testing.T) {
	require := require.New(t)
	c := newChain(t)

	// allowListConfig is absent from genesis
	require.False(c.Active(allowlist.Address))
	_, err := c.Call(owner, allowlist.Address, pack(t, allowlist.ListABI(), "owner"))
	require.ErrorIs(err, ErrNotActive)

	_, err = c.Call(owner, common.HexToAddress("0x1234"), []byte{1, 2, 3, 4})
	require.ErrorIs(err, ErrNoContract)

	_, err = c.StaticCall(owner, light.Address, pack(t, light.LightABI(), "cancelUpTo", big.NewInt(1)))
	require.ErrorIs(err, contract.ErrWriteProtection)

	_, err = c.CallWithGas(owner, light.Address, pack(t, light.LightABI(), "cancelUpTo", big.NewInt(1)), 100)
	require.ErrorIs(err, contract.ErrOutOfGas)
}

var errFlaky = errors.New("flaky read")

type flakyDB struct {
	database.Database
	fail bool
}

func (f *flakyDB) Get(key []byte) ([]byte, error) {
	if f.fail {
		return nil, errFlaky
	}
	return f.Database.Get(key)
}

func TestRecoversFromTransientReadFailure(t *testing.T) {
	require := require.New(t)
	db := &flakyDB{Database: memdb.New()}
	c := newChain(t, WithDatabase(db))
	lightABI := light.LightABI()

	db.fail = true
	_, err := c.Call(owner, light.Address, pack(t, lightABI, "cancelUpTo", big.NewInt(5)))
	require.ErrorIs(err, errFlaky)
	_, err = c.StaticCall(owner, light.Address, pack(t, lightABI, "protocolFee"))
	require.ErrorIs(err, errFlaky)

	db.fail = false
	_, err = c.Call(owner, light.Address, pack(t, lightABI, "cancelUpTo", big.NewInt(5)))
	require.NoError(err)
	ret, err := c.StaticCall(owner, light.Address, pack(t, lightABI, "signerMinimumNonce", owner))
	require.NoError(err)
	out, err := lightABI.Unpack("signerMinimumNonce", ret)
	require.NoError(err)
	require.Equal(big.NewInt(5), out[0])
}

func TestDelayedActivation(t *testing.T) {
	require := require.New(t)
	g, err := ParseGenesis(genesisJSON(fmt.Sprintf(`, "upgrade": {"blockTimestamp": %d}`, genesisTime+100)))
	require.NoError(err)
	c, err := New(g, WithLogger(log.NewTestLogger(log.InfoLevel)))
	require.NoError(err)

	require.True(c.Active(light.Address))
	require.False(c.Active(indexer.Address))

	require.NoError(c.AdvanceTime(99))
	require.False(c.Active(indexer.Address))
	require.NoError(c.AdvanceTime(1))
	require.True(c.Active(indexer.Address))

	ret, err := c.StaticCall(owner, indexer.Address, pack(t, indexer.IndexerABI(), "stakingToken"))
	require.NoError(err)
	out, err := indexer.IndexerABI().Unpack("stakingToken", ret)
	require.NoError(err)
	require.Equal(stakeToken, out[0])
}

type recorder struct {
	batches [][]*types.Log
}

func (r *recorder) Record(logs []*types.Log) error {
	r.batches = append(r.batches, logs)
	return nil
}

func TestArchiverSeesCommittedEventsOnly(t *testing.T) {
	require := require.New(t)
	rec := &recorder{}
	c := newChain(t, WithArchiver(rec))
	lightABI := light.LightABI()

	_, err := c.Call(taker, light.Address, pack(t, lightABI, "cancel", []*big.Int{big.NewInt(1), big.NewInt(2)}))
	require.NoError(err)
	_, err = c.Call(taker, light.Address, pack(t, lightABI, "setProtocolFee", big.NewInt(1)))
	require.ErrorIs(err, light.ErrNotOwner)
	_, err = c.Call(taker, light.Address, pack(t, lightABI, "cancelUpTo", big.NewInt(5)))
	require.NoError(err)

	require.Len(rec.batches, 2)
	require.Len(rec.batches[0], 2)
	require.Len(rec.batches[1], 1)
	require.Equal(uint(0), rec.batches[0][0].TxIndex)
	require.Equal(uint(1), rec.batches[1][0].TxIndex)
	require.Equal(lightABI.Events["CancelUpTo"].ID, rec.batches[1][0].Topics[0])
}
