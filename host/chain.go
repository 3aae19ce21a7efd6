// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package host executes calls against the market precompiles. It gives
// them what a chain would: calls run one at a time, each call's writes
// commit together or not at all, and committed events are handed to an
// optional archiver.
package host

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	log "github.com/luxfi/log"

	"github.com/luxfi/lightswap/contract"
	"github.com/luxfi/lightswap/modules"
	"github.com/luxfi/lightswap/precompileconfig"
	"github.com/luxfi/lightswap/registry"
	"github.com/luxfi/lightswap/state"
)

var (
	_ contract.AccessibleState     = (*Chain)(nil)
	_ precompileconfig.ChainConfig = (*Chain)(nil)
)

var (
	ErrNoContract = errors.New("no contract at address")
	ErrNotActive  = errors.New("contract not active")
)

// DefaultGasLimit is the gas supplied by Call when none is given.
const DefaultGasLimit uint64 = 10_000_000

// Archiver receives the events of every committed call.
type Archiver interface {
	Record(logs []*types.Log) error
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger. The default is log.Root().
func WithLogger(logger log.Logger) Option {
	return func(c *Chain) { c.logger = logger }
}

// WithDatabase sets the backing store. The default is an in-memory db.
func WithDatabase(db database.Database) Option {
	return func(c *Chain) { c.db = db }
}

// WithArchiver forwards committed events to a.
func WithArchiver(a Archiver) Option {
	return func(c *Chain) { c.archiver = a }
}

// Result is the outcome of a committed call.
type Result struct {
	Return  []byte
	GasUsed uint64
	Logs    []*types.Log
}

// Chain is a single-threaded execution environment for the precompiles.
// Every exported method is safe for concurrent use; calls are totally
// ordered by an internal mutex.
type Chain struct {
	mu sync.Mutex

	db       database.Database
	state    *state.StateDB
	logger   log.Logger
	archiver Archiver

	chainID   *big.Int
	number    uint64
	timestamp uint64
	txIndex   uint

	active  map[common.Address]bool
	pending []precompileconfig.Config
}

// New applies genesis to a fresh chain.
func New(genesis *Genesis, opts ...Option) (*Chain, error) {
	if genesis.ChainID == nil || genesis.ChainID.Sign() <= 0 {
		return nil, errNoChainID
	}
	c := &Chain{
		logger:    log.Root(),
		chainID:   new(big.Int).Set(genesis.ChainID),
		timestamp: genesis.Timestamp,
		active:    make(map[common.Address]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.db == nil {
		c.db = memdb.New()
	}
	c.state = state.New(c.db)

	for _, cfg := range genesis.Configs {
		if cfg.IsDisabled() {
			continue
		}
		if err := cfg.Verify(c); err != nil {
			return nil, fmt.Errorf("verifying %s: %w", cfg.Key(), err)
		}
		c.pending = append(c.pending, cfg)
	}
	if err := c.activate(); err != nil {
		return nil, err
	}
	return c, nil
}

// activate configures every pending module whose activation time has come.
func (c *Chain) activate() error {
	var waiting []precompileconfig.Config
	for i, cfg := range c.pending {
		if ts := cfg.Timestamp(); ts != nil && *ts > c.timestamp {
			waiting = append(waiting, cfg)
			continue
		}
		if err := c.configure(cfg); err != nil {
			c.pending = append(waiting, c.pending[i+1:]...)
			return err
		}
	}
	c.pending = waiting
	return nil
}

func (c *Chain) configure(cfg precompileconfig.Config) error {
	m, ok := modules.GetPrecompileModule(cfg.Key())
	if !ok {
		return fmt.Errorf("no module registered for %s", cfg.Key())
	}
	if err := m.Configure(c, cfg, c.state, c.blockContext()); err != nil {
		c.state.Discard()
		return fmt.Errorf("configuring %s: %w", cfg.Key(), err)
	}
	if err := c.state.Commit(); err != nil {
		return fmt.Errorf("committing %s: %w", cfg.Key(), err)
	}
	c.active[m.Address] = true
	c.logger.Info("activated precompile",
		"key", cfg.Key(),
		"address", m.Address,
		"timestamp", c.timestamp,
	)
	return nil
}

// Call runs input against the contract at to as caller with the default
// gas limit.
func (c *Chain) Call(caller, to common.Address, input []byte) (*Result, error) {
	return c.CallWithGas(caller, to, input, DefaultGasLimit)
}

// CallWithGas runs input against the contract at to. A failed call leaves
// no trace in state.
func (c *Chain) CallWithGas(caller, to common.Address, input []byte, gas uint64) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.lookup(to)
	if err != nil {
		return nil, err
	}

	c.state.SetTxContext(c.number, c.txIndex)
	snap := c.state.Snapshot()
	ret, remaining, err := m.Contract.Run(c, caller, to, input, gas, false)
	if err == nil {
		err = c.state.Error()
	}
	if err != nil {
		c.state.RevertToSnapshot(snap)
		c.state.Discard()
		c.logger.Debug("call reverted",
			"contract", contractName(to),
			"caller", caller,
			"err", err,
		)
		return nil, err
	}

	logs := c.state.Logs()
	if err := c.state.Commit(); err != nil {
		c.state.Discard()
		return nil, fmt.Errorf("committing call: %w", err)
	}
	c.txIndex++
	used := gas - remaining
	c.logger.Debug("call committed",
		"contract", contractName(to),
		"caller", caller,
		"gasUsed", used,
		"logs", len(logs),
	)

	if c.archiver != nil && len(logs) > 0 {
		if err := c.archiver.Record(logs); err != nil {
			c.logger.Warn("archiving events failed", "block", c.number, "err", err)
		}
	}
	return &Result{Return: ret, GasUsed: used, Logs: logs}, nil
}

// StaticCall runs a read-only call. State is never modified.
func (c *Chain) StaticCall(caller, to common.Address, input []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.lookup(to)
	if err != nil {
		return nil, err
	}
	snap := c.state.Snapshot()
	ret, _, err := m.Contract.Run(c, caller, to, input, DefaultGasLimit, true)
	if err == nil {
		err = c.state.Error()
	}
	c.state.RevertToSnapshot(snap)
	c.state.Discard()
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Do runs fn with exclusive access to state and commits its writes if it
// returns nil. Genesis funding and tooling use it to act outside the ABI.
func (c *Chain) Do(fn func(stateDB contract.StateDB) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.state.Snapshot()
	if err := fn(c.state); err != nil {
		c.state.RevertToSnapshot(snap)
		c.state.Discard()
		return err
	}
	if err := c.state.Commit(); err != nil {
		c.state.Discard()
		return err
	}
	return nil
}

func (c *Chain) lookup(to common.Address) (modules.Module, error) {
	m, ok := modules.GetPrecompileModuleByAddress(to)
	if !ok {
		return modules.Module{}, fmt.Errorf("%w: %s", ErrNoContract, to)
	}
	if !c.active[to] {
		return modules.Module{}, fmt.Errorf("%w: %s", ErrNotActive, contractName(to))
	}
	return m, nil
}

// AdvanceTime starts a new block seconds later and activates any module
// whose activation time has come.
func (c *Chain) AdvanceTime(seconds uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setTime(c.timestamp + seconds)
}

// SetTimestamp starts a new block at ts. Time never moves backwards.
func (c *Chain) SetTimestamp(ts uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts < c.timestamp {
		return fmt.Errorf("timestamp %d before current %d", ts, c.timestamp)
	}
	return c.setTime(ts)
}

func (c *Chain) setTime(ts uint64) error {
	c.timestamp = ts
	c.number++
	c.txIndex = 0
	return c.activate()
}

// SetChainID changes the id calls execute under, as after a fork.
func (c *Chain) SetChainID(id *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Info("chain id changed", "from", c.chainID, "to", id)
	c.chainID = new(big.Int).Set(id)
}

// Active reports whether the contract at addr has been configured.
func (c *Chain) Active(addr common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[addr]
}

// BlockNumber returns the current block number.
func (c *Chain) BlockNumber() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.number
}

// The methods below are called from inside Run and Configure with c.mu
// already held.

func (c *Chain) GetStateDB() contract.StateDB { return c.state }

func (c *Chain) GetBlockContext() contract.BlockContext { return c.blockContext() }

func (c *Chain) GetChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// ChainID implements precompileconfig.ChainConfig.
func (c *Chain) ChainID() *big.Int { return c.GetChainID() }

func (c *Chain) blockContext() blockContext {
	return blockContext{number: c.number, timestamp: c.timestamp}
}

type blockContext struct {
	number    uint64
	timestamp uint64
}

func (b blockContext) Number() *big.Int { return new(big.Int).SetUint64(b.number) }

func (b blockContext) Timestamp() uint64 { return b.timestamp }

func contractName(addr common.Address) string {
	if name, ok := registry.NameOf(addr); ok {
		return name
	}
	return addr.Hex()
}
